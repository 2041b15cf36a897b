package disasm

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/theultimat/idli/pkg/isa"
)

func encodeWords(t *testing.T, words ...uint16) []byte {
	t.Helper()
	buf := make([]byte, len(words)*2)
	for i, w := range words {
		binary.BigEndian.PutUint16(buf[i*2:], w)
	}
	return buf
}

func mustEncode(t *testing.T, mnemonic string, ops map[string]uint8, imm *isa.Immediate) []uint16 {
	t.Helper()
	instr := &isa.Instruction{Name: mnemonic, Ops: ops, Imm: imm}
	words, err := instr.Encode()
	if err != nil {
		t.Fatalf("Encode(%s): %v", mnemonic, err)
	}
	return words
}

func TestDisassembleNop(t *testing.T) {
	data := encodeWords(t, 0x0000)
	lines, err := Disassemble(data, false)
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	if len(lines) != 1 || !strings.Contains(lines[0], "nop") {
		t.Fatalf("got %v, want one line containing nop", lines)
	}
}

func TestDisassembleOddLengthRejected(t *testing.T) {
	if _, err := Disassemble([]byte{0x00}, false); err == nil {
		t.Fatal("expected error for odd-length input")
	}
}

func TestDisassembleUnknownWordFallsBackToRaw(t *testing.T) {
	// 0xffff matches nothing in the catalog (every instruction's opcode
	// bits are more constrained than an all-ones word).
	data := encodeWords(t, 0xffff)
	lines, err := Disassemble(data, false)
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	if len(lines) != 1 || !strings.Contains(lines[0], ".data 0xffff") {
		t.Fatalf("got %v, want a raw .data line", lines)
	}
}

func TestDisassembleFoldsRunsOfThreeOrMore(t *testing.T) {
	data := encodeWords(t, 0x0000, 0x0000, 0x0000, 0x0000)
	lines, err := Disassemble(data, false)
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3 (first, '*', last): %v", len(lines), lines)
	}
	if strings.TrimSpace(lines[1]) != "*" {
		t.Errorf("middle line = %q, want '*'", lines[1])
	}
}

func TestDisassembleVerboseDoesNotFold(t *testing.T) {
	data := encodeWords(t, 0x0000, 0x0000, 0x0000, 0x0000)
	lines, err := Disassemble(data, true)
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	if len(lines) != 4 {
		t.Fatalf("got %d lines with verbose, want 4 (one per word): %v", len(lines), lines)
	}
}

func TestDisassembleAbsoluteJumpTarget(t *testing.T) {
	// jt.pt r7 with immediate 0x10 -> absolute jump to 0x10.
	words := mustEncode(t, "jt", map[string]uint8{"p": isa.PT, "c": isa.GREGs["r7"]}, &isa.Immediate{Value: 0x10})
	data := encodeWords(t, words...)

	lines, err := Disassemble(data, false)
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	if len(lines) != 1 || !strings.Contains(lines[0], "target=0x10") {
		t.Fatalf("got %v, want target=0x10", lines)
	}
}

func TestDisassemblePCRelativeBranchTarget(t *testing.T) {
	// beqz r0, -1 at pc=0 -> target = 0 + 1 + (-1) = 0.
	words := mustEncode(t, "beqz", map[string]uint8{"b": 0, "c": isa.GREGs["r7"]}, &isa.Immediate{Value: -1})
	data := encodeWords(t, words...)

	lines, err := Disassemble(data, false)
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	if len(lines) != 1 || !strings.Contains(lines[0], "target=0x0") {
		t.Fatalf("got %v, want target=0x0", lines)
	}
}
