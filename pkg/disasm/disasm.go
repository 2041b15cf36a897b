// Package disasm turns a raw idli binary back into an assembly listing:
// decode each word (falling back to raw data when nothing in the
// instruction catalog matches), fold runs of 3+ identical consecutive
// items down to a first/"*"/last shorthand, and annotate branch and jump
// targets.
package disasm

import (
	"encoding/binary"
	"fmt"
	"reflect"

	"github.com/theultimat/idli/pkg/isa"
)

// item is one decode result before run-folding: either a decoded
// instruction or a raw, undecodable data word.
type item struct {
	instr *isa.Instruction
	raw   uint16
	size  int
}

func (a item) equal(b item) bool {
	if (a.instr == nil) != (b.instr == nil) {
		return false
	}
	if a.instr == nil {
		return a.raw == b.raw
	}
	// Unlike the original Python (whose Instruction class has no __eq__,
	// so two decoded instructions are never equal even with identical
	// content, only raw int words fold into runs), this compares decoded
	// instructions by value: spec.md's run-folding property describes
	// identical *items* generally, not raw words specifically.
	return reflect.DeepEqual(a.instr, b.instr)
}

type run struct {
	item
	count int
}

// decode walks data (which must have an even length) into a run-length
// encoded item list.
func decode(data []byte) ([]run, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("input is not a multiple of 2 bytes: %d", len(data))
	}

	words := make([]uint16, len(data)/2)
	for i := range words {
		words[i] = binary.BigEndian.Uint16(data[i*2:])
	}

	var runs []run
	for i := 0; i < len(words); {
		var it item
		if instr, size, err := isa.Decode(words[i:]); err == nil {
			it = item{instr: instr, size: size}
			i += size
		} else {
			it = item{raw: words[i], size: 1}
			i++
		}

		if n := len(runs); n > 0 && runs[n-1].item.equal(it) {
			runs[n-1].count++
		} else {
			runs = append(runs, run{item: it, count: 1})
		}
	}
	return runs, nil
}

func isPCRelativeBranch(name string) bool {
	return isa.BranchRegMnemonics[name] || (isa.BranchPredMnemonics[name] && !isa.JumpMnemonics[name])
}

func isAbsoluteJump(name string) bool {
	return isa.JumpMnemonics[name]
}

// Disassemble renders data as a listing of "pc:  raw words  mnemonic"
// lines, one group per (possibly folded) run, in the same format as the
// original objdump.py: `{pc:04x}:  {raw:12}  {line}`.
func Disassemble(data []byte, verbose bool) ([]string, error) {
	runs, err := decode(data)
	if err != nil {
		return nil, err
	}

	var lines []string
	pc := 0

	for _, r := range runs {
		raw, line, size := renderRun(r, pc)

		if verbose || r.count < 3 {
			for i := 0; i < r.count; i++ {
				lines = append(lines, fmt.Sprintf("%04x:  %-12s  %s", pc, raw, line))
				pc += size
			}
			continue
		}

		lines = append(lines, fmt.Sprintf("%04x:  %-12s  %s", pc, raw, line))
		pc += size

		lines = append(lines, " *")
		pc += size * (r.count - 2)

		lines = append(lines, fmt.Sprintf("%04x:  %-12s  %s", pc, raw, line))
		pc += size
	}

	return lines, nil
}

func renderRun(r run, pc int) (raw, line string, size int) {
	if r.instr == nil {
		return fmt.Sprintf("%04x", r.raw), fmt.Sprintf(".data 0x%04x", r.raw), 1
	}

	words, err := r.instr.Encode()
	if err != nil {
		// Decoded instructions are always fully resolved (no pending
		// label reference survives a round trip through raw bytes), so
		// this only happens on an internal inconsistency.
		return fmt.Sprintf("%04x", 0), fmt.Sprintf("<encode error: %v>", err), r.size
	}

	raw = fmt.Sprintf("%04x", words[0])
	if len(words) > 1 {
		raw = fmt.Sprintf("%s %04x", raw, words[1])
	}
	line = r.instr.String()
	size = r.size

	// Only annotate the target when this run wasn't folded: on a folded
	// run every repeated occurrence shares one pc, so the annotation
	// would be correct for the first only.
	if r.count != 1 {
		return raw, line, size
	}

	knowTarget := r.instr.Imm != nil
	var target string
	annotated := false

	switch {
	case isPCRelativeBranch(r.instr.Name):
		annotated = true
		if knowTarget {
			target = fmt.Sprintf("0x%x", pc+1+int(r.instr.Imm.Value))
		} else {
			target = "?"
		}
	case isAbsoluteJump(r.instr.Name):
		annotated = true
		if knowTarget {
			target = fmt.Sprintf("0x%x", uint16(r.instr.Imm.Value))
		} else {
			target = "?"
		}
	}

	if annotated {
		line = fmt.Sprintf("%s # target=%s", line, target)
	}
	return raw, line, size
}
