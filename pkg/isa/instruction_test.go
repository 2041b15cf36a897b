package isa

import (
	"strings"
	"testing"
)

func tokenize(s string) []string {
	return strings.Fields(strings.NewReplacer(",", " ").Replace(s))
}

func mustParse(t *testing.T, src string) *Instruction {
	t.Helper()
	instr, err := FromTokens(tokenize(src), Pos{File: "test", Line: 1})
	if err != nil {
		t.Fatalf("FromTokens(%q): %v", src, err)
	}
	return instr
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []string{
		"nop",
		"add.p0 r1, r2, r3",
		"sub r0, r1, r2",
		"eq.p0 p1, r2, r3",
		"putpt.p1 p2",
		"push.p0 r0, r1, r6",
		"pop r2, r3",
		"ld r0, r1, r2",
	}
	for _, src := range cases {
		instr := mustParse(t, src)
		words, err := instr.Encode()
		if err != nil {
			t.Fatalf("%q: Encode: %v", src, err)
		}
		decoded, size, err := Decode(words)
		if err != nil {
			t.Fatalf("%q: Decode: %v", src, err)
		}
		if size != len(words) {
			t.Fatalf("%q: Decode consumed %d words, Encode produced %d", src, size, len(words))
		}
		if decoded.Name != instr.Name {
			t.Errorf("%q: decoded name %q, want %q", src, decoded.Name, instr.Name)
		}
		for slot, val := range instr.Ops {
			if decoded.Ops[slot] != val {
				t.Errorf("%q: slot %q decoded as %d, want %d", src, slot, decoded.Ops[slot], val)
			}
		}
	}
}

func TestImmediateOperandRoundTrip(t *testing.T) {
	instr := mustParse(t, "add.p0 r1, r2, 42")
	if instr.Imm == nil || instr.Imm.Value != 42 {
		t.Fatalf("expected immediate 42, got %+v", instr.Imm)
	}
	if instr.Ops["c"] != GREGs["r7"] {
		t.Fatalf("immediate operand should encode c as r7")
	}

	words, err := instr.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(words) != 2 || int16(words[1]) != 42 {
		t.Fatalf("expected two words with imm word 42, got %v", words)
	}

	decoded, size, err := Decode(words)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if size != 2 || decoded.Imm == nil || decoded.Imm.Value != 42 {
		t.Fatalf("round trip lost immediate: %+v (size %d)", decoded.Imm, size)
	}
}

func TestExplicitR7Rejected(t *testing.T) {
	_, err := FromTokens(tokenize("add.p0 r1, r2, r7"), Pos{})
	if err == nil {
		t.Fatal("expected error naming r7 explicitly")
	}
}

func TestLabelReferenceDeferred(t *testing.T) {
	instr := mustParse(t, "bt.p0 $loop")
	if instr.Imm == nil || instr.Imm.Label != "$loop" {
		t.Fatalf("expected deferred label reference, got %+v", instr.Imm)
	}
	if _, err := instr.Encode(); err == nil {
		t.Fatal("Encode should fail while a label reference is unresolved")
	}
}

func TestSynonyms(t *testing.T) {
	b := mustParse(t, "b $target")
	if b.Name != "bt" || b.Ops["p"] != PT {
		t.Fatalf("b should rewrite to bt gated on pt, got name=%q ops=%v", b.Name, b.Ops)
	}

	ret := mustParse(t, "ret")
	if ret.Name != "jt" || ret.Ops["c"] != LR {
		t.Fatalf("ret should rewrite to jt c=lr, got name=%q ops=%v", ret.Name, ret.Ops)
	}

	movz := mustParse(t, "movz.p1 r3")
	if movz.Name != "xor" || movz.Ops["a"] != 3 || movz.Ops["b"] != 3 || movz.Ops["c"] != 3 {
		t.Fatalf("movz should rewrite to xor r3,r3,r3, got ops=%v", movz.Ops)
	}
}

func TestPushPopRegisterList(t *testing.T) {
	instr := mustParse(t, "push r0, r2, r6")
	want := uint8(1<<0 | 1<<2 | 1<<6)
	if instr.Ops["d"] != want {
		t.Fatalf("push mask = %07b, want %07b", instr.Ops["d"], want)
	}

	if _, err := FromTokens(tokenize("push sp"), Pos{}); err == nil {
		t.Fatal("push with sp should be rejected")
	}
	if _, err := FromTokens(tokenize("push r0, r0"), Pos{}); err == nil {
		t.Fatal("push with a duplicate register should be rejected")
	}
}

func TestStringRoundTrip(t *testing.T) {
	for _, src := range []string{
		"add.p0 r1, r2, r3",
		"eq.p1 p0, r2, r3",
		"bt.p0 r3",
	} {
		instr := mustParse(t, src)
		rendered := instr.String()
		again, err := FromTokens(tokenize(rendered), Pos{})
		if err != nil {
			t.Fatalf("re-parsing rendered %q (from %q): %v", rendered, src, err)
		}
		if again.Name != instr.Name {
			t.Errorf("%q rendered as %q, round-trip name %q != %q", src, rendered, again.Name, instr.Name)
		}
	}
}

func TestUnknownMnemonic(t *testing.T) {
	_, err := FromTokens(tokenize("frobnicate r0"), Pos{})
	if err == nil {
		t.Fatal("expected unknown-mnemonic error")
	}
}
