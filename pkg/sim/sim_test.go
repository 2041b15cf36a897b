package sim

import (
	"testing"

	"github.com/theultimat/idli/pkg/isa"
)

func assemble(t *testing.T, instrs ...*isa.Instruction) []byte {
	t.Helper()
	var out []byte
	for _, instr := range instrs {
		words, err := instr.Encode()
		if err != nil {
			t.Fatalf("Encode(%s): %v", instr.Name, err)
		}
		for _, w := range words {
			out = append(out, byte(w>>8), byte(w))
		}
	}
	return out
}

func i(name string, ops map[string]uint8, imm *isa.Immediate) *isa.Instruction {
	return &isa.Instruction{Name: name, Ops: ops, Imm: imm}
}

func mustTick(t *testing.T, sim *Simulator) {
	t.Helper()
	if err := sim.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
}

// S4: add with an immediate writes the expected sum to the destination
// register.
func TestScenarioS4Add(t *testing.T) {
	prog := assemble(t,
		i("mov", map[string]uint8{"p": isa.PT, "a": 0, "c": isa.GREGs["r7"]}, &isa.Immediate{Value: 40}),
		i("add", map[string]uint8{"p": isa.PT, "a": 1, "b": 0, "c": isa.GREGs["r7"]}, &isa.Immediate{Value: 2}),
	)
	s, err := New(prog, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	mustTick(t, s)
	mustTick(t, s)

	v, ok := s.GREG(1)
	if !ok || v != 42 {
		t.Fatalf("r1 = %v, ok=%v, want 42, true", v, ok)
	}
	if s.PC != 4 {
		t.Fatalf("PC = 0x%04x, want 0x0004", s.PC)
	}
}

// S5: a false predicate suppresses the instruction's side effects but
// still consumes its immediate word, leaving PC past both words.
func TestScenarioS5PredicatedSkip(t *testing.T) {
	prog := assemble(t,
		// p0 is never written -> reads false, by construction of a
		// zero-valued predicate register... but p0 starts undefined, so
		// instead explicitly clear it via eq comparing unequal values.
		i("mov", map[string]uint8{"p": isa.PT, "a": 0, "c": isa.GREGs["r7"]}, &isa.Immediate{Value: 1}),
		i("mov", map[string]uint8{"p": isa.PT, "a": 1, "c": isa.GREGs["r7"]}, &isa.Immediate{Value: 2}),
		i("eq", map[string]uint8{"p": isa.PT, "q": 0, "b": 0, "c": 1}, nil),
		i("mov", map[string]uint8{"p": 0, "a": 2, "c": isa.GREGs["r7"]}, &isa.Immediate{Value: 99}),
	)
	s, err := New(prog, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for n := 0; n < 3; n++ {
		mustTick(t, s)
	}

	pcBefore := s.PC
	mustTick(t, s)

	if _, ok := s.GREG(2); ok {
		t.Fatalf("r2 should still be undefined after a skipped instruction")
	}
	// The skipped mov still carries an immediate word, so PC must have
	// advanced by 2 words even though it had no other effect.
	if s.PC != pcBefore+2 {
		t.Fatalf("PC = 0x%04x, want 0x%04x (skip still consumes the immediate)", s.PC, pcBefore+2)
	}
}

// S6: push followed by pop restores the original register values,
// demonstrating round-trip identity through the stack.
func TestScenarioS6PushPopIdentity(t *testing.T) {
	const stackTop = 0x100
	prog := assemble(t,
		i("mov", map[string]uint8{"p": isa.PT, "a": isa.SP, "c": isa.GREGs["r7"]}, &isa.Immediate{Value: stackTop}),
		i("mov", map[string]uint8{"p": isa.PT, "a": 0, "c": isa.GREGs["r7"]}, &isa.Immediate{Value: 11}),
		i("mov", map[string]uint8{"p": isa.PT, "a": 1, "c": isa.GREGs["r7"]}, &isa.Immediate{Value: 22}),
		i("push", map[string]uint8{"p": isa.PT, "d": 0b0000011}, nil),
		i("mov", map[string]uint8{"p": isa.PT, "a": 0, "c": isa.GREGs["r7"]}, &isa.Immediate{Value: 0}),
		i("mov", map[string]uint8{"p": isa.PT, "a": 1, "c": isa.GREGs["r7"]}, &isa.Immediate{Value: 0}),
		i("pop", map[string]uint8{"p": isa.PT, "d": 0b0000011}, nil),
	)
	s, err := New(prog, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for n := 0; n < 7; n++ {
		mustTick(t, s)
	}

	r0, _ := s.GREG(0)
	r1, _ := s.GREG(1)
	sp, _ := s.GREG(isa.SP)

	if r0 != 11 || r1 != 22 {
		t.Fatalf("r0=%d r1=%d, want 11, 22", r0, r1)
	}
	if sp != stackTop {
		t.Fatalf("sp = 0x%04x, want 0x%04x (push/pop must balance)", sp, stackTop)
	}
}

// Register-vs-zero branches must compare by their own mnemonic, not all
// fall through to a single comparison.
func TestBranchRegDistinguishesComparisons(t *testing.T) {
	cases := []struct {
		name   string
		value  int16
		branch bool
	}{
		{"beqz", 0, true},
		{"beqz", 1, false},
		{"bnez", 0, false},
		{"bnez", 1, true},
		{"bltz", -1, true},
		{"bltz", 0, false},
		{"bgez", 0, true},
		{"bgez", -1, false},
	}

	for _, tc := range cases {
		prog := assemble(t,
			i("mov", map[string]uint8{"p": isa.PT, "a": 0, "c": isa.GREGs["r7"]}, &isa.Immediate{Value: tc.value}),
			i(tc.name, map[string]uint8{"b": 0, "c": isa.GREGs["r7"]}, &isa.Immediate{Value: 10}),
		)
		s, err := New(prog, nil)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		mustTick(t, s)
		mustTick(t, s)

		wantPC := uint16(4) // mov(2) + branch(2), not taken
		if tc.branch {
			wantPC = 3 + 10 // PC advanced past the branch's opcode word (3) + immediate (10)
		}
		if s.PC != wantPC {
			t.Errorf("%s value=%d: PC = 0x%04x, want 0x%04x", tc.name, tc.value, s.PC, wantPC)
		}
	}
}

// Reading an uninitialised register is a fatal error, per spec.
func TestReadUninitializedGREGIsFatal(t *testing.T) {
	prog := assemble(t, i("add", map[string]uint8{"p": isa.PT, "a": 0, "b": 1, "c": 2}, nil))
	s, err := New(prog, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Tick(); err == nil {
		t.Fatal("expected a fatal error reading an uninitialised register")
	}
}

// recordingCallback captures the addr/value pairs observed by ReadMem and
// WriteMem, so tests can assert on the bus (on-medium, byte-swapped) view
// separately from the architectural value returned to the program.
type recordingCallback struct {
	NullCallback
	reads  []memAccess
	writes []memAccess
}

type memAccess struct {
	addr  uint16
	value uint16
}

func (cb *recordingCallback) ReadMem(addr, value uint16) {
	cb.reads = append(cb.reads, memAccess{addr, value})
}

func (cb *recordingCallback) WriteMem(addr, value uint16) {
	cb.writes = append(cb.writes, memAccess{addr, value})
}

// A store followed by a load of the same address round-trips the
// architectural value, while the bus (callback) observes the byte-swapped
// on-medium representation on both the store and the load.
func TestLoadStoreRoundTripsArchitecturalValue(t *testing.T) {
	prog := assemble(t,
		i("mov", map[string]uint8{"p": isa.PT, "a": 0, "c": isa.GREGs["r7"]}, &isa.Immediate{Value: 0x10}),
		i("mov", map[string]uint8{"p": isa.PT, "a": 1, "c": isa.GREGs["r7"]}, &isa.Immediate{Value: 0x1234}),
		i("st", map[string]uint8{"p": isa.PT, "a": 1, "b": 0, "c": isa.GREGs["r7"]}, &isa.Immediate{Value: 0}),
		i("ld", map[string]uint8{"p": isa.PT, "a": 2, "b": 0, "c": isa.GREGs["r7"]}, &isa.Immediate{Value: 0}),
	)
	cb := &recordingCallback{}
	s, err := New(prog, cb)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for n := 0; n < 4; n++ {
		mustTick(t, s)
	}

	v, ok := s.GREG(2)
	if !ok || v != 0x1234 {
		t.Fatalf("r2 = 0x%04x, ok=%v, want 0x1234, true", v, ok)
	}

	mv, ok := s.MemWord(0x10)
	if !ok || mv != 0x1234 {
		t.Fatalf("MemWord(0x10) = 0x%04x, ok=%v, want 0x1234, true", mv, ok)
	}

	if len(cb.writes) != 1 || cb.writes[0].addr != 0x10 || cb.writes[0].value != 0x3412 {
		t.Fatalf("writes = %+v, want one write to 0x10 of 0x3412", cb.writes)
	}
	if len(cb.reads) != 1 || cb.reads[0].addr != 0x10 || cb.reads[0].value != 0x3412 {
		t.Fatalf("reads = %+v, want one read from 0x10 of 0x3412", cb.reads)
	}
}

// A word placed directly in memory (as the assembler's output would place
// a .int constant) must load back as its own architectural value, not its
// byte swap - this is the case a pure store/load round trip can't catch,
// since a round trip cancels the swap out.
func TestLoadOfPreloadedWordIsArchitectural(t *testing.T) {
	// mov r0, 4 then ld r1, [r0] - the ld's own immediate word sits right
	// after it, so the preloaded constant must be placed at address 4 to
	// land just past both instructions, the way the assembler would lay
	// out a following .int directive.
	prog := assemble(t,
		i("mov", map[string]uint8{"p": isa.PT, "a": 0, "c": isa.GREGs["r7"]}, &isa.Immediate{Value: 4}),
		i("ld", map[string]uint8{"p": isa.PT, "a": 1, "b": 0, "c": isa.GREGs["r7"]}, &isa.Immediate{Value: 0}),
	)
	prog = append(prog, 0x12, 0x34)

	s, err := New(prog, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	mustTick(t, s)
	mustTick(t, s)

	v, ok := s.GREG(1)
	if !ok || v != 0x1234 {
		t.Fatalf("r1 = 0x%04x, ok=%v, want 0x1234, true (architectural value of the preloaded word)", v, ok)
	}
}

func TestPushPopUsesRedesignedSevenBitMask(t *testing.T) {
	instr := i("push", map[string]uint8{"p": isa.PT, "d": 0b1010101}, nil)
	words, err := instr.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, size, err := isa.Decode(words)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if size != 1 || decoded.Name != "push" || decoded.Ops["d"] != 0b1010101 {
		t.Fatalf("decoded = %+v, size=%d", decoded, size)
	}
}
