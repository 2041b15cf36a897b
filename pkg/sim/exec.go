package sim

import (
	"fmt"

	"github.com/theultimat/idli/pkg/isa"
)

// Tick fetches, decodes, and (if its predicate passes) executes one
// instruction, advancing PC. Grounded on sim.py's Idli.tick: PC is moved
// past the fetched instruction's first word *before* dispatch runs, since
// a taken branch or jump overwrites PC itself; dispatch reports whether
// it redirected PC so Tick knows whether the pre-advance should stand.
func (sim *Simulator) Tick() error {
	instr, nextPC, err := sim.fetch()
	if err != nil {
		return err
	}
	if sim.Trace != nil {
		fmt.Fprintf(sim.Trace, "RUN     0x%04x    %s\n", sim.PC, instr)
	}

	sim.PC = nextPC

	run, err := sim.checkRun(instr)
	if err != nil {
		return err
	}

	redirected := false
	if run {
		ops, err := sim.getOperands(instr)
		if err != nil {
			return err
		}
		redirected, err = sim.dispatch(instr, ops)
		if err != nil {
			return err
		}
	} else if sim.Trace != nil {
		fmt.Fprintf(sim.Trace, "SKIP    %s\n", isa.PREGName[instr.Ops["p"]])
	}

	if !redirected {
		sim.PC = (sim.PC + uint16(instr.Size()) - 1) & 0xffff
	}
	return nil
}

// fetch reads the instruction at PC. It always looks at PC+1 too, since
// decode needs it to tell a 2-word instruction from a 1-word one, but
// only treats PC+1 as required when the decoded instruction turns out to
// actually carry an immediate.
func (sim *Simulator) fetch() (*isa.Instruction, uint16, error) {
	w0, ok0 := sim.mem[sim.PC]
	if !ok0 {
		return nil, 0, &RuntimeError{Err: fmt.Errorf("%w: fetch at 0x%04x", ErrUninitializedMem, sim.PC)}
	}
	nextPC := (sim.PC + 1) & 0xffff
	w1, ok1 := sim.mem[nextPC]

	instr, size, err := isa.Decode([]uint16{w0, w1})
	if err != nil {
		return nil, 0, &RuntimeError{Err: err}
	}
	if size == 2 && !ok1 {
		return nil, 0, &RuntimeError{Err: fmt.Errorf("%w: fetch of immediate word at 0x%04x", ErrUninitializedMem, nextPC)}
	}
	return instr, nextPC, nil
}

// checkRun reports whether instr's predicate currently holds. An
// instruction with no p slot at all (the register-vs-zero branches, and
// nop) always runs.
func (sim *Simulator) checkRun(instr *isa.Instruction) (bool, error) {
	pred, ok := instr.Ops["p"]
	if !ok {
		return true, nil
	}
	value, err := sim.readPREG(pred)
	if err != nil {
		return false, err
	}
	if isa.NegatedPredMnemonics[instr.Name] {
		value = !value
	}
	return value, nil
}

// getOperands resolves every readable operand slot to its current value.
// 'p' and 'q' are never resolved here: 'p' is handled by checkRun, and
// 'q' is always a write-only predicate destination that every handler
// below reads directly off instr.Ops["q"] rather than through this map
// (unlike sim.py's _get_operands, which also computes a value for 'q' by
// reading GREGs[q] — a value nothing ever consumes, and which could raise
// a spurious uninitialised-register error unrelated to the instruction's
// actual operands; that's not replicated here).
func (sim *Simulator) getOperands(instr *isa.Instruction) (map[string]uint16, error) {
	ops := map[string]uint16{}
	for slot, val := range instr.Ops {
		switch slot {
		case "p", "q":
			continue
		case "a":
			if !isa.InstrsReadA[instr.Name] {
				continue
			}
			v, err := sim.readGREG(val)
			if err != nil {
				return nil, err
			}
			ops["a"] = v
		case "c":
			if val == isa.GREGs["r7"] {
				ops["c"] = uint16(instr.Imm.Value)
				continue
			}
			v, err := sim.readGREG(val)
			if err != nil {
				return nil, err
			}
			ops["c"] = v
		case "d":
			ops["d"] = uint16(val)
		default: // "b"
			v, err := sim.readGREG(val)
			if err != nil {
				return nil, err
			}
			ops[slot] = v
		}
	}
	return ops, nil
}

// dispatch executes instr given its resolved operands, returning whether
// it redirected PC itself (a taken branch or jump).
func (sim *Simulator) dispatch(instr *isa.Instruction, ops map[string]uint16) (bool, error) {
	switch instr.Name {
	case "nop":
		return false, nil

	case "beqz", "bnez", "bltz", "bgez":
		return sim.branchReg(instr, ops)

	case "bt", "bf", "blt", "blf", "jt", "jf", "jlt", "jlf":
		return sim.branchPred(instr, ops)

	case "push":
		return sim.push(instr)
	case "pop":
		return sim.pop(instr)

	case "eq", "ne", "lt", "ltu", "ge", "geu", "eqz", "nez", "ltz", "gez":
		return sim.cmp(instr, ops)

	case "putp", "putpf", "putpt":
		return sim.putp(instr, ops)

	case "srl", "sra", "ror", "sll":
		return sim.shift(instr, ops)

	case "!ld", "!st", "ld!", "st!", "ld", "st":
		return sim.ldst(instr, ops)

	case "extbl", "extbh":
		return sim.ext(instr, ops)

	case "insbl", "insbh":
		return sim.ins(instr, ops)

	case "not", "and", "andn", "or", "xor":
		return sim.logic(instr, ops)

	case "neg", "inc", "dec", "add", "sub", "mov", "addpc":
		return sim.addSub(instr, ops)

	case "urxb", "urx":
		return sim.uartRx(instr, ops)
	case "utxb", "utx":
		return sim.uartTx(instr, ops)

	default:
		return false, &RuntimeError{Err: fmt.Errorf("%w: %q", ErrNoExecHandler, instr.Name)}
	}
}

// addSub covers the whole family of instructions that boil down to a
// single add or subtract: add/sub themselves, and mov/neg/inc/dec/addpc
// as the degenerate cases sim.py's _add_sub folds them into.
func (sim *Simulator) addSub(instr *isa.Instruction, ops map[string]uint16) (bool, error) {
	var lhs uint16
	switch instr.Name {
	case "neg", "mov":
		lhs = 0
	case "inc", "dec":
		lhs = ops["a"]
	case "addpc":
		lhs = sim.PC
	default: // add, sub
		lhs = ops["b"]
	}

	var rhs uint16
	switch instr.Name {
	case "inc", "dec":
		rhs = 1
	case "neg":
		rhs = ops["b"]
	default: // add, sub, mov, addpc
		rhs = ops["c"]
	}

	sub := instr.Name == "neg" || instr.Name == "dec" || instr.Name == "sub"
	var value uint16
	if sub {
		value = lhs - rhs
	} else {
		value = lhs + rhs
	}

	sim.writeGREG(instr.Ops["a"], value)
	return false, nil
}

func (sim *Simulator) logic(instr *isa.Instruction, ops map[string]uint16) (bool, error) {
	var value uint16
	switch instr.Name {
	case "not":
		value = ^ops["b"]
	case "and":
		value = ops["b"] & ops["c"]
	case "andn":
		value = ops["b"] &^ ops["c"]
	case "or":
		value = ops["b"] | ops["c"]
	default: // xor
		value = ops["b"] ^ ops["c"]
	}
	sim.writeGREG(instr.Ops["a"], value)
	return false, nil
}

func (sim *Simulator) shift(instr *isa.Instruction, ops map[string]uint16) (bool, error) {
	lhs, rhs := ops["b"], ops["c"]
	var value uint16
	switch instr.Name {
	case "srl":
		value = lhs >> rhs
	case "sra":
		value = uint16(int16(lhs) >> rhs)
	case "ror":
		value = (lhs >> rhs) | (lhs << (16 - rhs))
	default: // sll
		value = lhs << rhs
	}
	sim.writeGREG(instr.Ops["a"], value)
	return false, nil
}

// cmp covers eq/ne/lt/ltu/ge/geu and their register-vs-zero -z variants,
// writing the boolean result to predicate register q.
func (sim *Simulator) cmp(instr *isa.Instruction, ops map[string]uint16) (bool, error) {
	lhs := ops["b"]
	var rhs uint16
	if instr.Name[len(instr.Name)-1] == 'z' {
		rhs = 0
	} else {
		rhs = ops["c"]
	}

	var value bool
	switch instr.Name {
	case "eq", "eqz":
		value = int16(lhs) == int16(rhs)
	case "ne", "nez":
		value = int16(lhs) != int16(rhs)
	case "lt", "ltz":
		value = int16(lhs) < int16(rhs)
	case "ltu":
		value = lhs < rhs
	case "geu":
		value = lhs >= rhs
	default: // ge, gez
		value = int16(lhs) >= int16(rhs)
	}

	sim.writePREG(instr.Ops["q"], value)
	return false, nil
}

func (sim *Simulator) putp(instr *isa.Instruction, ops map[string]uint16) (bool, error) {
	var value bool
	switch instr.Name {
	case "putp":
		value = (ops["b"]>>ops["c"])&1 != 0
	case "putpt":
		value = true
	default: // putpf
		value = false
	}
	sim.writePREG(instr.Ops["q"], value)
	return false, nil
}

// branchPred covers the 8 predicated branch/jump mnemonics: bt/bf/blt/blf
// set PC relative to the current (already-advanced) PC, jt/jf/jlt/jlf set
// it absolutely; the l-suffixed forms additionally write the return
// address to lr first.
func (sim *Simulator) branchPred(instr *isa.Instruction, ops map[string]uint16) (bool, error) {
	if isa.LinkMnemonics[instr.Name] {
		retPC := sim.PC
		if instr.Imm != nil {
			retPC++
		}
		sim.writeGREG(isa.LR, retPC)
	}

	var lhs uint16
	if !isa.JumpMnemonics[instr.Name] {
		lhs = sim.PC
	}
	sim.writePC(lhs + ops["c"])
	return true, nil
}

// branchReg covers beqz/bnez/bltz/bgez: each compares signed b to 0 per
// its own name. The original Python derives the comparison by slicing
// instr.name[1:2] (one character) and comparing it against two-character
// literals ('lt', 'le', 'gt'), which can never match — every
// register-vs-zero branch falls through to its final else clause and
// behaves as "branch if b >= 0" regardless of mnemonic. spec.md is
// explicit that each of these branches compares by its own name, so that
// bug isn't reproduced here: each mnemonic gets its own comparison.
func (sim *Simulator) branchReg(instr *isa.Instruction, ops map[string]uint16) (bool, error) {
	lhs := int16(ops["b"])

	var branch bool
	switch instr.Name {
	case "beqz":
		branch = lhs == 0
	case "bnez":
		branch = lhs != 0
	case "bltz":
		branch = lhs < 0
	default: // bgez
		branch = lhs >= 0
	}

	if branch {
		sim.writePC(sim.PC + ops["c"])
	}
	return branch, nil
}

func signExtend8(value uint16) int16 {
	value &= 0xff
	if value&0x80 != 0 {
		return int16(value) - 256
	}
	return int16(value)
}

// ext covers extbl/extbh: extract the low or high byte of b and sign
// extend it to 16 bits. The original Python's _ext starts from an
// undefined `value` name instead of ops['b'] (a NameError waiting to
// happen); this starts from ops["b"] as spec.md's Design Notes require.
func (sim *Simulator) ext(instr *isa.Instruction, ops map[string]uint16) (bool, error) {
	value := ops["b"]
	if instr.Name == "extbl" {
		value &= 0xff
	} else {
		value = (value >> 8) & 0xff
	}
	sim.writeGREG(instr.Ops["a"], uint16(signExtend8(value)))
	return false, nil
}

// ins covers insbl/insbh: overwrite the low or high byte of a with the
// low byte of b, leaving the other byte of a untouched.
func (sim *Simulator) ins(instr *isa.Instruction, ops map[string]uint16) (bool, error) {
	var value uint16
	if instr.Name == "insbl" {
		value = (ops["a"] & 0xff00) | (ops["b"] & 0xff)
	} else {
		value = (ops["a"] & 0x00ff) | ((ops["b"] & 0xff) << 8)
	}
	sim.writeGREG(instr.Ops["a"], value)
	return false, nil
}

// ldst covers the 6 load/store forms: plain ld/st, and pre- (!ld, !st)
// and post- (ld!, st!) writeback of the computed address to b. The
// pre-writeback store's a==b special case (write the computed address to
// b, then store *that* value, since a and b name the same register) is
// grounded directly on sim.py's _ld_st.
func (sim *Simulator) ldst(instr *isa.Instruction, ops map[string]uint16) (bool, error) {
	wbPre := instr.Name[0] == '!'
	wbPost := instr.Name[len(instr.Name)-1] == '!'
	load := instr.Name == "ld" || instr.Name == "!ld" || instr.Name == "ld!"

	base := ops["b"]
	final := base + ops["c"]

	addr := base
	if wbPre {
		addr = final
	}

	storeValue := ops["a"]
	if !load && wbPre && instr.Ops["a"] == instr.Ops["b"] {
		// a and b name the same register: the pre-writeback has already
		// moved it on to final by the time the store value is read.
		storeValue = final
	}

	if load {
		v, err := sim.readMem(addr)
		if err != nil {
			return false, err
		}
		sim.writeGREG(instr.Ops["a"], v)
	} else {
		sim.writeMem(addr, storeValue)
	}

	if wbPre || wbPost {
		sim.writeGREG(instr.Ops["b"], final)
	}

	return false, nil
}

// push stores r0..r6 (whichever bits are set in the 7-bit mask,
// ascending) below the current stack pointer, decrementing sp before
// each store, then writes sp back.
func (sim *Simulator) push(instr *isa.Instruction) (bool, error) {
	mask := instr.Ops["d"]
	sp, err := sim.readGREG(isa.SP)
	if err != nil {
		return false, err
	}

	for idx := 0; idx < isa.GREGCount; idx++ {
		if mask&(1<<uint(idx)) == 0 {
			continue
		}
		sp--
		v, err := sim.readGREG(uint8(idx))
		if err != nil {
			return false, err
		}
		sim.writeMem(sp, v)
	}

	sim.writeGREG(isa.SP, sp)
	return false, nil
}

// pop restores r0..r6 (whichever bits are set in the mask, descending),
// incrementing sp after each load, then writes sp back.
func (sim *Simulator) pop(instr *isa.Instruction) (bool, error) {
	mask := instr.Ops["d"]
	sp, err := sim.readGREG(isa.SP)
	if err != nil {
		return false, err
	}

	for idx := isa.GREGCount - 1; idx >= 0; idx-- {
		if mask&(1<<uint(idx)) == 0 {
			continue
		}
		v, err := sim.readMem(sp)
		if err != nil {
			return false, err
		}
		sim.writeGREG(uint8(idx), v)
		sp++
	}

	sim.writeGREG(isa.SP, sp)
	return false, nil
}

// uartRx services urx/urxb. The callback's return value is interpreted
// as unsigned regardless of its sign: the original Python hands the
// value straight from struct.unpack (signed) to the register, which
// sign-extends a negative byte/word into the high bits of the
// destination register instead of zero-extending it; spec.md's Design
// Notes call this out as a bug to fix, not a quirk to keep.
func (sim *Simulator) uartRx(instr *isa.Instruction, ops map[string]uint16) (bool, error) {
	width := 2
	if instr.Name == "urxb" {
		width = 1
	}

	value, err := sim.CB.ReadUART(width)
	if err != nil {
		return false, err
	}

	var uvalue uint16
	if width == 1 {
		uvalue = uint16(value) & 0xff
	} else {
		uvalue = uint16(value)
	}

	if sim.Trace != nil {
		fmt.Fprintf(sim.Trace, "URX     0x%04x\n", uvalue)
	}
	sim.writeGREG(instr.Ops["a"], uvalue)
	return false, nil
}

func (sim *Simulator) uartTx(instr *isa.Instruction, ops map[string]uint16) (bool, error) {
	width := 2
	if instr.Name == "utxb" {
		width = 1
	}
	if sim.Trace != nil {
		fmt.Fprintf(sim.Trace, "UTX     0x%04x\n", ops["c"])
	}
	sim.CB.WriteUART(ops["c"], width)
	return false, nil
}
