package isa

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{([pqabcd])\}`)

// Immediate is the dual-lifecycle value carried by the 'c' operand slot
// when an instruction escapes through r7: before label resolution it may
// be a pending reference ($name/@name/$Nf/.../@Nb), after resolution it is
// a concrete signed 16-bit value.
type Immediate struct {
	Label string // non-empty: an unresolved label reference.
	Value int16  // valid once Label == "".
}

// Instruction is one parsed, synonym-resolved instruction: Name is always
// the real catalog mnemonic (synonyms are rewritten away during parsing).
// Ops holds the encoded field value for every slot letter the mnemonic's
// pattern uses (p, q, a, b, d each fit one register/mask index; c does
// too, except when Imm is set, in which case Ops["c"] is always r7 and
// Imm carries the actual value).
type Instruction struct {
	Name string
	Ops  map[string]uint8
	Imm  *Immediate
}

// FromTokens parses one already-tokenized source line (mnemonic first,
// operands following) into an Instruction, resolving synonyms and
// defaulting an omitted predicate to pt. pos is used only to annotate
// errors.
func FromTokens(tokens []string, pos Pos) (*Instruction, error) {
	if len(tokens) == 0 {
		return nil, &SyntaxError{Pos: pos, Text: "", Err: fmt.Errorf("%w: empty instruction", ErrSyntax)}
	}

	name := tokens[0]
	rest := append([]string(nil), tokens[1:]...)

	var pred string
	hasDot := false
	if idx := strings.IndexByte(name, '.'); idx >= 0 {
		pred = name[idx+1:]
		name = name[:idx]
		hasDot = true
		rest = append([]string{pred}, rest...)
	}

	var syntax, real string
	var defaults map[string]SynonymDefault
	if syn, ok := Synonyms[name]; ok {
		syntax, real, defaults = syn.Syntax, syn.Real, syn.Defaults
	} else if info, ok := Catalog[name]; ok {
		syntax, real = info.Syntax, name
	} else {
		return nil, &SyntaxError{Pos: pos, Text: name, Err: fmt.Errorf("%w: %q", ErrUnknownOp, name)}
	}

	instr := &Instruction{Name: real, Ops: map[string]uint8{}}

	for _, m := range placeholderPattern.FindAllStringSubmatch(syntax, -1) {
		slot := m[1][0]

		if slot == 'd' {
			mask, err := parseRegMask(rest, pos)
			if err != nil {
				return nil, err
			}
			instr.Ops["d"] = mask
			rest = nil
			continue
		}

		if slot == 'p' && !hasDot && strings.Contains(syntax, ".{p}") {
			instr.Ops["p"] = PT
			continue
		}

		if len(rest) == 0 {
			return nil, &SyntaxError{Pos: pos, Text: name, Err: fmt.Errorf("%w: missing operand for {%c}", ErrSyntax, slot)}
		}
		tok := rest[0]
		rest = rest[1:]

		switch slot {
		case 'p', 'q':
			val, ok := PREGs[tok]
			if !ok {
				return nil, &SyntaxError{Pos: pos, Text: tok, Err: fmt.Errorf("%w: not a predicate register", ErrBadOperand)}
			}
			instr.Ops[string(slot)] = val

		case 'c':
			if imm, ok, err := tryParseImmOperand(tok, pos); err != nil {
				return nil, err
			} else if ok {
				instr.Imm = imm
				instr.Ops["c"] = GREGs["r7"]
				continue
			}
			val, ok := GREGs[tok]
			if !ok {
				return nil, &SyntaxError{Pos: pos, Text: tok, Err: fmt.Errorf("%w: not a general register", ErrBadOperand)}
			}
			instr.Ops["c"] = val

		default: // a, b
			val, ok := GREGs[tok]
			if !ok {
				return nil, &SyntaxError{Pos: pos, Text: tok, Err: fmt.Errorf("%w: not a general register", ErrBadOperand)}
			}
			instr.Ops[string(slot)] = val
		}
	}

	if len(rest) != 0 {
		return nil, &SyntaxError{Pos: pos, Text: name, Err: fmt.Errorf("%w: too many operands", ErrSyntax)}
	}
	if v, ok := instr.Ops["c"]; ok && v == GREGs["r7"] && instr.Imm == nil {
		return nil, &SyntaxError{Pos: pos, Text: name, Err: fmt.Errorf("%w: r7 is reserved for immediates, may not be named explicitly", ErrBadOperand)}
	}

	for slot, def := range defaults {
		if def.Ref != "" {
			instr.Ops[slot] = instr.Ops[def.Ref]
		} else {
			instr.Ops[slot] = def.Value
		}
	}

	return instr, nil
}

func parseRegMask(toks []string, pos Pos) (uint8, error) {
	if len(toks) == 0 {
		return 0, &SyntaxError{Pos: pos, Text: "", Err: fmt.Errorf("%w: expected a register list", ErrSyntax)}
	}
	var mask uint8
	seen := map[uint8]bool{}
	for _, tok := range toks {
		val, ok := GREGs[tok]
		if !ok {
			return 0, &SyntaxError{Pos: pos, Text: tok, Err: fmt.Errorf("%w: not a general register", ErrBadOperand)}
		}
		if val == SP {
			return 0, &SyntaxError{Pos: pos, Text: tok, Err: fmt.Errorf("%w: sp may not appear in a register list", ErrBadOperand)}
		}
		if seen[val] {
			return 0, &SyntaxError{Pos: pos, Text: tok, Err: fmt.Errorf("%w: %s repeated in register list", ErrBadOperand, tok)}
		}
		seen[val] = true
		mask |= 1 << val
	}
	return mask, nil
}

// tryParseImmOperand tries to read tok as an immediate (label reference,
// character literal, or numeric literal). ok is false, with a nil error,
// when tok simply isn't any of those forms and should fall through to
// being parsed as a general register name instead.
func tryParseImmOperand(tok string, pos Pos) (*Immediate, bool, error) {
	if IsLabelRef(tok) {
		return &Immediate{Label: tok}, true, nil
	}
	if len(tok) >= 2 && tok[0] == '\'' {
		v, err := ParseImmediate(tok)
		if err != nil {
			return nil, false, &SyntaxError{Pos: pos, Text: tok, Err: err}
		}
		return &Immediate{Value: v}, true, nil
	}
	if v, err := ParseImmediate(tok); err == nil {
		return &Immediate{Value: v}, true, nil
	}
	return nil, false, nil
}

// Size reports the number of 16-bit words this instruction occupies once
// encoded: two when it carries an immediate, one otherwise.
func (instr *Instruction) Size() int {
	if instr.Imm != nil {
		return 2
	}
	return 1
}

// String renders the instruction back to assembly syntax.
func (instr *Instruction) String() string {
	info, ok := Catalog[instr.Name]
	if !ok {
		return instr.Name
	}
	return placeholderPattern.ReplaceAllStringFunc(info.Syntax, func(m string) string {
		return instr.renderSlot(m[1])
	})
}

func (instr *Instruction) renderSlot(slot byte) string {
	switch slot {
	case 'p', 'q':
		return PREGName[instr.Ops[string(slot)]]
	case 'a', 'b':
		return GREGName[instr.Ops[string(slot)]]
	case 'c':
		if instr.Imm != nil {
			if instr.Imm.Label != "" {
				return instr.Imm.Label
			}
			return strconv.Itoa(int(instr.Imm.Value))
		}
		return GREGName[instr.Ops["c"]]
	case 'd':
		mask := instr.Ops["d"]
		names := make([]string, 0, GREGCount)
		for i := 0; i < GREGCount; i++ {
			if mask&(1<<uint(i)) != 0 {
				names = append(names, GREGName[i])
			}
		}
		return strings.Join(names, ", ")
	}
	return ""
}

// Encode packs the instruction into its final 16-bit word(s), in
// big-endian bus order: the opcode word, followed by an immediate word
// when present. Imm.Label must already be resolved to a Value; an
// unresolved label is a caller error.
func (instr *Instruction) Encode() ([]uint16, error) {
	info, ok := Catalog[instr.Name]
	if !ok {
		return nil, &EncodeError{Err: fmt.Errorf("%w: %q", ErrUnknownOp, instr.Name)}
	}

	pattern := info.Encoding
	for _, slot := range []byte{'p', 'q', 'a', 'b', 'c', 'd'} {
		if slotWidth(pattern, slot) == 0 {
			continue
		}
		val := instr.Ops[string(slot)]
		out, ok := encodeSlot(pattern, slot, uint32(val))
		if !ok {
			return nil, &EncodeError{Err: fmt.Errorf("%w: %c=%d does not fit its field in %q", ErrEncodeRange, slot, val, instr.Name)}
		}
		pattern = out
	}

	word, err := strconv.ParseUint(pattern, 2, 16)
	if err != nil {
		return nil, &EncodeError{Err: fmt.Errorf("internal: %s left unresolved bits %q", instr.Name, pattern)}
	}

	words := []uint16{uint16(word)}
	if instr.Imm != nil {
		if instr.Imm.Label != "" {
			return nil, &EncodeError{Err: fmt.Errorf("%w: unresolved label reference %q", ErrEncodeRange, instr.Imm.Label)}
		}
		words = append(words, uint16(instr.Imm.Value))
	}
	return words, nil
}

// Decode reads one instruction starting at words[0], consuming a second
// word for the immediate when the 'c' slot encodes r7. It returns the
// instruction and how many words were consumed (1 or 2).
func Decode(words []uint16) (*Instruction, int, error) {
	if len(words) == 0 {
		return nil, 0, &DecodeError{Err: fmt.Errorf("no words to decode")}
	}
	word := words[0]

	var name string
	found := false
	for n, info := range Catalog {
		if word&info.Mask == info.Opcode {
			if found {
				return nil, 0, &DecodeError{Word: word, Err: fmt.Errorf("ambiguous encoding: matches both %q and %q", name, n)}
			}
			name = n
			found = true
		}
	}
	if !found {
		return nil, 0, &DecodeError{Word: word, Err: ErrDecode}
	}

	info := Catalog[name]
	instr := &Instruction{Name: name, Ops: map[string]uint8{}}
	for _, slot := range []byte{'p', 'q', 'a', 'b', 'c', 'd'} {
		if slotWidth(info.Encoding, slot) == 0 {
			continue
		}
		instr.Ops[string(slot)] = uint8(extractSlot(info.Encoding, word, slot))
	}

	size := 1
	if v, ok := instr.Ops["c"]; ok && v == GREGs["r7"] {
		if len(words) < 2 {
			return nil, 0, &DecodeError{Word: word, Err: fmt.Errorf("immediate word missing at end of instruction stream")}
		}
		instr.Imm = &Immediate{Value: int16(words[1])}
		size = 2
	}

	return instr, size, nil
}
