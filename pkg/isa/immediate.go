package isa

import (
	"fmt"
	"strconv"
)

// ParseImmediate parses a numeric literal the way the original assembler's
// parse_imm does: Go's strconv.ParseInt with base 0 accepts the same
// 0x/0o/0b prefixed forms Python's int(s, 0) does, so a single call covers
// decimal, hex, octal and binary. The result is folded into the signed
// 16-bit range and range-checked.
func ParseImmediate(tok string) (int16, error) {
	if lit, ok := parseCharLiteral(tok); ok {
		return lit, nil
	}

	n, err := strconv.ParseInt(tok, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid immediate %q: %w", tok, err)
	}
	if n < -(1<<15) || n > (1<<16-1) {
		return 0, fmt.Errorf("immediate %q out of 16-bit range", tok)
	}
	return int16(uint16(n)), nil
}

// parseCharLiteral recognises a quoted single character, with the escapes
// the original assembler supports: \\, \t, \n, \0, plus a literal quote.
func parseCharLiteral(tok string) (int16, bool) {
	if len(tok) < 3 || tok[0] != '\'' || tok[len(tok)-1] != '\'' {
		return 0, false
	}
	body := tok[1 : len(tok)-1]

	if len(body) == 1 {
		return int16(body[0]), true
	}
	if len(body) == 2 && body[0] == '\\' {
		switch body[1] {
		case '\\':
			return int16('\\'), true
		case '\'':
			return int16('\''), true
		case 't':
			return int16('\t'), true
		case 'n':
			return int16('\n'), true
		case '0':
			return 0, true
		}
	}
	return 0, false
}

// IsLabelRef reports whether tok denotes a label reference rather than a
// register name or numeric literal: one of the forms $name, @name (global
// absolute/PC-relative) or $Nf, $Nb, @Nf, @Nb (local forward/backward,
// where N is a run of digits).
func IsLabelRef(tok string) bool {
	return len(tok) > 0 && (tok[0] == '$' || tok[0] == '@')
}

// IsLocalLabel reports whether name (without its $/@ sigil) is a local
// label: a non-empty, all-digit name. A reference's trailing 'f' or 'b'
// direction suffix is not accepted here; SplitLocalRef strips it first.
func IsLocalLabel(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		if name[i] < '0' || name[i] > '9' {
			return false
		}
	}
	return true
}

// SplitLocalRef splits a local-label reference body (the part after the
// $/@ sigil) into its digit run and trailing f/b direction, e.g. "1f" ->
// ("1", 'f', true). ok is false if body isn't a valid local reference.
func SplitLocalRef(body string) (digits string, dir byte, ok bool) {
	if len(body) < 2 {
		return "", 0, false
	}
	last := body[len(body)-1]
	if last != 'f' && last != 'b' {
		return "", 0, false
	}
	digits = body[:len(body)-1]
	if !IsLocalLabel(digits) {
		return "", 0, false
	}
	return digits, last, true
}

// TrimSigil strips the leading $/@ from a label reference token.
func TrimSigil(tok string) (sigil byte, body string) {
	return tok[0], tok[1:]
}
