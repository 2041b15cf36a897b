package isa

// An encoding pattern is a 16-character string, MSB first, made up of the
// literal bits '0'/'1' and the operand-slot letters p, q, a, b, c, d. The
// opcode is the pattern with every slot letter treated as 0; the mask has a
// 1 in every literal position and a 0 in every slot position. Decoding picks
// the unique mnemonic satisfying (word & mask) == opcode.

const encodingWidth = 16

// slotLetters are the operand-slot characters that may appear in an
// encoding pattern. Every other character must be '0' or '1'.
const slotLetters = "pqabcd"

func isSlotLetter(c byte) bool {
	for i := 0; i < len(slotLetters); i++ {
		if slotLetters[i] == c {
			return true
		}
	}
	return false
}

// validatePattern panics if pattern isn't a well-formed 16-character
// encoding: every character must be '0', '1', or a slot letter. Called
// only from the catalog's init(), against a table that is a compile-time
// constant, so a panic here means a typo in the table, not bad input.
func validatePattern(name, pattern string) {
	if len(pattern) != encodingWidth {
		panic("isa: " + name + ": encoding pattern is not 16 bits wide")
	}
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c != '0' && c != '1' && !isSlotLetter(c) {
			panic("isa: " + name + ": invalid character in encoding pattern")
		}
	}
}

// opcodeAndMask derives the literal opcode bits and the opcode mask from an
// encoding pattern.
func opcodeAndMask(pattern string) (opcode, mask uint16) {
	for i := 0; i < encodingWidth; i++ {
		opcode <<= 1
		mask <<= 1

		c := pattern[i]
		if c == '1' {
			opcode |= 1
			mask |= 1
		} else if c == '0' {
			mask |= 1
		}
		// Slot letters contribute 0 to both opcode and mask.
	}
	return opcode, mask
}

// slotWidth returns the number of bit positions the given slot letter
// occupies in the pattern.
func slotWidth(pattern string, slot byte) int {
	n := 0
	for i := 0; i < len(pattern); i++ {
		if pattern[i] == slot {
			n++
		}
	}
	return n
}

// encodeSlot returns pattern with every occurrence of slot replaced, in
// order, by the bits of value (which must fit in slotWidth(pattern, slot)
// bits). ok is false if value doesn't fit.
func encodeSlot(pattern string, slot byte, value uint32) (result string, ok bool) {
	n := slotWidth(pattern, slot)
	if n == 0 {
		return pattern, value == 0
	}
	if value >= (1 << uint(n)) {
		return pattern, false
	}

	out := make([]byte, len(pattern))
	bit := n - 1
	for i := 0; i < len(pattern); i++ {
		if pattern[i] == slot {
			out[i] = byte('0' + ((value >> uint(bit)) & 1))
			bit--
		} else {
			out[i] = pattern[i]
		}
	}
	return string(out), true
}

// extractSlot reads the bits of slot out of a raw 16-bit word, given the
// pattern that was used to decide this is the right mnemonic.
func extractSlot(pattern string, word uint16, slot byte) uint32 {
	var value uint32
	for i := 0; i < len(pattern); i++ {
		if pattern[i] == slot {
			bit := (word >> uint(encodingWidth-1-i)) & 1
			value = (value << 1) | uint32(bit)
		}
	}
	return value
}
