// Package isa describes the idli instruction set: the general and predicate
// register files, the bit-exact encoding of every instruction, the textual
// syntax used to parse and print them, and the synonym table the assembler
// expands before encoding.
package isa

// GREGCount is the number of general-purpose registers.
const GREGCount = 8

// PREGCount is the number of predicate registers.
const PREGCount = 4

// PT is the index of the hardwired predicate-true register. Writes to it are
// silently dropped and reads always return true.
const PT = 3

// GREGs maps assembly register names to their 3-bit encoding.
var GREGs = map[string]uint8{
	"r0": 0,
	"r1": 1,
	"r2": 2,
	"r3": 3,
	"r4": 4,
	"r5": 5,
	"r6": 6,
	"r7": 7,

	"lr": 6,
	"sp": 7,
}

// GREGName is the canonical inverse of GREGs: index -> name, using the
// plain rN form rather than the lr/sp aliases.
var GREGName = [GREGCount]string{"r0", "r1", "r2", "r3", "r4", "r5", "r6", "r7"}

// LR and SP are the conventional aliases for r6 and r7.
const (
	LR = 6
	SP = 7
)

// PREGs maps assembly predicate register names to their 2-bit encoding.
var PREGs = map[string]uint8{
	"p0": 0,
	"p1": 1,
	"p2": 2,
	"p3": 3,

	"pt": 3,
}

// PREGName is the canonical inverse of PREGs: index -> name.
var PREGName = [PREGCount]string{"p0", "p1", "p2", "pt"}
