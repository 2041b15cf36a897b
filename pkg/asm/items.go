// Package asm implements idli's two-pass assembler: source text (with
// .include expansion) is parsed into a flat stream of labels, raw data
// words and instructions, label references are then resolved to concrete
// addresses, and the stream is finally packed into a padded binary image.
package asm

import "github.com/theultimat/idli/pkg/isa"

// Label is a definition site: `name:` on its own, either local (an
// all-digit name, reusable within a file and resolved by nearest
// forward/backward search) or global (must be unique across the whole
// assembly).
type Label struct {
	Name  string
	Local bool
}

// Int is a raw 16-bit data word emitted by `.int` or `.zeros`.
type Int struct {
	Value int16
}

// Item is one element of the parsed-but-not-yet-resolved instruction
// stream: a Label, an Int, or an *isa.Instruction. Go has no closed sum
// type, so callers type-switch on these three concrete types, mirroring
// the dynamic list of mixed namedtuples/Instruction objects asm.py builds.
type Item any

// Size reports how many 16-bit words an item occupies once resolved: zero
// for a Label (it has no encoding of its own), one for an Int, one or two
// for an instruction depending on whether it carries an immediate.
func Size(item Item) int {
	switch v := item.(type) {
	case Label:
		return 0
	case Int:
		return 1
	case *isa.Instruction:
		return v.Size()
	default:
		return 0
	}
}
