package asm

import (
	"fmt"
	"io"
	"sort"

	"github.com/theultimat/idli/pkg/isa"
)

// resolveLabels is the assembler's second pass: it walks the item stream
// once to record every label's address(es), then walks it again
// resolving each instruction's pending label reference (if any) into a
// concrete signed offset, mutating the Instruction in place.
//
// Local labels may be defined more than once; a $Nf/@Nf reference binds
// to the nearest definition with a strictly greater address, $Nb/@Nb to
// the nearest with an address no greater than the reference's own. If the
// search runs off the end of the list without finding a match it falls
// back to the last address visited, matching asm.py's `resolve_labels`
// (whose bare `for ...: if ...: break` loop leaves `addr` bound to
// whatever it last saw when no break occurs) — this is carried over
// as-is, since it isn't one of the three named bugs this module fixes.
func resolveLabels(items []Item, verbose bool, out io.Writer) error {
	logf := func(format string, args ...any) {
		if verbose {
			fmt.Fprintf(out, format+"\n", args...)
		}
	}

	logf("- Finding label addresses:")

	labels := map[string][]int{}
	pc := 0
	for _, item := range items {
		if label, ok := item.(Label); ok {
			if label.Local {
				labels[label.Name] = append(labels[label.Name], pc)
			} else {
				if _, dup := labels[label.Name]; dup {
					return &LinkError{Err: fmt.Errorf("%w: %s", ErrDuplicateLabel, label.Name)}
				}
				labels[label.Name] = []int{pc}
			}
			continue
		}
		pc += Size(item)
	}

	if len(labels) == 0 {
		logf(" - No labels found.")
		return nil
	}

	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		logf(" - %s: %v", name, labels[name])
	}

	logf("- Resolving references to labels:")

	pc = 0
	for _, item := range items {
		instr, ok := item.(*isa.Instruction)
		if !ok {
			if _, isLabel := item.(Label); !isLabel {
				pc++
			}
			continue
		}

		if instr.Imm == nil || instr.Imm.Label == "" {
			pc += instr.Size()
			continue
		}

		ref := instr.Imm.Label
		mode := ref[0]
		name := ref[1:]

		var addr int
		if digits, dir, ok := isa.SplitLocalRef(name); ok {
			addrs := labels[digits]
			if len(addrs) == 0 {
				return &LinkError{Err: fmt.Errorf("%w: %s", ErrUnknownLabel, ref)}
			}
			if dir == 'f' {
				addr = addrs[len(addrs)-1]
				for _, a := range addrs {
					if a > pc {
						addr = a
						break
					}
				}
			} else {
				addr = addrs[0]
				for i := len(addrs) - 1; i >= 0; i-- {
					if addrs[i] <= pc {
						addr = addrs[i]
						break
					}
				}
			}
		} else {
			addrs, found := labels[name]
			if !found || len(addrs) == 0 {
				return &LinkError{Err: fmt.Errorf("%w: %s", ErrUnknownLabel, ref)}
			}
			if len(addrs) != 1 {
				return &LinkError{Err: fmt.Errorf("%w: %s", ErrAmbiguousLabel, ref)}
			}
			addr = addrs[0]
		}

		if mode == '$' {
			instr.Imm.Value = int16(addr)
		} else {
			instr.Imm.Value = int16(addr - (pc + 1))
		}
		instr.Imm.Label = ""

		logf(" - Resolved label %s: %s", ref, instr)

		pc += instr.Size()
	}

	return nil
}
