// Package sim implements idli's behavioural, instruction-level simulator:
// not cycle accurate, but faithful to the architectural effect of every
// instruction, including the definedness tracking that makes reading an
// uninitialised register or memory word a fatal error.
package sim

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/theultimat/idli/pkg/isa"
)

// Simulator holds all CPU-visible state: the program counter, the general
// and predicate register files, and memory. GREGs and PREGs are nullable
// (nil means "never written") the same way sim.py resets them to None;
// memory's definedness is tracked by map presence rather than a nullable
// slice, since only the loaded program (plus whatever a running program
// later writes) is ever defined out of the full 64Ki address space.
type Simulator struct {
	PC uint16

	gregs [isa.GREGCount]*uint16
	pregs [isa.PREGCount]*bool
	mem   map[uint16]uint16

	// CB receives every register/memory write and UART access, mirroring
	// sim.py's IdliCallback. Never nil: New defaults it to NullCallback.
	CB Callback

	// Trace, when non-nil, receives the same per-tick lines sim.py prints
	// under `self.trace` (RUN, SKIP, GREG, PREG, BRANCH, LOAD, STORE,
	// URX, UTX).
	Trace io.Writer
}

// New constructs a Simulator with PC=0, pt permanently true, every other
// register and memory word undefined, and program loaded at address 0.
// program's length must be even; it is not required to be padded (the
// assembler pads its own output, but a hand-built program for a test
// doesn't have to).
func New(program []byte, cb Callback) (*Simulator, error) {
	if len(program)%2 != 0 {
		return nil, fmt.Errorf("sim: program length %d is not a multiple of 2 bytes", len(program))
	}
	if cb == nil {
		cb = NullCallback{}
	}

	sim := &Simulator{mem: make(map[uint16]uint16, len(program)/2), CB: cb}
	pt := true
	sim.pregs[isa.PT] = &pt

	for i := 0; i < len(program)/2; i++ {
		sim.mem[uint16(i)] = binary.BigEndian.Uint16(program[i*2:])
	}

	return sim, nil
}

// GREG returns the current value of general register reg and whether it
// has ever been written.
func (sim *Simulator) GREG(reg uint8) (value uint16, defined bool) {
	p := sim.gregs[reg]
	if p == nil {
		return 0, false
	}
	return *p, true
}

// PREG returns the current value of predicate register reg and whether
// it has ever been written (pt always reports true, defined).
func (sim *Simulator) PREG(reg uint8) (value bool, defined bool) {
	p := sim.pregs[reg]
	if p == nil {
		return false, false
	}
	return *p, true
}

// MemWord returns the architectural word stored at addr, and whether it's
// defined. The on-medium, byte-swapped view is only ever seen by a
// Callback (see ReadMem/WriteMem).
func (sim *Simulator) MemWord(addr uint16) (value uint16, defined bool) {
	v, ok := sim.mem[addr]
	return v, ok
}

func (sim *Simulator) readGREG(reg uint8) (uint16, error) {
	v, ok := sim.GREG(reg)
	if !ok {
		return 0, &RuntimeError{Err: fmt.Errorf("%w: %s", ErrUninitializedGREG, isa.GREGName[reg])}
	}
	return v, nil
}

func (sim *Simulator) readPREG(reg uint8) (bool, error) {
	v, ok := sim.PREG(reg)
	if !ok {
		return false, &RuntimeError{Err: fmt.Errorf("%w: %s", ErrUninitializedPREG, isa.PREGName[reg])}
	}
	return v, nil
}

func (sim *Simulator) writeGREG(reg uint8, value uint16) {
	sim.CB.WriteGREG(int(reg), value)
	if sim.Trace != nil {
		fmt.Fprintf(sim.Trace, "GREG    %s        0x%04x\n", isa.GREGName[reg], value)
	}
	sim.gregs[reg] = &value
}

func (sim *Simulator) writePREG(reg uint8, value bool) {
	if reg == isa.PT {
		return
	}
	sim.CB.WritePREG(int(reg), value)
	if sim.Trace != nil {
		bit := 0
		if value {
			bit = 1
		}
		fmt.Fprintf(sim.Trace, "PREG    %s        0x%d\n", isa.PREGName[reg], bit)
	}
	sim.pregs[reg] = &value
}

func (sim *Simulator) writePC(value uint16) {
	if sim.Trace != nil {
		fmt.Fprintf(sim.Trace, "BRANCH  0x%04x\n", value)
	}
	sim.PC = value
}

func swapEndian(v uint16) uint16 {
	return (v << 8) | (v >> 8)
}

// writeMem stores the architectural value V at addr. The bus only ever
// sees V byte-swapped (the medium is little-endian where the core is
// big-endian); mem itself holds the same architectural representation
// New loads the program with, so a later fetch or read sees what was
// written without an extra implicit swap.
func (sim *Simulator) writeMem(addr, value uint16) {
	swapped := swapEndian(value)
	sim.CB.WriteMem(addr, swapped)
	if sim.Trace != nil {
		fmt.Fprintf(sim.Trace, "STORE   0x%04x    0x%04x\n", addr, swapped)
	}
	sim.mem[addr] = value
}

func (sim *Simulator) readMem(addr uint16) (uint16, error) {
	value, ok := sim.mem[addr]
	if !ok {
		return 0, &RuntimeError{Err: fmt.Errorf("%w at 0x%04x", ErrUninitializedMem, addr)}
	}
	swapped := swapEndian(value)
	sim.CB.ReadMem(addr, swapped)
	if sim.Trace != nil {
		fmt.Fprintf(sim.Trace, "LOAD    0x%04x    0x%04x\n", addr, swapped)
	}
	return value, nil
}
