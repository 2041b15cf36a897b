package sim

import "errors"

// Callback receives every observable side effect a running simulation
// produces. Grounded on sim.py's IdliCallback base class: a test harness
// subclasses it to capture register writes, drive memory-mapped I/O, or
// feed UART input.
type Callback interface {
	// WriteGREG is called whenever general register reg is written, after
	// the simulator's own copy has been updated.
	WriteGREG(reg int, value uint16)

	// WritePREG is called whenever predicate register reg is written. Never
	// called for pt: writes to it are dropped before reaching the callback.
	WritePREG(reg int, value bool)

	// ReadMem and WriteMem observe the on-medium (byte-swapped) word at
	// addr, for every ld/st or push/pop access.
	ReadMem(addr uint16, value uint16)
	WriteMem(addr uint16, value uint16)

	// ReadUART services urx/urxb: width is 2 for a 16-bit read, 1 for a
	// byte read. The returned value is interpreted as unsigned by the
	// simulator regardless of its sign here.
	ReadUART(width int) (int16, error)

	// WriteUART services utx/utxb.
	WriteUART(value uint16, width int)
}

// NullCallback is a Callback that observes nothing and fails any UART
// read. sim.py's IdliCallback has no default implementation for
// read_uart (it's expected to be overridden); ReadUART mirrors that by
// erroring rather than silently returning zero.
type NullCallback struct{}

func (NullCallback) WriteGREG(int, uint16)   {}
func (NullCallback) WritePREG(int, bool)     {}
func (NullCallback) ReadMem(uint16, uint16)  {}
func (NullCallback) WriteMem(uint16, uint16) {}
func (NullCallback) WriteUART(uint16, int)   {}

func (NullCallback) ReadUART(int) (int16, error) {
	return 0, errors.New("sim: ReadUART not implemented by this callback")
}
