package asm

import (
	"io"
	"os"
)

// Options configures an assembly run.
type Options struct {
	// Verbose enables the pass-by-pass trace asm.py prints under -v/--verbose.
	Verbose bool
	// Log receives the verbose trace; defaults to os.Stderr when nil.
	Log io.Writer
}

// Assemble reads path (expanding any .include directives relative to each
// file's own directory), resolves all label references, and returns the
// padded binary image ready to write out. This is the library entry point
// behind `idli asm`; it does no argument parsing or path validation of
// its own — that is the CLI's job, per spec.md's Non-goals.
func Assemble(path string, opts Options) ([]byte, error) {
	if opts.Log == nil {
		opts.Log = os.Stderr
	}

	p := &parser{verbose: opts.Verbose, out: opts.Log}
	items, err := p.parseFile(path, 0)
	if err != nil {
		return nil, err
	}

	if err := resolveLabels(items, opts.Verbose, opts.Log); err != nil {
		return nil, err
	}

	return writeBinary(items)
}
