package asm

import (
	"errors"
	"fmt"

	"github.com/theultimat/idli/pkg/isa"
)

// Sentinels wrapped by LinkError, identifying which resolution failure
// occurred without forcing callers to parse the message.
var (
	ErrUnknownLabel    = errors.New("reference to unknown label")
	ErrAmbiguousLabel  = errors.New("ambiguous reference to label")
	ErrDuplicateLabel  = errors.New("multiple instances of non-local label")
	ErrBinaryTooLarge  = errors.New("binary exceeds memory size")
	ErrJunkAtEndOfLine = errors.New("junk at end of line")
)

// IOError wraps a failure to open or read a source or include file.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// LinkError reports a label-resolution failure during the second pass:
// an unknown, ambiguous, or duplicate label, or output that no longer
// fits in the 64Ki-word address space.
type LinkError struct {
	Pos isa.Pos
	Err error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("%s%v", e.Pos, e.Err)
}

func (e *LinkError) Unwrap() error { return e.Err }
