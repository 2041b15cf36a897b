package asm

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/theultimat/idli/pkg/isa"
)

// memorySize is the number of addressable 16-bit words (64Ki), matching
// the simulator's flat memory.
const memorySize = 1 << 16

// writeBinary packs the resolved item stream into its final byte image,
// each word stored big-endian to match idli's bus-view byte order, and
// pads the end with four NOPs so the simulator's fetch-ahead pipeline
// never reads past the program into undefined memory.
func writeBinary(items []Item) ([]byte, error) {
	var buf bytes.Buffer
	wordCount := 0

	for _, item := range items {
		switch v := item.(type) {
		case Label:
			continue
		case Int:
			if err := binary.Write(&buf, binary.BigEndian, v.Value); err != nil {
				return nil, err
			}
			wordCount++
		case *isa.Instruction:
			words, err := v.Encode()
			if err != nil {
				return nil, err
			}
			for _, w := range words {
				if err := binary.Write(&buf, binary.BigEndian, w); err != nil {
					return nil, err
				}
			}
			wordCount += len(words)
		}
	}

	nop := &isa.Instruction{Name: "nop", Ops: map[string]uint8{}}
	nopWords, err := nop.Encode()
	if err != nil {
		return nil, err
	}
	for i := 0; i < 4; i++ {
		for _, w := range nopWords {
			if err := binary.Write(&buf, binary.BigEndian, w); err != nil {
				return nil, err
			}
		}
		wordCount += len(nopWords)
	}

	if wordCount > memorySize {
		return nil, &LinkError{Err: fmt.Errorf("%w: %d words", ErrBinaryTooLarge, wordCount)}
	}

	return buf.Bytes(), nil
}
