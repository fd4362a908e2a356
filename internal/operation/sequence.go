// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package operation

import (
	"errors"
	"fmt"
)

// ErrInvalidSequence is returned when a sequence cannot be built.
var ErrInvalidSequence = errors.New("invalid operation sequence")

// Sequence is an immutable, ordered list of operations.
type Sequence struct {
	ops []Operation
}

// NewSequence builds a sequence in declaration order. Nil operations and
// empty or duplicate names are rejected so events stay attributable.
func NewSequence(ops ...Operation) (*Sequence, error) {
	seen := make(map[string]struct{}, len(ops))
	for i, op := range ops {
		if op == nil {
			return nil, fmt.Errorf("%w: operation %d is nil", ErrInvalidSequence, i)
		}
		name := op.Name()
		if name == "" {
			return nil, fmt.Errorf("%w: operation %d has no name", ErrInvalidSequence, i)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: duplicate operation %q", ErrInvalidSequence, name)
		}
		seen[name] = struct{}{}
	}
	return &Sequence{ops: append([]Operation(nil), ops...)}, nil
}

// MustSequence is NewSequence for static wiring; it panics on error.
func MustSequence(ops ...Operation) *Sequence {
	s, err := NewSequence(ops...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Sequence) Len() int { return len(s.ops) }

func (s *Sequence) At(i int) Operation { return s.ops[i] }

// Names lists operation names in order.
func (s *Sequence) Names() []string {
	out := make([]string, len(s.ops))
	for i, op := range s.ops {
		out[i] = op.Name()
	}
	return out
}
