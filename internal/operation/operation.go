// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package operation defines the contract every session setup step implements
// and the events those steps report while they run.
package operation

import (
	"context"

	"github.com/khangzxrr/SafeExamBrowser/internal/session"
)

// Result is the only vocabulary an operation and the pipeline report in.
type Result string

const (
	Success        Result = "SUCCESS"
	Failure        Result = "FAILURE"
	ActionRequired Result = "ACTION_REQUIRED"
	Aborted        Result = "ABORTED"
)

// Valid reports whether r is one of the defined results.
func (r Result) Valid() bool {
	switch r {
	case Success, Failure, ActionRequired, Aborted:
		return true
	}
	return false
}

// Mode names the pass an operation method is invoked for.
type Mode string

const (
	ModePerform Mode = "perform"
	ModeRepeat  Mode = "repeat"
	ModeRevert  Mode = "revert"
)

// Operation is one reversible step of a session sequence.
//
// Implementations must not panic or return errors out of band; every outcome
// is a Result. Events are reported through emit only while the call runs.
type Operation interface {
	Name() string
	Perform(ctx context.Context, sc *session.Context, emit Emitter) Result
	Repeat(ctx context.Context, sc *session.Context, emit Emitter) Result
	Revert(ctx context.Context, sc *session.Context, emit Emitter) Result
}

// Revalidator is implemented by operations that can tell whether a Repeat
// pass needs to run them again. Operations without it always need to.
type Revalidator interface {
	RequiresRevalidation(sc *session.Context) bool
}

// RequiresRevalidation applies the Revalidator capability if op has it.
func RequiresRevalidation(op Operation, sc *session.Context) bool {
	if r, ok := op.(Revalidator); ok {
		return r.RequiresRevalidation(sc)
	}
	return true
}

// Call invokes the method of op selected by mode.
func Call(ctx context.Context, op Operation, mode Mode, sc *session.Context, emit Emitter) Result {
	switch mode {
	case ModeRepeat:
		return op.Repeat(ctx, sc, emit)
	case ModeRevert:
		return op.Revert(ctx, sc, emit)
	default:
		return op.Perform(ctx, sc, emit)
	}
}
