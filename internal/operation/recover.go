// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package operation

import (
	"context"
	"fmt"

	"github.com/khangzxrr/SafeExamBrowser/internal/log"
	"github.com/khangzxrr/SafeExamBrowser/internal/session"
	"github.com/rs/zerolog"
)

// Recover wraps op so that a panic in any of its methods becomes Failure.
// The panic value is logged, never emitted.
func Recover(op Operation, logger zerolog.Logger) Operation {
	if _, ok := op.(*recovering); ok {
		return op
	}
	return &recovering{Operation: op, logger: logger}
}

type recovering struct {
	Operation
	logger zerolog.Logger
}

func (r *recovering) Perform(ctx context.Context, sc *session.Context, emit Emitter) Result {
	return r.guard(ModePerform, func() Result { return r.Operation.Perform(ctx, sc, emit) })
}

func (r *recovering) Repeat(ctx context.Context, sc *session.Context, emit Emitter) Result {
	return r.guard(ModeRepeat, func() Result { return r.Operation.Repeat(ctx, sc, emit) })
}

func (r *recovering) Revert(ctx context.Context, sc *session.Context, emit Emitter) Result {
	return r.guard(ModeRevert, func() Result { return r.Operation.Revert(ctx, sc, emit) })
}

// RequiresRevalidation forwards the wrapped operation's capability.
func (r *recovering) RequiresRevalidation(sc *session.Context) bool {
	return RequiresRevalidation(r.Operation, sc)
}

// Unwrap returns the wrapped operation.
func (r *recovering) Unwrap() Operation { return r.Operation }

func (r *recovering) guard(mode Mode, fn func() Result) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error().
				Str(log.FieldEvent, "operation.panic").
				Str(log.FieldOperation, r.Name()).
				Str(log.FieldMode, string(mode)).
				Str("panic", fmt.Sprint(p)).
				Msg("operation panicked")
			res = Failure
		}
	}()
	res = fn()
	if !res.Valid() {
		r.logger.Error().
			Str(log.FieldEvent, "operation.invalid_result").
			Str(log.FieldOperation, r.Name()).
			Str(log.FieldResult, string(res)).
			Msg("operation returned an unknown result")
		res = Failure
	}
	return res
}
