// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package operation

import (
	"context"

	"github.com/khangzxrr/SafeExamBrowser/internal/session"
)

// Funcs builds an Operation from plain functions. Nil methods return Success.
type Funcs struct {
	ID        string
	PerformFn func(ctx context.Context, sc *session.Context, emit Emitter) Result
	RepeatFn  func(ctx context.Context, sc *session.Context, emit Emitter) Result
	RevertFn  func(ctx context.Context, sc *session.Context, emit Emitter) Result
}

func (f *Funcs) Name() string { return f.ID }

func (f *Funcs) Perform(ctx context.Context, sc *session.Context, emit Emitter) Result {
	return call(ctx, f.PerformFn, sc, emit)
}

func (f *Funcs) Repeat(ctx context.Context, sc *session.Context, emit Emitter) Result {
	return call(ctx, f.RepeatFn, sc, emit)
}

func (f *Funcs) Revert(ctx context.Context, sc *session.Context, emit Emitter) Result {
	return call(ctx, f.RevertFn, sc, emit)
}

func call(ctx context.Context, fn func(context.Context, *session.Context, Emitter) Result, sc *session.Context, emit Emitter) Result {
	if fn == nil {
		return Success
	}
	return fn(ctx, sc, emit)
}
