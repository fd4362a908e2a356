// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package operation

import (
	"bytes"
	"context"
	"testing"

	"github.com/khangzxrr/SafeExamBrowser/internal/config"
	"github.com/khangzxrr/SafeExamBrowser/internal/session"
	"github.com/khangzxrr/SafeExamBrowser/internal/text"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type revalidating struct {
	Funcs
	needed bool
}

func (r *revalidating) RequiresRevalidation(*session.Context) bool { return r.needed }

func TestRecover_ConvertsPanicToFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	op := Recover(&Funcs{
		ID: "explodes",
		PerformFn: func(context.Context, *session.Context, Emitter) Result {
			panic("detector blew up")
		},
	}, logger)

	rec := &Recorder{}
	res := op.Perform(context.Background(), session.New(config.Defaults()), rec)

	assert.Equal(t, Failure, res)
	assert.Empty(t, rec.Events(), "panics must not surface as events")
	assert.Contains(t, buf.String(), "detector blew up")
	assert.Contains(t, buf.String(), `"operation":"explodes"`)
}

func TestRecover_MapsUnknownResultToFailure(t *testing.T) {
	op := Recover(&Funcs{
		ID: "odd",
		RepeatFn: func(context.Context, *session.Context, Emitter) Result {
			return Result("MAYBE")
		},
	}, zerolog.Nop())

	assert.Equal(t, Failure, op.Repeat(context.Background(), session.New(config.Defaults()), Discard))
}

func TestRecover_PassesThroughResultsAndCapabilities(t *testing.T) {
	inner := &revalidating{Funcs: Funcs{
		ID: "check",
		RevertFn: func(_ context.Context, _ *session.Context, emit Emitter) Result {
			emit.StatusChanged(text.OperationStatusRevertWorkspace)
			return ActionRequired
		},
	}}
	op := Recover(inner, zerolog.Nop())
	require.Same(t, op, Recover(op, zerolog.Nop()))

	rec := &Recorder{}
	assert.Equal(t, ActionRequired, op.Revert(context.Background(), nil, rec))
	assert.Equal(t, []text.Key{text.OperationStatusRevertWorkspace}, rec.Topics(KindStatusChanged))

	assert.False(t, RequiresRevalidation(op, nil))
	inner.needed = true
	assert.True(t, RequiresRevalidation(op, nil))
}

func TestRequiresRevalidation_DefaultsToTrue(t *testing.T) {
	assert.True(t, RequiresRevalidation(&Funcs{ID: "plain"}, nil))
}

func TestCall_DispatchesByMode(t *testing.T) {
	var got []Mode
	op := &Funcs{
		ID:        "dispatch",
		PerformFn: func(context.Context, *session.Context, Emitter) Result { got = append(got, ModePerform); return Success },
		RepeatFn:  func(context.Context, *session.Context, Emitter) Result { got = append(got, ModeRepeat); return Success },
		RevertFn:  func(context.Context, *session.Context, Emitter) Result { got = append(got, ModeRevert); return Success },
	}
	ctx := context.Background()
	Call(ctx, op, ModeRevert, nil, Discard)
	Call(ctx, op, ModePerform, nil, Discard)
	Call(ctx, op, ModeRepeat, nil, Discard)

	assert.Equal(t, []Mode{ModeRevert, ModePerform, ModeRepeat}, got)
}
