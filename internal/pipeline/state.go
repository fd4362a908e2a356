// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/khangzxrr/SafeExamBrowser/internal/log"
	"github.com/khangzxrr/SafeExamBrowser/internal/pipeline/fsm"
)

// State is the lifecycle of a pipeline.
type State string

const (
	StateIdle          State = "IDLE"
	StateRunning       State = "RUNNING"
	StateCompleted     State = "COMPLETED"
	StateFailed        State = "FAILED"
	StateActionPending State = "ACTION_PENDING"
	StateAborted       State = "ABORTED"
)

// IsTerminal reports whether a forward pass ended in s.
func (s State) IsTerminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateActionPending, StateAborted:
		return true
	}
	return false
}

type trigger string

const (
	trPerform  trigger = "perform"
	trRepeat   trigger = "repeat"
	trResume   trigger = "resume"
	trTeardown trigger = "teardown"
	trComplete trigger = "complete"
	trFail     trigger = "fail"
	trPause    trigger = "pause"
	trAbort    trigger = "abort"
	trReset    trigger = "reset"
)

var (
	// ErrInvalidState is returned when a request is not allowed in the
	// current state. Operations are not touched.
	ErrInvalidState = errors.New("invalid pipeline state")

	// ErrRevertFailed marks a revert that did not return Success.
	ErrRevertFailed = errors.New("revert failed")
)

func (p *Pipeline) buildMachine() (*fsm.Machine[State, trigger], error) {
	onTransition := func(_ context.Context, from, to State, tr trigger) error {
		p.logger.Debug().
			Str(log.FieldEvent, "pipeline.state_changed").
			Str(log.FieldOldState, string(from)).
			Str(log.FieldNewState, string(to)).
			Str("trigger", string(tr)).
			Msg("pipeline state changed")
		return nil
	}
	noneApplied := func(context.Context, State, trigger) error {
		if n := p.appliedCount(); n > 0 {
			return fmt.Errorf("%w: %d operations still applied, revert first", ErrInvalidState, n)
		}
		return nil
	}

	var ts []fsm.Transition[State, trigger]
	add := func(from State, tr trigger, to State) {
		ts = append(ts, fsm.Transition[State, trigger]{From: from, Event: tr, To: to, Action: onTransition})
	}

	for _, from := range []State{StateIdle, StateFailed, StateAborted} {
		ts = append(ts, fsm.Transition[State, trigger]{
			From: from, Event: trPerform, To: StateRunning,
			Guard: noneApplied, Action: onTransition,
		})
	}
	add(StateCompleted, trRepeat, StateRunning)
	add(StateActionPending, trResume, StateRunning)
	for _, from := range []State{StateCompleted, StateFailed, StateAborted, StateActionPending} {
		add(from, trTeardown, StateRunning)
	}
	add(StateRunning, trComplete, StateCompleted)
	add(StateRunning, trFail, StateFailed)
	add(StateRunning, trPause, StateActionPending)
	add(StateRunning, trAbort, StateAborted)
	add(StateRunning, trReset, StateIdle)

	return fsm.New(StateIdle, ts)
}

// enter fires an entry trigger and maps machine errors onto ErrInvalidState.
func (p *Pipeline) enter(ctx context.Context, tr trigger) error {
	if _, err := p.machine.Fire(ctx, tr); err != nil {
		if errors.Is(err, fsm.ErrInvalidTransition) {
			return fmt.Errorf("%w: %s not allowed in state %s", ErrInvalidState, tr, p.machine.State())
		}
		return err
	}
	return nil
}

// settle moves a running pipeline to its terminal state. Only the running
// pass fires these, so a failure here is a programming error.
func (p *Pipeline) settle(ctx context.Context, tr trigger) State {
	to, err := p.machine.Fire(ctx, tr)
	if err != nil {
		p.logger.Error().Err(err).Str(log.FieldEvent, "pipeline.settle_failed").Msg("pipeline could not settle")
	}
	return to
}
