// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/khangzxrr/SafeExamBrowser/internal/log"
	"github.com/khangzxrr/SafeExamBrowser/internal/metrics"
	"github.com/khangzxrr/SafeExamBrowser/internal/operation"
	"github.com/khangzxrr/SafeExamBrowser/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Perform runs every operation from the first one. Allowed from Idle,
// Failed and Aborted when nothing is left applied.
func (p *Pipeline) Perform(ctx context.Context) (*Report, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.forward(ctx, trPerform, operation.ModePerform, func() int { return 0 })
}

// Repeat re-runs the sequence after a reconfiguration, starting at the first
// operation that requires revalidation. Allowed from Completed.
func (p *Pipeline) Repeat(ctx context.Context) (*Report, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.forward(ctx, trRepeat, operation.ModeRepeat, p.repeatStart)
}

// Resume restarts a paused pass at the operation that asked for an action,
// using the method of the paused pass. Allowed from ActionPending.
func (p *Pipeline) Resume(ctx context.Context) (*Report, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pend, ok := p.Pending()
	if !ok {
		return nil, fmt.Errorf("%w: nothing to resume in state %s", ErrInvalidState, p.machine.State())
	}
	return p.forward(ctx, trResume, pend.Mode, func() int { return pend.Index })
}

// Revert tears the session down: every applied operation is reverted,
// highest index first, and the pipeline returns to Idle. The report result
// is Failure when any revert failed.
func (p *Pipeline) Revert(ctx context.Context) (*Report, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.sc.Acquire(); err != nil {
		return nil, err
	}
	defer p.sc.Release()

	if err := p.enter(ctx, trTeardown); err != nil {
		return nil, err
	}
	p.setPending(nil)

	ctx, span := p.tracer.Start(ctx, "pipeline.revert",
		trace.WithAttributes(telemetry.PassAttributes(string(operation.ModeRevert), p.sc.SessionID.String(), len(p.ops))...))
	defer span.End()

	rep := p.newReport(operation.ModeRevert, len(p.ops)-1)
	p.logPassStart(rep)

	p.revertApplied(ctx, rep, len(p.ops)-1)

	rep.Result = operation.Success
	if rep.RevertErr != nil {
		rep.Result = operation.Failure
		span.SetStatus(codes.Error, rep.RevertErr.Error())
	}
	rep.State = p.settle(ctx, trReset)
	return p.finish(rep, span), nil
}

func (p *Pipeline) repeatStart() int {
	for i, op := range p.ops {
		if operation.RequiresRevalidation(op, p.sc) {
			return i
		}
	}
	return len(p.ops)
}

func (p *Pipeline) forward(ctx context.Context, tr trigger, mode operation.Mode, start func() int) (*Report, error) {
	if err := p.sc.Acquire(); err != nil {
		return nil, err
	}
	defer p.sc.Release()

	if err := p.enter(ctx, tr); err != nil {
		return nil, err
	}
	p.setPending(nil)

	first := start()
	ctx, span := p.tracer.Start(ctx, "pipeline."+string(mode),
		trace.WithAttributes(telemetry.PassAttributes(string(mode), p.sc.SessionID.String(), len(p.ops))...))
	defer span.End()

	rep := p.newReport(mode, first)
	p.logPassStart(rep)

	for i := first; i < len(p.ops); i++ {
		if err := ctx.Err(); err != nil {
			p.logger.Warn().
				Err(err).
				Str(log.FieldEvent, "pipeline.cancelled").
				Int(log.FieldOpIndex, i).
				Msg("pass cancelled between operations")
			rep.Halted = i
			rep.Result = operation.Aborted
			p.revertApplied(ctx, rep, i-1)
			rep.State = p.settle(ctx, trAbort)
			return p.finish(rep, span), nil
		}

		res, em := p.call(ctx, i, mode, rep)

		switch res {
		case operation.Success:
			p.setApplied(i, true)
			continue

		case operation.ActionRequired:
			rep.Halted = i
			rep.Result = operation.ActionRequired
			p.setPending(&Pending{Index: i, Operation: p.ops[i].Name(), Mode: mode, Event: em.lastAction})
			rep.State = p.settle(ctx, trPause)
			return p.finish(rep, span), nil

		default:
			rep.Halted = i
			rep.Result = res
			p.rollback(ctx, rep, i)
			next := trFail
			if res == operation.Aborted {
				next = trAbort
			}
			span.SetStatus(codes.Error, fmt.Sprintf("%s at %s", res, p.ops[i].Name()))
			rep.State = p.settle(ctx, next)
			return p.finish(rep, span), nil
		}
	}

	rep.Result = operation.Success
	rep.State = p.settle(ctx, trComplete)
	return p.finish(rep, span), nil
}

// rollback undoes a forward pass halted at index k.
func (p *Pipeline) rollback(ctx context.Context, rep *Report, k int) {
	if p.revertFailing {
		p.revertOne(ctx, rep, k)
	}
	p.revertApplied(ctx, rep, k-1)
}

// revertApplied reverts every applied operation from index from down to 0.
// A failed revert never stops the ones below it.
func (p *Pipeline) revertApplied(ctx context.Context, rep *Report, from int) {
	for i := from; i >= 0; i-- {
		if p.isApplied(i) {
			p.revertOne(ctx, rep, i)
		}
	}
}

func (p *Pipeline) revertOne(ctx context.Context, rep *Report, i int) {
	res, _ := p.call(ctx, i, operation.ModeRevert, rep)
	p.setApplied(i, false)
	if res == operation.Success {
		return
	}

	name := p.ops[i].Name()
	metrics.IncRevertFailure(name)
	rep.RevertErr = multierror.Append(rep.RevertErr, fmt.Errorf("%w: operation %q returned %s", ErrRevertFailed, name, res))
	p.logger.Error().
		Str(log.FieldEvent, "pipeline.revert_failed").
		Str(log.FieldOperation, name).
		Int(log.FieldOpIndex, i).
		Str(log.FieldResult, string(res)).
		Msg("revert did not succeed, continuing rollback")
}

// call invokes one operation method with a sealed-after-return emitter and a
// context detached from the caller's cancellation, and records the step.
func (p *Pipeline) call(ctx context.Context, i int, mode operation.Mode, rep *Report) (operation.Result, *emitter) {
	op := p.ops[i]
	name := op.Name()

	ctx, span := p.tracer.Start(ctx, "operation."+name,
		trace.WithAttributes(telemetry.OperationAttributes(name, i, string(mode))...))
	defer span.End()

	// Cancellation of the pass is observed between operations only; the
	// running call keeps trace values and its own deadline.
	ctx = context.WithoutCancel(ctx)
	if p.opTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opTimeout)
		defer cancel()
	}

	em := p.newEmitter(name, i, mode)
	started := time.Now()
	res := operation.Call(ctx, op, mode, p.sc, em)
	em.seal()
	elapsed := time.Since(started)

	span.SetAttributes(attribute.String(telemetry.OperationResult, string(res)))
	if res == operation.Failure || res == operation.Aborted {
		span.SetStatus(codes.Error, string(res))
	}
	metrics.RecordOperation(name, string(mode), string(res), elapsed)

	step := Step{Index: i, Operation: name, Mode: mode, Result: res, Duration: elapsed}
	if mode == operation.ModeRevert {
		rep.Reverts = append(rep.Reverts, step)
	} else {
		rep.Steps = append(rep.Steps, step)
	}

	p.logger.Debug().
		Str(log.FieldEvent, "pipeline.operation").
		Str(log.FieldSessionID, p.sc.SessionID.String()).
		Str(log.FieldOperation, name).
		Int(log.FieldOpIndex, i).
		Str(log.FieldMode, string(mode)).
		Str(log.FieldResult, string(res)).
		Dur(log.FieldDuration, elapsed).
		Msg("operation finished")

	return res, em
}

func (p *Pipeline) newReport(mode operation.Mode, start int) *Report {
	return &Report{
		Mode:      mode,
		SessionID: p.sc.SessionID.String(),
		Start:     start,
		Halted:    -1,
		StartedAt: p.now(),
	}
}

func (p *Pipeline) logPassStart(rep *Report) {
	p.logger.Info().
		Str(log.FieldEvent, "pipeline.pass_start").
		Str(log.FieldSessionID, rep.SessionID).
		Str(log.FieldMode, string(rep.Mode)).
		Int(log.FieldOpIndex, rep.Start).
		Msg("pipeline pass started")
}

func (p *Pipeline) finish(rep *Report, span trace.Span) *Report {
	rep.FinishedAt = p.now()
	span.SetAttributes(attribute.String(telemetry.PassStateKey, string(rep.State)))
	metrics.RecordPass(string(rep.Mode), string(rep.State))

	evt := p.logger.Info()
	if rep.Result == operation.Failure || rep.Result == operation.Aborted {
		evt = p.logger.Warn()
	}
	if rep.RevertErr != nil {
		evt = evt.AnErr("revert_error", rep.RevertErr)
	}
	evt.
		Str(log.FieldEvent, "pipeline.pass_finish").
		Str(log.FieldSessionID, rep.SessionID).
		Str(log.FieldMode, string(rep.Mode)).
		Str(log.FieldResult, string(rep.Result)).
		Str(log.FieldNewState, string(rep.State)).
		Int("halted", rep.Halted).
		Dur(log.FieldDuration, rep.FinishedAt.Sub(rep.StartedAt)).
		Msg("pipeline pass finished")

	p.amu.Lock()
	p.last = rep
	p.amu.Unlock()
	return rep
}
