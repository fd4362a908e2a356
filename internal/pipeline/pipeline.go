// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package pipeline drives an operation sequence over a session context:
// forward passes in declaration order, best-effort rollback in reverse order
// and a pause/resume cycle for operations that need an operator decision.
package pipeline

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/khangzxrr/SafeExamBrowser/internal/log"
	"github.com/khangzxrr/SafeExamBrowser/internal/operation"
	"github.com/khangzxrr/SafeExamBrowser/internal/pipeline/fsm"
	"github.com/khangzxrr/SafeExamBrowser/internal/session"
	"github.com/khangzxrr/SafeExamBrowser/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

const defaultOperationTimeout = 30 * time.Second

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger replaces the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithListener registers a listener at construction time.
func WithListener(l operation.Listener) Option {
	return func(p *Pipeline) { p.addListener(l) }
}

// WithOperationTimeout bounds each operation call. Zero disables the bound.
func WithOperationTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.opTimeout = d }
}

// WithRevertFailing makes rollback revert the failing operation too, before
// the ones that succeeded ahead of it.
func WithRevertFailing() Option {
	return func(p *Pipeline) { p.revertFailing = true }
}

// WithTracer replaces the tracer used for pass and operation spans.
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) { p.tracer = t }
}

// WithClock replaces the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

type listenerEntry struct {
	id uint64
	l  operation.Listener
}

// Pipeline runs one operation sequence against one session context.
// All methods are serialized.
type Pipeline struct {
	mu sync.Mutex

	seq     *operation.Sequence
	ops     []operation.Operation
	sc      *session.Context
	machine *fsm.Machine[State, trigger]

	// amu guards the fields readers may poll while a pass runs.
	amu     sync.RWMutex
	applied []bool
	pending *Pending
	last    *Report

	lmu       sync.RWMutex
	listeners []listenerEntry
	nextID    uint64

	eventSeq atomic.Uint64

	logger        zerolog.Logger
	tracer        trace.Tracer
	opTimeout     time.Duration
	revertFailing bool
	now           func() time.Time
}

// New builds an idle pipeline. Every operation is wrapped so a panic is
// reported as Failure.
func New(sc *session.Context, seq *operation.Sequence, opts ...Option) (*Pipeline, error) {
	if sc == nil {
		return nil, errors.New("pipeline: nil session context")
	}
	if seq == nil {
		return nil, errors.New("pipeline: nil operation sequence")
	}

	p := &Pipeline{
		seq:       seq,
		sc:        sc,
		applied:   make([]bool, seq.Len()),
		logger:    log.WithComponent("pipeline"),
		tracer:    telemetry.Tracer("github.com/khangzxrr/SafeExamBrowser/internal/pipeline"),
		opTimeout: defaultOperationTimeout,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.ops = make([]operation.Operation, seq.Len())
	for i := range p.ops {
		p.ops[i] = operation.Recover(seq.At(i), p.logger)
	}

	m, err := p.buildMachine()
	if err != nil {
		return nil, err
	}
	p.machine = m
	return p, nil
}

// Subscribe registers l and returns a function that removes it.
func (p *Pipeline) Subscribe(l operation.Listener) (unsubscribe func()) {
	id := p.addListener(l)
	return func() { p.removeListener(id) }
}

func (p *Pipeline) addListener(l operation.Listener) uint64 {
	p.lmu.Lock()
	defer p.lmu.Unlock()
	p.nextID++
	next := make([]listenerEntry, len(p.listeners), len(p.listeners)+1)
	copy(next, p.listeners)
	p.listeners = append(next, listenerEntry{id: p.nextID, l: l})
	return p.nextID
}

func (p *Pipeline) removeListener(id uint64) {
	p.lmu.Lock()
	defer p.lmu.Unlock()
	next := make([]listenerEntry, 0, len(p.listeners))
	for _, e := range p.listeners {
		if e.id != id {
			next = append(next, e)
		}
	}
	p.listeners = next
}

// State returns the current lifecycle state.
func (p *Pipeline) State() State { return p.machine.State() }

// Context returns the session context the pipeline operates on.
func (p *Pipeline) Context() *session.Context { return p.sc }

// Sequence returns the operation sequence.
func (p *Pipeline) Sequence() *operation.Sequence { return p.seq }

// Pending returns the operation a paused pipeline waits on.
func (p *Pipeline) Pending() (Pending, bool) {
	p.amu.RLock()
	defer p.amu.RUnlock()
	if p.pending == nil {
		return Pending{}, false
	}
	return *p.pending, true
}

// LastReport returns the report of the most recent pass, or nil.
func (p *Pipeline) LastReport() *Report {
	p.amu.RLock()
	defer p.amu.RUnlock()
	return p.last
}

// Applied lists the names of operations whose effects are in place.
func (p *Pipeline) Applied() []string {
	p.amu.RLock()
	defer p.amu.RUnlock()
	var out []string
	for i, ok := range p.applied {
		if ok {
			out = append(out, p.ops[i].Name())
		}
	}
	return out
}

func (p *Pipeline) setPending(pend *Pending) {
	p.amu.Lock()
	p.pending = pend
	p.amu.Unlock()
}

func (p *Pipeline) setApplied(i int, v bool) {
	p.amu.Lock()
	p.applied[i] = v
	p.amu.Unlock()
}

func (p *Pipeline) isApplied(i int) bool {
	p.amu.RLock()
	defer p.amu.RUnlock()
	return p.applied[i]
}

func (p *Pipeline) appliedCount() int {
	p.amu.RLock()
	defer p.amu.RUnlock()
	n := 0
	for _, ok := range p.applied {
		if ok {
			n++
		}
	}
	return n
}
