// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package supervisor owns the session attempt of a running runtime process:
// it builds the session pipeline, drives it on behalf of the supervisor and
// journals every pass.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/khangzxrr/SafeExamBrowser/internal/config"
	"github.com/khangzxrr/SafeExamBrowser/internal/detect"
	"github.com/khangzxrr/SafeExamBrowser/internal/journal"
	"github.com/khangzxrr/SafeExamBrowser/internal/log"
	"github.com/khangzxrr/SafeExamBrowser/internal/metrics"
	"github.com/khangzxrr/SafeExamBrowser/internal/operation"
	"github.com/khangzxrr/SafeExamBrowser/internal/pipeline"
	"github.com/khangzxrr/SafeExamBrowser/internal/policy"
	"github.com/khangzxrr/SafeExamBrowser/internal/session"
	"github.com/khangzxrr/SafeExamBrowser/internal/text"
	"github.com/rs/zerolog"
)

var (
	ErrNoSession     = errors.New("no session")
	ErrSessionActive = errors.New("a session is already active")
)

type Option func(*Controller)

// WithJournal records every pass in s.
func WithJournal(s journal.Store) Option {
	return func(c *Controller) { c.journal = s }
}

// WithListener adds a listener to every pipeline the controller builds.
func WithListener(l operation.Listener) Option {
	return func(c *Controller) { c.listeners = append(c.listeners, l) }
}

// WithDetectors replaces the host probes.
func WithDetectors(virtualMachine, remoteSession detect.Detector) Option {
	return func(c *Controller) {
		c.vm = virtualMachine
		c.remote = remoteSession
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// Status is a point-in-time view of the controller.
type Status struct {
	Active    bool              `json:"active"`
	State     pipeline.State    `json:"state"`
	SessionID string            `json:"session_id,omitempty"`
	Applied   []string          `json:"applied,omitempty"`
	Pending   *pipeline.Pending `json:"pending,omitempty"`
	Last      *pipeline.Report  `json:"last,omitempty"`
}

// Controller serializes supervisor commands against a single session.
// Status never waits for a running pass.
type Controller struct {
	op sync.Mutex

	mu   sync.RWMutex
	cfg  config.AppConfig
	sc   *session.Context
	pipe *pipeline.Pipeline

	journal   journal.Store
	listeners []operation.Listener
	vm        detect.Detector
	remote    detect.Detector
	logger    zerolog.Logger
}

func New(cfg config.AppConfig, opts ...Option) *Controller {
	c := &Controller{
		cfg:    cfg,
		logger: log.WithComponent("supervisor"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.vm == nil {
		c.vm = detect.NewVirtualization()
	}
	if c.remote == nil {
		c.remote = detect.NewRemoteSession()
	}
	return c
}

// Config returns the configuration the next session will start with.
func (c *Controller) Config() config.AppConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

func (c *Controller) current() (*session.Context, *pipeline.Pipeline) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sc, c.pipe
}

func (c *Controller) set(sc *session.Context, p *pipeline.Pipeline) {
	c.mu.Lock()
	c.sc, c.pipe = sc, p
	c.mu.Unlock()
}

// Start creates a fresh session from the current configuration and performs
// the session sequence. A previous attempt that failed and left nothing
// applied is replaced.
func (c *Controller) Start(ctx context.Context) (*pipeline.Report, error) {
	c.op.Lock()
	defer c.op.Unlock()

	if _, p := c.current(); p != nil {
		st := p.State()
		if (st != pipeline.StateFailed && st != pipeline.StateAborted) || len(p.Applied()) > 0 {
			return nil, fmt.Errorf("%w (state %s)", ErrSessionActive, st)
		}
	}

	cfg := c.Config()
	sc := session.New(cfg)
	opts := []pipeline.Option{
		pipeline.WithLogger(c.logger),
		pipeline.WithOperationTimeout(cfg.Pipeline.OperationTimeout),
	}
	for _, l := range c.listeners {
		opts = append(opts, pipeline.WithListener(l))
	}
	p, err := pipeline.New(sc, policy.NewSessionSequence(c.vm, c.remote), opts...)
	if err != nil {
		return nil, err
	}
	c.set(sc, p)

	rep, err := p.Perform(ctx)
	if err != nil {
		return nil, err
	}
	c.record(ctx, rep, "")
	c.updateGauge(rep)
	return rep, nil
}

// Reconfigure adopts cfg. With an active session the context gets the new
// snapshot and fresh identifiers, then the sequence is repeated. Without one
// cfg only applies to the next Start and ErrNoSession is returned.
func (c *Controller) Reconfigure(ctx context.Context, cfg config.AppConfig) (*pipeline.Report, error) {
	c.op.Lock()
	defer c.op.Unlock()

	sc, p := c.current()
	if p == nil {
		c.mu.Lock()
		c.cfg = cfg
		c.mu.Unlock()
		return nil, ErrNoSession
	}
	if !sc.Config.Security.AllowReconfiguration {
		return nil, config.ErrReconfigurationDenied
	}
	if st := p.State(); st != pipeline.StateCompleted {
		return nil, fmt.Errorf("%w: cannot reconfigure in state %s", pipeline.ErrInvalidState, st)
	}

	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()

	sc.SetConfig(cfg)
	sc.Renew()
	rep, err := p.Repeat(ctx)
	if err != nil {
		return nil, err
	}
	c.record(ctx, rep, "")
	c.updateGauge(rep)
	return rep, nil
}

// Resolve records the operator's answer to the pending action and resumes
// the paused pass. An empty topic answers whatever the pending event asked.
func (c *Controller) Resolve(ctx context.Context, topic text.Key, approved bool) (*pipeline.Report, error) {
	c.op.Lock()
	defer c.op.Unlock()

	sc, p := c.current()
	if p == nil {
		return nil, ErrNoSession
	}
	pend, ok := p.Pending()
	if !ok {
		return nil, fmt.Errorf("%w: no action pending", pipeline.ErrInvalidState)
	}
	if topic == "" && pend.Event != nil {
		topic = pend.Event.Topic
	}
	if topic == "" {
		return nil, errors.New("resolve: no topic to decide")
	}

	sc.Decide(topic, approved)
	c.logger.Info().
		Str(log.FieldEvent, "supervisor.action_resolved").
		Str(log.FieldTopic, string(topic)).
		Bool("approved", approved).
		Msg("operator decision recorded")

	rep, err := p.Resume(ctx)
	if err != nil {
		return nil, err
	}
	c.record(ctx, rep, "")
	c.updateGauge(rep)
	return rep, nil
}

// Stop tears the session down and forgets it. A pipeline that never left
// Idle is dropped without a pass.
func (c *Controller) Stop(ctx context.Context) (*pipeline.Report, error) {
	c.op.Lock()
	defer c.op.Unlock()

	sc, p := c.current()
	if p == nil {
		return nil, ErrNoSession
	}
	if p.State() == pipeline.StateIdle {
		c.set(nil, nil)
		metrics.SetSessionActive(false)
		return nil, nil
	}

	sessionID := sc.SessionID.String()
	rep, err := p.Revert(ctx)
	if err != nil {
		return nil, err
	}
	c.record(ctx, rep, sessionID)
	c.set(nil, nil)
	metrics.SetSessionActive(false)
	return rep, nil
}

// Status reports the current attempt. The session id comes from the last
// finished pass; a first pass still running reports none.
func (c *Controller) Status() Status {
	_, p := c.current()
	if p == nil {
		return Status{State: pipeline.StateIdle}
	}
	st := Status{
		Active:  true,
		State:   p.State(),
		Applied: p.Applied(),
		Last:    p.LastReport(),
	}
	if last := st.Last; last != nil {
		st.SessionID = last.SessionID
	}
	if pend, ok := p.Pending(); ok {
		st.Pending = &pend
	}
	return st
}

// Attempts lists journaled passes, newest first.
func (c *Controller) Attempts(ctx context.Context, limit int) ([]journal.Attempt, error) {
	if c.journal == nil {
		return nil, nil
	}
	return c.journal.List(ctx, limit)
}

func (c *Controller) record(ctx context.Context, rep *pipeline.Report, sessionID string) {
	if c.journal == nil {
		return
	}
	a := journal.FromReport(rep, sessionID)
	if err := c.journal.Record(context.WithoutCancel(ctx), a); err != nil {
		c.logger.Error().
			Err(err).
			Str(log.FieldEvent, "supervisor.journal_failed").
			Str(log.FieldAttemptID, a.ID).
			Msg("failed to journal attempt")
	}
}

func (c *Controller) updateGauge(rep *pipeline.Report) {
	metrics.SetSessionActive(rep.State == pipeline.StateCompleted || rep.State == pipeline.StateActionPending)
}
