// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package fsm is a small strict state machine: every (state, event) pair
// must be declared up front and anything else is rejected.
package fsm

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrInvalidTransition is returned when no edge exists for the event in
	// the current state.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrConcurrentTransition is returned when the state moved while a guard
	// or action was running.
	ErrConcurrentTransition = errors.New("concurrent transition")
)

// Transition describes a single edge in the FSM.
// Guard may reject the transition; Action runs side-effects before the state
// is committed and may also veto it.
type Transition[S ~string, E ~string] struct {
	From   S
	Event  E
	To     S
	Guard  func(ctx context.Context, from S, event E) error
	Action func(ctx context.Context, from S, to S, event E) error
}

type edge[S ~string, E ~string] struct {
	from  S
	event E
}

// Machine is a small, test-friendly FSM runner.
type Machine[S ~string, E ~string] struct {
	mu    sync.Mutex
	state S
	index map[edge[S, E]]Transition[S, E]
}

// New builds a machine in state initial. Duplicate edges are rejected.
func New[S ~string, E ~string](initial S, transitions []Transition[S, E]) (*Machine[S, E], error) {
	idx := make(map[edge[S, E]]Transition[S, E], len(transitions))
	for _, t := range transitions {
		k := edge[S, E]{from: t.From, event: t.Event}
		if _, exists := idx[k]; exists {
			return nil, fmt.Errorf("duplicate transition: %s -> %s", t.From, t.Event)
		}
		idx[k] = t
	}
	return &Machine[S, E]{state: initial, index: idx}, nil
}

// State returns the current state.
func (m *Machine[S, E]) State() S {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Can reports whether event has an edge from the current state. Guards are
// not evaluated.
func (m *Machine[S, E]) Can(event E) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.index[edge[S, E]{from: m.state, event: event}]
	return ok
}

// Fire attempts to apply an event atomically.
func (m *Machine[S, E]) Fire(ctx context.Context, event E) (S, error) {
	m.mu.Lock()
	from := m.state
	t, ok := m.index[edge[S, E]{from: from, event: event}]
	if !ok {
		m.mu.Unlock()
		return from, fmt.Errorf("%w: state=%s event=%s", ErrInvalidTransition, from, event)
	}
	to := t.To
	m.mu.Unlock()

	// Guard + Action run outside the critical section.
	if t.Guard != nil {
		if err := t.Guard(ctx, from, event); err != nil {
			return from, err
		}
	}
	if t.Action != nil {
		if err := t.Action(ctx, from, to, event); err != nil {
			return from, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != from {
		return m.state, fmt.Errorf("%w: from=%s cur=%s event=%s", ErrConcurrentTransition, from, m.state, event)
	}
	m.state = to
	return to, nil
}
