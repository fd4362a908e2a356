// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type mockClock struct {
	now time.Time
}

func (m *mockClock) Now() time.Time { return m.now }

var errDown = errors.New("connection refused")

func fail() error { return errDown }
func ok() error   { return nil }

func TestCircuitBreaker_TripsAfterThreshold(t *testing.T) {
	clock := &mockClock{now: time.Now()}
	cb := NewCircuitBreaker("redis", 3, 10*time.Second, WithClock(clock.Now))

	assert.ErrorIs(t, cb.Execute(fail), errDown)
	assert.ErrorIs(t, cb.Execute(fail), errDown)
	assert.Equal(t, StateClosed, cb.State())

	assert.ErrorIs(t, cb.Execute(fail), errDown)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called, "open breaker must not call through")
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker("redis", 2, time.Second)

	_ = cb.Execute(fail)
	assert.NoError(t, cb.Execute(ok))
	_ = cb.Execute(fail)
	assert.Equal(t, StateClosed, cb.State(), "failures are consecutive")
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	clock := &mockClock{now: time.Now()}
	cb := NewCircuitBreaker("redis", 1, 10*time.Second, WithClock(clock.Now))

	_ = cb.Execute(fail)
	assert.Equal(t, StateOpen, cb.State())

	clock.now = clock.now.Add(11 * time.Second)
	_ = cb.Execute(fail)
	assert.Equal(t, StateOpen, cb.State(), "failed probe reopens")
	assert.ErrorIs(t, cb.Execute(ok), ErrCircuitOpen)

	clock.now = clock.now.Add(11 * time.Second)
	assert.NoError(t, cb.Execute(ok))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_SingleProbeWhileHalfOpen(t *testing.T) {
	clock := &mockClock{now: time.Now()}
	cb := NewCircuitBreaker("redis", 1, time.Second, WithClock(clock.Now))
	_ = cb.Execute(fail)
	clock.now = clock.now.Add(2 * time.Second)

	err := cb.Execute(func() error {
		assert.Equal(t, StateHalfOpen, cb.State())
		assert.ErrorIs(t, cb.Execute(ok), ErrCircuitOpen)
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker("x", 0, 0)
	assert.Equal(t, 3, cb.threshold)
	assert.Equal(t, 30*time.Second, cb.resetTimeout)
}
