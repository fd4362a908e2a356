// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package journal

import (
	"context"
	"sync"
)

// MemoryStore keeps attempts for the lifetime of the process.
type MemoryStore struct {
	mu       sync.RWMutex
	attempts []Attempt
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Record(_ context.Context, a Attempt) error {
	a = prepare(a)
	a.Reverted = append([]string(nil), a.Reverted...)
	s.mu.Lock()
	s.attempts = append(s.attempts, a)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) List(_ context.Context, limit int) ([]Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.attempts)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Attempt, 0, n)
	for i := len(s.attempts) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.attempts[i])
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
