// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package journal records every pipeline pass the runtime makes so an
// operator can audit what happened to a session after the fact.
package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/khangzxrr/SafeExamBrowser/internal/config"
	"github.com/khangzxrr/SafeExamBrowser/internal/operation"
	"github.com/khangzxrr/SafeExamBrowser/internal/pipeline"
)

var ErrUnknownBackend = errors.New("unknown journal backend")

// Attempt is one recorded pass.
type Attempt struct {
	ID          string           `json:"id"`
	SessionID   string           `json:"session_id"`
	Mode        operation.Mode   `json:"mode"`
	Result      operation.Result `json:"result"`
	State       pipeline.State   `json:"state"`
	HaltedAt    string           `json:"halted_at,omitempty"`
	Reverted    []string         `json:"reverted,omitempty"`
	RevertError string           `json:"revert_error,omitempty"`
	StartedAt   time.Time        `json:"started_at"`
	FinishedAt  time.Time        `json:"finished_at"`
}

// FromReport converts a pass report. sessionID overrides the report's id
// when the pass cleared it (teardown does).
func FromReport(r *pipeline.Report, sessionID string) Attempt {
	a := Attempt{
		ID:         uuid.NewString(),
		SessionID:  r.SessionID,
		Mode:       r.Mode,
		Result:     r.Result,
		State:      r.State,
		Reverted:   r.Reverted(),
		StartedAt:  r.StartedAt.UTC(),
		FinishedAt: r.FinishedAt.UTC(),
	}
	if sessionID != "" {
		a.SessionID = sessionID
	}
	if r.Halted >= 0 {
		for _, s := range r.Steps {
			if s.Index == r.Halted {
				a.HaltedAt = s.Operation
			}
		}
	}
	if r.RevertErr != nil {
		a.RevertError = r.RevertErr.Error()
	}
	return a
}

// Store persists attempts. List returns the newest first; limit <= 0
// returns everything.
type Store interface {
	Record(ctx context.Context, a Attempt) error
	List(ctx context.Context, limit int) ([]Attempt, error)
	Close() error
}

// Open returns the store for backend. path is ignored by the memory backend.
func Open(backend, path string) (Store, error) {
	switch backend {
	case config.JournalMemory, "":
		return NewMemoryStore(), nil
	case config.JournalSqlite:
		return OpenSqliteStore(path)
	case config.JournalBadger:
		return OpenBadgerStore(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

func prepare(a Attempt) Attempt {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.StartedAt = a.StartedAt.UTC()
	a.FinishedAt = a.FinishedAt.UTC()
	return a
}
