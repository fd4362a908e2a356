// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package pipeline

import (
	"time"

	"github.com/khangzxrr/SafeExamBrowser/internal/operation"
)

// Step is one operation call made during a pass.
type Step struct {
	Index     int              `json:"index"`
	Operation string           `json:"operation"`
	Mode      operation.Mode   `json:"mode"`
	Result    operation.Result `json:"result"`
	Duration  time.Duration    `json:"duration"`
}

// Report describes a finished pass.
type Report struct {
	Mode      operation.Mode   `json:"mode"`
	Result    operation.Result `json:"result"`
	State     State            `json:"state"`
	SessionID string           `json:"session_id"`

	// Start is the first operation index the pass ran; Halted is the index
	// that stopped it, or -1.
	Start  int `json:"start"`
	Halted int `json:"halted"`

	Steps   []Step `json:"steps"`
	Reverts []Step `json:"reverts,omitempty"`

	// RevertErr aggregates every revert that did not succeed.
	RevertErr error `json:"-"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Reverted lists the names of reverted operations in call order.
func (r *Report) Reverted() []string {
	out := make([]string, 0, len(r.Reverts))
	for _, s := range r.Reverts {
		out = append(out, s.Operation)
	}
	return out
}

// Pending is the operation a paused pipeline waits on.
type Pending struct {
	Index     int              `json:"index"`
	Operation string           `json:"operation"`
	Mode      operation.Mode   `json:"mode"`
	Event     *operation.Event `json:"event,omitempty"`
}
