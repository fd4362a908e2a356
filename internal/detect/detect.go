// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package detect holds the environment probes policy operations consult.
package detect

import (
	"context"

	"github.com/khangzxrr/SafeExamBrowser/internal/session"
)

// Detector answers a single yes/no question about the host.
type Detector interface {
	Detect(ctx context.Context, sc *session.Context) (bool, error)
}

// Func adapts a function to Detector.
type Func func(ctx context.Context, sc *session.Context) (bool, error)

func (f Func) Detect(ctx context.Context, sc *session.Context) (bool, error) { return f(ctx, sc) }

// Static always returns the same verdict.
type Static struct {
	Detected bool
	Err      error
}

func (s Static) Detect(context.Context, *session.Context) (bool, error) { return s.Detected, s.Err }
