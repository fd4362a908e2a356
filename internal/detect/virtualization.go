// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package detect

import (
	"context"
	"fmt"
	"strings"

	"github.com/khangzxrr/SafeExamBrowser/internal/log"
	"github.com/khangzxrr/SafeExamBrowser/internal/session"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/host"
)

// VirtualizationProbe returns the virtualization system and role of the host.
type VirtualizationProbe func(ctx context.Context) (system, role string, err error)

// Virtualization reports whether the runtime is executing inside a guest VM.
type Virtualization struct {
	probe  VirtualizationProbe
	logger zerolog.Logger
}

// NewVirtualization builds a detector backed by gopsutil.
func NewVirtualization() *Virtualization {
	return NewVirtualizationWithProbe(host.VirtualizationWithContext)
}

// NewVirtualizationWithProbe builds a detector with a custom probe.
func NewVirtualizationWithProbe(probe VirtualizationProbe) *Virtualization {
	return &Virtualization{probe: probe, logger: log.WithComponent("detect")}
}

func (v *Virtualization) Detect(ctx context.Context, _ *session.Context) (bool, error) {
	system, role, err := v.probe(ctx)
	if err != nil {
		return false, fmt.Errorf("probe virtualization: %w", err)
	}
	detected := system != "" && strings.EqualFold(role, "guest")
	v.logger.Debug().
		Str(log.FieldEvent, "detect.virtualization").
		Str("system", system).
		Str("role", role).
		Bool(log.FieldDetected, detected).
		Msg("virtualization probed")
	return detected, nil
}
