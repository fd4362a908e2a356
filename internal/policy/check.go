// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package policy holds the concrete session operations: environment policy
// checks and the steps that prepare and tear down a session.
package policy

import (
	"context"

	"github.com/khangzxrr/SafeExamBrowser/internal/config"
	"github.com/khangzxrr/SafeExamBrowser/internal/detect"
	"github.com/khangzxrr/SafeExamBrowser/internal/log"
	"github.com/khangzxrr/SafeExamBrowser/internal/operation"
	"github.com/khangzxrr/SafeExamBrowser/internal/session"
	"github.com/khangzxrr/SafeExamBrowser/internal/telemetry"
	"github.com/khangzxrr/SafeExamBrowser/internal/text"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// check is the shared body of the environment policy operations.
type check struct {
	subject  string
	status   text.Key
	message  text.Key
	title    text.Key
	detector detect.Detector
	policyOf func(*session.Context) config.Policy
	logger   zerolog.Logger
}

func (c *check) validate(ctx context.Context, sc *session.Context, emit operation.Emitter) operation.Result {
	c.logger.Info().Msgf("Validating %s policy...", c.subject)
	emit.StatusChanged(c.status)

	detected, err := c.detector.Detect(ctx, sc)
	if err != nil {
		c.logger.Error().
			Err(err).
			Str(log.FieldEvent, "policy.detector_failed").
			Msgf("Failed to detect %s", c.subject)
		return operation.Failure
	}

	pol := c.policyOf(sc)
	trace.SpanFromContext(ctx).SetAttributes(telemetry.PolicyAttributes(string(pol), detected)...)

	if !detected {
		c.logger.Debug().
			Str(log.FieldPolicy, string(pol)).
			Bool(log.FieldDetected, false).
			Msgf("No %s detected", c.subject)
		return operation.Success
	}

	evt := func(e *zerolog.Event) *zerolog.Event {
		return e.Str(log.FieldEvent, "policy.detected").Str(log.FieldPolicy, string(pol)).Bool(log.FieldDetected, true)
	}

	switch pol {
	case config.PolicyAllow:
		evt(c.logger.Warn()).Msgf("Detected %s, policy allows it", c.subject)
		return operation.Success

	case config.PolicyConfirm:
		if approved, ok := sc.Decision(c.message); ok {
			if approved {
				evt(c.logger.Warn()).Msgf("Detected %s, operator approved", c.subject)
				return operation.Success
			}
			evt(c.logger.Error()).Msgf("Detected %s, operator declined", c.subject)
			return operation.Aborted
		}
		evt(c.logger.Warn()).Msgf("Detected %s, operator confirmation required", c.subject)
		emit.ActionRequired(c.message, map[string]string{
			"title":  string(c.title),
			"policy": string(pol),
		})
		return operation.ActionRequired

	default:
		evt(c.logger.Error()).Msgf("Detected %s, policy denies it", c.subject)
		return operation.Failure
	}
}
