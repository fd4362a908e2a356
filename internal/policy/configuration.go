// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package policy

import (
	"context"

	"github.com/khangzxrr/SafeExamBrowser/internal/config"
	"github.com/khangzxrr/SafeExamBrowser/internal/log"
	"github.com/khangzxrr/SafeExamBrowser/internal/operation"
	"github.com/khangzxrr/SafeExamBrowser/internal/session"
	"github.com/khangzxrr/SafeExamBrowser/internal/text"
	"github.com/rs/zerolog"
)

const NameConfiguration = "configuration"

// ConfigurationOperation gates the session on a valid configuration
// snapshot. It only needs to run again when the snapshot changed.
type ConfigurationOperation struct {
	validated *config.AppConfig
	logger    zerolog.Logger
}

func NewConfigurationOperation() *ConfigurationOperation {
	return &ConfigurationOperation{logger: log.WithComponent(NameConfiguration)}
}

func (o *ConfigurationOperation) Name() string { return NameConfiguration }

func (o *ConfigurationOperation) RequiresRevalidation(sc *session.Context) bool {
	return o.validated == nil || *o.validated != sc.Config
}

func (o *ConfigurationOperation) Perform(_ context.Context, sc *session.Context, emit operation.Emitter) operation.Result {
	return o.validate(sc, emit)
}

func (o *ConfigurationOperation) Repeat(_ context.Context, sc *session.Context, emit operation.Emitter) operation.Result {
	return o.validate(sc, emit)
}

func (o *ConfigurationOperation) Revert(context.Context, *session.Context, operation.Emitter) operation.Result {
	o.validated = nil
	return operation.Success
}

func (o *ConfigurationOperation) validate(sc *session.Context, emit operation.Emitter) operation.Result {
	o.logger.Info().Msg("Validating configuration...")
	emit.StatusChanged(text.OperationStatusValidateConfiguration)

	if err := config.Validate(sc.Config); err != nil {
		o.logger.Error().
			Err(err).
			Str(log.FieldEvent, "configuration.invalid").
			Msg("configuration is not valid for a session")
		o.validated = nil
		return operation.Failure
	}
	cfg := sc.Config
	o.validated = &cfg
	return operation.Success
}
