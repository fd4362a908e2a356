// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package policy

import (
	"context"

	"github.com/google/uuid"
	"github.com/khangzxrr/SafeExamBrowser/internal/log"
	"github.com/khangzxrr/SafeExamBrowser/internal/operation"
	"github.com/khangzxrr/SafeExamBrowser/internal/session"
	"github.com/khangzxrr/SafeExamBrowser/internal/text"
	"github.com/rs/zerolog"
)

const NameSessionIdentifiers = "session-identifiers"

// SessionIdentifiersOperation makes sure the session id, auth token and
// client address exist. Renewed identifiers are kept on Repeat and cleared
// on Revert.
type SessionIdentifiersOperation struct {
	current uuid.UUID
	logger  zerolog.Logger
}

func NewSessionIdentifiersOperation() *SessionIdentifiersOperation {
	return &SessionIdentifiersOperation{logger: log.WithComponent(NameSessionIdentifiers)}
}

func (o *SessionIdentifiersOperation) Name() string { return NameSessionIdentifiers }

func (o *SessionIdentifiersOperation) RequiresRevalidation(sc *session.Context) bool {
	return !sc.HasIdentifiers() || sc.SessionID != o.current
}

func (o *SessionIdentifiersOperation) Perform(_ context.Context, sc *session.Context, emit operation.Emitter) operation.Result {
	return o.ensure(sc, emit)
}

func (o *SessionIdentifiersOperation) Repeat(_ context.Context, sc *session.Context, emit operation.Emitter) operation.Result {
	return o.ensure(sc, emit)
}

func (o *SessionIdentifiersOperation) Revert(_ context.Context, sc *session.Context, _ operation.Emitter) operation.Result {
	o.logger.Info().Str(log.FieldSessionID, sc.SessionID.String()).Msg("Clearing session identifiers")
	sc.ClearIdentifiers()
	o.current = uuid.Nil
	return operation.Success
}

func (o *SessionIdentifiersOperation) ensure(sc *session.Context, emit operation.Emitter) operation.Result {
	emit.StatusChanged(text.OperationStatusInitializeSession)
	if !sc.HasIdentifiers() {
		sc.Renew()
	}
	o.current = sc.SessionID
	o.logger.Info().
		Str(log.FieldSessionID, sc.SessionID.String()).
		Str(log.FieldAddress, sc.ClientAddress).
		Msg("Session identifiers initialized")
	return operation.Success
}
