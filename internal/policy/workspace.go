// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package policy

import (
	"context"
	"os"
	"path/filepath"

	"github.com/khangzxrr/SafeExamBrowser/internal/fsutil"
	"github.com/khangzxrr/SafeExamBrowser/internal/log"
	"github.com/khangzxrr/SafeExamBrowser/internal/operation"
	"github.com/khangzxrr/SafeExamBrowser/internal/session"
	"github.com/khangzxrr/SafeExamBrowser/internal/text"
	"github.com/rs/zerolog"
)

const NameWorkspace = "workspace"

// WorkspaceOperation owns the per-session directory below DataDir/sessions.
type WorkspaceOperation struct {
	logger zerolog.Logger
}

func NewWorkspaceOperation() *WorkspaceOperation {
	return &WorkspaceOperation{logger: log.WithComponent(NameWorkspace)}
}

func (o *WorkspaceOperation) Name() string { return NameWorkspace }

// WorkspacePath is the directory a session with the given context uses.
func WorkspacePath(sc *session.Context) string {
	return filepath.Join(sessionsRoot(sc), sc.SessionID.String())
}

func sessionsRoot(sc *session.Context) string {
	return filepath.Join(sc.Config.DataDir, "sessions")
}

func (o *WorkspaceOperation) RequiresRevalidation(sc *session.Context) bool {
	return sc.Workspace != WorkspacePath(sc)
}

func (o *WorkspaceOperation) Perform(_ context.Context, sc *session.Context, emit operation.Emitter) operation.Result {
	emit.StatusChanged(text.OperationStatusInitializeWorkspace)
	return o.create(sc)
}

func (o *WorkspaceOperation) Repeat(_ context.Context, sc *session.Context, emit operation.Emitter) operation.Result {
	want := WorkspacePath(sc)
	if sc.Workspace == want {
		if info, err := os.Stat(want); err == nil && info.IsDir() {
			return operation.Success
		}
	}
	emit.StatusChanged(text.OperationStatusInitializeWorkspace)
	if sc.Workspace != "" && sc.Workspace != want {
		if err := o.remove(sc); err != nil {
			o.logger.Error().Err(err).Str(log.FieldPath, sc.Workspace).Msg("Failed to remove previous workspace")
			return operation.Failure
		}
	}
	return o.create(sc)
}

func (o *WorkspaceOperation) Revert(_ context.Context, sc *session.Context, emit operation.Emitter) operation.Result {
	if sc.Workspace == "" {
		return operation.Success
	}
	emit.StatusChanged(text.OperationStatusRevertWorkspace)
	if err := o.remove(sc); err != nil {
		o.logger.Error().Err(err).Str(log.FieldPath, sc.Workspace).Msg("Failed to remove workspace")
		return operation.Failure
	}
	return operation.Success
}

func (o *WorkspaceOperation) create(sc *session.Context) operation.Result {
	dir := WorkspacePath(sc)
	if _, err := fsutil.ConfineRelPath(sessionsRoot(sc), sc.SessionID.String()); err != nil {
		o.logger.Error().Err(err).Str(log.FieldPath, dir).Msg("Refusing workspace outside the data directory")
		return operation.Failure
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		o.logger.Error().Err(err).Str(log.FieldPath, dir).Msg("Failed to create workspace")
		return operation.Failure
	}
	sc.Workspace = dir
	o.logger.Info().Str(log.FieldPath, dir).Msg("Workspace initialized")
	return operation.Success
}

func (o *WorkspaceOperation) remove(sc *session.Context) error {
	if _, err := fsutil.ConfineAbsPath(sessionsRoot(sc), sc.Workspace); err != nil {
		return err
	}
	if err := os.RemoveAll(sc.Workspace); err != nil {
		return err
	}
	o.logger.Info().Str(log.FieldPath, sc.Workspace).Msg("Workspace removed")
	sc.Workspace = ""
	return nil
}
