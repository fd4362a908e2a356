// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package policy

import (
	"context"

	"github.com/khangzxrr/SafeExamBrowser/internal/config"
	"github.com/khangzxrr/SafeExamBrowser/internal/detect"
	"github.com/khangzxrr/SafeExamBrowser/internal/log"
	"github.com/khangzxrr/SafeExamBrowser/internal/operation"
	"github.com/khangzxrr/SafeExamBrowser/internal/session"
	"github.com/khangzxrr/SafeExamBrowser/internal/text"
)

// NameRemoteSession is the operation name of the remote session check.
const NameRemoteSession = "remote-session-policy"

// RemoteSessionOperation refuses, allows or asks about sessions reachable
// through a remote login.
type RemoteSessionOperation struct {
	check check
}

func NewRemoteSessionOperation(detector detect.Detector) *RemoteSessionOperation {
	return &RemoteSessionOperation{check: check{
		subject:  "remote session",
		status:   text.OperationStatusValidateRemoteSessionPolicy,
		message:  text.MessageBoxRemoteSessionDetected,
		title:    text.MessageBoxRemoteSessionDetectedTitle,
		detector: detector,
		policyOf: func(sc *session.Context) config.Policy { return sc.Settings.RemoteSessionPolicy },
		logger:   log.WithComponent(NameRemoteSession),
	}}
}

func (o *RemoteSessionOperation) Name() string { return NameRemoteSession }

func (o *RemoteSessionOperation) Perform(ctx context.Context, sc *session.Context, emit operation.Emitter) operation.Result {
	return o.check.validate(ctx, sc, emit)
}

func (o *RemoteSessionOperation) Repeat(ctx context.Context, sc *session.Context, emit operation.Emitter) operation.Result {
	return o.check.validate(ctx, sc, emit)
}

func (o *RemoteSessionOperation) Revert(context.Context, *session.Context, operation.Emitter) operation.Result {
	return operation.Success
}
