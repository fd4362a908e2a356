// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package detect

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/khangzxrr/SafeExamBrowser/internal/log"
	"github.com/khangzxrr/SafeExamBrowser/internal/session"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/host"
)

// remoteEnvKeys are set by sshd for every remote login shell.
var remoteEnvKeys = []string{"SSH_CONNECTION", "SSH_CLIENT", "SSH_TTY"}

// UsersProbe lists logged-in users.
type UsersProbe func(ctx context.Context) ([]host.UserStat, error)

// RemoteSession reports whether the runtime is reachable through a remote
// login: either the process itself runs under ssh or a user is logged in
// from a remote host.
type RemoteSession struct {
	users  UsersProbe
	getenv func(string) string
	logger zerolog.Logger
}

// NewRemoteSession builds a detector backed by gopsutil and the process
// environment.
func NewRemoteSession() *RemoteSession {
	return NewRemoteSessionWithProbes(host.UsersWithContext, os.Getenv)
}

// NewRemoteSessionWithProbes builds a detector with custom probes.
func NewRemoteSessionWithProbes(users UsersProbe, getenv func(string) string) *RemoteSession {
	return &RemoteSession{users: users, getenv: getenv, logger: log.WithComponent("detect")}
}

func (r *RemoteSession) Detect(ctx context.Context, _ *session.Context) (bool, error) {
	for _, k := range remoteEnvKeys {
		if r.getenv(k) != "" {
			r.logger.Debug().
				Str(log.FieldEvent, "detect.remote_session").
				Str("source", k).
				Bool(log.FieldDetected, true).
				Msg("remote session detected from environment")
			return true, nil
		}
	}

	users, err := r.users(ctx)
	if err != nil {
		return false, fmt.Errorf("list users: %w", err)
	}
	for _, u := range users {
		if isRemoteHost(u.Host) {
			r.logger.Debug().
				Str(log.FieldEvent, "detect.remote_session").
				Str("user", u.User).
				Str("terminal", u.Terminal).
				Str("host", u.Host).
				Bool(log.FieldDetected, true).
				Msg("remote login detected")
			return true, nil
		}
	}
	return false, nil
}

// isRemoteHost treats empty hosts, local displays and loopback as local.
func isRemoteHost(h string) bool {
	h = strings.TrimSpace(h)
	switch {
	case h == "":
		return false
	case strings.HasPrefix(h, ":"):
		return false
	case h == "localhost", h == "127.0.0.1", h == "::1":
		return false
	}
	return true
}
