// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package control

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/khangzxrr/SafeExamBrowser/internal/config"
	"github.com/khangzxrr/SafeExamBrowser/internal/control/problem"
	"github.com/khangzxrr/SafeExamBrowser/internal/journal"
	"github.com/khangzxrr/SafeExamBrowser/internal/log"
	"github.com/khangzxrr/SafeExamBrowser/internal/pipeline"
	"github.com/khangzxrr/SafeExamBrowser/internal/session"
	"github.com/khangzxrr/SafeExamBrowser/internal/supervisor"
	"github.com/khangzxrr/SafeExamBrowser/internal/text"
)

const (
	maxBodyBytes     = 4 << 10
	defaultListLimit = 50
	maxListLimit     = 1000
)

// ResolveRequest answers a pending action. An empty topic answers the
// pending event's topic.
type ResolveRequest struct {
	Topic    string `json:"topic,omitempty"`
	Approved *bool  `json:"approved"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, typ, title, code, detail string) {
	problem.Write(w, r, status, typ, title, code, detail, nil)
}

// writeError maps controller errors to problems.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, supervisor.ErrNoSession):
		writeProblem(w, r, http.StatusNotFound, "session/not_found", "No Session", "NO_SESSION", err.Error())
	case errors.Is(err, supervisor.ErrSessionActive):
		writeProblem(w, r, http.StatusConflict, "session/active", "Session Active", "SESSION_ACTIVE", err.Error())
	case errors.Is(err, session.ErrContextBusy):
		writeProblem(w, r, http.StatusConflict, "session/busy", "Session Busy", "SESSION_BUSY", err.Error())
	case errors.Is(err, pipeline.ErrInvalidState):
		writeProblem(w, r, http.StatusConflict, "session/invalid_state", "Invalid State", "INVALID_STATE", err.Error())
	case errors.Is(err, config.ErrReconfigurationDenied):
		writeProblem(w, r, http.StatusForbidden, "session/reconfiguration_denied", "Reconfiguration Denied", "RECONFIGURATION_DENIED", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeProblem(w, r, http.StatusServiceUnavailable, "system/cancelled", "Request Cancelled", "CANCELLED", err.Error())
	default:
		logger := log.WithContext(r.Context(), s.logger)
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "control.request_failed").
			Msg("control request failed")
		writeProblem(w, r, http.StatusInternalServerError, "system/internal", "Internal Server Error", "INTERNAL", "")
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	rep, err := s.ctrl.Start(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	rep, err := s.ctrl.Stop(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if rep == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleReconfigure(w http.ResponseWriter, r *http.Request) {
	if s.reloader == nil {
		writeProblem(w, r, http.StatusNotImplemented, "config/reload_unavailable", "Reload Unavailable", "RELOAD_UNAVAILABLE",
			"runtime was started without a configuration file")
		return
	}
	if err := s.reloader.Reload(r.Context()); err != nil {
		writeProblem(w, r, http.StatusUnprocessableEntity, "config/invalid", "Invalid Configuration", "CONFIG_INVALID", err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "reload_accepted"})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeProblem(w, r, http.StatusBadRequest, "request/invalid_body", "Invalid Body", "INVALID_BODY", err.Error())
		return
	}
	if req.Approved == nil {
		writeProblem(w, r, http.StatusBadRequest, "request/invalid_body", "Invalid Body", "INVALID_BODY", `"approved" is required`)
		return
	}

	rep, err := s.ctrl.Resolve(r.Context(), text.Key(req.Topic), *req.Approved)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleAttempts(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxListLimit {
			writeProblem(w, r, http.StatusBadRequest, "request/invalid_query", "Invalid Query", "INVALID_LIMIT",
				"limit must be between 1 and 1000")
			return
		}
		limit = n
	}

	attempts, err := s.ctrl.Attempts(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if attempts == nil {
		attempts = []journal.Attempt{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"attempts": attempts})
}
