// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package control

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/khangzxrr/SafeExamBrowser/internal/bus"
	"github.com/khangzxrr/SafeExamBrowser/internal/log"
	"github.com/khangzxrr/SafeExamBrowser/internal/monitor"
)

// handleEvents streams session events as Server-Sent Events until the
// client goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeProblem(w, r, http.StatusNotImplemented, "events/unavailable", "Events Unavailable", "EVENTS_UNAVAILABLE", "")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, r, http.StatusInternalServerError, "events/unsupported", "Streaming Unsupported", "STREAMING_UNSUPPORTED", "")
		return
	}

	ctx := r.Context()
	sub, err := s.events.Subscribe(ctx, monitor.TopicEvents)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer func() { _ = sub.Close() }()

	// Streams outlive the server's write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	send := func(msg bus.Message) bool {
		name := monitor.TopicStatus
		if env, ok := msg.(monitor.Envelope); ok {
			name = monitor.TopicFor(env.Kind)
		}
		payload, err := json.Marshal(msg)
		if err != nil {
			logger := log.WithContext(ctx, s.logger)
			logger.Warn().Err(err).Msg("failed to encode event")
			return true
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.C():
			if !ok || !send(msg) {
				return
			}
		}
	}
}
