// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/khangzxrr/SafeExamBrowser/internal/control/problem"
	"github.com/khangzxrr/SafeExamBrowser/internal/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = log.RequestIDFromContext(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(problem.HeaderRequestID))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(problem.HeaderRequestID, "from-client")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, "from-client", seen)
}

func TestRequestID_ReplacesUnsafeCallerIDs(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = log.RequestIDFromContext(r.Context())
	}))

	for name, id := range map[string]string{
		"too long":   strings.Repeat("a", 65),
		"whitespace": "abc def",
		"newline":    "abc\ninjected",
		"quote":      `a"b`,
	} {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set(problem.HeaderRequestID, id)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			assert.NotEqual(t, id, seen)
			_, err := uuid.Parse(seen)
			assert.NoError(t, err)
			assert.Equal(t, seen, w.Header().Get(problem.HeaderRequestID))
		})
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(problem.HeaderRequestID, "trace-01.a_b:c")
	h.ServeHTTP(httptest.NewRecorder(), r)
	assert.Equal(t, "trace-01.a_b:c", seen)
}

func TestRecoverer(t *testing.T) {
	h := RequestID(Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "INTERNAL", body["code"])
	assert.Equal(t, w.Header().Get(problem.HeaderRequestID), body[problem.JSONKeyRequestID])
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(RateLimitConfig{RequestLimit: 2, WindowSize: time.Minute})(http.HandlerFunc(ok))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests {
			assert.Equal(t, "60", w.Header().Get("Retry-After"))
			assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
		}
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

func TestStack(t *testing.T) {
	r := NewRouter(StackConfig{EnableMetrics: true, EnableLogging: true, TracingService: "seb-test"})
	r.Get("/x", ok)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NotEmpty(t, w.Header().Get(problem.HeaderRequestID))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}
