// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package journal

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/hashicorp/go-multierror"
	"github.com/khangzxrr/SafeExamBrowser/internal/config"
	"github.com/khangzxrr/SafeExamBrowser/internal/operation"
	"github.com/khangzxrr/SafeExamBrowser/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func attempt(i int) Attempt {
	start := time.Date(2026, 3, 1, 8, 0, i, 0, time.UTC)
	return Attempt{
		ID:         fmt.Sprintf("attempt-%d", i),
		SessionID:  "session-a",
		Mode:       operation.ModePerform,
		Result:     operation.Success,
		State:      pipeline.StateCompleted,
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Microsecond),
	}
}

func backends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	out := map[string]Store{}
	for _, b := range []string{config.JournalMemory, config.JournalSqlite, config.JournalBadger} {
		path := filepath.Join(dir, b)
		if b == config.JournalSqlite {
			path = filepath.Join(dir, "journal.db")
		}
		s, err := Open(b, path)
		require.NoError(t, err, b)
		t.Cleanup(func() { _ = s.Close() })
		out[b] = s
	}
	return out
}

func TestStore_RecordAndListNewestFirst(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			failed := attempt(2)
			failed.Result = operation.Failure
			failed.State = pipeline.StateFailed
			failed.HaltedAt = "virtual-machine-policy"
			failed.Reverted = []string{"workspace", "session-identifiers"}
			failed.RevertError = "1 error occurred"

			want := []Attempt{attempt(1), failed, attempt(3)}
			for _, a := range want {
				require.NoError(t, s.Record(ctx, a))
			}

			got, err := s.List(ctx, 0)
			require.NoError(t, err)
			reversed := []Attempt{want[2], want[1], want[0]}
			if diff := cmp.Diff(reversed, got, cmpopts.EquateEmpty()); diff != "" {
				t.Fatalf("List() mismatch (-want +got):\n%s", diff)
			}

			got, err = s.List(ctx, 2)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "attempt-3", got[0].ID)
			assert.Equal(t, "attempt-2", got[1].ID)
		})
	}
}

func TestStore_AssignsID(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			a := attempt(1)
			a.ID = ""
			require.NoError(t, s.Record(context.Background(), a))
			got, err := s.List(context.Background(), 1)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.NotEmpty(t, got[0].ID)
		})
	}
}

func TestSqliteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := OpenSqliteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(context.Background(), attempt(1)))
	require.NoError(t, s.Close())

	s, err = OpenSqliteStore(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	got, err := s.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "attempt-1", got[0].ID)
}

func TestBadgerStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal")
	s, err := OpenBadgerStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(context.Background(), attempt(1)))
	require.NoError(t, s.Close())

	s, err = OpenBadgerStore(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	require.NoError(t, s.Record(context.Background(), attempt(2)))

	got, err := s.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "attempt-2", got[0].ID)
	assert.Equal(t, "attempt-1", got[1].ID)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open("etcd", "")
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestFromReport(t *testing.T) {
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	var revErr error = multierror.Append(nil, errors.New("workspace: revert failed"))
	r := &pipeline.Report{
		Mode:   operation.ModePerform,
		Result: operation.Failure,
		State:  pipeline.StateFailed,
		Halted: 1,
		Steps: []pipeline.Step{
			{Index: 0, Operation: "configuration"},
			{Index: 1, Operation: "virtual-machine-policy"},
		},
		Reverts:    []pipeline.Step{{Index: 0, Operation: "configuration"}},
		RevertErr:  revErr,
		StartedAt:  start,
		FinishedAt: start.Add(time.Second),
	}

	a := FromReport(r, "session-a")
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "session-a", a.SessionID)
	assert.Equal(t, "virtual-machine-policy", a.HaltedAt)
	assert.Equal(t, []string{"configuration"}, a.Reverted)
	assert.Contains(t, a.RevertError, "workspace: revert failed")
	assert.Equal(t, pipeline.StateFailed, a.State)

	r.Halted = -1
	r.SessionID = "from-report"
	a = FromReport(r, "")
	assert.Empty(t, a.HaltedAt)
	assert.Equal(t, "from-report", a.SessionID)
}
