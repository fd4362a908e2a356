// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/khangzxrr/SafeExamBrowser/internal/operation"
	"github.com/khangzxrr/SafeExamBrowser/internal/persistence/sqlite"
	"github.com/khangzxrr/SafeExamBrowser/internal/pipeline"
)

var sqliteSchema = []sqlite.Migration{
	`CREATE TABLE attempts (
		seq          INTEGER PRIMARY KEY AUTOINCREMENT,
		id           TEXT NOT NULL UNIQUE,
		session_id   TEXT NOT NULL,
		mode         TEXT NOT NULL,
		result       TEXT NOT NULL,
		state        TEXT NOT NULL,
		halted_at    TEXT NOT NULL DEFAULT '',
		reverted     TEXT NOT NULL DEFAULT '',
		revert_error TEXT NOT NULL DEFAULT '',
		started_at   INTEGER NOT NULL,
		finished_at  INTEGER NOT NULL
	)`,
	`CREATE INDEX idx_attempts_session ON attempts(session_id)`,
}

// SqliteStore keeps attempts in a WAL-mode SQLite file.
type SqliteStore struct {
	db *sql.DB
}

func OpenSqliteStore(path string) (*SqliteStore, error) {
	db, err := sqlite.Open(path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if err := sqlite.Migrate(context.Background(), db, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SqliteStore{db: db}, nil
}

func (s *SqliteStore) Record(ctx context.Context, a Attempt) error {
	a = prepare(a)
	var reverted string
	if len(a.Reverted) > 0 {
		buf, err := json.Marshal(a.Reverted)
		if err != nil {
			return fmt.Errorf("journal: encode reverted: %w", err)
		}
		reverted = string(buf)
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO attempts
		(id, session_id, mode, result, state, halted_at, reverted, revert_error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.SessionID, string(a.Mode), string(a.Result), string(a.State),
		a.HaltedAt, reverted, a.RevertError,
		a.StartedAt.UnixNano(), a.FinishedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("journal: insert attempt: %w", err)
	}
	return nil
}

func (s *SqliteStore) List(ctx context.Context, limit int) ([]Attempt, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `SELECT
		id, session_id, mode, result, state, halted_at, reverted, revert_error, started_at, finished_at
		FROM attempts ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: query attempts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Attempt
	for rows.Next() {
		var (
			a                     Attempt
			mode, result, state   string
			reverted              string
			startedAt, finishedAt int64
		)
		if err := rows.Scan(&a.ID, &a.SessionID, &mode, &result, &state,
			&a.HaltedAt, &reverted, &a.RevertError, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("journal: scan attempt: %w", err)
		}
		a.Mode = operation.Mode(mode)
		a.Result = operation.Result(result)
		a.State = pipeline.State(state)
		if reverted != "" {
			if err := json.Unmarshal([]byte(reverted), &a.Reverted); err != nil {
				return nil, fmt.Errorf("journal: decode reverted: %w", err)
			}
		}
		a.StartedAt = time.Unix(0, startedAt).UTC()
		a.FinishedAt = time.Unix(0, finishedAt).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SqliteStore) Close() error { return s.db.Close() }
