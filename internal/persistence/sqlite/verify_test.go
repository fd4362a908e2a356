// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sqlite

import (
	"context"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_AppliesWAL(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "nested", "wal.db"), DefaultConfig())
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestMigrate_AppliesOnce(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "m.db"), DefaultConfig())
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	steps := []Migration{
		"CREATE TABLE a (id INTEGER PRIMARY KEY)",
		"CREATE TABLE b (id INTEGER PRIMARY KEY)",
	}
	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db, steps))
	require.NoError(t, Migrate(ctx, db, steps))

	var version int
	require.NoError(t, db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, 2, version)

	assert.Error(t, Migrate(ctx, db, steps[:1]), "older binary must refuse a newer schema")
}

func TestVerifyIntegrity_DetectsCorruption(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "corruptible.sqlite")

	db, err := Open(dbPath, Config{BusyTimeout: time.Second, MaxOpenConns: 1})
	require.NoError(t, err)
	_, err = db.Exec("PRAGMA journal_mode=DELETE")
	require.NoError(t, err)
	_, err = db.Exec("CREATE TABLE test (id INTEGER PRIMARY KEY, data TEXT)")
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		_, err = db.Exec("INSERT INTO test (data) VALUES (printf('%.100c', 'A'))")
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	issues, err := VerifyIntegrity(dbPath, "quick")
	require.NoError(t, err)
	require.Nil(t, issues)

	f, err := os.OpenFile(dbPath, os.O_RDWR, 0o644)
	require.NoError(t, err)
	junk := make([]byte, 100)
	_, _ = rand.Read(junk)
	_, err = f.WriteAt(junk, 4096)
	require.NoError(t, f.Close())
	require.NoError(t, err)

	issues, err = VerifyIntegrity(dbPath, "full")
	require.NoError(t, err)
	assert.NotEmpty(t, issues)
}
