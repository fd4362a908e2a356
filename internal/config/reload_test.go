// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHolder_ReloadNotifiesListeners(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "dataDir: "+dir+"\n")

	loader := NewLoader(path, "test")
	initial, err := loader.Load()
	require.NoError(t, err)

	holder := NewHolder(initial, loader)
	ch := make(chan AppConfig, 1)
	holder.RegisterListener(ch)

	require.NoError(t, os.WriteFile(path, []byte("dataDir: "+dir+"\nsecurity:\n  virtualMachinePolicy: allow\n"), 0o600))
	require.NoError(t, holder.Reload(context.Background()))

	select {
	case cfg := <-ch:
		assert.Equal(t, PolicyAllow, cfg.Security.VirtualMachinePolicy)
	default:
		t.Fatal("listener not notified")
	}
	assert.Equal(t, PolicyAllow, holder.Get().Security.VirtualMachinePolicy)
}

func TestHolder_ReloadKeepsOldConfigOnError(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "dataDir: "+dir+"\n")

	loader := NewLoader(path, "test")
	initial, err := loader.Load()
	require.NoError(t, err)
	holder := NewHolder(initial, loader)

	require.NoError(t, os.WriteFile(path, []byte("security:\n  virtualMachinePolicy: maybe\n"), 0o600))
	require.Error(t, holder.Reload(context.Background()))
	assert.Equal(t, initial, holder.Get())
}

func TestHolder_FullListenerIsSkipped(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "dataDir: "+dir+"\n")
	loader := NewLoader(path, "test")
	initial, err := loader.Load()
	require.NoError(t, err)

	holder := NewHolder(initial, loader)
	ch := make(chan AppConfig) // unbuffered, nobody reading
	holder.RegisterListener(ch)

	require.NoError(t, holder.Reload(context.Background()))
}

func TestHolder_WatcherDisabledWithoutFile(t *testing.T) {
	holder := NewHolder(Defaults(), NewLoader("", "test"))
	require.NoError(t, holder.StartWatcher(context.Background()))
	holder.Stop()
}

func TestHolder_WatcherReloadsOnAtomicSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := Defaults()
	cfg.DataDir = dir
	cfg.Journal.Path = filepath.Join(dir, "journal.db")
	mgr := NewManager(path)
	require.NoError(t, mgr.Save(&cfg))

	loader := NewLoader(path, "")
	initial, err := loader.Load()
	require.NoError(t, err)

	holder := NewHolder(initial, loader)
	holder.debounce = 20 * time.Millisecond
	ch := make(chan AppConfig, 4)
	holder.RegisterListener(ch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, holder.StartWatcher(ctx))

	cfg.Security.RemoteSessionPolicy = PolicyConfirm
	require.NoError(t, mgr.Save(&cfg))

	select {
	case got := <-ch:
		assert.Equal(t, PolicyConfirm, got.Security.RemoteSessionPolicy)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not reload configuration")
	}
}
