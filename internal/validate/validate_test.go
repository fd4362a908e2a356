// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package validate

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatorAccumulatesErrors(t *testing.T) {
	v := New()
	v.Range("Control.RateLimit", 0, 1, 100000)
	v.NotEmpty("LogService", "  ")
	v.OneOf("Security.VirtualMachinePolicy", "maybe", []string{"allow", "deny", "confirm"})
	v.PositiveDuration("Pipeline.OperationTimeout", 0)

	require.False(t, v.IsValid())
	require.Len(t, v.Errors(), 4)
	assert.Equal(t, "Security.VirtualMachinePolicy", v.Errors()[2].Field)

	err := v.Err()
	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 4)

	var first Error
	require.True(t, errors.As(err, &first))
	assert.Equal(t, "Control.RateLimit", first.Field)

	assert.Contains(t, err.Error(), "Control.RateLimit")
	assert.Contains(t, err.Error(), "; validation failed for LogService")
}

func TestValidatorValidInputs(t *testing.T) {
	v := New()
	v.Range("Monitor.RedisDB", 3, 0, 15)
	v.FloatRange("Telemetry.SamplingRate", 0.5, 0, 1)
	v.OneOf("Journal.Backend", "sqlite", []string{"memory", "sqlite", "badger"})
	v.PositiveDuration("Control.RateWindow", time.Second)
	v.ListenAddr("Control.ListenAddr", "127.0.0.1:8970")
	v.ListenAddr("Control.ListenAddr", ":8970")
	v.LogLevel("LogLevel", "WARN")

	assert.True(t, v.IsValid())
	assert.NoError(t, v.Err())
	assert.Empty(t, v.Errors())
}

func TestDirectoryCreatesMissing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	v := New()
	v.Directory("DataDir", dir, false)
	require.True(t, v.IsValid())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestDirectoryRejectsTraversalAndFiles(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	v := New()
	v.Directory("A", "../escape", false)
	v.Directory("B", file, true)
	v.Directory("C", "", true)
	v.Directory("D", filepath.Join(t.TempDir(), "missing"), true)
	assert.Len(t, v.Errors(), 4)
}

func TestRejectedValues(t *testing.T) {
	v := New()
	v.ListenAddr("Control.ListenAddr", "no-port")
	v.LogLevel("LogLevel", "verbose")
	v.LogLevel("LogLevel", "")
	assert.Len(t, v.Errors(), 3)
}
