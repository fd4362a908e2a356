// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/khangzxrr/SafeExamBrowser/internal/config"
	"github.com/khangzxrr/SafeExamBrowser/internal/detect"
	"github.com/khangzxrr/SafeExamBrowser/internal/operation"
	"github.com/khangzxrr/SafeExamBrowser/internal/pipeline"
	"github.com/khangzxrr/SafeExamBrowser/internal/text"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigurationOperation(t *testing.T) {
	sc := testContext(t, config.PolicyDeny, config.PolicyDeny)
	op := NewConfigurationOperation()
	rec := &operation.Recorder{}

	assert.True(t, op.RequiresRevalidation(sc))
	assert.Equal(t, operation.Success, op.Perform(context.Background(), sc, rec))
	assert.Equal(t, []text.Key{text.OperationStatusValidateConfiguration}, rec.Topics(operation.KindStatusChanged))
	assert.False(t, op.RequiresRevalidation(sc))

	cfg := sc.Config
	cfg.Security.VirtualMachinePolicy = config.Policy("sometimes")
	sc.SetConfig(cfg)
	assert.True(t, op.RequiresRevalidation(sc))
	assert.Equal(t, operation.Failure, op.Repeat(context.Background(), sc, operation.Discard))

	assert.Equal(t, operation.Success, op.Revert(context.Background(), sc, operation.Discard))
	assert.True(t, op.RequiresRevalidation(sc))
}

func TestSessionIdentifiersOperation(t *testing.T) {
	sc := testContext(t, config.PolicyDeny, config.PolicyDeny)
	op := NewSessionIdentifiersOperation()
	id := sc.SessionID

	require.Equal(t, operation.Success, op.Perform(context.Background(), sc, operation.Discard))
	assert.Equal(t, id, sc.SessionID, "existing identifiers are kept")
	assert.False(t, op.RequiresRevalidation(sc))

	sc.Renew()
	assert.True(t, op.RequiresRevalidation(sc))
	require.Equal(t, operation.Success, op.Repeat(context.Background(), sc, operation.Discard))
	assert.False(t, op.RequiresRevalidation(sc))

	require.Equal(t, operation.Success, op.Revert(context.Background(), sc, operation.Discard))
	assert.False(t, sc.HasIdentifiers())

	require.Equal(t, operation.Success, op.Perform(context.Background(), sc, operation.Discard))
	assert.True(t, sc.HasIdentifiers())
}

func TestWorkspaceOperation_Lifecycle(t *testing.T) {
	sc := testContext(t, config.PolicyDeny, config.PolicyDeny)
	op := NewWorkspaceOperation()
	rec := &operation.Recorder{}

	require.Equal(t, operation.Success, op.Perform(context.Background(), sc, rec))
	first := sc.Workspace
	assert.DirExists(t, first)
	assert.Equal(t, filepath.Join(sc.Config.DataDir, "sessions", sc.SessionID.String()), first)
	assert.False(t, op.RequiresRevalidation(sc))

	require.Equal(t, operation.Success, op.Repeat(context.Background(), sc, operation.Discard))
	assert.Equal(t, first, sc.Workspace)

	sc.Renew()
	assert.True(t, op.RequiresRevalidation(sc))
	require.Equal(t, operation.Success, op.Repeat(context.Background(), sc, operation.Discard))
	assert.NoDirExists(t, first)
	assert.DirExists(t, sc.Workspace)

	second := sc.Workspace
	require.Equal(t, operation.Success, op.Revert(context.Background(), sc, rec))
	assert.NoDirExists(t, second)
	assert.Empty(t, sc.Workspace)
	assert.Equal(t, []text.Key{
		text.OperationStatusInitializeWorkspace,
		text.OperationStatusRevertWorkspace,
	}, rec.Topics(operation.KindStatusChanged))
}

func TestWorkspaceOperation_RefusesForeignPaths(t *testing.T) {
	sc := testContext(t, config.PolicyDeny, config.PolicyDeny)
	outside := t.TempDir()
	sc.Workspace = outside

	assert.Equal(t, operation.Failure, NewWorkspaceOperation().Revert(context.Background(), sc, operation.Discard))
	_, err := os.Stat(outside)
	assert.NoError(t, err)
}

func TestSessionSequence_FailureTearsDownWorkspace(t *testing.T) {
	sc := testContext(t, config.PolicyDeny, config.PolicyDeny)
	seq := NewSessionSequence(detect.Static{}, detect.Static{Detected: true})
	assert.Equal(t, []string{
		NameConfiguration, NameSessionIdentifiers, NameWorkspace, NameVirtualMachine, NameRemoteSession,
	}, seq.Names())

	p, err := pipeline.New(sc, seq, pipeline.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	rep, err := p.Perform(context.Background())
	require.NoError(t, err)

	assert.Equal(t, pipeline.StateFailed, rep.State)
	assert.Equal(t, []string{NameVirtualMachine, NameWorkspace, NameSessionIdentifiers, NameConfiguration}, rep.Reverted())
	entries, err := os.ReadDir(filepath.Join(sc.Config.DataDir, "sessions"))
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.False(t, sc.HasIdentifiers())
}
