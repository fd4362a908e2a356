// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package supervisor

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/khangzxrr/SafeExamBrowser/internal/config"
	"github.com/khangzxrr/SafeExamBrowser/internal/detect"
	"github.com/khangzxrr/SafeExamBrowser/internal/journal"
	"github.com/khangzxrr/SafeExamBrowser/internal/operation"
	"github.com/khangzxrr/SafeExamBrowser/internal/pipeline"
	"github.com/khangzxrr/SafeExamBrowser/internal/policy"
	"github.com/khangzxrr/SafeExamBrowser/internal/session"
	"github.com/khangzxrr/SafeExamBrowser/internal/text"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) config.AppConfig {
	t.Helper()
	cfg := config.Defaults()
	cfg.DataDir = t.TempDir()
	cfg.Pipeline.OperationTimeout = 5 * time.Second
	return cfg
}

func newController(t *testing.T, cfg config.AppConfig, vm bool, opts ...Option) (*Controller, *journal.MemoryStore, *operation.Recorder) {
	t.Helper()
	store := journal.NewMemoryStore()
	rec := &operation.Recorder{}
	opts = append([]Option{
		WithJournal(store),
		WithListener(rec),
		WithLogger(zerolog.Nop()),
		WithDetectors(detect.Static{Detected: vm}, detect.Static{}),
	}, opts...)
	return New(cfg, opts...), store, rec
}

func TestController_StartAndStop(t *testing.T) {
	ctx := context.Background()
	c, store, _ := newController(t, testConfig(t), false)

	rep, err := c.Start(ctx)
	require.NoError(t, err)
	require.Equal(t, pipeline.StateCompleted, rep.State)

	st := c.Status()
	assert.True(t, st.Active)
	assert.Equal(t, pipeline.StateCompleted, st.State)
	assert.Equal(t, rep.SessionID, st.SessionID)
	assert.Len(t, st.Applied, 5)

	workspace := c.sc.Workspace
	require.DirExists(t, workspace)

	_, err = c.Start(ctx)
	assert.ErrorIs(t, err, ErrSessionActive)

	rep, err = c.Stop(ctx)
	require.NoError(t, err)
	assert.Equal(t, operation.Success, rep.Result)
	assert.Equal(t, pipeline.StateIdle, rep.State)
	assert.NoDirExists(t, workspace)

	assert.False(t, c.Status().Active)
	_, err = c.Stop(ctx)
	assert.ErrorIs(t, err, ErrNoSession)

	attempts, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, operation.ModeRevert, attempts[0].Mode)
	assert.Equal(t, operation.ModePerform, attempts[1].Mode)
	assert.Equal(t, attempts[1].SessionID, attempts[0].SessionID, "teardown is journaled under the session it removed")
	assert.Equal(t, []string{
		policy.NameRemoteSession,
		policy.NameVirtualMachine,
		policy.NameWorkspace,
		policy.NameSessionIdentifiers,
		policy.NameConfiguration,
	}, attempts[0].Reverted)
}

func TestController_DeniedStartCanBeRetried(t *testing.T) {
	ctx := context.Background()
	c, store, _ := newController(t, testConfig(t), true)

	rep, err := c.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, pipeline.StateFailed, rep.State)
	assert.Empty(t, c.Status().Applied)

	rep, err = c.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, pipeline.StateFailed, rep.State)

	attempts, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, policy.NameVirtualMachine, attempts[0].HaltedAt)
}

func TestController_ConfirmAndResolve(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Security.VirtualMachinePolicy = config.PolicyConfirm
	c, _, rec := newController(t, cfg, true)

	_, err := c.Resolve(ctx, "", true)
	assert.ErrorIs(t, err, ErrNoSession)

	rep, err := c.Start(ctx)
	require.NoError(t, err)
	require.Equal(t, pipeline.StateActionPending, rep.State)

	st := c.Status()
	require.NotNil(t, st.Pending)
	assert.Equal(t, policy.NameVirtualMachine, st.Pending.Operation)
	assert.Equal(t, []text.Key{text.MessageBoxVirtualMachineDetected}, rec.Topics(operation.KindActionRequired))

	rep, err = c.Resolve(ctx, "", true)
	require.NoError(t, err)
	assert.Equal(t, pipeline.StateCompleted, rep.State)
	assert.Nil(t, c.Status().Pending)

	_, err = c.Resolve(ctx, "", true)
	assert.ErrorIs(t, err, pipeline.ErrInvalidState)
}

func TestController_ResolveDeclinedAborts(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Security.VirtualMachinePolicy = config.PolicyConfirm
	c, _, _ := newController(t, cfg, true)

	_, err := c.Start(ctx)
	require.NoError(t, err)

	rep, err := c.Resolve(ctx, text.MessageBoxVirtualMachineDetected, false)
	require.NoError(t, err)
	assert.Equal(t, pipeline.StateAborted, rep.State)
	assert.Equal(t, []string{policy.NameWorkspace, policy.NameSessionIdentifiers, policy.NameConfiguration}, rep.Reverted())
}

func TestController_Reconfigure(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Security.AllowReconfiguration = true
	c, store, _ := newController(t, cfg, false)

	next := cfg
	next.Language = "de"
	_, err := c.Reconfigure(ctx, next)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Equal(t, "de", c.Config().Language)

	first, err := c.Start(ctx)
	require.NoError(t, err)
	oldWorkspace := c.sc.Workspace

	next.Language = "en"
	rep, err := c.Reconfigure(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, operation.ModeRepeat, rep.Mode)
	assert.Equal(t, pipeline.StateCompleted, rep.State)
	assert.NotEqual(t, first.SessionID, rep.SessionID)
	assert.NotEqual(t, oldWorkspace, c.sc.Workspace)
	assert.DirExists(t, c.sc.Workspace)

	attempts, err := store.List(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, operation.ModeRepeat, attempts[0].Mode)
}

func TestController_ReconfigureDenied(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newController(t, testConfig(t), false)

	_, err := c.Start(ctx)
	require.NoError(t, err)

	next := c.Config()
	next.Language = "de"
	_, err = c.Reconfigure(ctx, next)
	assert.ErrorIs(t, err, config.ErrReconfigurationDenied)
	assert.Equal(t, pipeline.StateCompleted, c.Status().State)
}

func TestController_StopIdleWorkspaceRemoved(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	c, _, _ := newController(t, cfg, false)

	_, err := c.Start(ctx)
	require.NoError(t, err)
	path := policy.WorkspacePath(c.sc)
	_, err = c.Stop(ctx)
	require.NoError(t, err)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestController_AttemptsWithoutJournal(t *testing.T) {
	c := New(testConfig(t), WithLogger(zerolog.Nop()), WithDetectors(detect.Static{}, detect.Static{}))
	got, err := c.Attempts(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestController_StatusDuringFirstPass(t *testing.T) {
	running := make(chan struct{})
	release := make(chan struct{})
	vm := detect.Func(func(context.Context, *session.Context) (bool, error) {
		close(running)
		<-release
		return false, nil
	})
	c, _, _ := newController(t, testConfig(t), false, WithDetectors(vm, detect.Static{}))

	done := make(chan *pipeline.Report, 1)
	go func() {
		rep, err := c.Start(context.Background())
		assert.NoError(t, err)
		done <- rep
	}()

	<-running
	st := c.Status()
	assert.True(t, st.Active)
	assert.Equal(t, pipeline.StateRunning, st.State)
	assert.Empty(t, st.SessionID)
	assert.Nil(t, st.Last)

	close(release)
	rep := <-done
	require.NotNil(t, rep)
	assert.Equal(t, rep.SessionID, c.Status().SessionID)
}

func TestController_CancelledStartFinishesRunningCheck(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	vm := detect.Func(func(opCtx context.Context, _ *session.Context) (bool, error) {
		cancel()
		select {
		case <-opCtx.Done():
			return false, opCtx.Err()
		case <-time.After(50 * time.Millisecond):
			return false, nil
		}
	})
	c, _, _ := newController(t, testConfig(t), false, WithDetectors(vm, detect.Static{}))

	rep, err := c.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, pipeline.StateAborted, rep.State)
	assert.Equal(t, operation.Aborted, rep.Result)

	var vmStep *pipeline.Step
	for i := range rep.Steps {
		if rep.Steps[i].Operation == "virtual-machine-policy" {
			vmStep = &rep.Steps[i]
		}
	}
	require.NotNil(t, vmStep)
	assert.Equal(t, operation.Success, vmStep.Result)
	assert.Empty(t, c.Status().Applied)
}
