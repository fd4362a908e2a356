// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon runs the runtime process: control server, configuration
// reloads, event forwarding and orderly teardown of the session on exit.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/khangzxrr/SafeExamBrowser/internal/config"
	"github.com/khangzxrr/SafeExamBrowser/internal/control"
	"github.com/khangzxrr/SafeExamBrowser/internal/log"
	"github.com/khangzxrr/SafeExamBrowser/internal/metrics"
	"github.com/khangzxrr/SafeExamBrowser/internal/monitor"
	"github.com/khangzxrr/SafeExamBrowser/internal/supervisor"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const defaultShutdownTimeout = 30 * time.Second

// ShutdownHook releases a resource when the App stops.
type ShutdownHook func(ctx context.Context) error

type namedHook struct {
	name string
	fn   ShutdownHook
}

// App owns the long-lived runtime lifecycle.
type App struct {
	logger zerolog.Logger
	cfg    config.AppConfig
	holder *config.Holder
	ctrl   *supervisor.Controller
	server *control.Server
	redis  *monitor.RedisSink

	reloadSignal    os.Signal
	shutdownTimeout time.Duration
	autoStart       bool

	mu      sync.Mutex
	running bool
	hooks   []namedHook
	addr    string
	ready   chan struct{}
}

func newApp(cfg config.AppConfig, holder *config.Holder) *App {
	return &App{
		logger:          log.WithComponent("daemon"),
		cfg:             cfg,
		holder:          holder,
		reloadSignal:    syscall.SIGHUP,
		shutdownTimeout: defaultShutdownTimeout,
		ready:           make(chan struct{}),
	}
}

// SetAutoStart makes Run start a session as soon as the control server
// listens.
func (a *App) SetAutoStart(v bool) { a.autoStart = v }

// RegisterShutdownHook registers a cleanup function. Hooks run in reverse
// registration order.
func (a *App) RegisterShutdownHook(name string, fn ShutdownHook) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hooks = append(a.hooks, namedHook{name: name, fn: fn})
}

// Ready is closed once the control server accepts connections.
func (a *App) Ready() <-chan struct{} { return a.ready }

// Addr is the control server's listen address, valid after Ready.
func (a *App) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.addr
}

// Run serves until ctx is cancelled or a component fails. On the way out
// the active session is torn down before resources are released.
func (a *App) Run(ctx context.Context) error {
	if a.ctrl == nil {
		return ErrMissingController
	}
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return ErrAlreadyRunning
	}
	a.running = true
	a.mu.Unlock()

	ln, err := net.Listen("tcp", a.cfg.Control.ListenAddr)
	if err != nil {
		return errors.Join(fmt.Errorf("listen %s: %w", a.cfg.Control.ListenAddr, err), a.runHooks(ctx))
	}
	a.mu.Lock()
	a.addr = ln.Addr().String()
	a.mu.Unlock()
	close(a.ready)

	a.logger.Info().
		Str(log.FieldEvent, "daemon.listening").
		Str(log.FieldAddress, ln.Addr().String()).
		Msg("control server listening")

	httpSrv := a.server.HTTPServer(ln.Addr().String(), a.cfg.Pipeline.OperationTimeout)

	// Sinks outlive the group so the teardown pass still reaches them.
	sinkCtx, stopSinks := context.WithCancel(context.WithoutCancel(ctx))
	defer stopSinks()
	sinksDone := make(chan struct{})
	go func() {
		defer close(sinksDone)
		if a.redis != nil {
			_ = a.redis.Run(sinkCtx)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("control server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn().Err(err).Str(log.FieldEvent, "daemon.http_shutdown_failed").Msg("control server shutdown incomplete")
		}
		return nil
	})

	if a.holder != nil {
		if err := a.holder.StartWatcher(gctx); err != nil {
			a.logger.Warn().Err(err).Str(log.FieldEvent, "config.watcher_start_failed").Msg("failed to start config watcher")
		}
		reloads := make(chan config.AppConfig, 1)
		a.holder.RegisterListener(reloads)
		g.Go(func() error {
			a.reconfigureLoop(gctx, reloads)
			return nil
		})

		if a.reloadSignal != nil {
			g.Go(func() error {
				a.signalLoop(gctx)
				return nil
			})
		}
	}

	if a.autoStart {
		g.Go(func() error {
			rep, err := a.ctrl.Start(gctx)
			if err != nil {
				a.logger.Error().Err(err).Str(log.FieldEvent, "daemon.autostart_failed").Msg("session start failed")
				return nil
			}
			a.logger.Info().
				Str(log.FieldEvent, "daemon.autostart").
				Str(log.FieldNewState, string(rep.State)).
				Msg("session started")
			return nil
		})
	}

	runErr := g.Wait()

	a.stopSession(ctx)
	stopSinks()
	<-sinksDone
	if a.holder != nil {
		a.holder.Stop()
	}
	return errors.Join(runErr, a.runHooks(ctx))
}

func (a *App) reconfigureLoop(ctx context.Context, reloads <-chan config.AppConfig) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg := <-reloads:
			rep, err := a.ctrl.Reconfigure(ctx, cfg)
			switch {
			case err == nil:
				metrics.IncConfigReload("applied")
				a.logger.Info().
					Str(log.FieldEvent, "daemon.reconfigured").
					Str(log.FieldSessionID, rep.SessionID).
					Str(log.FieldNewState, string(rep.State)).
					Msg("session reconfigured")
			case isNoSession(err):
				metrics.IncConfigReload("stored")
				a.logger.Info().Str(log.FieldEvent, "daemon.config_stored").Msg("configuration stored for the next session")
			case errors.Is(err, config.ErrReconfigurationDenied):
				metrics.IncConfigReload("denied")
				a.logger.Warn().Err(err).Str(log.FieldEvent, "daemon.reconfigure_denied").Msg("session does not allow reconfiguration")
			default:
				metrics.IncConfigReload("failed")
				a.logger.Error().Err(err).Str(log.FieldEvent, "daemon.reconfigure_failed").Msg("reconfiguration failed")
			}
		}
	}
}

func (a *App) signalLoop(ctx context.Context) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, a.reloadSignal)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			a.logger.Info().
				Str(log.FieldEvent, "config.reload_signal").
				Str("signal", a.reloadSignal.String()).
				Msg("received reload signal, reloading config")
			if err := a.holder.Reload(ctx); err != nil {
				metrics.IncConfigReload("invalid")
			}
		}
	}
}

func (a *App) stopSession(ctx context.Context) {
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.shutdownTimeout)
	defer cancel()

	rep, err := a.ctrl.Stop(stopCtx)
	switch {
	case isNoSession(err):
	case err != nil:
		a.logger.Error().Err(err).Str(log.FieldEvent, "daemon.teardown_failed").Msg("session teardown failed")
	case rep != nil:
		a.logger.Info().
			Str(log.FieldEvent, "daemon.teardown").
			Str(log.FieldResult, string(rep.Result)).
			Strs("reverted", rep.Reverted()).
			Msg("session torn down")
	}
}

func (a *App) runHooks(ctx context.Context) error {
	a.mu.Lock()
	hooks := a.hooks
	a.hooks = nil
	a.mu.Unlock()

	hookCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.shutdownTimeout)
	defer cancel()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		start := time.Now()
		if err := h.fn(hookCtx); err != nil {
			a.logger.Error().Err(err).Str("hook", h.name).Dur(log.FieldDuration, time.Since(start)).Msg("Shutdown hook failed")
			errs = append(errs, fmt.Errorf("hook %s: %w", h.name, err))
			continue
		}
		a.logger.Debug().Str("hook", h.name).Dur(log.FieldDuration, time.Since(start)).Msg("Shutdown hook completed")
	}
	return errors.Join(errs...)
}
