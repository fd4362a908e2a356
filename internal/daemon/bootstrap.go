// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/khangzxrr/SafeExamBrowser/internal/bus"
	"github.com/khangzxrr/SafeExamBrowser/internal/config"
	"github.com/khangzxrr/SafeExamBrowser/internal/control"
	"github.com/khangzxrr/SafeExamBrowser/internal/health"
	"github.com/khangzxrr/SafeExamBrowser/internal/journal"
	"github.com/khangzxrr/SafeExamBrowser/internal/log"
	"github.com/khangzxrr/SafeExamBrowser/internal/monitor"
	"github.com/khangzxrr/SafeExamBrowser/internal/operation"
	"github.com/khangzxrr/SafeExamBrowser/internal/supervisor"
	"github.com/khangzxrr/SafeExamBrowser/internal/telemetry"
	"github.com/khangzxrr/SafeExamBrowser/internal/text"
	"github.com/khangzxrr/SafeExamBrowser/internal/version"
)

// Build wires the runtime from cfg: telemetry, journal, event sinks,
// controller and control server. holder may be nil when the runtime runs
// without a configuration file. Extra controller options are applied last.
func Build(ctx context.Context, cfg config.AppConfig, holder *config.Holder, opts ...supervisor.Option) (_ *App, err error) {
	app := newApp(cfg, holder)
	defer func() {
		if err != nil {
			_ = app.runHooks(context.Background())
		}
	}()

	tp, err := telemetry.NewProvider(ctx, telemetry.FromAppConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	app.RegisterShutdownHook("telemetry", tp.Shutdown)

	store, err := journal.Open(cfg.Journal.Backend, cfg.Journal.Path)
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	app.RegisterShutdownHook("journal", func(context.Context) error { return store.Close() })

	resolver := text.NewResolver(cfg.Language)
	events := bus.NewMemoryBus()
	ctrlOpts := []supervisor.Option{
		supervisor.WithJournal(store),
		supervisor.WithListener(monitor.NewLogSink(log.WithComponent("session"), resolver)),
		supervisor.WithListener(monitor.NewBusSink(events, resolver)),
	}

	probes := []health.Checker{
		health.NewDirChecker("data_dir", cfg.DataDir),
		health.CheckerFunc("journal", func(ctx context.Context) health.CheckResult {
			_, err := store.List(ctx, 1)
			return health.FromError(err, cfg.Journal.Backend)
		}),
	}

	if cfg.Monitor.RedisAddr != "" {
		client, err := monitor.NewRedisClient(ctx, cfg.Monitor)
		if err != nil {
			return nil, fmt.Errorf("monitor: %w", err)
		}
		app.RegisterShutdownHook("redis", func(context.Context) error { return client.Close() })
		app.redis = monitor.NewRedisSink(client, cfg.Monitor.Channel, resolver)
		ctrlOpts = append(ctrlOpts, supervisor.WithListener(app.redis))
		probes = append(probes, health.CheckerFunc("redis", func(ctx context.Context) health.CheckResult {
			return health.FromError(client.Ping(ctx).Err(), cfg.Monitor.RedisAddr)
		}))
	}

	app.ctrl = supervisor.New(cfg, append(ctrlOpts, opts...)...)

	ctrl := app.ctrl
	probe := health.NewManager(version.Version, func() string { return string(ctrl.Status().State) })
	for _, c := range probes {
		probe.RegisterChecker(c)
	}
	probe.RegisterChecker(health.NewLastPassChecker(func() (string, bool, bool) {
		last := ctrl.Status().Last
		if last == nil {
			return "", false, false
		}
		summary := fmt.Sprintf("%s %s at %s", last.Mode, last.Result, last.FinishedAt.UTC().Format(time.RFC3339))
		return summary, last.Result == operation.Success, true
	}))

	var reloader control.Reloader
	if holder != nil {
		reloader = holder
	}
	app.server = control.NewServer(app.ctrl, reloader, cfg,
		control.WithEvents(events),
		control.WithHealth(probe),
	)

	app.logger.Info().
		Str(log.FieldEvent, "daemon.built").
		Str("journal", cfg.Journal.Backend).
		Bool("redis", app.redis != nil).
		Bool("telemetry", cfg.Telemetry.Enabled).
		Msg("runtime assembled")
	return app, nil
}

// Controller exposes the session controller, mostly for tests and the CLI.
func (a *App) Controller() *supervisor.Controller { return a.ctrl }

func isNoSession(err error) bool { return errors.Is(err, supervisor.ErrNoSession) }
