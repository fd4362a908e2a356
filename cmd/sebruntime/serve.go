// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"os/signal"
	"syscall"

	"github.com/khangzxrr/SafeExamBrowser/internal/config"
	"github.com/khangzxrr/SafeExamBrowser/internal/daemon"
	"github.com/spf13/cobra"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var start bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the runtime and its control API",
		Long: `Runs the control API and waits for a supervisor to start, resolve and stop
the session. SIGHUP or a change to the configuration file reloads the
configuration and, when the session allows it, reconfigures the session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, loader, err := root.load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var holder *config.Holder
			if loader.Path() != "" {
				holder = config.NewHolder(cfg, loader)
			}
			app, err := daemon.Build(ctx, cfg, holder)
			if err != nil {
				return err
			}
			app.SetAutoStart(start)
			return app.Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&start, "start", false, "start a session as soon as the control API listens")
	return cmd
}
