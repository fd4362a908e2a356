// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/khangzxrr/SafeExamBrowser/internal/detect"
	"github.com/khangzxrr/SafeExamBrowser/internal/log"
	"github.com/khangzxrr/SafeExamBrowser/internal/operation"
	"github.com/khangzxrr/SafeExamBrowser/internal/pipeline"
	"github.com/khangzxrr/SafeExamBrowser/internal/supervisor"
	"github.com/khangzxrr/SafeExamBrowser/internal/text"
	"github.com/spf13/cobra"
)

// hostDetectors builds the probes used by check. Tests replace it.
var hostDetectors = func() (virtualMachine, remoteSession detect.Detector) {
	return detect.NewVirtualization(), detect.NewRemoteSession()
}

type checkLine struct {
	Kind      operation.Kind    `json:"kind"`
	Topic     text.Key          `json:"topic"`
	Text      string            `json:"text"`
	Operation string            `json:"operation"`
	Mode      operation.Mode    `json:"mode"`
	Args      map[string]string `json:"args,omitempty"`
}

func newCheckCmd(root *rootOptions) *cobra.Command {
	var (
		asJSON  bool
		approve bool
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run the session pipeline once and tear it down",
		Long: `Performs every session operation against this host with the loaded
configuration, prints each event, then reverts what was applied.

A confirmation prompt is declined unless --approve is given. The command
exits non-zero unless the pipeline completed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := root.load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			resolver := text.NewResolver(cfg.Language)
			printer := operation.ListenerFunc(func(ev operation.Event) {
				printEvent(out, resolver, ev, asJSON)
			})

			vm, remote := hostDetectors()
			ctrl := supervisor.New(cfg,
				supervisor.WithDetectors(vm, remote),
				supervisor.WithListener(printer),
				supervisor.WithLogger(log.WithComponent("check")),
			)

			rep, err := ctrl.Start(ctx)
			if err != nil {
				return &exitError{code: 1, err: err}
			}
			for rep.State == pipeline.StateActionPending {
				if !approve && !asJSON {
					fmt.Fprintln(out, "confirmation declined (use --approve to accept)")
				}
				rep, err = ctrl.Resolve(ctx, "", approve)
				if err != nil {
					return &exitError{code: 1, err: err}
				}
			}
			final := rep.State

			teardown, err := ctrl.Stop(ctx)
			if err != nil {
				return &exitError{code: 1, err: fmt.Errorf("teardown: %w", err)}
			}
			if teardown != nil && teardown.RevertErr != nil {
				return &exitError{code: 1, err: fmt.Errorf("teardown: %w", teardown.RevertErr)}
			}

			if !asJSON {
				fmt.Fprintf(out, "result: %s\n", final)
			}
			if final != pipeline.StateCompleted {
				return &exitError{code: 3}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print events as JSON lines")
	cmd.Flags().BoolVar(&approve, "approve", false, "accept confirmation prompts")
	return cmd
}

func printEvent(w io.Writer, r *text.Resolver, ev operation.Event, asJSON bool) {
	line := checkLine{
		Kind:      ev.Kind,
		Topic:     ev.Topic,
		Text:      r.Resolve(ev.Topic),
		Operation: ev.Operation,
		Mode:      ev.Mode,
		Args:      ev.Args,
	}
	if asJSON {
		_ = json.NewEncoder(w).Encode(line)
		return
	}
	marker := "  "
	if ev.Kind == operation.KindActionRequired {
		marker = "? "
	}
	fmt.Fprintf(w, "%s[%s/%s] %s\n", marker, line.Operation, line.Mode, line.Text)
}
