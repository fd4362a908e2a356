// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"encoding/json"
	"fmt"

	"github.com/khangzxrr/SafeExamBrowser/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the runtime configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, loader, err := root.load()
			if err != nil {
				return err
			}
			source := loader.Path()
			if source == "" {
				source = "environment and defaults"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK: %s (journal=%s, vm=%s, remote=%s)\n",
				source, cfg.Journal.Backend, cfg.Security.VirtualMachinePolicy, cfg.Security.RemoteSessionPolicy)
			return nil
		},
	})

	var format string
	dump := &cobra.Command{
		Use:   "dump",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := root.load()
			if err != nil {
				return err
			}
			fc := config.ToFileConfig(cfg)
			if fc.Monitor.RedisPassword != "" {
				fc.Monitor.RedisPassword = "***"
			}
			out := cmd.OutOrStdout()
			switch format {
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(fc); err != nil {
					return err
				}
				return enc.Close()
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(fc)
			default:
				return &exitError{code: 2, err: fmt.Errorf("unknown format %q (want yaml or json)", format)}
			}
		},
	}
	dump.Flags().StringVarP(&format, "format", "o", "yaml", "output format: yaml or json")
	cmd.AddCommand(dump)
	return cmd
}
