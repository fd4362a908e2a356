// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/khangzxrr/SafeExamBrowser/internal/config"
	"github.com/khangzxrr/SafeExamBrowser/internal/log"
	"github.com/khangzxrr/SafeExamBrowser/internal/version"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "sebruntime",
		Short:         "Exam session runtime",
		Long:          "Runs the session operation pipeline of a locked-down exam session and exposes it to a supervisor.",
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version.Version, version.Commit, version.Date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to YAML configuration (default $SEB_DATA_DIR/config.yaml if present)")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newCheckCmd(opts))
	cmd.AddCommand(newConfigCmd(opts))
	return cmd
}

// resolvePath returns the explicit path or an existing config.yaml in the
// data directory; empty means defaults and environment only.
func (o *rootOptions) resolvePath() string {
	if p := strings.TrimSpace(o.configPath); p != "" {
		return p
	}
	dataDir := strings.TrimSpace(os.Getenv(config.EnvDataDir))
	if dataDir == "" {
		return ""
	}
	auto := filepath.Join(dataDir, "config.yaml")
	if _, err := os.Stat(auto); err == nil {
		return auto
	}
	return ""
}

// load reads the configuration and reconfigures the global logger to write
// to stderr at the configured level.
func (o *rootOptions) load() (config.AppConfig, *config.Loader, error) {
	path := o.resolvePath()
	loader := config.NewLoader(path, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		return cfg, nil, &exitError{code: 2, err: fmt.Errorf("configuration %q: %w", path, err)}
	}
	log.Configure(log.Config{
		Level:   cfg.LogLevel,
		Output:  os.Stderr,
		Service: cfg.LogService,
		Version: cfg.Version,
	})

	logger := log.WithComponent("cli")
	if path != "" {
		logger.Info().Str(log.FieldEvent, "config.loaded").Str(log.FieldPath, path).Msg("loaded configuration from file")
	} else {
		logger.Info().Str(log.FieldEvent, "config.loaded").Str("source", "env+defaults").Msg("loaded configuration from environment and defaults")
	}
	return cfg, loader, nil
}
