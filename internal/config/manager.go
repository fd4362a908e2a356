// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

// Manager handles configuration persistence.
type Manager struct {
	configPath string
}

// NewManager creates a new configuration manager.
func NewManager(configPath string) *Manager {
	return &Manager{
		configPath: configPath,
	}
}

// Save writes the configuration to disk. The file is replaced atomically so
// a watcher never observes a half-written document.
func (m *Manager) Save(cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(m.configPath), 0750); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	fileCfg := ToFileConfig(*cfg)
	data, err := yaml.Marshal(&fileCfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := renameio.WriteFile(m.configPath, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ToFileConfig maps the effective configuration back onto the YAML schema.
// Secrets are written as-is; the file is created with owner-only permissions.
func ToFileConfig(cfg AppConfig) FileConfig {
	return FileConfig{
		DataDir:     cfg.DataDir,
		LogLevel:    cfg.LogLevel,
		LogService:  cfg.LogService,
		Language:    cfg.Language,
		BaseAddress: cfg.BaseAddress,
		Security: SecurityConfig{
			VirtualMachinePolicy: string(cfg.Security.VirtualMachinePolicy),
			RemoteSessionPolicy:  string(cfg.Security.RemoteSessionPolicy),
			AllowReconfiguration: boolPtr(cfg.Security.AllowReconfiguration),
		},
		Pipeline: PipelineConfig{
			OperationTimeout: cfg.Pipeline.OperationTimeout.String(),
		},
		Control: ControlConfig{
			ListenAddr: cfg.Control.ListenAddr,
			RateLimit:  intPtr(cfg.Control.RateLimit),
			RateWindow: cfg.Control.RateWindow.String(),
		},
		Journal: JournalConfig{
			Backend: cfg.Journal.Backend,
			Path:    cfg.Journal.Path,
		},
		Monitor: MonitorConfig{
			RedisAddr:     cfg.Monitor.RedisAddr,
			RedisPassword: cfg.Monitor.RedisPassword,
			RedisDB:       intPtr(cfg.Monitor.RedisDB),
			Channel:       cfg.Monitor.Channel,
		},
		Telemetry: TelemetryConfig{
			Enabled:      boolPtr(cfg.Telemetry.Enabled),
			Exporter:     cfg.Telemetry.Exporter,
			Endpoint:     cfg.Telemetry.Endpoint,
			SamplingRate: floatPtr(cfg.Telemetry.SamplingRate),
			Environment:  cfg.Telemetry.Environment,
		},
	}
}

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int { return &i }
func floatPtr(f float64) *float64 { return &f }
