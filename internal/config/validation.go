// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "github.com/khangzxrr/SafeExamBrowser/internal/validate"

// SupportedLanguages lists the catalogs shipped with the runtime.
var SupportedLanguages = []string{"en", "de"}

// Validate validates a AppConfig using the centralized validation package
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.Directory("DataDir", cfg.DataDir, false)

	v.LogLevel("LogLevel", cfg.LogLevel)
	v.NotEmpty("LogService", cfg.LogService)
	v.OneOf("Language", cfg.Language, SupportedLanguages)
	v.NotEmpty("BaseAddress", cfg.BaseAddress)

	if !cfg.Security.VirtualMachinePolicy.Valid() {
		v.AddError("Security.VirtualMachinePolicy", "must be one of allow, deny, confirm", string(cfg.Security.VirtualMachinePolicy))
	}
	if !cfg.Security.RemoteSessionPolicy.Valid() {
		v.AddError("Security.RemoteSessionPolicy", "must be one of allow, deny, confirm", string(cfg.Security.RemoteSessionPolicy))
	}

	v.PositiveDuration("Pipeline.OperationTimeout", cfg.Pipeline.OperationTimeout)

	v.ListenAddr("Control.ListenAddr", cfg.Control.ListenAddr)
	v.Range("Control.RateLimit", cfg.Control.RateLimit, 1, 100000)
	v.PositiveDuration("Control.RateWindow", cfg.Control.RateWindow)

	v.OneOf("Journal.Backend", cfg.Journal.Backend, []string{JournalMemory, JournalSqlite, JournalBadger})
	if cfg.Journal.Backend != JournalMemory {
		v.NotEmpty("Journal.Path", cfg.Journal.Path)
	}

	if cfg.Monitor.RedisAddr != "" {
		v.ListenAddr("Monitor.RedisAddr", cfg.Monitor.RedisAddr)
		v.Range("Monitor.RedisDB", cfg.Monitor.RedisDB, 0, 15)
		v.NotEmpty("Monitor.Channel", cfg.Monitor.Channel)
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("Telemetry.Exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("Telemetry.Endpoint", cfg.Telemetry.Endpoint)
		v.FloatRange("Telemetry.SamplingRate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	return v.Err()
}
