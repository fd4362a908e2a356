// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment keys understood by the loader.
const (
	EnvDataDir              = "SEB_DATA_DIR"
	EnvLogLevel             = "SEB_LOG_LEVEL"
	EnvLogService           = "SEB_LOG_SERVICE"
	EnvLanguage             = "SEB_LANGUAGE"
	EnvBaseAddress          = "SEB_BASE_ADDRESS"
	EnvVirtualMachinePolicy = "SEB_VM_POLICY"
	EnvRemoteSessionPolicy  = "SEB_REMOTE_SESSION_POLICY"
	EnvAllowReconfiguration = "SEB_ALLOW_RECONFIGURATION"
	EnvOperationTimeout     = "SEB_OPERATION_TIMEOUT"
	EnvListen               = "SEB_LISTEN"
	EnvRateLimit            = "SEB_RATE_LIMIT"
	EnvRateWindow           = "SEB_RATE_WINDOW"
	EnvJournalBackend       = "SEB_JOURNAL_BACKEND"
	EnvJournalPath          = "SEB_JOURNAL_PATH"
	EnvRedisAddr            = "SEB_REDIS_ADDR"
	EnvRedisPassword        = "SEB_REDIS_PASSWORD"
	EnvRedisDB              = "SEB_REDIS_DB"
	EnvMonitorChannel       = "SEB_MONITOR_CHANNEL"
	EnvTelemetryEnabled     = "SEB_TELEMETRY_ENABLED"
	EnvTelemetryExporter    = "SEB_OTEL_EXPORTER"
	EnvTelemetryEndpoint    = "SEB_OTEL_ENDPOINT"
	EnvTelemetrySampling    = "SEB_OTEL_SAMPLING"
	EnvEnvironment          = "SEB_ENVIRONMENT"
)

// DefaultBaseAddress mirrors the named-pipe namespace shared by the
// service, runtime and client processes.
const DefaultBaseAddress = "ipc://localhost/safeexambrowser"

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{} // Mechanical tracking of consumed keys
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Path returns the configuration file path, empty when running on ENV + defaults.
func (l *Loader) Path() string { return l.configPath }

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults
// It enforces Strict Validated Order: Parse File (Strict) -> Apply Env -> Validate
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)

	// SAFETY: Ensure DataDir is absolute to prevent path traversal/platform errors
	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	if cfg.Journal.Path == "" {
		cfg.Journal.Path = DefaultJournalPath(cfg.DataDir, cfg.Journal.Backend)
	}

	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		DataDir:     filepath.Join(os.TempDir(), "safeexambrowser"),
		LogLevel:    "info",
		LogService:  "seb-runtime",
		Language:    "en",
		BaseAddress: DefaultBaseAddress,
		Security: SecuritySettings{
			VirtualMachinePolicy: PolicyDeny,
			RemoteSessionPolicy:  PolicyDeny,
			AllowReconfiguration: false,
		},
		Pipeline: PipelineSettings{
			OperationTimeout: 30 * time.Second,
		},
		Control: ControlSettings{
			ListenAddr: "127.0.0.1:8970",
			RateLimit:  120,
			RateWindow: time.Minute,
		},
		Journal: JournalSettings{
			Backend: JournalSqlite,
		},
		Monitor: MonitorSettings{
			Channel: "seb:session:events",
		},
		Telemetry: TelemetrySettings{
			Enabled:      false,
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
			Environment:  "production",
		},
	}
}

// DefaultJournalPath derives the journal location for a backend.
func DefaultJournalPath(dataDir, backend string) string {
	switch backend {
	case JournalBadger:
		return filepath.Join(dataDir, "journal")
	case JournalSqlite:
		return filepath.Join(dataDir, "journal.db")
	default:
		return ""
	}
}

// loadFile loads configuration from a YAML file with STRICT parsing.
// Unknown fields will cause a fatal error to prevent misconfiguration.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return ParseFile(data)
}

// ParseFile decodes a single strict YAML document.
func ParseFile(data []byte) (*FileConfig, error) {
	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // Reject unknown fields

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("strict config parse error: %w: %v", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	// Strict: Ensure no multiple documents or trailing content
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}

	return &fileCfg, nil
}

func mergeFileConfig(cfg *AppConfig, f *FileConfig) error {
	setString(&cfg.DataDir, f.DataDir)
	setString(&cfg.LogLevel, f.LogLevel)
	setString(&cfg.LogService, f.LogService)
	setString(&cfg.Language, f.Language)
	setString(&cfg.BaseAddress, f.BaseAddress)

	if f.Security.VirtualMachinePolicy != "" {
		cfg.Security.VirtualMachinePolicy = ParsePolicy(f.Security.VirtualMachinePolicy)
	}
	if f.Security.RemoteSessionPolicy != "" {
		cfg.Security.RemoteSessionPolicy = ParsePolicy(f.Security.RemoteSessionPolicy)
	}
	if f.Security.AllowReconfiguration != nil {
		cfg.Security.AllowReconfiguration = *f.Security.AllowReconfiguration
	}

	if err := setDuration(&cfg.Pipeline.OperationTimeout, "pipeline.operationTimeout", f.Pipeline.OperationTimeout); err != nil {
		return err
	}

	setString(&cfg.Control.ListenAddr, f.Control.ListenAddr)
	if f.Control.RateLimit != nil {
		cfg.Control.RateLimit = *f.Control.RateLimit
	}
	if err := setDuration(&cfg.Control.RateWindow, "control.rateWindow", f.Control.RateWindow); err != nil {
		return err
	}

	setString(&cfg.Journal.Backend, f.Journal.Backend)
	setString(&cfg.Journal.Path, f.Journal.Path)

	setString(&cfg.Monitor.RedisAddr, f.Monitor.RedisAddr)
	setString(&cfg.Monitor.RedisPassword, f.Monitor.RedisPassword)
	if f.Monitor.RedisDB != nil {
		cfg.Monitor.RedisDB = *f.Monitor.RedisDB
	}
	setString(&cfg.Monitor.Channel, f.Monitor.Channel)

	if f.Telemetry.Enabled != nil {
		cfg.Telemetry.Enabled = *f.Telemetry.Enabled
	}
	setString(&cfg.Telemetry.Exporter, f.Telemetry.Exporter)
	setString(&cfg.Telemetry.Endpoint, f.Telemetry.Endpoint)
	if f.Telemetry.SamplingRate != nil {
		cfg.Telemetry.SamplingRate = *f.Telemetry.SamplingRate
	}
	setString(&cfg.Telemetry.Environment, f.Telemetry.Environment)
	return nil
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.DataDir = l.envString(EnvDataDir, cfg.DataDir)
	cfg.LogLevel = l.envString(EnvLogLevel, cfg.LogLevel)
	cfg.LogService = l.envString(EnvLogService, cfg.LogService)
	cfg.Language = l.envString(EnvLanguage, cfg.Language)
	cfg.BaseAddress = l.envString(EnvBaseAddress, cfg.BaseAddress)

	cfg.Security.VirtualMachinePolicy = ParsePolicy(l.envString(EnvVirtualMachinePolicy, string(cfg.Security.VirtualMachinePolicy)))
	cfg.Security.RemoteSessionPolicy = ParsePolicy(l.envString(EnvRemoteSessionPolicy, string(cfg.Security.RemoteSessionPolicy)))
	cfg.Security.AllowReconfiguration = l.envBool(EnvAllowReconfiguration, cfg.Security.AllowReconfiguration)

	cfg.Pipeline.OperationTimeout = l.envDuration(EnvOperationTimeout, cfg.Pipeline.OperationTimeout)

	cfg.Control.ListenAddr = l.envString(EnvListen, cfg.Control.ListenAddr)
	cfg.Control.RateLimit = l.envInt(EnvRateLimit, cfg.Control.RateLimit)
	cfg.Control.RateWindow = l.envDuration(EnvRateWindow, cfg.Control.RateWindow)

	cfg.Journal.Backend = l.envString(EnvJournalBackend, cfg.Journal.Backend)
	cfg.Journal.Path = l.envString(EnvJournalPath, cfg.Journal.Path)

	cfg.Monitor.RedisAddr = l.envString(EnvRedisAddr, cfg.Monitor.RedisAddr)
	cfg.Monitor.RedisPassword = l.envString(EnvRedisPassword, cfg.Monitor.RedisPassword)
	cfg.Monitor.RedisDB = l.envInt(EnvRedisDB, cfg.Monitor.RedisDB)
	cfg.Monitor.Channel = l.envString(EnvMonitorChannel, cfg.Monitor.Channel)

	cfg.Telemetry.Enabled = l.envBool(EnvTelemetryEnabled, cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString(EnvTelemetryExporter, cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString(EnvTelemetryEndpoint, cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat(EnvTelemetrySampling, cfg.Telemetry.SamplingRate)
	cfg.Telemetry.Environment = l.envString(EnvEnvironment, cfg.Telemetry.Environment)
}

func setString(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setDuration(dst *time.Duration, field, v string) error {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q: %w", field, v, err)
	}
	*dst = d
	return nil
}
