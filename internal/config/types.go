// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"strings"
	"time"
)

// Policy decides how a policy operation reacts to a positive detection.
type Policy string

const (
	PolicyAllow   Policy = "allow"
	PolicyDeny    Policy = "deny"
	PolicyConfirm Policy = "confirm" // operator must approve before the session continues
)

// ParsePolicy normalizes a policy string. Unknown values are returned as-is
// and rejected by Validate.
func ParsePolicy(s string) Policy {
	return Policy(strings.ToLower(strings.TrimSpace(s)))
}

// Valid reports whether p is a known policy.
func (p Policy) Valid() bool {
	switch p {
	case PolicyAllow, PolicyDeny, PolicyConfirm:
		return true
	}
	return false
}

const (
	JournalMemory = "memory"
	JournalSqlite = "sqlite"
	JournalBadger = "badger"
)

// AppConfig is the effective runtime configuration.
type AppConfig struct {
	Version     string
	DataDir     string
	LogLevel    string
	LogService  string
	Language    string
	BaseAddress string

	Security  SecuritySettings
	Pipeline  PipelineSettings
	Control   ControlSettings
	Journal   JournalSettings
	Monitor   MonitorSettings
	Telemetry TelemetrySettings
}

// ServiceAddress is the fixed endpoint of the privileged service process.
func (c AppConfig) ServiceAddress() string {
	return strings.TrimRight(c.BaseAddress, "/") + "/service"
}

type SecuritySettings struct {
	VirtualMachinePolicy Policy
	RemoteSessionPolicy  Policy
	AllowReconfiguration bool
}

type PipelineSettings struct {
	// OperationTimeout bounds every single Perform/Repeat/Revert call.
	OperationTimeout time.Duration
}

type ControlSettings struct {
	ListenAddr string
	RateLimit  int
	RateWindow time.Duration
}

type JournalSettings struct {
	Backend string
	Path    string
}

type MonitorSettings struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Channel       string
}

type TelemetrySettings struct {
	Enabled      bool
	Exporter     string
	Endpoint     string
	SamplingRate float64
	Environment  string
}

// FileConfig is the YAML schema. Optional scalars are pointers so that an
// explicit zero value can be told apart from an omitted key.
type FileConfig struct {
	DataDir     string          `yaml:"dataDir,omitempty"`
	LogLevel    string          `yaml:"logLevel,omitempty"`
	LogService  string          `yaml:"logService,omitempty"`
	Language    string          `yaml:"language,omitempty"`
	BaseAddress string          `yaml:"baseAddress,omitempty"`
	Security    SecurityConfig  `yaml:"security,omitempty"`
	Pipeline    PipelineConfig  `yaml:"pipeline,omitempty"`
	Control     ControlConfig   `yaml:"control,omitempty"`
	Journal     JournalConfig   `yaml:"journal,omitempty"`
	Monitor     MonitorConfig   `yaml:"monitor,omitempty"`
	Telemetry   TelemetryConfig `yaml:"telemetry,omitempty"`
}

type SecurityConfig struct {
	VirtualMachinePolicy string `yaml:"virtualMachinePolicy,omitempty"`
	RemoteSessionPolicy  string `yaml:"remoteSessionPolicy,omitempty"`
	AllowReconfiguration *bool  `yaml:"allowReconfiguration,omitempty"`
}

type PipelineConfig struct {
	OperationTimeout string `yaml:"operationTimeout,omitempty"`
}

type ControlConfig struct {
	ListenAddr string `yaml:"listenAddr,omitempty"`
	RateLimit  *int   `yaml:"rateLimit,omitempty"`
	RateWindow string `yaml:"rateWindow,omitempty"`
}

type JournalConfig struct {
	Backend string `yaml:"backend,omitempty"`
	Path    string `yaml:"path,omitempty"`
}

type MonitorConfig struct {
	RedisAddr     string `yaml:"redisAddr,omitempty"`
	RedisPassword string `yaml:"redisPassword,omitempty"`
	RedisDB       *int   `yaml:"redisDB,omitempty"`
	Channel       string `yaml:"channel,omitempty"`
}

type TelemetryConfig struct {
	Enabled      *bool    `yaml:"enabled,omitempty"`
	Exporter     string   `yaml:"exporter,omitempty"`
	Endpoint     string   `yaml:"endpoint,omitempty"`
	SamplingRate *float64 `yaml:"samplingRate,omitempty"`
	Environment  string   `yaml:"environment,omitempty"`
}
