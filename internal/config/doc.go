// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config provides configuration management for the session runtime.
//
// Precedence is ENV > YAML file > defaults. The effective configuration
// (AppConfig) is snapshotted into every session context; reloads are
// published through Holder and drive pipeline re-validation.
package config
