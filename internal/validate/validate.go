// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package validate collects field-level configuration problems and reports
// them together.
package validate

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Error is one rejected field.
type Error struct {
	Field   string
	Value   any
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// Validator accumulates field errors. The zero value is not usable; call New.
type Validator struct {
	result *multierror.Error
	count  int
}

func New() *Validator {
	return &Validator{result: &multierror.Error{ErrorFormat: formatErrors}}
}

func formatErrors(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// AddError records a problem with field.
func (v *Validator) AddError(field, message string, value any) {
	v.result = multierror.Append(v.result, Error{Field: field, Value: value, Message: message})
	v.count++
}

func (v *Validator) IsValid() bool { return v.count == 0 }

// Errors returns the recorded problems in the order they were found.
func (v *Validator) Errors() []Error {
	out := make([]Error, 0, v.count)
	for _, err := range v.result.Errors {
		if fe, ok := err.(Error); ok {
			out = append(out, fe)
		}
	}
	return out
}

// Err returns nil when valid, otherwise a *multierror.Error whose members
// are Error values.
func (v *Validator) Err() error {
	return v.result.ErrorOrNil()
}

// Range validates that an integer is within a specified range (inclusive)
func (v *Validator) Range(field string, value, minVal, maxVal int) {
	if value < minVal || value > maxVal {
		v.AddError(field, fmt.Sprintf("value must be between %d and %d, got %d", minVal, maxVal, value), value)
	}
}

// FloatRange validates that a float is within a specified range (inclusive)
func (v *Validator) FloatRange(field string, value, minVal, maxVal float64) {
	if value < minVal || value > maxVal {
		v.AddError(field, fmt.Sprintf("value must be between %g and %g, got %g", minVal, maxVal, value), value)
	}
}

func (v *Validator) PositiveDuration(field string, value time.Duration) {
	if value <= 0 {
		v.AddError(field, "duration must be > 0", value.String())
	}
}

// Directory validates a directory path. A missing directory is created
// unless mustExist is set.
func (v *Validator) Directory(field, path string, mustExist bool) {
	if path == "" {
		v.AddError(field, "directory path cannot be empty", path)
		return
	}
	if strings.Contains(path, "..") {
		v.AddError(field, "path contains traversal sequences (..)", path)
		return
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		v.AddError(field, fmt.Sprintf("invalid path: %v", err), path)
		return
	}

	info, err := os.Stat(absPath)
	switch {
	case os.IsNotExist(err) && mustExist:
		v.AddError(field, "directory does not exist", path)
	case os.IsNotExist(err):
		if err := os.MkdirAll(absPath, 0o750); err != nil {
			v.AddError(field, fmt.Sprintf("cannot create directory: %v", err), path)
		}
	case err != nil:
		v.AddError(field, fmt.Sprintf("cannot access directory: %v", err), path)
	case !info.IsDir():
		v.AddError(field, "path is not a directory", path)
	}
}

func (v *Validator) NotEmpty(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "value cannot be empty", value)
	}
}

func (v *Validator) OneOf(field, value string, allowed []string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v.AddError(field, fmt.Sprintf("must be one of %v", allowed), value)
}

// LogLevels are the levels the runtime accepts.
var LogLevels = []string{"debug", "info", "warn", "error"}

// LogLevel validates a case-insensitive log level name.
func (v *Validator) LogLevel(field, value string) {
	v.OneOf(field, strings.ToLower(strings.TrimSpace(value)), LogLevels)
}

// ListenAddr validates a host:port address. An empty host binds all interfaces.
func (v *Validator) ListenAddr(field, value string) {
	_, port, err := net.SplitHostPort(value)
	if err != nil {
		v.AddError(field, fmt.Sprintf("invalid listen address: %v", err), value)
		return
	}
	if port == "" {
		v.AddError(field, "listen address must include a port", value)
	}
}
