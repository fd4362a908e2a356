// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Span attribute keys used across the runtime.
const (
	SessionIDKey      = "seb.session_id"
	PassModeKey       = "seb.pass.mode"
	PassStateKey      = "seb.pass.state"
	PassOperationsKey = "seb.pass.operations"
	OperationKey      = "seb.operation"
	OperationIndexKey = "seb.operation.index"
	OperationResult   = "seb.operation.result"
	PolicyKey         = "seb.policy"
	DetectedKey       = "seb.detected"
)

// PassAttributes describes a pipeline pass.
func PassAttributes(mode, sessionID string, operations int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(PassModeKey, mode),
		attribute.Int(PassOperationsKey, operations),
	}
	if sessionID != "" {
		attrs = append(attrs, attribute.String(SessionIDKey, sessionID))
	}
	return attrs
}

// OperationAttributes describes a single operation call.
func OperationAttributes(name string, index int, mode string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(OperationKey, name),
		attribute.Int(OperationIndexKey, index),
		attribute.String(PassModeKey, mode),
	}
}

// PolicyAttributes describes a policy verdict.
func PolicyAttributes(policy string, detected bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(PolicyKey, policy),
		attribute.Bool(DetectedKey, detected),
	}
}
