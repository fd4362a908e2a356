// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func attrMap(attrs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value, len(attrs))
	for _, a := range attrs {
		m[a.Key] = a.Value
	}
	return m
}

func TestPassAttributes(t *testing.T) {
	m := attrMap(PassAttributes("perform", "abc", 5))
	assert.Equal(t, "perform", m[PassModeKey].AsString())
	assert.Equal(t, int64(5), m[PassOperationsKey].AsInt64())
	assert.Equal(t, "abc", m[SessionIDKey].AsString())

	assert.Len(t, PassAttributes("revert", "", 1), 2)
}

func TestOperationAttributes(t *testing.T) {
	m := attrMap(OperationAttributes("vm-policy", 3, "repeat"))
	assert.Equal(t, "vm-policy", m[OperationKey].AsString())
	assert.Equal(t, int64(3), m[OperationIndexKey].AsInt64())
	assert.Equal(t, "repeat", m[PassModeKey].AsString())
}

func TestPolicyAttributes(t *testing.T) {
	m := attrMap(PolicyAttributes("deny", true))
	assert.Equal(t, "deny", m[PolicyKey].AsString())
	assert.True(t, m[DetectedKey].AsBool())
}
