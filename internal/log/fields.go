// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID     = "session_id"
	FieldCorrelationID = "correlation_id"
	FieldRequestID     = "request_id"
	FieldAttemptID     = "attempt_id"

	// Pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldOperation = "operation"
	FieldOpIndex   = "op_index"
	FieldMode      = "mode"
	FieldResult    = "result"
	FieldTopic     = "topic"
	FieldDuration  = "duration"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Policy fields
	FieldPolicy   = "policy"
	FieldDetected = "detected"

	// Path / address fields
	FieldPath    = "path"
	FieldAddress = "address"
)
