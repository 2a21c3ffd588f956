// Copyright (c) 2026 Rejourney
// Licensed under the Apache License, Version 2.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID     = "session_id"
	FieldCorrelationID = "correlation_id"
	FieldRequestID     = "request_id"
	FieldDeviceHash    = "device_hash"
	FieldUserID        = "user_id"

	// Engine fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldEpoch     = "epoch"

	// State fields
	FieldOldPhase = "old_phase"
	FieldNewPhase = "new_phase"
	FieldReason   = "reason"

	// Credential fields
	FieldCredentialSource = "credential_source"
	FieldEndpoint         = "endpoint"

	// Event-router fields
	FieldEventKind = "event_kind"
)
