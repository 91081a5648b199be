// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	FieldService   = "service"
	FieldComponent = "component"
	FieldEvent     = "event"
	FieldRequestID = "request_id"

	FieldPath    = "path"
	FieldFormat  = "format"
	FieldProject = "project"

	// Validation fields
	FieldViolations = "violations"
	FieldWarnings   = "warnings"
	FieldPointer    = "pointer"
	FieldRule       = "rule"

	// HTTP fields
	FieldMethod   = "method"
	FieldStatus   = "status"
	FieldDuration = "duration_ms"
	FieldRemote   = "remote_addr"
)
