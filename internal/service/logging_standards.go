package service

// Logging Standards for wainbox
//
// This file defines standard field names so every component logs the same
// thing under the same key.

// Standard Field Names
const (
	// Core identifiers
	LogFieldRecordID      = "record_id"
	LogFieldSenderAddress = "sender_address"
	LogFieldSenderName    = "sender_name"
	LogFieldRequestID     = "request_id"
	LogFieldTraceID       = "trace_id"

	// Service and operation fields
	LogFieldService   = "service"
	LogFieldOperation = "operation"
	LogFieldComponent = "component"
	LogFieldMethod    = "method"

	// Webhook and dispatch fields
	LogFieldTemplate    = "template"
	LogFieldEntryIndex  = "entry_index"
	LogFieldChangeIndex = "change_index"
	LogFieldOutcome     = "outcome"

	// Performance and metrics
	LogFieldDuration = "duration_ms"
	LogFieldCount    = "count"
	LogFieldSize     = "size_bytes"

	// Network and external services
	LogFieldURL        = "url"
	LogFieldRoute      = "route"
	LogFieldEndpoint   = "endpoint"
	LogFieldStatusCode = "status_code"
	LogFieldRemoteIP   = "remote_ip"
	LogFieldUserAgent  = "user_agent"

	// Error and debugging
	LogFieldErrorCode = "error_code"
)

// Log Level Usage Guidelines
//
// DEBUG: per-record details (masked sender, record id), raw sizes.
// INFO: startup/shutdown, one summary line per webhook delivery or dispatch.
// WARN: client errors (bad payloads, unknown ids), missing credentials.
// ERROR: storage failures, malformed provider payloads, upstream failures.
// FATAL: configuration or storage required for startup is unavailable.

// Example Usage:
//
// logger.WithFields(logrus.Fields{
//     LogFieldRecordID: id,
//     LogFieldTemplate: template,
//     LogFieldDuration: duration.Milliseconds(),
// }).Info("Template dispatched")
