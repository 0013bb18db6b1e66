package logging

import "log/slog"

// Common field names for consistent logging across the engine.
const (
	FieldMessageID    = "message_id"
	FieldInvocationID = "invocation_id"
	FieldTenant       = "tenant"
	FieldMode         = "mode"
	FieldState        = "state"
	FieldRecords      = "records"
	FieldBucket       = "bucket"
	FieldRegion       = "region"
	FieldDuration     = "duration_ms"
	FieldError        = "error"
)

// MessageID returns a slog attribute for an SQS message ID.
func MessageID(id string) slog.Attr {
	return slog.String(FieldMessageID, id)
}

// InvocationID returns a slog attribute for the invocation ID.
func InvocationID(id string) slog.Attr {
	return slog.String(FieldInvocationID, id)
}

// Tenant returns a slog attribute for a tenant code.
func Tenant(code string) slog.Attr {
	return slog.String(FieldTenant, code)
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}
