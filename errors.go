package sqsdispatch

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is matching. The typed errors below match their
// sentinel through Is, so callers can branch on either form.
var (
	ErrInvalidEvent      = errors.New("invalid event")
	ErrMalformedBody     = errors.New("malformed body")
	ErrSchemaViolation   = errors.New("schema violation")
	ErrContentResolution = errors.New("content resolution failed")

	// ErrResourceNotFound is returned by Registry implementations when no
	// shared resource matches the requested name.
	ErrResourceNotFound = errors.New("resource not found")
)

// InvalidEventError reports a top-level event that does not have the SQS shape.
// It is returned before any record is touched.
type InvalidEventError struct {
	Reason string
}

func (e *InvalidEventError) Error() string {
	return fmt.Sprintf("invalid event: %s", e.Reason)
}

func (e *InvalidEventError) Is(target error) bool { return target == ErrInvalidEvent }

// MalformedBodyError reports a body, or fetched content, that is not valid JSON.
type MalformedBodyError struct {
	MessageID string
	Err       error
}

func (e *MalformedBodyError) Error() string {
	return fmt.Sprintf("malformed body for message %s: %v", e.MessageID, e.Err)
}

func (e *MalformedBodyError) Unwrap() error        { return e.Err }
func (e *MalformedBodyError) Is(target error) bool { return target == ErrMalformedBody }

// SchemaValidationError reports a body rejected by the consumer's schema.
// MessageIDs lists the records that were checked together.
type SchemaValidationError struct {
	MessageIDs []string
	Err        error
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("schema validation failed for %v: %v", e.MessageIDs, e.Err)
}

func (e *SchemaValidationError) Unwrap() error        { return e.Err }
func (e *SchemaValidationError) Is(target error) bool { return target == ErrSchemaViolation }

// ResolutionKind classifies a ContentResolutionError.
type ResolutionKind int

const (
	// KindRegistryLookup indicates the registry could not be queried or its
	// value could not be read.
	KindRegistryLookup ResolutionKind = iota + 1
	// KindResourceNotFound indicates no shared resource matched the parameter name.
	KindResourceNotFound
	// KindCredentialExchange indicates the role for a bucket could not be assumed.
	KindCredentialExchange
	// KindFetch indicates the object could not be read from any candidate location.
	KindFetch
	// KindInvalidReference indicates the body carries an incomplete reference.
	KindInvalidReference
	// KindNotConfigured indicates a reference was found but no resolver is set.
	KindNotConfigured
)

func (k ResolutionKind) String() string {
	switch k {
	case KindRegistryLookup:
		return "registry_lookup"
	case KindResourceNotFound:
		return "resource_not_found"
	case KindCredentialExchange:
		return "credential_exchange"
	case KindFetch:
		return "fetch"
	case KindInvalidReference:
		return "invalid_reference"
	case KindNotConfigured:
		return "not_configured"
	default:
		return "unknown"
	}
}

// ContentResolutionError reports a failure to dereference a body.
type ContentResolutionError struct {
	Kind      ResolutionKind
	MessageID string
	Err       error
}

func (e *ContentResolutionError) Error() string {
	if e.MessageID == "" {
		return fmt.Sprintf("content resolution (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("content resolution (%s) for message %s: %v", e.Kind, e.MessageID, e.Err)
}

func (e *ContentResolutionError) Unwrap() error        { return e.Err }
func (e *ContentResolutionError) Is(target error) bool { return target == ErrContentResolution }

func resolutionError(kind ResolutionKind, err error) *ContentResolutionError {
	return &ContentResolutionError{Kind: kind, Err: err}
}
