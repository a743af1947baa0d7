package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation signals a malformed recommendation request.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound signals a missing catalog item.
	ErrNotFound = errors.New("not found")
	// ErrVectorDimMismatch signals an embedding whose length differs from the index dimension.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrVectorIndexError signals a vector index failure.
	ErrVectorIndexError = errors.New("vector index error")
	// ErrTransient marks upstream failures worth one more attempt (network errors, 429, 5xx).
	ErrTransient = errors.New("transient upstream failure")
	// ErrUpstreamOpen signals that a circuit breaker rejected the call without reaching upstream.
	ErrUpstreamOpen = errors.New("upstream circuit open")
)

// ValidationError wraps ErrValidation with the offending request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation.Error(), e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Message is the client-facing description, e.g. "queryText is required".
func (e *ValidationError) Message() string { return e.Field + " " + e.Reason }

// NewValidationError creates a validation error for a request field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
