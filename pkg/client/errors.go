package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors. Use errors.Is() on the error returned by a call.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUpstream     = errors.New("upstream failure")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limited")
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
	Field   string
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("clubrec: %d %s: %s (field %s)", e.Status, e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("clubrec: %d %s: %s", e.Status, e.Code, e.Message)
}

// Is maps the response onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Status == http.StatusBadRequest
	case ErrUpstream:
		return e.Status == http.StatusBadGateway || e.Status == http.StatusGatewayTimeout
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrRateLimited:
		return e.Status == http.StatusTooManyRequests
	}
	return false
}

// Timeout reports whether the server gave up waiting on an upstream.
func (e *APIError) Timeout() bool {
	return e.Status == http.StatusGatewayTimeout
}
