// Package models - error taxonomy shared by the service and the streaming client.
// Every failure that crosses a package boundary is tagged with one of the
// ErrorType constants below; ErrorTypeUnknown is the required fallback so that
// callers never see an unclassified error.
package models

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

// ErrorType is the machine-readable classification of a failure.
type ErrorType string

const (
	ErrorTypeRateLimit  ErrorType = "RATE_LIMIT_EXCEEDED" // 429: admission threshold exceeded
	ErrorTypeValidation ErrorType = "VALIDATION_ERROR"    // 422: malformed caller input
	ErrorTypeNotFound   ErrorType = "NOT_FOUND"           // 404: resource absent
	ErrorTypeAPI        ErrorType = "API_ERROR"           // upstream returned a failure we cannot self-correct
	ErrorTypeNetwork    ErrorType = "NETWORK_ERROR"       // transport-level failure
	ErrorTypeUnknown    ErrorType = "UNKNOWN_ERROR"       // anything that matches no known shape
)

// Retryable reports whether errors of this type are worth retrying by default.
// Only rate limiting and transport failures are self-correcting.
func (t ErrorType) Retryable() bool {
	return t == ErrorTypeRateLimit || t == ErrorTypeNetwork
}

// Valid reports whether t is one of the defined taxonomy values.
func (t ErrorType) Valid() bool {
	switch t {
	case ErrorTypeRateLimit, ErrorTypeValidation, ErrorTypeNotFound,
		ErrorTypeAPI, ErrorTypeNetwork, ErrorTypeUnknown:
		return true
	}
	return false
}

// AgentError is the taxonomy-tagged error carried across the request path.
// RetryAfter is only meaningful for ErrorTypeRateLimit, where it holds the
// duration a caller should wait before re-attempting.
type AgentError struct {
	Type       ErrorType
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *AgentError) Error() string {
	if e.Err != nil {
		return string(e.Type) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Type) + ": " + e.Message
}

func (e *AgentError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error type to the status code the API surfaces.
func (e *AgentError) HTTPStatus() int {
	switch e.Type {
	case ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case ErrorTypeValidation:
		return http.StatusUnprocessableEntity
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeAPI:
		return http.StatusBadGateway
	case ErrorTypeNetwork:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// NewAgentError constructs a tagged error wrapping an optional cause.
func NewAgentError(t ErrorType, message string, err error) *AgentError {
	return &AgentError{Type: t, Message: message, Err: err}
}

// NewRateLimitError constructs a RATE_LIMIT_EXCEEDED error carrying the
// retry-after hint presentation code uses to render a countdown.
func NewRateLimitError(retryAfter time.Duration) *AgentError {
	return &AgentError{
		Type:       ErrorTypeRateLimit,
		Message:    "rate limit exceeded",
		RetryAfter: retryAfter,
	}
}

// Classify maps an arbitrary error onto the taxonomy. Already-tagged errors
// pass through unchanged; context cancellation is never reclassified because
// it is a distinct outcome, not an error kind. Everything else degrades to
// UNKNOWN_ERROR rather than escaping untagged.
func Classify(err error) *AgentError {
	if err == nil {
		return nil
	}

	var agentErr *AgentError
	if errors.As(err, &agentErr) {
		return agentErr
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return NewAgentError(ErrorTypeNetwork, "network error", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewAgentError(ErrorTypeNetwork, "request timed out", err)
	}

	return NewAgentError(ErrorTypeUnknown, err.Error(), err)
}

// IsCancellation reports whether err represents caller-initiated cancellation,
// which must not be reported through the error channel.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled)
}
