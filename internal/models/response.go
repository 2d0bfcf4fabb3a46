// Package models - API response types.
//
// Response Design Principles:
// - Consistent JSON structure across all endpoints
// - Optional fields use omitempty to reduce response size
// - Machine-readable error codes for programmatic handling
// - RFC3339 timestamps for international compatibility
package models

import (
	"time"
)

// ErrorResponse is the structured error body returned by every non-streaming
// failure and embedded in stream error frames.
type ErrorResponse struct {
	Error      string    `json:"error"`                 // Always "error"
	Message    string    `json:"message"`               // Human-readable description
	Code       string    `json:"code,omitempty"`        // Taxonomy code (see errors.go)
	RetryAfter int       `json:"retry_after,omitempty"` // Seconds, set for RATE_LIMIT_EXCEEDED
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}

// NewErrorResponse builds an error body for the given message and code.
func NewErrorResponse(message string, code ErrorType) *ErrorResponse {
	return &ErrorResponse{
		Error:     "error",
		Message:   message,
		Code:      string(code),
		Timestamp: time.Now(),
	}
}

// NewErrorResponseFromAgentError converts a classified error into a response
// body, carrying the retry-after hint when present.
func NewErrorResponseFromAgentError(err *AgentError) *ErrorResponse {
	resp := NewErrorResponse(err.Message, err.Type)
	if err.RetryAfter > 0 {
		resp.RetryAfter = int((err.RetryAfter + time.Second - 1) / time.Second)
	}
	return resp
}

// HistoryListResponse pages through persisted recommendation runs.
type HistoryListResponse struct {
	Records    []*RecommendationRecord `json:"records"`
	TotalCount int                     `json:"total_count"`
	Limit      int                     `json:"limit"`
	Offset     int                     `json:"offset"`
	HasMore    bool                    `json:"has_more"`
}

type DeleteRecordResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// HealthCheckResponse reports service and component health.
type HealthCheckResponse struct {
	Status     string                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Uptime     string                     `json:"uptime,omitempty"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

type ComponentHealth struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Health status constants.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusDegraded  = "degraded"
)

// NewHealthCheckResponse creates a health response with an empty component map.
func NewHealthCheckResponse(status string) *HealthCheckResponse {
	return &HealthCheckResponse{
		Status:     status,
		Timestamp:  time.Now(),
		Components: make(map[string]ComponentHealth),
	}
}

// AddComponent records the health of a named subsystem.
func (h *HealthCheckResponse) AddComponent(name, status, message string) {
	h.Components[name] = ComponentHealth{
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	}
}
