// Package models - API request types and input validation.
//
// Validation Philosophy:
// - Fail fast with clear error messages for invalid input
// - Normalize input data for consistent processing (lowercase, trimmed strings)
// - Separate validation from normalization for clear error reporting
package models

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// RecommendRequest describes what the caller is in the mood for. Mood is the
// only required field; everything else narrows the candidate set.
type RecommendRequest struct {
	Mood       string   `json:"mood" validate:"required,max=200"`          // Free-text mood description
	Genres     []string `json:"genres,omitempty" validate:"max=10"`        // Preferred genres
	Platforms  []string `json:"platforms,omitempty" validate:"max=10"`     // Streaming platforms available to the caller
	Decades    []string `json:"decades,omitempty" validate:"max=10"`       // Release decades, e.g. "1990s"
	ExtraNotes string   `json:"extra_notes,omitempty" validate:"max=1000"` // Anything else the caller wants considered
	MaxResults int      `json:"max_results,omitempty" validate:"min=0,max=20"`
}

// Validate checks field constraints. The returned error is wrapped in a
// VALIDATION_ERROR so handlers and the retry layer classify it as terminal.
func (r *RecommendRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return NewAgentError(ErrorTypeValidation, validationMessage(err), err)
	}
	return nil
}

// Normalize trims and lowercases filter values and applies defaults.
// Call after Validate so error messages reference the caller's input.
func (r *RecommendRequest) Normalize() {
	r.Mood = strings.TrimSpace(r.Mood)
	r.ExtraNotes = strings.TrimSpace(r.ExtraNotes)
	r.Genres = normalizeList(r.Genres)
	r.Platforms = normalizeList(r.Platforms)
	r.Decades = normalizeList(r.Decades)
	if r.MaxResults == 0 {
		r.MaxResults = 5
	}
}

// Clone returns a deep copy sharing no slices with the receiver.
func (r RecommendRequest) Clone() RecommendRequest {
	r.Genres = cloneStrings(r.Genres)
	r.Platforms = cloneStrings(r.Platforms)
	r.Decades = cloneStrings(r.Decades)
	return r
}

func normalizeList(values []string) []string {
	out := values[:0]
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// validationMessage flattens validator's error list into one human-readable
// message for the error response.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	ok := false
	if e, isValidation := err.(validator.ValidationErrors); isValidation {
		verrs = e
		ok = true
	}
	if !ok || len(verrs) == 0 {
		return "invalid request"
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", strings.ToLower(fe.Field())))
		case "max":
			parts = append(parts, fmt.Sprintf("%s exceeds maximum of %s", strings.ToLower(fe.Field()), fe.Param()))
		case "min":
			parts = append(parts, fmt.Sprintf("%s is below minimum of %s", strings.ToLower(fe.Field()), fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s is invalid", strings.ToLower(fe.Field())))
		}
	}
	return strings.Join(parts, "; ")
}

// HistoryRequest carries pagination for history listing.
type HistoryRequest struct {
	Limit  int `json:"limit,omitempty" validate:"min=0,max=100"`
	Offset int `json:"offset,omitempty" validate:"min=0"`
}

// Validate checks pagination bounds.
func (r *HistoryRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return NewAgentError(ErrorTypeValidation, validationMessage(err), err)
	}
	return nil
}

// Normalize applies pagination defaults.
func (r *HistoryRequest) Normalize() {
	if r.Limit == 0 {
		r.Limit = 20
	}
}
