// Package models - movie domain types.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Movie is one recommendation delivered over the stream. The agent emits
// movies incrementally; presentation code renders them as cards in arrival
// order.
type Movie struct {
	ID        int      `json:"id"`
	Title     string   `json:"title"`
	Year      int      `json:"year,omitempty"`
	Genres    []string `json:"genres,omitempty"`
	Platforms []string `json:"platforms,omitempty"`
	Rating    float64  `json:"rating,omitempty"`
	Reason    string   `json:"reason,omitempty"`
	PosterURL string   `json:"poster_url,omitempty"`
}

// Recommendation status constants for persisted history records.
const (
	RecommendationStatusComplete  = "complete"
	RecommendationStatusError     = "error"
	RecommendationStatusCancelled = "cancelled"
)

// RecommendationRecord is a finished (or terminated) recommendation run as
// persisted to the history store. Partial output accumulated before an error
// is kept, matching what the caller saw.
type RecommendationRecord struct {
	ID         string           `json:"id"`
	Identifier string           `json:"identifier,omitempty"` // rate-limit identifier of the caller
	Request    RecommendRequest `json:"request"`
	Text       string           `json:"text"`
	Movies     []Movie          `json:"movies"`
	Status     string           `json:"status"`
	ErrorType  string           `json:"error_type,omitempty"`
	ErrorMsg   string           `json:"error_message,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// NewRecommendationRecord creates a record with a fresh ID and timestamp.
func NewRecommendationRecord(identifier string, req RecommendRequest) *RecommendationRecord {
	return &RecommendationRecord{
		ID:         uuid.New().String(),
		Identifier: identifier,
		Request:    req,
		CreatedAt:  time.Now().UTC(),
	}
}

// Clone returns a deep copy sharing no slices with the receiver.
func (r *RecommendationRecord) Clone() *RecommendationRecord {
	cp := *r
	cp.Request = r.Request.Clone()
	if r.Movies != nil {
		cp.Movies = make([]Movie, len(r.Movies))
		for i, m := range r.Movies {
			cp.Movies[i] = m.Clone()
		}
	}
	return &cp
}

// Clone returns a deep copy sharing no slices with the receiver.
func (m Movie) Clone() Movie {
	m.Genres = cloneStrings(m.Genres)
	m.Platforms = cloneStrings(m.Platforms)
	return m
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
