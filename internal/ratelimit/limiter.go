// Package ratelimit provides rate limiting for HTTP requests using a true
// sliding window algorithm: each identifier's admissions are counted over a
// continuously-moving time interval rather than fixed buckets that reset at
// period boundaries. It includes HTTP middleware that sets standard rate
// limit response headers.
package ratelimit

import "time"

// Limiter defines the admission control contract. Implementations must be
// safe for concurrent use and must never panic; identifiers that have never
// been seen are treated as having zero prior requests.
type Limiter interface {
	// Check records an admission attempt for the identifier and returns the
	// resulting window state. The attempt is always recorded, including when
	// the result is limited.
	Check(identifier string) Result

	// Reset clears all recorded state for one identifier.
	Reset(identifier string)

	// ResetAll clears all recorded state for every identifier.
	ResetAll()

	// Close stops background goroutines and releases resources.
	Close()
}

// Result contains the window state after a Check call.
type Result struct {
	Limit     int           // Configured maximum admissions per window
	Count     int           // Admissions within the window, including this one
	Limited   bool          // Whether this admission exceeded the threshold
	ResetAt   time.Time     // When the oldest surviving admission leaves the window
	Remaining time.Duration // Time until ResetAt (zero if already passed)
}
