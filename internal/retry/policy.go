// Package retry provides a pure backoff decision policy and an executor that
// drives repeated invocation of a failing unit of work. The policy never
// sleeps or mutates shared state, so backoff computation stays independently
// testable without real timers.
package retry

import (
	"time"

	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/models"
)

// Policy decides whether and when a failed operation should be re-attempted.
// The zero value retries nothing; use DefaultPolicy for sensible settings.
type Policy struct {
	// MaxRetries bounds the number of extra attempts after the first, so
	// MaxRetries=2 yields at most 3 total invocations.
	MaxRetries int

	// InitialDelay seeds the exponential backoff sequence.
	InitialDelay time.Duration

	// MaxDelay caps the backoff sequence.
	MaxDelay time.Duration

	// RetryIf overrides the default retryability check, which consults the
	// error taxonomy (only RATE_LIMIT_EXCEEDED and NETWORK_ERROR retry).
	// Used e.g. to force-retry a class normally considered terminal.
	RetryIf func(error) bool
}

// Decision is the outcome of consulting the policy for one failure.
type Decision struct {
	Retry bool
	Delay time.Duration
}

// DefaultPolicy returns the standard service policy: two extra attempts,
// 1s initial delay doubling to a 10s cap.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:   2,
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
	}
}

// Decide reports whether the attempt-numbered failure should be retried and
// how long to wait first. Attempt numbering starts at 0 for the first call.
// Decide is a pure function of (error classification, attempt count, policy).
func (p Policy) Decide(err error, attempt int) Decision {
	if attempt >= p.MaxRetries {
		return Decision{}
	}

	classified := models.Classify(err)

	retryable := false
	if p.RetryIf != nil {
		retryable = p.RetryIf(err)
	} else {
		retryable = classified.Type.Retryable()
	}
	if !retryable {
		return Decision{}
	}

	// A server-provided retry-after hint overrides the backoff sequence.
	if classified.Type == models.ErrorTypeRateLimit && classified.RetryAfter > 0 {
		return Decision{Retry: true, Delay: classified.RetryAfter}
	}

	return Decision{Retry: true, Delay: p.backoff(attempt)}
}

// backoff computes min(initial * 2^attempt, max), guarding against duration
// overflow on large attempt counts.
func (p Policy) backoff(attempt int) time.Duration {
	if p.InitialDelay <= 0 {
		return 0
	}
	// 2^63ns overflows time.Duration long before attempt 63.
	if attempt > 62 {
		return p.MaxDelay
	}
	delay := p.InitialDelay << uint(attempt)
	if delay <= 0 || (p.MaxDelay > 0 && delay > p.MaxDelay) {
		return p.MaxDelay
	}
	return delay
}
