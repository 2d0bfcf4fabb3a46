package ratelimit

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/models"
)

// Observer is notified of each admission decision.
type Observer func(identifier string, limited bool)

// Middleware returns HTTP middleware that enforces the sliding window limit,
// keyed by the caller's network identifier. It always sets X-RateLimit-*
// headers; denied requests receive 429 with a Retry-After header rounded up
// to whole seconds. Observers are notified of every admission decision.
func Middleware(limiter Limiter, observers ...Observer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identifier := ClientIdentifier(r)

			result := limiter.Check(identifier)
			for _, observe := range observers {
				observe(identifier, result.Limited)
			}

			remaining := result.Limit - result.Count
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", result.Limit))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", result.ResetAt.Unix()))

			if result.Limited {
				retryAfterSecs := ceilSeconds(result.Remaining)
				w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfterSecs))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)

				errorResp := models.NewErrorResponse("Rate limit exceeded", models.ErrorTypeRateLimit)
				errorResp.RetryAfter = retryAfterSecs
				json.NewEncoder(w).Encode(errorResp)

				slog.Warn("Rate limit exceeded",
					"identifier", identifier,
					"count", result.Count,
					"retry_after", retryAfterSecs,
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIdentifier extracts the caller's identifier from the request headers
// in fixed precedence order: the first X-Forwarded-For entry, then X-Real-IP,
// then the CDN header CF-Connecting-IP, then a loopback fallback. These
// headers are trivially spoofable; trusting only a proxy-set header is a
// deployment concern, not handled here.
func ClientIdentifier(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 && strings.TrimSpace(ips[0]) != "" {
			return strings.TrimSpace(ips[0])
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	if cf := r.Header.Get("CF-Connecting-IP"); cf != "" {
		return cf
	}

	return "127.0.0.1"
}

// ceilSeconds rounds a duration up to whole seconds, never below zero.
func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
