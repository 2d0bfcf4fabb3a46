package ratelimit

import (
	"sync"
	"time"
)

// record holds one identifier's admission timestamps and last access time.
// Each record carries its own lock so identifiers never contend with each
// other and the background sweep never blocks an unrelated Check.
type record struct {
	mu         sync.Mutex
	timestamps []time.Time
	lastSeen   time.Time
}

// SlidingWindow is an in-memory sliding window rate limiter. Each unique
// identifier gets an ordered list of admission timestamps strictly newer than
// now minus the window; timestamps are pruned lazily on Check and by a
// background sweep that also evicts identifiers idle for longer than the
// window.
type SlidingWindow struct {
	maxRequests     int
	window          time.Duration
	cleanupInterval time.Duration
	now             func() time.Time

	mu      sync.RWMutex
	records map[string]*record

	done   chan struct{}
	closed sync.Once
}

// NewSlidingWindow creates a limiter admitting at most maxRequests per
// identifier within any window-length span. It starts a background goroutine
// that sweeps stale identifiers every cleanupInterval.
func NewSlidingWindow(maxRequests int, window, cleanupInterval time.Duration) *SlidingWindow {
	if cleanupInterval <= 0 {
		cleanupInterval = window
	}
	sw := &SlidingWindow{
		maxRequests:     maxRequests,
		window:          window,
		cleanupInterval: cleanupInterval,
		now:             time.Now,
		records:         make(map[string]*record),
		done:            make(chan struct{}),
	}
	go sw.sweep()
	return sw
}

// Check records an admission for the identifier and reports the window state.
func (sw *SlidingWindow) Check(identifier string) Result {
	now := sw.now()

	sw.mu.RLock()
	rec, exists := sw.records[identifier]
	sw.mu.RUnlock()

	if !exists {
		sw.mu.Lock()
		rec, exists = sw.records[identifier]
		if !exists {
			rec = &record{}
			sw.records[identifier] = rec
		}
		sw.mu.Unlock()
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	rec.lastSeen = now
	rec.timestamps = pruneBefore(rec.timestamps, now.Add(-sw.window))
	rec.timestamps = append(rec.timestamps, now)

	count := len(rec.timestamps)
	resetAt := rec.timestamps[0].Add(sw.window)
	remaining := resetAt.Sub(now)
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Limit:     sw.maxRequests,
		Count:     count,
		Limited:   count > sw.maxRequests,
		ResetAt:   resetAt,
		Remaining: remaining,
	}
}

// Reset clears one identifier immediately.
func (sw *SlidingWindow) Reset(identifier string) {
	sw.mu.Lock()
	delete(sw.records, identifier)
	sw.mu.Unlock()
}

// ResetAll clears every identifier immediately.
func (sw *SlidingWindow) ResetAll() {
	sw.mu.Lock()
	sw.records = make(map[string]*record)
	sw.mu.Unlock()
}

// Close stops the background sweep goroutine. Safe to call more than once.
func (sw *SlidingWindow) Close() {
	sw.closed.Do(func() {
		close(sw.done)
	})
}

// sweep periodically evicts identifiers with no admissions in the window and
// no activity for longer than the window, bounding memory for abandoned
// identifiers.
func (sw *SlidingWindow) sweep() {
	ticker := time.NewTicker(sw.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sw.done:
			return
		case <-ticker.C:
			sw.evictStale()
		}
	}
}

// evictStale removes identifiers whose timestamp lists are empty after
// pruning and whose last touch is older than the window. Candidates are
// gathered under per-record locks so concurrent Check calls on other
// identifiers proceed unhindered.
func (sw *SlidingWindow) evictStale() {
	now := sw.now()
	windowStart := now.Add(-sw.window)

	sw.mu.RLock()
	candidates := make([]string, 0, len(sw.records))
	for id := range sw.records {
		candidates = append(candidates, id)
	}
	sw.mu.RUnlock()

	for _, id := range candidates {
		sw.mu.RLock()
		rec, ok := sw.records[id]
		sw.mu.RUnlock()
		if !ok {
			continue
		}

		rec.mu.Lock()
		rec.timestamps = pruneBefore(rec.timestamps, windowStart)
		stale := len(rec.timestamps) == 0 && rec.lastSeen.Before(windowStart)
		rec.mu.Unlock()

		if !stale {
			continue
		}

		sw.mu.Lock()
		// Re-check under the write lock: a Check may have revived the record.
		if current, ok := sw.records[id]; ok && current == rec {
			rec.mu.Lock()
			if len(rec.timestamps) == 0 && rec.lastSeen.Before(windowStart) {
				delete(sw.records, id)
			}
			rec.mu.Unlock()
		}
		sw.mu.Unlock()
	}
}

// pruneBefore drops timestamps at or before cutoff, keeping only admissions
// strictly inside the window. An admission exactly one window ago has fully
// expired.
func pruneBefore(timestamps []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(timestamps) && !timestamps[idx].After(cutoff) {
		idx++
	}
	if idx == 0 {
		return timestamps
	}
	return append(timestamps[:0], timestamps[idx:]...)
}
