package retry

import (
	"context"
	"time"

	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/models"
)

// Attempt describes one failed invocation, passed to observer callbacks.
type Attempt struct {
	Number int // 0-based attempt number of the failed invocation
	Err    *models.AgentError
	Delay  time.Duration // Wait before the next attempt (zero on terminal failure)
}

// Executor repeatedly invokes a unit of work according to a Policy. Callbacks
// are a side channel for logging and metrics; they never affect control flow.
type Executor struct {
	Policy Policy

	// OnRetry is invoked after each failure that will be retried.
	OnRetry func(Attempt)

	// OnGiveUp is invoked once when a failure is terminal.
	OnGiveUp func(Attempt)

	// Sleep waits for the backoff delay, returning early with an error if the
	// context is cancelled. Tests inject a recording implementation; nil uses
	// a real timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewExecutor creates an executor with the given policy and real timers.
func NewExecutor(policy Policy) *Executor {
	return &Executor{Policy: policy}
}

// Run invokes op until it succeeds, the policy declines a retry, or the
// context is cancelled mid-backoff. Terminal failures are always returned as
// taxonomy-tagged errors; cancellation is returned as the context's error and
// is never routed through the error callbacks.
func (e *Executor) Run(ctx context.Context, op func(ctx context.Context) error) error {
	for attempt := 0; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if models.IsCancellation(err) {
			return err
		}

		classified := models.Classify(err)
		decision := e.Policy.Decide(err, attempt)
		if !decision.Retry {
			if e.OnGiveUp != nil {
				e.OnGiveUp(Attempt{Number: attempt, Err: classified})
			}
			return classified
		}

		if e.OnRetry != nil {
			e.OnRetry(Attempt{Number: attempt, Err: classified, Delay: decision.Delay})
		}
		if err := e.sleep(ctx, decision.Delay); err != nil {
			// Cancelled while suspended between attempts.
			return err
		}
	}
}

// Do invokes op through the executor and returns its value. The zero T is
// returned alongside any terminal error.
func Do[T any](ctx context.Context, e *Executor, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := e.Run(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

func (e *Executor) sleep(ctx context.Context, d time.Duration) error {
	if e.Sleep != nil {
		return e.Sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
