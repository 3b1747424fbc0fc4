package resilience

import (
	"context"
	"time"
)

// Retrier applies a bounded retry policy around an operation. MaxAttempts
// counts the first call, so MaxAttempts=3 means at most two retries. The
// ShouldRetry predicate decides whether a failure is transient; a nil
// predicate retries every error.
type Retrier struct {
	MaxAttempts int
	Backoff     BackoffStrategy
	ShouldRetry func(error) bool
}

// NewFixedRetrier returns a retrier with a fixed delay between attempts.
func NewFixedRetrier(maxAttempts int, delay time.Duration, shouldRetry func(error) bool) *Retrier {
	return &Retrier{
		MaxAttempts: maxAttempts,
		Backoff:     &FixedBackoff{Delay: delay},
		ShouldRetry: shouldRetry,
	}
}

// Do runs fn until it succeeds, fails with a non-retryable error, or the
// attempt budget is exhausted. The delay between attempts respects context
// cancellation. The last error is returned, never swallowed.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < r.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.Backoff.NextDelay(attempt - 1)):
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if r.ShouldRetry != nil && !r.ShouldRetry(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
