package ports

import "context"

// IdempotencyStore guards callback processing so a replayed gateway callback
// short-circuits before the state machine re-verifies a terminal attempt.
type IdempotencyStore interface {
	// AcquireCallback marks the reference number as being processed.
	// Returns false when another callback for the same reference is in
	// flight or already completed.
	AcquireCallback(ctx context.Context, referenceNumber string) (bool, error)

	// ReleaseCallback clears the in-progress mark so a later callback can be
	// re-examined (the state machine still rejects terminal attempts).
	ReleaseCallback(ctx context.Context, referenceNumber string) error

	// MarkCompleted records that the reference reached a terminal state.
	MarkCompleted(ctx context.Context, referenceNumber string) error
}
