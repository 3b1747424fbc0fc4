package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sepantapay/payment-service/internal/domain/ports"
)

const (
	statusInProgress = "IN_PROGRESS"
	statusCompleted  = "COMPLETED"

	// In-progress marks expire quickly so a crashed worker cannot wedge a
	// reference number forever; completed marks outlive the gateway's own
	// duplicate-callback window.
	inProgressExpiry = 30 * time.Second
	completedExpiry  = 24 * time.Hour
)

// IdempotencyStore implements ports.IdempotencyStore on Redis using SETNX,
// so concurrent callbacks for the same reference number race atomically.
type IdempotencyStore struct {
	client *redis.Client
}

// NewIdempotencyStore creates a Redis-backed idempotency store
func NewIdempotencyStore(addr, password string, db int) *IdempotencyStore {
	return &IdempotencyStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

// Close releases the underlying client connections
func (s *IdempotencyStore) Close() error {
	return s.client.Close()
}

// Ping verifies connectivity at startup
func (s *IdempotencyStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func key(referenceNumber string) string {
	return fmt.Sprintf("attempt:%s", referenceNumber)
}

// AcquireCallback atomically marks the reference number as being processed.
// Returns false when a callback for the same reference is already in flight
// or has completed.
func (s *IdempotencyStore) AcquireCallback(ctx context.Context, referenceNumber string) (bool, error) {
	set, err := s.client.SetNX(ctx, key(referenceNumber), statusInProgress, inProgressExpiry).Result()
	if err != nil {
		return false, fmt.Errorf("redis SETNX: %w", err)
	}
	return set, nil
}

// ReleaseCallback clears the in-progress mark
func (s *IdempotencyStore) ReleaseCallback(ctx context.Context, referenceNumber string) error {
	if err := s.client.Del(ctx, key(referenceNumber)).Err(); err != nil {
		return fmt.Errorf("redis DEL: %w", err)
	}
	return nil
}

// MarkCompleted records that the reference reached a terminal state
func (s *IdempotencyStore) MarkCompleted(ctx context.Context, referenceNumber string) error {
	if err := s.client.Set(ctx, key(referenceNumber), statusCompleted, completedExpiry).Err(); err != nil {
		return fmt.Errorf("redis SET: %w", err)
	}
	return nil
}

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)
