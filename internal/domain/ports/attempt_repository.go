package ports

import (
	"context"

	"github.com/sepantapay/payment-service/internal/domain"
)

// AttemptRepository is the persistence collaborator for payment attempts.
// Attempts are keyed by merchant reference number; Create enforces
// reference-number uniqueness and fails with STORAGE_DUPLICATE_REFERENCE on
// collision.
type AttemptRepository interface {
	Create(ctx context.Context, attempt *domain.PaymentAttempt) error
	GetByReferenceNumber(ctx context.Context, referenceNumber string) (*domain.PaymentAttempt, error)
	Update(ctx context.Context, attempt *domain.PaymentAttempt) error
}
