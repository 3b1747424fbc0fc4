package ports

import (
	"context"

	"github.com/sepantapay/payment-service/internal/domain"
)

// Escalator receives conditions that leave money state unresolved between
// merchant and gateway: a failed reversal, or a verified transaction that
// could not be persisted. Implementations page, alert or queue for manual
// reconciliation; the default logs at error level and counts the event.
type Escalator interface {
	Escalate(ctx context.Context, attempt *domain.PaymentAttempt, cause error)
}
