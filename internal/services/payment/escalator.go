package payment

import (
	"context"

	"go.uber.org/zap"

	"github.com/sepantapay/payment-service/internal/domain"
	"github.com/sepantapay/payment-service/internal/domain/ports"
	"github.com/sepantapay/payment-service/pkg/observability"
)

// LogEscalator surfaces reconciliation gaps through high-severity logs and a
// counter that operations alert on. Every escalated attempt needs a human to
// reconcile with gateway records.
type LogEscalator struct {
	logger *zap.Logger
}

// NewLogEscalator creates a new log-based escalator
func NewLogEscalator(logger *zap.Logger) *LogEscalator {
	return &LogEscalator{logger: logger}
}

// Escalate records the gap. It never fails: escalation is the last resort,
// not another fallible step.
func (e *LogEscalator) Escalate(ctx context.Context, attempt *domain.PaymentAttempt, cause error) {
	kind := "storage"
	if domain.IsDomainError(cause, domain.ErrorCodeCompensationFailure) {
		kind = "compensation"
	}
	observability.RecordReconciliationGap(kind)

	e.logger.Error("RECONCILIATION REQUIRED: payment attempt needs manual review",
		zap.String("reference_number", attempt.ReferenceNumber),
		zap.String("ref_num", attempt.RefNum),
		zap.String("state", string(attempt.State)),
		zap.Int64("amount", attempt.Amount),
		zap.String("kind", kind),
		zap.Error(cause),
	)
}

var _ ports.Escalator = (*LogEscalator)(nil)
