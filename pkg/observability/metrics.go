package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Payment attempt lifecycle metrics
	paymentAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_attempts_total",
		Help: "Total number of payment attempts by final state",
	}, []string{
		"state",  // settled, reversed, failed
		"reason", // gateway status or result code, "ok" for settled
	})

	paymentAmountRials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_amount_rials_total",
		Help: "Total settled payment amount in Rials (for revenue tracking)",
	}, []string{
		"state",
	})

	// Gateway call metrics
	gatewayCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_calls_total",
		Help: "Total number of SEP gateway calls",
	}, []string{
		"operation", // token, verify, reverse
		"outcome",   // ok, network_error, protocol_error, rejected
	})

	gatewayCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "gateway_call_duration_seconds",
		Help: "Duration of SEP gateway calls",
		// Buckets: 100ms to 30s (gateway timeout ceiling)
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{
		"operation",
	})

	// Reconciliation gap metrics: compensation failures and post-verification
	// storage failures leave money state unresolved and must page someone.
	reconciliationGapsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reconciliation_gaps_total",
		Help: "Conditions where gateway and merchant disagree about money state",
	}, []string{
		"kind", // compensation_failure, storage_error
	})
)

// RecordAttemptOutcome records a payment attempt reaching a terminal state.
func RecordAttemptOutcome(state, reason string, amount int64) {
	paymentAttemptsTotal.WithLabelValues(state, reason).Inc()
	paymentAmountRials.WithLabelValues(state).Add(float64(amount))
}

// RecordGatewayCall records one logical gateway call with its outcome.
func RecordGatewayCall(operation, outcome string, elapsed time.Duration) {
	gatewayCallsTotal.WithLabelValues(operation, outcome).Inc()
	gatewayCallDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// RecordReconciliationGap counts an unresolved money-state condition.
func RecordReconciliationGap(kind string) {
	reconciliationGapsTotal.WithLabelValues(kind).Inc()
}
