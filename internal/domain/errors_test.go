package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sepantapay/payment-service/internal/domain"
)

func TestDomainErrorWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := domain.WrapError(domain.ErrorCodeNetworkError, "gateway unreachable", cause)

	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeNetworkError))
	assert.False(t, domain.IsDomainError(err, domain.ErrorCodeProtocolError))
	assert.Equal(t, domain.ErrorCodeNetworkError, domain.GetErrorCode(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "GATEWAY_NETWORK_ERROR")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestDomainErrorThroughFmtWrapping(t *testing.T) {
	err := fmt.Errorf("handling callback: %w", domain.ErrCallbackDuplicate)

	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeCallbackDuplicate))
	assert.Equal(t, domain.ErrorCodeCallbackDuplicate, domain.GetErrorCode(err))
}

func TestGetErrorCodeOnPlainError(t *testing.T) {
	assert.Equal(t, domain.ErrorCode(""), domain.GetErrorCode(errors.New("plain")))
	assert.False(t, domain.IsDomainError(errors.New("plain"), domain.ErrorCodeNetworkError))
	assert.False(t, domain.IsDomainError(nil, domain.ErrorCodeNetworkError))
}

func TestWithDetailDoesNotMutateShared(t *testing.T) {
	derived := domain.ErrAttemptNotFound.WithDetail("reference_number", "AB12CD34EF56")

	require.Equal(t, "AB12CD34EF56", derived.Details["reference_number"])
	_, leaked := domain.ErrAttemptNotFound.Details["reference_number"]
	assert.False(t, leaked, "shared error instances must stay immutable")

	// The copy keeps code and message.
	assert.True(t, domain.IsDomainError(derived, domain.ErrorCodeAttemptNotFound))
}

func TestIsTransientGatewayError(t *testing.T) {
	assert.True(t, domain.IsTransientGatewayError(domain.ErrNetworkError))
	assert.True(t, domain.IsTransientGatewayError(domain.ErrProtocolError))
	assert.False(t, domain.IsTransientGatewayError(domain.ErrGatewayRejected))
	assert.False(t, domain.IsTransientGatewayError(domain.ErrAmountMismatch))
	assert.False(t, domain.IsTransientGatewayError(errors.New("plain")))
	assert.False(t, domain.IsTransientGatewayError(nil))
}

func TestIsReconciliationGap(t *testing.T) {
	assert.True(t, domain.IsReconciliationGap(domain.ErrCompensationFailure))
	assert.True(t, domain.IsReconciliationGap(domain.ErrStorageError))
	assert.False(t, domain.IsReconciliationGap(domain.ErrNetworkError))
	assert.False(t, domain.IsReconciliationGap(domain.ErrGatewayRejected))
}
