package ports

import (
	"context"

	"github.com/sepantapay/payment-service/internal/domain"
)

// TokenRequest carries the typed fields for a token request. Payloads are
// always built from these fields, never from caller-supplied maps.
type TokenRequest struct {
	Amount          int64
	ReferenceNumber string
	TerminalID      string
	RedirectURL     string
	CellNumber      string
}

// TokenResponse is the gateway's answer to a successful token request.
type TokenResponse struct {
	Token string
}

// PaymentGateway is the client-side contract for the three remote gateway
// operations. All three perform exactly one logical charge-adjacent network
// call per logical attempt; retry of verify/reverse is the caller's policy,
// applied through a resilience.Retrier.
//
// Errors are classified as GATEWAY_NETWORK_ERROR (transport failure or
// non-2xx), GATEWAY_PROTOCOL_ERROR (response not well-formed or missing a
// required field) or GATEWAY_REJECTED (well-formed business rejection).
type PaymentGateway interface {
	// RequestToken obtains a one-time payment token. A rejection is not
	// transient and is never retried.
	RequestToken(ctx context.Context, req *TokenRequest) (*TokenResponse, error)

	// VerifyTransaction is the authoritative server-to-server confirmation
	// of a transaction's outcome and amounts.
	VerifyTransaction(ctx context.Context, refNum, terminalNumber string) (*domain.VerificationResult, error)

	// ReverseTransaction cancels a transaction the merchant will not accept
	// as settled. A non-zero result code is returned as GATEWAY_REJECTED.
	ReverseTransaction(ctx context.Context, refNum, terminalNumber string) error

	// PaymentRedirectURL builds the gateway URL the payer is sent to with a
	// freshly issued token. No network call.
	PaymentRedirectURL(token string) string
}
