package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sepantapay/payment-service/internal/domain"
	"github.com/sepantapay/payment-service/internal/domain/ports"
	"github.com/sepantapay/payment-service/pkg/observability"
	"github.com/sepantapay/payment-service/pkg/reference"
)

// Config holds the merchant-side constants for payment attempts
type Config struct {
	// TerminalID is the merchant credential registered with the gateway
	TerminalID string

	// CallbackURL is where the gateway redirects the payer after payment
	CallbackURL string

	// CellNumber is the optional payer cell number forwarded on token requests
	CellNumber string

	// ReferenceRetries bounds regeneration when a generated reference number
	// collides with a stored attempt
	ReferenceRetries int
}

// Service drives a payment attempt through its lifecycle. It exclusively
// owns state transitions; the gateway and repository only return data that
// the service folds in.
type Service struct {
	repo        ports.AttemptRepository
	gateway     ports.PaymentGateway
	idempotency ports.IdempotencyStore
	escalator   ports.Escalator
	logger      *zap.Logger
	config      Config
}

// NewService creates a new payment service
func NewService(
	repo ports.AttemptRepository,
	gateway ports.PaymentGateway,
	idempotency ports.IdempotencyStore,
	escalator ports.Escalator,
	logger *zap.Logger,
	config Config,
) *Service {
	if config.ReferenceRetries <= 0 {
		config.ReferenceRetries = 3
	}
	return &Service{
		repo:        repo,
		gateway:     gateway,
		idempotency: idempotency,
		escalator:   escalator,
		logger:      logger,
		config:      config,
	}
}

// InitiateResult is returned to the caller so the payer can be redirected
type InitiateResult struct {
	ReferenceNumber string `json:"reference_number"`
	Token           string `json:"token"`
	RedirectURL     string `json:"redirect_url"`
}

// InitiatePayment creates a payment attempt and obtains a one-time token
// from the gateway. The amount is fixed here and never changes afterwards.
func (s *Service) InitiatePayment(ctx context.Context, amount int64) (*InitiateResult, error) {
	if amount <= 0 {
		return nil, domain.ErrValidationAmountInvalid.WithDetail("amount", amount)
	}

	attempt, err := s.createAttempt(ctx, amount)
	if err != nil {
		return nil, err
	}

	tokenResp, err := s.gateway.RequestToken(ctx, &ports.TokenRequest{
		Amount:          attempt.Amount,
		ReferenceNumber: attempt.ReferenceNumber,
		TerminalID:      attempt.TerminalID,
		RedirectURL:     s.config.CallbackURL,
		CellNumber:      s.config.CellNumber,
	})
	if err != nil {
		s.failAttempt(ctx, attempt, string(domain.GetErrorCode(err)), "token_request")
		return nil, err
	}

	attempt.Token = tokenResp.Token
	if err := attempt.Transition(domain.StateTokenIssued); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, attempt); err != nil {
		return nil, err
	}

	s.logger.Info("payment attempt initiated",
		zap.String("reference_number", attempt.ReferenceNumber),
		zap.Int64("amount", attempt.Amount),
	)

	return &InitiateResult{
		ReferenceNumber: attempt.ReferenceNumber,
		Token:           attempt.Token,
		RedirectURL:     s.gateway.PaymentRedirectURL(attempt.Token),
	}, nil
}

// createAttempt persists a new attempt, regenerating the reference number on
// the rare collision with a stored one.
func (s *Service) createAttempt(ctx context.Context, amount int64) (*domain.PaymentAttempt, error) {
	for i := 0; i < s.config.ReferenceRetries; i++ {
		now := time.Now()
		attempt := &domain.PaymentAttempt{
			ID:              uuid.New().String(),
			ReferenceNumber: reference.Generate(),
			TerminalID:      s.config.TerminalID,
			Amount:          amount,
			State:           domain.StateCreated,
			CreatedAt:       now,
			UpdatedAt:       now,
		}

		err := s.repo.Create(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		if domain.IsDomainError(err, domain.ErrorCodeDuplicateReference) {
			s.logger.Warn("reference number collision, regenerating",
				zap.String("reference_number", attempt.ReferenceNumber))
			continue
		}
		return nil, err
	}
	return nil, domain.NewDomainError(domain.ErrorCodeStorageError,
		"could not allocate a unique reference number")
}

// CallbackResult reports the terminal outcome of callback processing
type CallbackResult struct {
	ReferenceNumber string
	State           domain.AttemptState

	// GatewayStatus is set when the outcome was decided by the callback
	// status code; ResultCode when decided by verification.
	GatewayStatus string
	ResultCode    *int
}

// HandleCallback validates the gateway callback and drives the attempt to a
// terminal state: settled, reversed, or failed. A callback for a terminal
// attempt is rejected without any gateway call.
func (s *Service) HandleCallback(ctx context.Context, cb *domain.GatewayCallback) (*CallbackResult, error) {
	attempt, err := s.repo.GetByReferenceNumber(ctx, cb.ResNum)
	if err != nil {
		return nil, err
	}

	// Idempotency boundary: terminal attempts are never re-verified or
	// re-settled.
	if attempt.IsTerminal() {
		return nil, domain.ErrAttemptAlreadyProcessed.
			WithDetail("reference_number", attempt.ReferenceNumber).
			WithDetail("state", string(attempt.State))
	}

	acquired, err := s.idempotency.AcquireCallback(ctx, attempt.ReferenceNumber)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeStorageError, "idempotency store", err)
	}
	if !acquired {
		return nil, domain.ErrCallbackDuplicate.
			WithDetail("reference_number", attempt.ReferenceNumber)
	}

	result, err := s.processCallback(ctx, attempt, cb)

	if attempt.IsTerminal() {
		if mErr := s.idempotency.MarkCompleted(ctx, attempt.ReferenceNumber); mErr != nil {
			s.logger.Warn("failed to mark attempt completed in idempotency store",
				zap.String("reference_number", attempt.ReferenceNumber),
				zap.Error(mErr))
		}
	} else {
		if rErr := s.idempotency.ReleaseCallback(ctx, attempt.ReferenceNumber); rErr != nil {
			s.logger.Warn("failed to release idempotency mark",
				zap.String("reference_number", attempt.ReferenceNumber),
				zap.Error(rErr))
		}
	}

	return result, err
}

func (s *Service) processCallback(ctx context.Context, attempt *domain.PaymentAttempt, cb *domain.GatewayCallback) (*CallbackResult, error) {
	// Anything other than a success status terminates the attempt without
	// touching the gateway.
	if !cb.Succeeded() {
		s.failAttempt(ctx, attempt, "status:"+cb.Status, "callback_status")
		return &CallbackResult{
			ReferenceNumber: attempt.ReferenceNumber,
			State:           attempt.State,
			GatewayStatus:   cb.Status,
		}, nil
	}

	if err := attempt.Transition(domain.StateCallbackReceived); err != nil {
		return nil, err
	}

	// A success callback with no gateway reference cannot be verified;
	// treat it as a duplicate/invalid notification.
	if cb.RefNum == "" {
		s.failAttempt(ctx, attempt, "callback:missing_ref_num", "missing_ref_num")
		return nil, domain.ErrCallbackInvalid.
			WithDetail("missing_field", "RefNum").
			WithDetail("reference_number", attempt.ReferenceNumber)
	}

	attempt.RefNum = cb.RefNum
	if err := s.repo.Update(ctx, attempt); err != nil {
		return nil, err
	}

	if err := attempt.Transition(domain.StateVerifying); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, attempt); err != nil {
		return nil, err
	}

	// The verified amounts are compared against the merchant's own recorded
	// amount, never anything echoed in the callback.
	verification, err := s.gateway.VerifyTransaction(ctx, attempt.RefNum, attempt.TerminalID)
	if err != nil {
		s.failAttempt(ctx, attempt, string(domain.GetErrorCode(err)), "verify")
		return nil, err
	}

	if !verification.Succeeded() {
		code := verification.ResultCode
		s.failAttempt(ctx, attempt, fmt.Sprintf("result:%d", code), "verify_rejected")
		return &CallbackResult{
			ReferenceNumber: attempt.ReferenceNumber,
			State:           attempt.State,
			ResultCode:      &code,
		}, nil
	}

	if verification.AmountMatches(attempt.Amount) {
		return s.settle(ctx, attempt)
	}

	return s.compensate(ctx, attempt, verification)
}

// settle commits a verified, amount-matched attempt
func (s *Service) settle(ctx context.Context, attempt *domain.PaymentAttempt) (*CallbackResult, error) {
	if err := attempt.Transition(domain.StateVerified); err != nil {
		return nil, err
	}
	if err := attempt.Transition(domain.StateSettled); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, attempt); err != nil {
		// Settled at the gateway but unconfirmed locally: a reconciliation
		// gap, never dropped silently.
		gap := domain.WrapError(domain.ErrorCodeStorageError,
			"verified transaction could not be persisted", err).
			WithDetail("reference_number", attempt.ReferenceNumber).
			WithDetail("ref_num", attempt.RefNum)
		s.escalator.Escalate(ctx, attempt, gap)
		return nil, gap
	}

	observability.RecordAttemptOutcome("settled", "ok", attempt.Amount)
	s.logger.Info("payment settled",
		zap.String("reference_number", attempt.ReferenceNumber),
		zap.String("ref_num", attempt.RefNum),
		zap.Int64("amount", attempt.Amount),
	)

	return &CallbackResult{
		ReferenceNumber: attempt.ReferenceNumber,
		State:           attempt.State,
	}, nil
}

// compensate reverses a transaction the gateway confirmed with amounts that
// disagree with the recorded charge.
func (s *Service) compensate(ctx context.Context, attempt *domain.PaymentAttempt, verification *domain.VerificationResult) (*CallbackResult, error) {
	s.logger.Warn("verified amount disagrees with recorded amount, reversing",
		zap.String("reference_number", attempt.ReferenceNumber),
		zap.String("ref_num", attempt.RefNum),
		zap.Int64("recorded_amount", attempt.Amount),
		zap.Int64("original_amount", verification.OriginalAmount),
		zap.Int64("effective_amount", verification.EffectiveAmount),
	)

	if err := attempt.Transition(domain.StateReversing); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, attempt); err != nil {
		s.logger.Error("failed to persist reversing state",
			zap.String("reference_number", attempt.ReferenceNumber),
			zap.Error(err))
	}

	if err := s.gateway.ReverseTransaction(ctx, attempt.RefNum, attempt.TerminalID); err != nil {
		// Money state is now ambiguous: the gateway holds a charge we can
		// neither settle nor undo.
		gap := domain.WrapError(domain.ErrorCodeCompensationFailure,
			"reversal failed after amount mismatch", err).
			WithDetail("reference_number", attempt.ReferenceNumber).
			WithDetail("ref_num", attempt.RefNum)
		s.escalator.Escalate(ctx, attempt, gap)
		s.failAttempt(ctx, attempt, "compensation_failure", "compensation_failure")
		return nil, gap
	}

	attempt.FailureCode = "amount_mismatch"
	if err := attempt.Transition(domain.StateReversed); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, attempt); err != nil {
		s.logger.Error("failed to persist reversed state",
			zap.String("reference_number", attempt.ReferenceNumber),
			zap.Error(err))
	}

	observability.RecordAttemptOutcome("reversed", "amount_mismatch", attempt.Amount)
	s.logger.Warn("payment reversed after amount mismatch",
		zap.String("reference_number", attempt.ReferenceNumber),
		zap.String("ref_num", attempt.RefNum),
	)

	return &CallbackResult{
		ReferenceNumber: attempt.ReferenceNumber,
		State:           attempt.State,
	}, nil
}

// failAttempt drives an attempt to Failed and records the failure context
// needed for manual reconciliation.
func (s *Service) failAttempt(ctx context.Context, attempt *domain.PaymentAttempt, failureCode, reason string) {
	attempt.FailureCode = failureCode
	if err := attempt.Transition(domain.StateFailed); err != nil {
		s.logger.Error("invalid transition to failed state",
			zap.String("reference_number", attempt.ReferenceNumber),
			zap.Error(err))
		return
	}
	if err := s.repo.Update(ctx, attempt); err != nil {
		s.logger.Error("failed to persist failed state",
			zap.String("reference_number", attempt.ReferenceNumber),
			zap.String("failure_code", failureCode),
			zap.Error(err))
	}

	observability.RecordAttemptOutcome("failed", reason, attempt.Amount)
	s.logger.Error("payment attempt failed",
		zap.String("reference_number", attempt.ReferenceNumber),
		zap.String("failure_code", failureCode),
	)
}
