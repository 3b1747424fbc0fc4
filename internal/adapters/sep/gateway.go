package sep

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	adapterports "github.com/sepantapay/payment-service/internal/adapters/ports"
	"github.com/sepantapay/payment-service/internal/domain"
	domainports "github.com/sepantapay/payment-service/internal/domain/ports"
	"github.com/sepantapay/payment-service/pkg/observability"
	"github.com/sepantapay/payment-service/pkg/resilience"
)

const (
	tokenPath    = "/onlinepg/onlinepg"
	verifyPath   = "/verifyTxnRandomSessionkey/ipg/VerifyTransaction"
	reversePath  = "/verifyTxnRandomSessionkey/ipg/ReverseTransaction"
	redirectPath = "/OnlinePG/SendToken"
)

// Config contains configuration for the SEP gateway adapter
type Config struct {
	// Base URL of the SEP internet payment gateway
	// Production: https://sep.shaparak.ir
	BaseURL string

	// HTTP client timeout
	Timeout time.Duration

	// Retry policy for verify/reverse. Token requests are never retried.
	VerifyMaxAttempts int
	VerifyRetryDelay  time.Duration
}

// DefaultConfig returns default configuration for the SEP gateway adapter
func DefaultConfig() *Config {
	return &Config{
		BaseURL:           "https://sep.shaparak.ir",
		Timeout:           30 * time.Second,
		VerifyMaxAttempts: 3,
		VerifyRetryDelay:  5 * time.Second,
	}
}

// gatewayAdapter implements the PaymentGateway port against SEP
type gatewayAdapter struct {
	config     *Config
	httpClient adapterports.HTTPClient
	logger     *zap.Logger
	breaker    *gobreaker.CircuitBreaker
	retrier    *resilience.Retrier
}

// NewGateway creates a new SEP gateway adapter. Verify and reverse calls are
// retried on transient failures only; a well-formed rejection is definitive.
func NewGateway(config *Config, httpClient adapterports.HTTPClient, logger *zap.Logger) domainports.PaymentGateway {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "sep-gateway",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &gatewayAdapter{
		config:     config,
		httpClient: httpClient,
		logger:     logger,
		breaker:    breaker,
		retrier: resilience.NewFixedRetrier(
			config.VerifyMaxAttempts,
			config.VerifyRetryDelay,
			domain.IsTransientGatewayError,
		),
	}
}

// tokenRequestPayload is the outbound token request wire format
type tokenRequestPayload struct {
	Action      string `json:"action"`
	TerminalID  string `json:"TerminalId"`
	Amount      int64  `json:"Amount"`
	ResNum      string `json:"ResNum"`
	RedirectURL string `json:"RedirectUrl"`
	CellNumber  string `json:"CellNumber,omitempty"`
}

type tokenResponsePayload struct {
	Status    *int   `json:"status"`
	Token     string `json:"token"`
	ErrorDesc string `json:"errorDesc"`
}

// RequestToken obtains a one-time payment token from SEP. Not retried: a
// rejected token request is not transient.
func (a *gatewayAdapter) RequestToken(ctx context.Context, req *domainports.TokenRequest) (*domainports.TokenResponse, error) {
	if err := validateTokenRequest(req); err != nil {
		return nil, err
	}

	a.logger.Info("Requesting payment token",
		zap.String("reference_number", req.ReferenceNumber),
		zap.Int64("amount", req.Amount),
	)

	payload := tokenRequestPayload{
		Action:      "token",
		TerminalID:  req.TerminalID,
		Amount:      req.Amount,
		ResNum:      req.ReferenceNumber,
		RedirectURL: req.RedirectURL,
		CellNumber:  req.CellNumber,
	}

	var resp tokenResponsePayload
	if err := a.postJSON(ctx, "token", a.config.BaseURL+tokenPath, payload, &resp); err != nil {
		return nil, err
	}

	if resp.Status == nil {
		return nil, domain.NewDomainError(domain.ErrorCodeProtocolError, "token response missing status").
			WithDetail("reference_number", req.ReferenceNumber)
	}

	if *resp.Status != 1 {
		a.logger.Warn("Token request rejected by gateway",
			zap.String("reference_number", req.ReferenceNumber),
			zap.Int("status", *resp.Status),
			zap.String("error_desc", resp.ErrorDesc),
		)
		return nil, domain.NewDomainError(domain.ErrorCodeGatewayRejected, resp.ErrorDesc).
			WithDetail("status", *resp.Status).
			WithDetail("reference_number", req.ReferenceNumber)
	}

	if resp.Token == "" {
		return nil, domain.NewDomainError(domain.ErrorCodeProtocolError, "token response missing token").
			WithDetail("reference_number", req.ReferenceNumber)
	}

	a.logger.Info("Received payment token",
		zap.String("reference_number", req.ReferenceNumber),
	)

	return &domainports.TokenResponse{Token: resp.Token}, nil
}

// PaymentRedirectURL builds the URL the payer is redirected to with the token
func (a *gatewayAdapter) PaymentRedirectURL(token string) string {
	return a.config.BaseURL + redirectPath + "?token=" + url.QueryEscape(token)
}

// serverToServerPayload is the shared wire format for verify and reverse
type serverToServerPayload struct {
	RefNum         string `json:"RefNum"`
	TerminalNumber string `json:"TerminalNumber"`
}

type verifyResponsePayload struct {
	ResultCode        flexInt `json:"ResultCode"`
	TransactionDetail *struct {
		// SEP's actual field spellings on the wire
		OriginalAmount  flexInt `json:"OrginalAmount"`
		EffectiveAmount flexInt `json:"AffectiveAmount"`
	} `json:"TransactionDetail"`
}

// VerifyTransaction confirms a transaction's outcome and amounts with SEP.
// Transient failures are retried per the configured policy; a well-formed
// non-zero result code is returned as a result, not an error, and is never
// retried.
func (a *gatewayAdapter) VerifyTransaction(ctx context.Context, refNum, terminalNumber string) (*domain.VerificationResult, error) {
	if refNum == "" {
		return nil, domain.ErrValidationMissingField.WithDetail("field", "RefNum")
	}

	var result *domain.VerificationResult
	err := a.retrier.Do(ctx, func(ctx context.Context) error {
		r, err := a.verifyOnce(ctx, refNum, terminalNumber)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (a *gatewayAdapter) verifyOnce(ctx context.Context, refNum, terminalNumber string) (*domain.VerificationResult, error) {
	var resp verifyResponsePayload
	payload := serverToServerPayload{RefNum: refNum, TerminalNumber: terminalNumber}
	if err := a.postJSON(ctx, "verify", a.config.BaseURL+verifyPath, payload, &resp); err != nil {
		return nil, err
	}

	if !resp.ResultCode.set {
		return nil, domain.NewDomainError(domain.ErrorCodeProtocolError, "verify response missing ResultCode").
			WithDetail("ref_num", refNum)
	}

	if resp.ResultCode.value != 0 {
		a.logger.Warn("Verify returned non-zero result code",
			zap.String("ref_num", refNum),
			zap.Int("result_code", resp.ResultCode.value),
		)
		return &domain.VerificationResult{ResultCode: resp.ResultCode.value}, nil
	}

	if resp.TransactionDetail == nil ||
		!resp.TransactionDetail.OriginalAmount.set ||
		!resp.TransactionDetail.EffectiveAmount.set {
		return nil, domain.NewDomainError(domain.ErrorCodeProtocolError, "verify response missing transaction detail").
			WithDetail("ref_num", refNum)
	}

	return &domain.VerificationResult{
		ResultCode:      0,
		OriginalAmount:  int64(resp.TransactionDetail.OriginalAmount.value),
		EffectiveAmount: int64(resp.TransactionDetail.EffectiveAmount.value),
	}, nil
}

type reverseResponsePayload struct {
	ResultCode flexInt `json:"ResultCode"`
}

// ReverseTransaction cancels a transaction the merchant will not settle.
// Same retry policy as verify.
func (a *gatewayAdapter) ReverseTransaction(ctx context.Context, refNum, terminalNumber string) error {
	if refNum == "" {
		return domain.ErrValidationMissingField.WithDetail("field", "RefNum")
	}

	return a.retrier.Do(ctx, func(ctx context.Context) error {
		var resp reverseResponsePayload
		payload := serverToServerPayload{RefNum: refNum, TerminalNumber: terminalNumber}
		if err := a.postJSON(ctx, "reverse", a.config.BaseURL+reversePath, payload, &resp); err != nil {
			return err
		}

		if !resp.ResultCode.set {
			return domain.NewDomainError(domain.ErrorCodeProtocolError, "reverse response missing ResultCode").
				WithDetail("ref_num", refNum)
		}

		if resp.ResultCode.value != 0 {
			a.logger.Warn("Reverse rejected by gateway",
				zap.String("ref_num", refNum),
				zap.Int("result_code", resp.ResultCode.value),
			)
			return domain.NewDomainError(domain.ErrorCodeGatewayRejected, "reverse rejected").
				WithDetail("result_code", resp.ResultCode.value).
				WithDetail("ref_num", refNum)
		}

		a.logger.Info("Transaction reversed", zap.String("ref_num", refNum))
		return nil
	})
}

// postJSON performs one outbound gateway call: marshal, send, check status,
// decode. Transport failures and non-2xx responses surface as
// GATEWAY_NETWORK_ERROR; undecodable bodies as GATEWAY_PROTOCOL_ERROR.
func (a *gatewayAdapter) postJSON(ctx context.Context, operation, endpoint string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeInternalError, "marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.WrapError(domain.ErrorCodeInternalError, "build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	startTime := time.Now()
	respBody, err := a.breaker.Execute(func() (interface{}, error) {
		httpResp, err := a.httpClient.Do(httpReq)
		if err != nil {
			return nil, domain.WrapError(domain.ErrorCodeNetworkError, "send request", err)
		}
		defer httpResp.Body.Close()

		data, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return nil, domain.WrapError(domain.ErrorCodeNetworkError, "read response", err)
		}

		if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
			return nil, domain.NewDomainError(domain.ErrorCodeNetworkError,
				fmt.Sprintf("gateway returned HTTP %d", httpResp.StatusCode))
		}
		return data, nil
	})
	elapsed := time.Since(startTime)

	if err != nil {
		// An open breaker is a transport-level condition: the gateway is
		// unreachable from our perspective.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = domain.WrapError(domain.ErrorCodeNetworkError, "circuit breaker open", err)
		}
		observability.RecordGatewayCall(operation, outcomeLabel(err), elapsed)
		a.logger.Error("Gateway call failed",
			zap.String("operation", operation),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return err
	}

	if err := json.Unmarshal(respBody.([]byte), out); err != nil {
		perr := domain.WrapError(domain.ErrorCodeProtocolError, "decode response", err)
		observability.RecordGatewayCall(operation, outcomeLabel(perr), elapsed)
		a.logger.Error("Gateway response not well-formed",
			zap.String("operation", operation),
			zap.Error(err),
		)
		return perr
	}

	observability.RecordGatewayCall(operation, "ok", elapsed)
	return nil
}

func outcomeLabel(err error) string {
	switch domain.GetErrorCode(err) {
	case domain.ErrorCodeNetworkError:
		return "network_error"
	case domain.ErrorCodeProtocolError:
		return "protocol_error"
	case domain.ErrorCodeGatewayRejected:
		return "rejected"
	default:
		return "error"
	}
}

func validateTokenRequest(req *domainports.TokenRequest) error {
	if req.Amount <= 0 {
		return domain.ErrValidationAmountInvalid.WithDetail("amount", req.Amount)
	}
	if req.ReferenceNumber == "" {
		return domain.ErrValidationMissingField.WithDetail("field", "ResNum")
	}
	if req.TerminalID == "" {
		return domain.ErrValidationMissingField.WithDetail("field", "TerminalId")
	}
	if req.RedirectURL == "" {
		return domain.ErrValidationMissingField.WithDetail("field", "RedirectUrl")
	}
	return nil
}

// flexInt decodes a JSON number that SEP sometimes serializes as a string
type flexInt struct {
	value int
	set   bool
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	f.value = n
	f.set = true
	return nil
}
