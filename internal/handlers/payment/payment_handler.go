package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/sepantapay/payment-service/internal/adapters/sep"
	"github.com/sepantapay/payment-service/internal/domain"
	"github.com/sepantapay/payment-service/internal/services/payment"
)

// PaymentService defines the service operations the handler depends on
type PaymentService interface {
	InitiatePayment(ctx context.Context, amount int64) (*payment.InitiateResult, error)
	HandleCallback(ctx context.Context, cb *domain.GatewayCallback) (*payment.CallbackResult, error)
}

// Handler exposes payment initiation and the gateway callback endpoint
type Handler struct {
	service PaymentService
	logger  *zap.Logger
}

// NewHandler creates a new payment handler
func NewHandler(service PaymentService, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes attaches the handler's endpoints to the mux
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/payments/token", h.CreateToken)
	mux.HandleFunc("/api/v1/payments/callback", h.Callback)
}

type createTokenRequest struct {
	Amount int64 `json:"amount"`
}

// CreateToken starts a payment attempt and returns the token and redirect URL
// Endpoint: POST /api/v1/payments/token
func (h *Handler) CreateToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("token request with undecodable body", zap.Error(err))
		h.respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "request body must be JSON with an integer amount")
		return
	}

	result, err := h.service.InitiatePayment(r.Context(), req.Amount)
	if err != nil {
		h.logger.Error("payment initiation failed",
			zap.Int64("amount", req.Amount),
			zap.Error(err),
		)
		h.respondDomainError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, result)
}

type callbackResponse struct {
	ReferenceNumber string `json:"reference_number"`
	State           string `json:"state"`
	Message         string `json:"message"`
	Code            string `json:"code,omitempty"`
}

// Callback receives the payer redirect from the gateway and drives the
// attempt to its terminal state
// Endpoint: POST /api/v1/payments/callback
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cb, err := sep.ParseCallbackRequest(r)
	if err != nil {
		h.logger.Warn("malformed gateway callback", zap.Error(err))
		h.respondDomainError(w, err)
		return
	}

	result, err := h.service.HandleCallback(r.Context(), cb)
	if err != nil {
		h.logger.Error("callback processing failed",
			zap.String("res_num", cb.ResNum),
			zap.String("status", cb.Status),
			zap.Error(err),
		)
		h.respondDomainError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, h.callbackResponse(result))
}

// callbackResponse translates a terminal outcome into a payer-facing message
// using the gateway's code tables.
func (h *Handler) callbackResponse(result *payment.CallbackResult) callbackResponse {
	resp := callbackResponse{
		ReferenceNumber: result.ReferenceNumber,
		State:           string(result.State),
	}

	switch {
	case result.State == domain.StateSettled:
		resp.Message = "payment completed"
	case result.State == domain.StateReversed:
		resp.Message = "payment amount could not be confirmed and was refunded"
	case result.ResultCode != nil:
		info := sep.ClassifyResultCode(strconv.Itoa(*result.ResultCode))
		resp.Message = info.UserMessage
		resp.Code = info.Code
		h.logger.Warn("payment not verified",
			zap.String("reference_number", result.ReferenceNumber),
			zap.Error(info.ToPaymentError(info.Description)),
		)
	case result.GatewayStatus != "":
		info := sep.ClassifyCallbackStatus(result.GatewayStatus)
		resp.Message = info.UserMessage
		resp.Code = info.Code
		h.logger.Info("payment not completed",
			zap.String("reference_number", result.ReferenceNumber),
			zap.Error(info.ToPaymentError(info.Description)),
		)
	default:
		resp.Message = "payment failed"
	}
	return resp
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (h *Handler) respondError(w http.ResponseWriter, status int, code, message string) {
	h.respondJSON(w, status, errorResponse{Error: code, Message: message})
}

func (h *Handler) respondDomainError(w http.ResponseWriter, err error) {
	code := domain.GetErrorCode(err)
	status := statusForErrorCode(code)

	message := "payment processing failed"
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) && status < http.StatusInternalServerError {
		message = domainErr.Message
	}
	h.respondJSON(w, status, errorResponse{Error: string(code), Message: message})
}

func statusForErrorCode(code domain.ErrorCode) int {
	switch code {
	case domain.ErrorCodeValidationAmountInvalid,
		domain.ErrorCodeValidationMissingField,
		domain.ErrorCodeCallbackInvalid:
		return http.StatusBadRequest
	case domain.ErrorCodeAttemptNotFound:
		return http.StatusNotFound
	case domain.ErrorCodeAttemptAlreadyProcessed,
		domain.ErrorCodeCallbackDuplicate:
		return http.StatusConflict
	case domain.ErrorCodeGatewayRejected:
		return http.StatusUnprocessableEntity
	case domain.ErrorCodeNetworkError,
		domain.ErrorCodeProtocolError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}
