package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sepantapay/payment-service/internal/domain"
	"github.com/sepantapay/payment-service/internal/services/payment"
)

type mockPaymentService struct {
	mock.Mock
}

func (m *mockPaymentService) InitiatePayment(ctx context.Context, amount int64) (*payment.InitiateResult, error) {
	args := m.Called(ctx, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.InitiateResult), args.Error(1)
}

func (m *mockPaymentService) HandleCallback(ctx context.Context, cb *domain.GatewayCallback) (*payment.CallbackResult, error) {
	args := m.Called(ctx, cb)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.CallbackResult), args.Error(1)
}

func newTestHandler(t *testing.T) (*Handler, *mockPaymentService) {
	t.Helper()
	svc := &mockPaymentService{}
	return NewHandler(svc, zaptest.NewLogger(t)), svc
}

func TestCreateToken(t *testing.T) {
	t.Run("returns token and redirect URL", func(t *testing.T) {
		h, svc := newTestHandler(t)
		svc.On("InitiatePayment", mock.Anything, int64(150000)).Return(&payment.InitiateResult{
			ReferenceNumber: "AB12CD34EF56",
			Token:           "tok-abc",
			RedirectURL:     "https://sep.shaparak.ir/OnlinePG/SendToken?token=tok-abc",
		}, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/token",
			strings.NewReader(`{"amount":150000}`))
		rec := httptest.NewRecorder()
		h.CreateToken(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var body payment.InitiateResult
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "AB12CD34EF56", body.ReferenceNumber)
		assert.Equal(t, "tok-abc", body.Token)
		assert.Contains(t, body.RedirectURL, "token=tok-abc")
	})

	t.Run("rejects non-POST", func(t *testing.T) {
		h, _ := newTestHandler(t)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/token", nil)
		rec := httptest.NewRecorder()
		h.CreateToken(rec, req)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		h, svc := newTestHandler(t)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/token",
			strings.NewReader(`{"amount":`))
		rec := httptest.NewRecorder()
		h.CreateToken(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "InitiatePayment", mock.Anything, mock.Anything)
	})

	t.Run("maps validation errors to 400", func(t *testing.T) {
		h, svc := newTestHandler(t)
		svc.On("InitiatePayment", mock.Anything, int64(-5)).
			Return(nil, domain.ErrValidationAmountInvalid)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/token",
			strings.NewReader(`{"amount":-5}`))
		rec := httptest.NewRecorder()
		h.CreateToken(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("maps gateway rejection to 422", func(t *testing.T) {
		h, svc := newTestHandler(t)
		svc.On("InitiatePayment", mock.Anything, int64(150000)).
			Return(nil, domain.ErrGatewayRejected)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/token",
			strings.NewReader(`{"amount":150000}`))
		rec := httptest.NewRecorder()
		h.CreateToken(rec, req)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("maps transport failures to 502", func(t *testing.T) {
		h, svc := newTestHandler(t)
		svc.On("InitiatePayment", mock.Anything, int64(150000)).
			Return(nil, domain.ErrNetworkError)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/token",
			strings.NewReader(`{"amount":150000}`))
		rec := httptest.NewRecorder()
		h.CreateToken(rec, req)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func postCallbackForm(h *Handler, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback",
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.Callback(rec, req)
	return rec
}

func TestCallback(t *testing.T) {
	form := url.Values{
		"Status":         {"2"},
		"ResNum":         {"AB12CD34EF56"},
		"RefNum":         {"gw-ref-001"},
		"TerminalNumber": {"12345678"},
	}

	t.Run("settled payment responds 200", func(t *testing.T) {
		h, svc := newTestHandler(t)
		svc.On("HandleCallback", mock.Anything, mock.MatchedBy(func(cb *domain.GatewayCallback) bool {
			return cb.ResNum == "AB12CD34EF56" && cb.RefNum == "gw-ref-001" && cb.Status == "2"
		})).Return(&payment.CallbackResult{
			ReferenceNumber: "AB12CD34EF56",
			State:           domain.StateSettled,
		}, nil)

		rec := postCallbackForm(h, form)

		require.Equal(t, http.StatusOK, rec.Code)
		var body callbackResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, string(domain.StateSettled), body.State)
		assert.Equal(t, "payment completed", body.Message)
	})

	t.Run("cancelled payment carries the classified message", func(t *testing.T) {
		h, svc := newTestHandler(t)
		svc.On("HandleCallback", mock.Anything, mock.Anything).Return(&payment.CallbackResult{
			ReferenceNumber: "AB12CD34EF56",
			State:           domain.StateFailed,
			GatewayStatus:   "1",
		}, nil)

		cancelled := url.Values{
			"Status": {"1"},
			"ResNum": {"AB12CD34EF56"},
		}
		rec := postCallbackForm(h, cancelled)

		require.Equal(t, http.StatusOK, rec.Code)
		var body callbackResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, string(domain.StateFailed), body.State)
		assert.Equal(t, "1", body.Code)
		assert.Equal(t, "You cancelled the payment.", body.Message)
	})

	t.Run("verify rejection carries the classified result code", func(t *testing.T) {
		h, svc := newTestHandler(t)
		code := -6
		svc.On("HandleCallback", mock.Anything, mock.Anything).Return(&payment.CallbackResult{
			ReferenceNumber: "AB12CD34EF56",
			State:           domain.StateFailed,
			ResultCode:      &code,
		}, nil)

		rec := postCallbackForm(h, form)

		require.Equal(t, http.StatusOK, rec.Code)
		var body callbackResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "-6", body.Code)
		assert.Equal(t, "The confirmation window for this transaction has passed.", body.Message)
	})

	t.Run("reversed payment reports the refund", func(t *testing.T) {
		h, svc := newTestHandler(t)
		svc.On("HandleCallback", mock.Anything, mock.Anything).Return(&payment.CallbackResult{
			ReferenceNumber: "AB12CD34EF56",
			State:           domain.StateReversed,
		}, nil)

		rec := postCallbackForm(h, form)

		require.Equal(t, http.StatusOK, rec.Code)
		var body callbackResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, string(domain.StateReversed), body.State)
		assert.Contains(t, body.Message, "refunded")
	})

	t.Run("missing required fields respond 400 without a service call", func(t *testing.T) {
		h, svc := newTestHandler(t)
		rec := postCallbackForm(h, url.Values{"RefNum": {"gw-ref-001"}})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "HandleCallback", mock.Anything, mock.Anything)
	})

	t.Run("replayed callback responds 409", func(t *testing.T) {
		h, svc := newTestHandler(t)
		svc.On("HandleCallback", mock.Anything, mock.Anything).
			Return(nil, domain.ErrAttemptAlreadyProcessed)

		rec := postCallbackForm(h, form)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("unknown reference responds 404", func(t *testing.T) {
		h, svc := newTestHandler(t)
		svc.On("HandleCallback", mock.Anything, mock.Anything).
			Return(nil, domain.ErrAttemptNotFound)

		rec := postCallbackForm(h, form)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("reconciliation gaps respond 500 with an opaque message", func(t *testing.T) {
		h, svc := newTestHandler(t)
		svc.On("HandleCallback", mock.Anything, mock.Anything).
			Return(nil, domain.ErrCompensationFailure)

		rec := postCallbackForm(h, form)

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		var body errorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "payment processing failed", body.Message)
	})
}
