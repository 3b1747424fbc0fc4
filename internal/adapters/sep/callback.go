package sep

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/sepantapay/payment-service/internal/domain"
)

// ParseCallbackForm builds a typed callback from form parameters. The payload
// is untrusted; only the fields the state machine needs are extracted, and a
// missing Status is rejected here rather than deep in business logic.
func ParseCallbackForm(values url.Values) (*domain.GatewayCallback, error) {
	cb := &domain.GatewayCallback{
		Status:         values.Get("Status"),
		ResNum:         values.Get("ResNum"),
		RefNum:         values.Get("RefNum"),
		TerminalNumber: values.Get("TerminalNumber"),
	}
	return validateCallback(cb)
}

// ParseCallbackRequest parses the gateway redirect request. SEP posts
// form-encoded parameters; JSON bodies are accepted for parity with the
// server-to-server interfaces.
func ParseCallbackRequest(r *http.Request) (*domain.GatewayCallback, error) {
	contentType := r.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(contentType)

	if mediaType == "application/json" {
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
		if err != nil {
			return nil, domain.WrapError(domain.ErrorCodeCallbackInvalid, "read callback body", err)
		}
		var cb domain.GatewayCallback
		if err := json.Unmarshal(body, &cb); err != nil {
			return nil, domain.WrapError(domain.ErrorCodeCallbackInvalid, "decode callback body", err)
		}
		return validateCallback(&cb)
	}

	if err := r.ParseForm(); err != nil {
		return nil, domain.WrapError(domain.ErrorCodeCallbackInvalid, "parse callback form", err)
	}
	return ParseCallbackForm(r.PostForm)
}

func validateCallback(cb *domain.GatewayCallback) (*domain.GatewayCallback, error) {
	if cb.Status == "" {
		return nil, domain.ErrCallbackInvalid.WithDetail("missing_field", "Status")
	}
	if cb.ResNum == "" {
		return nil, domain.ErrCallbackInvalid.WithDetail("missing_field", "ResNum")
	}
	return cb, nil
}
