package errors

import (
	"fmt"
)

// ErrorCategory represents the category of a classified gateway outcome
type ErrorCategory string

const (
	CategorySuccess        ErrorCategory = "success"
	CategoryUserCancelled  ErrorCategory = "user_cancelled"
	CategoryUserTimeout    ErrorCategory = "user_timeout"
	CategoryPaymentFailed  ErrorCategory = "payment_failed"
	CategoryInvalidRequest ErrorCategory = "invalid_request"
	CategoryNotFound       ErrorCategory = "not_found"
	CategoryTerminalConfig ErrorCategory = "terminal_config"
	CategoryDuplicate      ErrorCategory = "duplicate"
	CategoryExpired        ErrorCategory = "expired"
	CategoryUnknown        ErrorCategory = "unknown"
)

// PaymentError represents a classified payment outcome with detailed context
type PaymentError struct {
	Code           string
	Message        string
	GatewayMessage string
	Category       ErrorCategory
	Details        map[string]interface{}
}

func (e *PaymentError) Error() string {
	if e.GatewayMessage != "" {
		return fmt.Sprintf("%s: %s (gateway: %s)", e.Code, e.Message, e.GatewayMessage)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
