package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Gateway transport and protocol errors (GATEWAY_*)
	ErrorCodeNetworkError    ErrorCode = "GATEWAY_NETWORK_ERROR"
	ErrorCodeProtocolError   ErrorCode = "GATEWAY_PROTOCOL_ERROR"
	ErrorCodeGatewayRejected ErrorCode = "GATEWAY_REJECTED"

	// Attempt lifecycle errors (ATTEMPT_*)
	ErrorCodeAttemptNotFound         ErrorCode = "ATTEMPT_NOT_FOUND"
	ErrorCodeAttemptInvalidState     ErrorCode = "ATTEMPT_INVALID_STATE"
	ErrorCodeAttemptAlreadyProcessed ErrorCode = "ATTEMPT_ALREADY_PROCESSED"
	ErrorCodeAmountMismatch          ErrorCode = "ATTEMPT_AMOUNT_MISMATCH"
	ErrorCodeCompensationFailure     ErrorCode = "ATTEMPT_COMPENSATION_FAILURE"

	// Callback validation errors (CALLBACK_*)
	ErrorCodeCallbackInvalid   ErrorCode = "CALLBACK_INVALID"
	ErrorCodeCallbackDuplicate ErrorCode = "CALLBACK_DUPLICATE"

	// Persistence errors (STORAGE_*)
	ErrorCodeStorageError       ErrorCode = "STORAGE_ERROR"
	ErrorCodeDuplicateReference ErrorCode = "STORAGE_DUPLICATE_REFERENCE"

	// Validation errors (VALIDATION_*)
	ErrorCodeValidationAmountInvalid ErrorCode = "VALIDATION_AMOUNT_INVALID"
	ErrorCodeValidationMissingField  ErrorCode = "VALIDATION_MISSING_FIELD"

	// Internal errors (INTERNAL_*)
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err     error
	Details map[string]interface{}
	Code    ErrorCode
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// WithDetail returns a copy of the error with the detail field added. The
// receiver is left untouched so the shared instances below stay immutable.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: details,
	}
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsTransientGatewayError reports whether a gateway call failed in a way that
// is safe to retry: transport failures and malformed responses. A well-formed
// rejection (GATEWAY_REJECTED) is definitive and must never be retried.
func IsTransientGatewayError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeNetworkError || code == ErrorCodeProtocolError
}

// IsReconciliationGap reports whether an error leaves the gateway and the
// merchant disagreeing about money state. These conditions are logged at high
// severity and routed to the escalation hook.
func IsReconciliationGap(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeCompensationFailure || code == ErrorCodeStorageError
}

// Structured error instances
var (
	ErrNetworkError    = NewDomainError(ErrorCodeNetworkError, "gateway transport failure")
	ErrProtocolError   = NewDomainError(ErrorCodeProtocolError, "malformed gateway response")
	ErrGatewayRejected = NewDomainError(ErrorCodeGatewayRejected, "request rejected by gateway")

	ErrAttemptNotFound         = NewDomainError(ErrorCodeAttemptNotFound, "payment attempt not found")
	ErrAttemptInvalidState     = NewDomainError(ErrorCodeAttemptInvalidState, "payment attempt is in invalid state for this operation")
	ErrAttemptAlreadyProcessed = NewDomainError(ErrorCodeAttemptAlreadyProcessed, "payment attempt already processed")
	ErrAmountMismatch          = NewDomainError(ErrorCodeAmountMismatch, "verified amount does not match recorded amount")
	ErrCompensationFailure     = NewDomainError(ErrorCodeCompensationFailure, "reversal of mismatched transaction failed")

	ErrCallbackInvalid   = NewDomainError(ErrorCodeCallbackInvalid, "malformed gateway callback")
	ErrCallbackDuplicate = NewDomainError(ErrorCodeCallbackDuplicate, "duplicate gateway callback")

	ErrStorageError       = NewDomainError(ErrorCodeStorageError, "persistence failed")
	ErrDuplicateReference = NewDomainError(ErrorCodeDuplicateReference, "reference number already exists")

	ErrValidationAmountInvalid = NewDomainError(ErrorCodeValidationAmountInvalid, "invalid amount")
	ErrValidationMissingField  = NewDomainError(ErrorCodeValidationMissingField, "required field missing")

	ErrInternalError = NewDomainError(ErrorCodeInternalError, "internal server error")
)
