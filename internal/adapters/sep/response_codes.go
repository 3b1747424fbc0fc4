package sep

import (
	pkgerrors "github.com/sepantapay/payment-service/pkg/errors"
)

// ResponseCodeInfo contains detailed information about a gateway code
type ResponseCodeInfo struct {
	Code        string
	Display     string
	Description string
	IsSuccess   bool
	Category    pkgerrors.ErrorCategory
	UserMessage string
}

// Callback status codes sent by SEP on the browser redirect
var callbackStatusCodes = map[string]ResponseCodeInfo{
	"1": {
		Code:        "1",
		Display:     "USER CANCELLED",
		Description: "Payer cancelled the payment",
		Category:    pkgerrors.CategoryUserCancelled,
		UserMessage: "You cancelled the payment.",
	},
	"2": {
		Code:        "2",
		Display:     "SUCCESS",
		Description: "Payment completed successfully",
		IsSuccess:   true,
		Category:    pkgerrors.CategorySuccess,
		UserMessage: "Payment completed successfully.",
	},
	"3": {
		Code:        "3",
		Display:     "FAILED",
		Description: "Payment was not completed",
		Category:    pkgerrors.CategoryPaymentFailed,
		UserMessage: "Payment failed. You have not been charged.",
	},
	"4": {
		Code:        "4",
		Display:     "USER TIMEOUT",
		Description: "Payer did not respond within the allowed window",
		Category:    pkgerrors.CategoryUserTimeout,
		UserMessage: "The payment session timed out. Please try again.",
	},
	"5": {
		Code:        "5",
		Display:     "INVALID PARAMETERS",
		Description: "Submitted parameters are invalid",
		Category:    pkgerrors.CategoryInvalidRequest,
		UserMessage: "Invalid payment parameters. Please contact support.",
	},
	"8": {
		Code:        "8",
		Display:     "INVALID ACCEPTOR ADDRESS",
		Description: "Acceptor server address is invalid",
		Category:    pkgerrors.CategoryInvalidRequest,
		UserMessage: "Merchant configuration error. Please contact support.",
	},
	"10": {
		Code:        "10",
		Display:     "TOKEN NOT FOUND",
		Description: "Submitted token was not found",
		Category:    pkgerrors.CategoryNotFound,
		UserMessage: "Payment token not found. Please restart the payment.",
	},
	"11": {
		Code:        "11",
		Display:     "TOKEN ONLY TERMINAL",
		Description: "Terminal only supports tokenized transactions",
		Category:    pkgerrors.CategoryTerminalConfig,
		UserMessage: "This terminal only accepts tokenized payments.",
	},
	"12": {
		Code:        "12",
		Display:     "TERMINAL NOT FOUND",
		Description: "Submitted terminal number was not found",
		Category:    pkgerrors.CategoryTerminalConfig,
		UserMessage: "Merchant terminal not found. Please contact support.",
	},
}

// Verify and reverse result codes; 0 is success
var resultCodes = map[string]ResponseCodeInfo{
	"0": {
		Code:        "0",
		Display:     "SUCCESS",
		Description: "Operation succeeded",
		IsSuccess:   true,
		Category:    pkgerrors.CategorySuccess,
		UserMessage: "Transaction confirmed.",
	},
	"-2": {
		Code:        "-2",
		Display:     "TXN NOT FOUND",
		Description: "Transaction not found",
		Category:    pkgerrors.CategoryNotFound,
		UserMessage: "Transaction not found.",
	},
	"-6": {
		Code:        "-6",
		Display:     "EXPIRED",
		Description: "More than 30 minutes have passed since the transaction",
		Category:    pkgerrors.CategoryExpired,
		UserMessage: "The confirmation window for this transaction has passed.",
	},
	"2": {
		Code:        "2",
		Display:     "DUPLICATE REQUEST",
		Description: "Request is a duplicate",
		Category:    pkgerrors.CategoryDuplicate,
		UserMessage: "This transaction has already been processed.",
	},
	"-105": {
		Code:        "-105",
		Display:     "TERMINAL NOT PROVISIONED",
		Description: "Terminal does not exist in the system",
		Category:    pkgerrors.CategoryTerminalConfig,
		UserMessage: "Merchant terminal is not provisioned. Please contact support.",
	},
	"-104": {
		Code:        "-104",
		Display:     "TERMINAL INACTIVE",
		Description: "Terminal is inactive",
		Category:    pkgerrors.CategoryTerminalConfig,
		UserMessage: "Merchant terminal is inactive. Please contact support.",
	},
	"-106": {
		Code:        "-106",
		Display:     "IP NOT AUTHORIZED",
		Description: "Requesting IP address is not authorized",
		Category:    pkgerrors.CategoryInvalidRequest,
		UserMessage: "Merchant server is not authorized. Please contact support.",
	},
}

// unknownCode is the total-mapping default for out-of-table values
func unknownCode(code string) ResponseCodeInfo {
	return ResponseCodeInfo{
		Code:        code,
		Display:     "UNKNOWN",
		Description: "Unknown response code",
		Category:    pkgerrors.CategoryUnknown,
		UserMessage: "An unknown error occurred. Please contact support.",
	}
}

// ClassifyCallbackStatus retrieves outcome information for a callback status
// code. Defined for every input; unknown values map to an unknown outcome.
func ClassifyCallbackStatus(code string) ResponseCodeInfo {
	if info, exists := callbackStatusCodes[code]; exists {
		return info
	}
	return unknownCode(code)
}

// ClassifyResultCode retrieves outcome information for a verify/reverse
// result code. Defined for every input; unknown values map to an unknown
// outcome.
func ClassifyResultCode(code string) ResponseCodeInfo {
	if info, exists := resultCodes[code]; exists {
		return info
	}
	return unknownCode(code)
}

// ToPaymentError converts a response code to a PaymentError
func (r ResponseCodeInfo) ToPaymentError(gatewayMessage string) *pkgerrors.PaymentError {
	return &pkgerrors.PaymentError{
		Code:           r.Code,
		Message:        r.UserMessage,
		GatewayMessage: gatewayMessage,
		Category:       r.Category,
		Details:        map[string]interface{}{"display": r.Display, "description": r.Description},
	}
}
