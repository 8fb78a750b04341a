package ucp

import (
	"errors"
	"fmt"
)

// Severity tells the caller what class of recovery applies.
type Severity string

const (
	SeverityRecoverable        Severity = "recoverable"
	SeverityRequiresBuyerInput Severity = "requires_buyer_input"
	SeverityFatal              Severity = "fatal"
)

// Error is the shared checkout error carried across every layer and
// serialized identically by both transport bindings.
type Error struct {
	Code     string                 `json:"code"`
	Message  string                 `json:"message"`
	Severity Severity               `json:"severity"`
	Details  map[string]interface{} `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Common error codes.
const (
	ErrCodeInvalidRequest         = "invalid_request"
	ErrCodeNotFound               = "checkout_not_found"
	ErrCodeInvalidMutation        = "invalid_mutation"
	ErrCodeNotReady               = "checkout_not_ready"
	ErrCodeAlreadyCompleted       = "checkout_already_completed"
	ErrCodeCanceled               = "checkout_canceled"
	ErrCodeMerchandiseUnavailable = "merchandise_not_available"
	ErrCodeProductNotFound        = "product_not_found"
	ErrCodePaymentDeclined        = "payment_declined"
	ErrCodeInternal               = "internal_error"

	// AP2 mandate capability codes.
	ErrCodeMandateRequired         = "mandate_required"
	ErrCodeMandateInvalidSignature = "mandate_invalid_signature"
)

// NewError creates a checkout error.
func NewError(code, message string, severity Severity) *Error {
	return &Error{Code: code, Message: message, Severity: severity}
}

// WithDetails attaches structured detail to the error and returns it.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	e.Details = details
	return e
}

// AsError translates any error into the shared taxonomy. Unknown errors
// become internal_error with a deliberately generic message; the caller
// is expected to have logged the original with full context.
func AsError(err error) *Error {
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	return NewError(ErrCodeInternal, "an unexpected error occurred", SeverityRecoverable)
}
