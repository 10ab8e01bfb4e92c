package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced in the JSON error envelope.
const (
	CodeValidation     = "VALIDATION_FAILED"
	CodeConflict       = "CONFLICT"
	CodeNotFound       = "NOT_FOUND"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeForbidden      = "FORBIDDEN"
	CodeStore          = "STORE_UNAVAILABLE"
	CodeChannel        = "CHANNEL_FAILED"
	CodePartialFailure = "PAYMENT_RECORDED_STATUS_STALE"
	CodeInternal       = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

// NewStoreError wraps a persistence failure whose cause is opaque to callers.
func NewStoreError(err error) error {
	return &DomainError{
		Code:       CodeStore,
		Message:    "data store unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

// NewChannelError wraps a notification channel failure.
func NewChannelError(err error) error {
	return &DomainError{
		Code:       CodeChannel,
		Message:    "notification channel failed",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// NewPartialFailure reports a payment that reached the ledger while the
// member's paid flag could not be updated.
func NewPartialFailure(paymentID, memberID string, err error) error {
	return &DomainError{
		Code:       CodePartialFailure,
		Message:    "payment recorded, status update failed",
		HTTPStatus: http.StatusInternalServerError,
		Details: map[string]any{
			"payment_id": paymentID,
			"member_id":  memberID,
		},
		Err: err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// HasCode reports whether err is a DomainError carrying code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

func IsValidation(err error) bool     { return HasCode(err, CodeValidation) }
func IsConflict(err error) bool       { return HasCode(err, CodeConflict) }
func IsNotFound(err error) bool       { return HasCode(err, CodeNotFound) }
func IsStore(err error) bool          { return HasCode(err, CodeStore) }
func IsChannel(err error) bool        { return HasCode(err, CodeChannel) }
func IsPartialFailure(err error) bool { return HasCode(err, CodePartialFailure) }

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}
