package types

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unified error code across the service.
type ErrorCode string

// Request and gateway error codes
const (
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"
	ErrMethodNotAllowed   ErrorCode = "METHOD_NOT_ALLOWED"
	ErrNotFound           ErrorCode = "NOT_FOUND"
	ErrUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrRateLimited        ErrorCode = "RATE_LIMITED"
	ErrInternalError      ErrorCode = "INTERNAL_ERROR"
	ErrServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// LLM error codes
const (
	ErrConfiguration ErrorCode = "CONFIGURATION_ERROR"
	ErrUpstreamError ErrorCode = "UPSTREAM_ERROR"
	ErrTransport     ErrorCode = "TRANSPORT_ERROR"
)

// Synthesis and repair error codes
const (
	ErrGenerationFailed       ErrorCode = "GENERATION_FAILED"
	ErrRepairFailed           ErrorCode = "REPAIR_FAILED"
	ErrRepairExhausted        ErrorCode = "REPAIR_EXHAUSTED"
	ErrNormalizationAmbiguity ErrorCode = "NORMALIZATION_AMBIGUITY"
	ErrToolchain              ErrorCode = "TOOLCHAIN_ERROR"
	ErrStore                  ErrorCode = "STORE_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code           ErrorCode `json:"code"`
	Message        string    `json:"message"`
	HTTPStatus     int       `json:"http_status,omitempty"`
	Retryable      bool      `json:"retryable"`
	Provider       string    `json:"provider,omitempty"`
	UpstreamStatus int       `json:"upstream_status,omitempty"` // status returned by the LLM provider
	Cause          error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithProvider sets the provider name.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// WithUpstreamStatus records the provider's HTTP status code.
func (e *Error) WithUpstreamStatus(status int) *Error {
	e.UpstreamStatus = status
	return e
}

// Wrap creates an Error with the given code whose cause is err.
// HTTP status, retryability and provider are inherited from the innermost
// typed error in the chain, so a GENERATION_FAILED caused by a timeout still
// answers 504.
func Wrap(code ErrorCode, message string, err error) *Error {
	wrapped := NewError(code, message).WithCause(err)
	if inner, ok := AsError(err); ok {
		wrapped.HTTPStatus = inner.HTTPStatus
		if wrapped.HTTPStatus == 0 {
			wrapped.HTTPStatus = inner.Code.HTTPStatus()
		}
		wrapped.Retryable = inner.Retryable
		wrapped.Provider = inner.Provider
		wrapped.UpstreamStatus = inner.UpstreamStatus
	}
	return wrapped
}

// AsError finds the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := AsError(err); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// HasCode reports whether any *Error in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// HTTPStatus returns the default HTTP status for the code.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case ErrInvalidRequest, ErrNormalizationAmbiguity:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrNotFound:
		return http.StatusNotFound
	case ErrMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case ErrRepairExhausted:
		return http.StatusUnprocessableEntity
	case ErrRateLimited:
		return http.StatusTooManyRequests
	case ErrUpstreamError, ErrGenerationFailed, ErrRepairFailed:
		return http.StatusBadGateway
	case ErrConfiguration, ErrServiceUnavailable:
		return http.StatusServiceUnavailable
	case ErrTransport:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
