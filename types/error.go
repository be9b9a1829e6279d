package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the service.
type ErrorCode string

// Request error codes
const (
	ErrInvalidRequest  ErrorCode = "INVALID_REQUEST"
	ErrRequestTooLarge ErrorCode = "REQUEST_TOO_LARGE"
)

// Provider error codes
const (
	ErrUpstreamError   ErrorCode = "UPSTREAM_ERROR"
	ErrUpstreamTimeout ErrorCode = "UPSTREAM_TIMEOUT"
	ErrUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrForbidden       ErrorCode = "FORBIDDEN"
	ErrRateLimited     ErrorCode = "RATE_LIMITED"
	ErrQuotaExceeded   ErrorCode = "QUOTA_EXCEEDED"
	ErrModelNotFound   ErrorCode = "MODEL_NOT_FOUND"
	ErrContentBlocked  ErrorCode = "CONTENT_BLOCKED"
	ErrEmptyResponse   ErrorCode = "EMPTY_RESPONSE"
)

// Local error codes
const (
	ErrIO            ErrorCode = "IO_ERROR"
	ErrInternalError ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Provider   string    `json:"provider,omitempty"`
	Cause      error     `json:"-"`
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

// WithProvider sets the provider name.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// AsError finds the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// IsErrorCode reports whether err carries the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}

// Message returns the human readable part of err: the Message of a
// structured error, or err.Error() for anything else.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := AsError(err); ok && e.Message != "" {
		return e.Message
	}
	return err.Error()
}

// NewInvalidRequestError is a shorthand for ErrInvalidRequest.
func NewInvalidRequestError(message string) *Error {
	return NewError(ErrInvalidRequest, message)
}

// NewIOError wraps a filesystem failure.
func NewIOError(message string, cause error) *Error {
	return NewError(ErrIO, message).WithCause(cause)
}
