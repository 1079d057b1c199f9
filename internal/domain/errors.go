// Package domain provides canonical types and error taxonomy for the gateway.
package domain

import (
	"fmt"
	"net/http"
	"time"
)

// ErrorType represents the category of an API error.
type ErrorType string

const (
	// ErrorTypeValidation indicates a malformed or invalid request payload.
	ErrorTypeValidation ErrorType = "validation"

	// ErrorTypeSecurity indicates the request was rejected by the security
	// validator before reaching any handler.
	ErrorTypeSecurity ErrorType = "security"

	// ErrorTypeAuthentication indicates an authentication failure.
	ErrorTypeAuthentication ErrorType = "authentication"

	// ErrorTypeNotFound indicates a resource was not found. Privacy denials
	// are deliberately rendered with this type so a private resource is
	// externally indistinguishable from a nonexistent one.
	ErrorTypeNotFound ErrorType = "not_found"

	// ErrorTypeMethodNotAllowed indicates the HTTP method is not in the
	// endpoint's allow-list.
	ErrorTypeMethodNotAllowed ErrorType = "method_not_allowed"

	// ErrorTypeConflict indicates the request conflicts with current state.
	ErrorTypeConflict ErrorType = "conflict"

	// ErrorTypeRateLimit indicates rate limiting was triggered.
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeServer indicates an internal server error.
	ErrorTypeServer ErrorType = "server"
)

// ErrorCode is the stable machine-readable code carried in the error envelope.
type ErrorCode string

const (
	ErrorCodeValidation       ErrorCode = "VALIDATION_ERROR"
	ErrorCodeSecurityRejected ErrorCode = "SECURITY_REJECTED"
	ErrorCodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	ErrorCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrorCodeMethodNotAllowed ErrorCode = "METHOD_NOT_ALLOWED"
	ErrorCodeConflict         ErrorCode = "CONFLICT"
	ErrorCodeRateLimited      ErrorCode = "RATE_LIMITED"
	ErrorCodeTimeout          ErrorCode = "REQUEST_TIMEOUT"
	ErrorCodeInternal         ErrorCode = "INTERNAL_ERROR"
)

// APIError is the canonical error passed between pipeline stages and
// handlers. It is an internal value; the envelope written to the wire is
// produced by Envelope and never carries internal detail beyond Message,
// Code and Details.
type APIError struct {
	// Type is the category of error.
	Type ErrorType `json:"type"`

	// Code is the stable machine-readable code.
	Code ErrorCode `json:"code"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Details carries structured, caller-safe context (e.g. field errors).
	Details map[string]any `json:"details,omitempty"`

	// StatusCode overrides the default HTTP status for the type when set.
	StatusCode int `json:"-"`

	// Internal holds the underlying cause for logging. Never serialized.
	Internal error `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the internal cause to errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Internal
}

// HTTPStatusCode returns the appropriate HTTP status code for this error.
func (e *APIError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}

	switch e.Type {
	case ErrorTypeValidation, ErrorTypeSecurity:
		return http.StatusBadRequest
	case ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case ErrorTypeConflict:
		return http.StatusConflict
	case ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case ErrorTypeServer:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ErrorEnvelope is the wire shape of every failure response.
type ErrorEnvelope struct {
	Error     string         `json:"error"`
	Code      string         `json:"code"`
	Timestamp string         `json:"timestamp"`
	Details   map[string]any `json:"details,omitempty"`
}

// Envelope renders the external error envelope at the given time.
func (e *APIError) Envelope(now time.Time) ErrorEnvelope {
	return ErrorEnvelope{
		Error:     e.Message,
		Code:      string(e.Code),
		Timestamp: now.UTC().Format(time.RFC3339),
		Details:   e.Details,
	}
}

// NewAPIError creates a new API error.
func NewAPIError(errType ErrorType, code ErrorCode, message string) *APIError {
	return &APIError{
		Type:    errType,
		Code:    code,
		Message: message,
	}
}

// WithDetails attaches caller-safe structured detail to the error.
func (e *APIError) WithDetails(details map[string]any) *APIError {
	e.Details = details
	return e
}

// WithStatusCode sets a specific HTTP status code.
func (e *APIError) WithStatusCode(code int) *APIError {
	e.StatusCode = code
	return e
}

// WithInternal records the underlying cause for internal logging.
func (e *APIError) WithInternal(err error) *APIError {
	e.Internal = err
	return e
}

// Convenience constructors for common errors

// ErrValidation creates a validation error.
func ErrValidation(message string) *APIError {
	return NewAPIError(ErrorTypeValidation, ErrorCodeValidation, message)
}

// ErrSecurityRejected creates a security rejection error.
func ErrSecurityRejected(message string) *APIError {
	return NewAPIError(ErrorTypeSecurity, ErrorCodeSecurityRejected, message)
}

// ErrUnauthorized creates an authentication error.
func ErrUnauthorized(message string) *APIError {
	return NewAPIError(ErrorTypeAuthentication, ErrorCodeUnauthorized, message)
}

// ErrNotFound creates a not found error with the generic message used for
// privacy-safe denials.
func ErrNotFound() *APIError {
	return NewAPIError(ErrorTypeNotFound, ErrorCodeNotFound, "resource not found")
}

// ErrMethodNotAllowed creates a method-not-allowed error.
func ErrMethodNotAllowed(method string) *APIError {
	return NewAPIError(ErrorTypeMethodNotAllowed, ErrorCodeMethodNotAllowed,
		fmt.Sprintf("method %s not allowed", method))
}

// ErrConflict creates a conflict error.
func ErrConflict(message string) *APIError {
	return NewAPIError(ErrorTypeConflict, ErrorCodeConflict, message)
}

// ErrRateLimited creates a rate limit error.
func ErrRateLimited() *APIError {
	return NewAPIError(ErrorTypeRateLimit, ErrorCodeRateLimited, "rate limit exceeded")
}

// ErrTimeout creates the error recorded when a request runs out its deadline
// before a response is written.
func ErrTimeout() *APIError {
	return NewAPIError(ErrorTypeServer, ErrorCodeTimeout, "request timed out").
		WithStatusCode(http.StatusGatewayTimeout)
}

// ErrInternal creates a generic internal error. The cause is recorded for
// logging but never exposed to callers.
func ErrInternal(cause error) *APIError {
	return NewAPIError(ErrorTypeServer, ErrorCodeInternal, "internal server error").
		WithInternal(cause)
}
