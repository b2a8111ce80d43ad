package core

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies failures surfaced to API clients.
type ErrorKind string

// Error kinds. The string value is the OpenAI-style error "type".
const (
	ErrorKindInvalidRequest     ErrorKind = "invalid_request_error"
	ErrorKindServiceUnavailable ErrorKind = "service_unavailable"
	ErrorKindInternal           ErrorKind = "internal_error"
)

// APIError is the unified error type carried from the capability and the
// validator up to the HTTP layer.
type APIError struct {
	Kind    ErrorKind
	Message string
	Code    string
	Cause   error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap supports errors.Is / errors.As through the cause
func (e *APIError) Unwrap() error {
	return e.Cause
}

// HTTPStatus maps the error kind to the status used on non-streaming responses.
func (e *APIError) HTTPStatus() int {
	switch e.Kind {
	case ErrorKindInvalidRequest:
		return http.StatusBadRequest
	case ErrorKindServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Body returns the JSON error payload for this error.
func (e *APIError) Body() ErrorResponse {
	body := ErrorBody{
		Message: e.Message,
		Type:    string(e.Kind),
	}
	if e.Code != "" {
		code := e.Code
		body.Code = &code
	}
	return ErrorResponse{Error: body}
}

// NewInvalidRequest creates an InvalidRequest error
func NewInvalidRequest(message string) *APIError {
	return &APIError{Kind: ErrorKindInvalidRequest, Message: message}
}

// NewInvalidRequestf creates an InvalidRequest error with a formatted message
func NewInvalidRequestf(format string, args ...any) *APIError {
	return NewInvalidRequest(fmt.Sprintf(format, args...))
}

// NewServiceUnavailable creates a ServiceUnavailable error
func NewServiceUnavailable(message string, cause error) *APIError {
	return &APIError{Kind: ErrorKindServiceUnavailable, Message: message, Cause: cause}
}

// NewInternalError creates an InternalError error
func NewInternalError(message string, cause error) *APIError {
	return &APIError{Kind: ErrorKindInternal, Message: message, Cause: cause}
}

// AsAPIError returns err as an *APIError, wrapping anything else as an
// InternalError so callers always have a kind to map.
func AsAPIError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return NewInternalError("generation failed", err)
}

// ErrorResponse is the OpenAI-compatible error envelope.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody holds the message and type of an error response.
type ErrorBody struct {
	Message string  `json:"message"`
	Type    string  `json:"type"`
	Code    *string `json:"code,omitempty"`
}
