// SPDX-License-Identifier: Apache-2.0

// Package errors provides the typed error taxonomy for the GAME SDK.
// Every failure surfaced by the SDK is an *Error carrying a Code, so
// callers can branch on the class of failure instead of string matching.
package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Code classifies GAME SDK errors for monitoring and retry decisions.
type Code string

const (
	// CodeInternal indicates an unexpected internal error.
	CodeInternal Code = "INTERNAL_ERROR"

	// CodeAuthentication indicates the API key was rejected.
	CodeAuthentication Code = "AUTHENTICATION_ERROR"

	// CodeValidation indicates the request or configuration was invalid.
	CodeValidation Code = "VALIDATION_ERROR"

	// CodeRateLimited indicates the GAME API throttled the request.
	CodeRateLimited Code = "RATE_LIMITED"

	// CodeServer indicates a 5xx response from the GAME API.
	CodeServer Code = "SERVER_ERROR"

	// CodeNetwork indicates a connection-level failure.
	CodeNetwork Code = "NETWORK_ERROR"

	// CodeTimeout indicates an operation exceeded its deadline.
	CodeTimeout Code = "TIMEOUT"

	// CodeState indicates a state callback misbehaved.
	CodeState Code = "STATE_ERROR"

	// CodeConfiguration indicates invalid SDK configuration.
	CodeConfiguration Code = "CONFIGURATION_ERROR"

	// CodeNotFound indicates a worker, function, or resource was not found.
	CodeNotFound Code = "NOT_FOUND"
)

// Error is a typed error with context for observability.
// It implements the error interface and supports errors.As / errors.Is.
type Error struct {
	Code        Code
	Message     string
	Err         error
	Context     map[string]interface{}
	Attributes  map[string]string
	Recoverable bool
	StatusCode  int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *Error) MarshalJSON() ([]byte, error) {
	type Alias Error
	return json.Marshal(&struct {
		Message     string `json:"message"`
		Code        string `json:"code"`
		Err         string `json:"error,omitempty"`
		Recoverable bool   `json:"recoverable"`
		*Alias
	}{
		Message:     e.Error(),
		Code:        string(e.Code),
		Err:         fmt.Sprintf("%v", e.Err),
		Recoverable: e.Recoverable,
		Alias:       (*Alias)(e),
	})
}

// New creates a new Error with the given code, message, and cause.
// The recoverable flag and HTTP status are derived from the code and can
// be overridden with WithRecoverable / WithStatusCode.
func New(code Code, msg string, cause error) *Error {
	return &Error{
		Code:        code,
		Message:     msg,
		Err:         cause,
		Context:     make(map[string]interface{}),
		Attributes:  make(map[string]string),
		Recoverable: codeRecoverable(code),
		StatusCode:  codeToStatusCode(code),
	}
}

// FromStatusCode builds an Error from an HTTP response status.
func FromStatusCode(status int, msg string, cause error) *Error {
	e := New(statusToCode(status), msg, cause)
	e.StatusCode = status
	return e
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithAttribute adds a string attribute for OTEL traces.
// Returns the error for method chaining.
func (e *Error) WithAttribute(key, value string) *Error {
	if e.Attributes == nil {
		e.Attributes = make(map[string]string)
	}
	e.Attributes[key] = value
	return e
}

// WithRecoverable overrides whether the error can be retried.
// Returns the error for method chaining.
func (e *Error) WithRecoverable(recoverable bool) *Error {
	e.Recoverable = recoverable
	return e
}

// WithStatusCode overrides the HTTP status associated with the error.
func (e *Error) WithStatusCode(status int) *Error {
	e.StatusCode = status
	return e
}

// AsError attempts to convert err to *Error.
// Non-SDK errors are wrapped as CodeInternal.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	if ge, ok := err.(*Error); ok {
		return ge
	}
	return New(CodeInternal, "wrapped error", err)
}

// IsRecoverable reports whether err is a transient failure worth retrying.
// Unknown error types are considered non-recoverable.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	if ge, ok := err.(*Error); ok {
		return ge.Recoverable
	}
	return false
}

// RecoverableString returns "true" or "false" for observability attributes.
func (e *Error) RecoverableString() string {
	if e.Recoverable {
		return "true"
	}
	return "false"
}

// codeRecoverable marks the transient classes retry may act on.
func codeRecoverable(code Code) bool {
	switch code {
	case CodeRateLimited, CodeServer, CodeNetwork, CodeTimeout:
		return true
	default:
		return false
	}
}

// codeToStatusCode maps error codes to HTTP status codes.
func codeToStatusCode(code Code) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAuthentication:
		return http.StatusUnauthorized
	case CodeValidation:
		return http.StatusBadRequest
	case CodeTimeout:
		return http.StatusRequestTimeout
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// statusToCode maps an HTTP response status to an error code.
func statusToCode(status int) Code {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return CodeAuthentication
	case status == http.StatusTooManyRequests:
		return CodeRateLimited
	case status == http.StatusNotFound:
		return CodeNotFound
	case status == http.StatusRequestTimeout:
		return CodeTimeout
	case status >= 500:
		return CodeServer
	case status >= 400:
		return CodeValidation
	default:
		return CodeInternal
	}
}
