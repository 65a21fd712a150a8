// Package httperror carries a transport-agnostic failure: an HTTP status, a
// stable machine code and a human message. Handlers return it and the HTTP and
// gRPC adapters translate it.
package httperror

import (
	"fmt"
	"net/http"
)

type Error struct {
	Status  int
	Code    string
	Message string
	Details any
	// Fields are merged into the top level of the error body.
	Fields map[string]any
}

func (e *Error) Error() string {
	if err, ok := e.Details.(error); ok {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	if err, ok := e.Details.(error); ok {
		return err
	}
	return nil
}

// With attaches a top-level field to the rendered error body.
func (e *Error) With(key string, value any) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	e.Fields[key] = value
	return e
}

// PublicDetails returns the details that are safe to show to a client.
// Wrapped errors are internal and never leave the service.
func (e *Error) PublicDetails() any {
	if _, ok := e.Details.(error); ok {
		return nil
	}
	return e.Details
}

func New(status int, code, message string, details any) *Error {
	return &Error{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func BadRequest(code, message string, details any) *Error {
	return New(http.StatusBadRequest, code, message, details)
}

func Unauthorized(code, message string, details any) *Error {
	return New(http.StatusUnauthorized, code, message, details)
}

func NotFound(code, message string, details any) *Error {
	return New(http.StatusNotFound, code, message, details)
}

func InternalServerError(code, message string, details any) *Error {
	return New(http.StatusInternalServerError, code, message, details)
}

func ServiceUnavailable(code, message string, details any) *Error {
	return New(http.StatusServiceUnavailable, code, message, details)
}
