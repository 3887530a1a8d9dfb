package apperr

import (
	"errors"
	"net/http"
)

// Error is an application-classified failure carrying a machine-readable
// code and the HTTP status it maps to. Anything else reaching a handler is
// masked as an internal error.
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

func Validation(message string) *Error {
	return New(http.StatusBadRequest, "VALIDATION_ERROR", message)
}

func NotFound(code, message string) *Error {
	return New(http.StatusNotFound, code, message)
}

func Conflict(code, message string) *Error {
	return New(http.StatusConflict, code, message)
}

func Unauthorized(code, message string) *Error {
	return New(http.StatusUnauthorized, code, message)
}

func Forbidden(message string) *Error {
	return New(http.StatusForbidden, "FORBIDDEN", message)
}

func Internal() *Error {
	return New(http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
}

// From classifies err: an *Error passes through, everything else becomes
// the generic internal error (the cause is for the server log only).
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal()
}
