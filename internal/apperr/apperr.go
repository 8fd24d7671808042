// Package apperr carries the error taxonomy shared by services and handlers.
// Code is the HTTP status the error surfaces as.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Error struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"errors,omitempty"`
	Err     error             `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(code int, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func NotFound(format string, args ...any) *Error {
	return New(http.StatusNotFound, fmt.Sprintf(format, args...), nil)
}

func AlreadyExists(format string, args ...any) *Error {
	return New(http.StatusConflict, fmt.Sprintf(format, args...), nil)
}

// BadRequest is a business rule violation (empty cart, invalid coupon, insufficient stock).
func BadRequest(format string, args ...any) *Error {
	return New(http.StatusBadRequest, fmt.Sprintf(format, args...), nil)
}

func Validation(fields map[string]string) *Error {
	return &Error{Code: http.StatusBadRequest, Message: "validation failed", Fields: fields}
}

func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, message, nil)
}

func Forbidden(message string) *Error {
	return New(http.StatusForbidden, message, nil)
}

// Internal wraps an unexpected failure. The message is never shown to clients.
func Internal(err error) *Error {
	return New(http.StatusInternalServerError, "internal error", err)
}

// CodeOf reports the status for err: the app error code when err wraps one, else 500.
func CodeOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return http.StatusInternalServerError
}

// Is reports whether err is an app error with the given code.
func Is(err error, code int) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

func IsNotFound(err error) bool { return Is(err, http.StatusNotFound) }
