package services

import (
	"errors"
	"fmt"
	"net/http"
)

// Error carries the HTTP status a failure should surface with, alongside
// the human-readable message the client displays verbatim. Transient marks
// external-dependency failures where a later retry could succeed even
// though the status code is 400-class (the provider rejected this attempt,
// not the transaction).
type Error struct {
	Code      int
	Message   string
	Transient bool
}

func (e *Error) Error() string {
	return e.Message
}

func NewError(code int, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return NewError(http.StatusNotFound, format, args...)
}

func Forbidden(format string, args ...interface{}) *Error {
	return NewError(http.StatusForbidden, format, args...)
}

func Invalid(format string, args ...interface{}) *Error {
	return NewError(http.StatusBadRequest, format, args...)
}

// HTTPStatus maps any error to the status code handlers should respond
// with. Unrecognized errors are internal failures.
func HTTPStatus(err error) int {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Code
	}
	return http.StatusInternalServerError
}

// Dependency wraps a failure of an external collaborator (gateway, broker)
// that should be retried later.
func Dependency(code int, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Transient: true}
}

// Retryable reports whether retrying the operation later could succeed.
// Validation, authorization and state-conflict failures are final; gateway
// and store failures are not.
func Retryable(err error) bool {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Transient || svcErr.Code >= http.StatusInternalServerError
	}
	return true
}
