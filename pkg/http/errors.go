package http

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is an error with a stable code and the HTTP status it maps to.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// OnField names the request field the error is about.
func (e *AppError) OnField(field string) *AppError {
	e.Field = field
	return e
}

// WithError keeps the cause for logging; it is never serialized.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

func newAppError(code string, status int, message string) *AppError {
	return &AppError{Code: code, Message: message, Status: status}
}

func NotFoundError(message string) *AppError {
	return newAppError("ERR_NOT_FOUND", http.StatusNotFound, message)
}

func BadRequestError(message string) *AppError {
	return newAppError("ERR_BAD_REQUEST", http.StatusBadRequest, message)
}

func BadRequestErrorf(format string, a ...interface{}) *AppError {
	return BadRequestError(fmt.Sprintf(format, a...))
}

func TooManyRequestsError(message string) *AppError {
	return newAppError("ERR_RATE_LIMITED", http.StatusTooManyRequests, message)
}

func ServiceUnavailableError(message string) *AppError {
	return newAppError("ERR_UNAVAILABLE", http.StatusServiceUnavailable, message)
}

func InternalError(message string) *AppError {
	return newAppError("ERR_INTERNAL", http.StatusInternalServerError, message)
}

// ErrorRule turns errors matching Target (errors.Is) into an AppError.
type ErrorRule struct {
	Target error
	Build  func(err error) *AppError
}

// ErrorMap resolves domain errors to transport errors, first match wins.
type ErrorMap []ErrorRule

// Resolve returns the mapped error, or false when no rule matches.
func (m ErrorMap) Resolve(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	for _, r := range m {
		if errors.Is(err, r.Target) {
			return r.Build(err).WithError(err), true
		}
	}
	return nil, false
}

// Always builds a fixed error regardless of the cause.
func Always(build func(string) *AppError, message string) func(error) *AppError {
	return func(error) *AppError { return build(message) }
}

// Passthrough builds an error carrying the cause's message.
func Passthrough(build func(string) *AppError) func(error) *AppError {
	return func(err error) *AppError { return build(err.Error()) }
}
