// Package apperror defines the error taxonomy shared by the core services and
// the HTTP transport.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeNotFound     Code = "RESOURCE_NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeBadRequest   Code = "BAD_REQUEST"
	CodeInternal     Code = "INTERNAL_ERROR"
)

type AppError struct {
	Code       Code              `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	HTTPStatus int               `json:"-"`
	Err        error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

func (e *AppError) WithDetails(details map[string]string) *AppError {
	for k, v := range details {
		e.WithDetail(k, v)
	}
	return e
}

func (e *AppError) Wrap(err error) *AppError {
	e.Err = err
	return e
}

func New(code Code, message string, status int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusUnprocessableEntity)
}

func Validationf(format string, args ...any) *AppError {
	return Validation(fmt.Sprintf(format, args...))
}

// NotFound reports a missing resource, e.g. NotFound("customer", 12).
func NotFound(resource string, id any) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound).
		WithDetail("id", fmt.Sprint(id))
}

func Conflict(message string) *AppError {
	return New(CodeConflict, message, http.StatusConflict)
}

func Conflictf(format string, args ...any) *AppError {
	return Conflict(fmt.Sprintf(format, args...))
}

func Unauthorized(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return New(CodeUnauthorized, message, http.StatusUnauthorized)
}

func Forbidden(message string) *AppError {
	if message == "" {
		message = "access denied"
	}
	return New(CodeForbidden, message, http.StatusForbidden)
}

func BadRequest(message string) *AppError {
	return New(CodeBadRequest, message, http.StatusBadRequest)
}

// Internal hides err from clients; it is kept for logging only.
func Internal(err error) *AppError {
	return New(CodeInternal, "an internal error occurred", http.StatusInternalServerError).Wrap(err)
}

func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// From returns err as an AppError, classifying unknown errors as Internal.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := As(err); ok {
		return appErr
	}
	return Internal(err)
}

func Is(err error, code Code) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

func IsNotFound(err error) bool   { return Is(err, CodeNotFound) }
func IsValidation(err error) bool { return Is(err, CodeValidation) }
func IsConflict(err error) bool   { return Is(err, CodeConflict) }
