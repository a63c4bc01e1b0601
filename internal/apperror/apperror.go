// Package apperror defines the error taxonomy shared by repositories and handlers.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrValidation  = errors.New("validation error")
	ErrConflict    = errors.New("conflict")
	ErrForbidden   = errors.New("forbidden")
	ErrNotEligible = errors.New("not eligible")
	// ErrUnauthenticated means the caller has no valid session or gave wrong credentials.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrUnavailable means the remote could not be reached.
	ErrUnavailable = errors.New("unavailable")
)

// AppError carries a human-readable message on top of a sentinel.
type AppError struct {
	Err     error
	Message string
	Field   string
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound returns an AppError for a missing resource.
func NotFound(resource string) *AppError {
	return &AppError{Err: ErrNotFound, Message: resource + " not found"}
}

// ValidationFailed returns an AppError for a rejected field.
func ValidationFailed(field, message string) *AppError {
	return &AppError{Err: ErrValidation, Message: message, Field: field}
}

// Conflict returns an AppError for a uniqueness violation.
func Conflict(message string) *AppError {
	return &AppError{Err: ErrConflict, Message: message}
}

// Forbidden returns an AppError indicating the caller lacks permission on a row.
func Forbidden(message string) *AppError {
	return &AppError{Err: ErrForbidden, Message: message}
}

// NotEligible returns an AppError for a registration the event does not accept.
func NotEligible(reason string) *AppError {
	return &AppError{Err: ErrNotEligible, Message: fmt.Sprintf("registration not possible: %s", reason)}
}

// Message returns the AppError message when err wraps one, otherwise fallback.
func Message(err error, fallback string) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return fallback
}
