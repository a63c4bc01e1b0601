package session

import (
	"errors"
	"strings"

	"github.com/eventflow/eventflow/internal/apperror"
)

// ErrorKind classifies auth failures for display.
type ErrorKind string

const (
	KindInvalidCredentials ErrorKind = "invalid_credentials"
	KindWeakPassword       ErrorKind = "weak_password"
	KindDuplicateEmail     ErrorKind = "duplicate_email"
	KindNetwork            ErrorKind = "network"
	KindUnknown            ErrorKind = "unknown"
)

// AuthError is returned by every Provider operation that fails.
type AuthError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// classify turns an auth provider error into an AuthError.
func classify(err error) *AuthError {
	if err == nil {
		return nil
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr
	}
	kind := KindUnknown
	switch {
	case errors.Is(err, apperror.ErrUnauthenticated):
		kind = KindInvalidCredentials
	case errors.Is(err, apperror.ErrConflict):
		kind = KindDuplicateEmail
	case errors.Is(err, apperror.ErrValidation) && strings.Contains(strings.ToLower(err.Error()), "password"):
		kind = KindWeakPassword
	case errors.Is(err, apperror.ErrUnavailable):
		kind = KindNetwork
	}
	return &AuthError{Kind: kind, Message: err.Error(), Err: err}
}
