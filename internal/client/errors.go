package client

import (
	"fmt"
	"net/http"

	"github.com/eventflow/eventflow/internal/apperror"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return e.Message
}

// Unwrap maps the status code onto the shared error taxonomy so callers can use errors.Is.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return apperror.ErrUnauthenticated
	case http.StatusNotFound:
		return apperror.ErrNotFound
	case http.StatusConflict:
		return apperror.ErrConflict
	case http.StatusBadRequest:
		return apperror.ErrValidation
	case http.StatusForbidden:
		return apperror.ErrForbidden
	case http.StatusUnprocessableEntity:
		return apperror.ErrNotEligible
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return apperror.ErrUnavailable
	}
	return nil
}

// transportError wraps a failure to reach the API.
func transportError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, apperror.ErrUnavailable, err)
}
