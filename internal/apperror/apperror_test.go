package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Is(t *testing.T) {
	err := fmt.Errorf("register: %w", NotEligible("event is full"))

	assert.True(t, errors.Is(err, ErrNotEligible))
	assert.False(t, errors.Is(err, ErrConflict))
	assert.Equal(t, "registration not possible: event is full", Message(err, "fallback"))
}

func TestMessage_Fallback(t *testing.T) {
	assert.Equal(t, "fallback", Message(errors.New("boom"), "fallback"))
	assert.Equal(t, "event not found", Message(NotFound("event"), "fallback"))
}

func TestValidationFailed(t *testing.T) {
	err := ValidationFailed("total_seats", "total_seats must be >= 0")

	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "total_seats", err.Field)
}
