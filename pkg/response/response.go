package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eventflow/eventflow/internal/apperror"
)

// Body is the standard API response envelope.
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// NoContent sends 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest sends 400 with error message.
func BadRequest(c *gin.Context, err string) {
	c.JSON(http.StatusBadRequest, Body{Success: false, Error: err})
}

// Unauthorized sends 401.
func Unauthorized(c *gin.Context, err string) {
	c.JSON(http.StatusUnauthorized, Body{Success: false, Error: err})
}

// Forbidden sends 403.
func Forbidden(c *gin.Context, err string) {
	c.JSON(http.StatusForbidden, Body{Success: false, Error: err})
}

// NotFound sends 404.
func NotFound(c *gin.Context, err string) {
	c.JSON(http.StatusNotFound, Body{Success: false, Error: err})
}

// Conflict sends 409.
func Conflict(c *gin.Context, err string) {
	c.JSON(http.StatusConflict, Body{Success: false, Error: err})
}

// Unprocessable sends 422.
func Unprocessable(c *gin.Context, err string) {
	c.JSON(http.StatusUnprocessableEntity, Body{Success: false, Error: err})
}

// ServiceUnavailable sends 503.
func ServiceUnavailable(c *gin.Context, err string) {
	c.JSON(http.StatusServiceUnavailable, Body{Success: false, Error: err})
}

// Internal sends 500.
func Internal(c *gin.Context, err string) {
	c.JSON(http.StatusInternalServerError, Body{Success: false, Error: err})
}

// FromError maps an apperror sentinel to its status. Unknown errors become 500 with fallback as message.
func FromError(c *gin.Context, err error, fallback string) {
	msg := apperror.Message(err, fallback)
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		NotFound(c, msg)
	case errors.Is(err, apperror.ErrValidation):
		BadRequest(c, msg)
	case errors.Is(err, apperror.ErrConflict):
		Conflict(c, msg)
	case errors.Is(err, apperror.ErrForbidden):
		Forbidden(c, msg)
	case errors.Is(err, apperror.ErrNotEligible):
		Unprocessable(c, msg)
	default:
		Internal(c, fallback)
	}
}
