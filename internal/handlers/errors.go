package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ai-videos-backend/internal/models"
	"ai-videos-backend/internal/services"
	"ai-videos-backend/internal/store"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation), errors.Is(err, store.ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error envelope. Not found errors replace message
// with a uniform one so clients can match on it.
func respondError(c *gin.Context, message string, err error) {
	status := statusFor(err)
	if status == http.StatusNotFound {
		message = "Project not found"
	}
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, models.ErrorResponse{
		Message: message,
		Error:   err.Error(),
	})
}

func respondBadRequest(c *gin.Context, message string, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Message: message,
		Error:   err.Error(),
	})
}
