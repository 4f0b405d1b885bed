package api

import (
	"errors"
	"net/http"
	"time"

	"order-management-service/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Status    int                  `json:"status"`
	Message   string               `json:"message"`
	Timestamp models.LocalDateTime `json:"timestamp"`
}

func abortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Status:    status,
		Message:   message,
		Timestamp: models.LocalDateTime(time.Now()),
	})
}

// statusFor maps error kinds to response codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, models.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, models.ErrInvalidArgument):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(requestIDHeader)),
			zap.Error(err))
		abortWithError(c, status, "internal server error")
		return
	}
	abortWithError(c, status, err.Error())
}
