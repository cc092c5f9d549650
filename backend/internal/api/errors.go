package api

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"askgraph/backend/internal/auth"
	apperrors "askgraph/backend/pkg/errors"
)

func statusFor(err error) int {
	switch {
	case apperrors.IsValidation(err):
		return http.StatusBadRequest
	case apperrors.IsNotFound(err):
		return http.StatusNotFound
	case stderrors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case apperrors.IsConflict(err):
		return http.StatusConflict
	case apperrors.IsStoreUnavailable(err):
		return http.StatusServiceUnavailable
	case apperrors.IsErrorType(err, apperrors.ErrorTypeContext):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as JSON and logs server-side failures
func (s *Server) fail(c *gin.Context, action string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.Log.Error("Request failed",
			zap.String("action", action),
			zap.Int("status", status),
			zap.Error(err),
		)
		c.JSON(status, gin.H{"error": "Failed to " + action})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
