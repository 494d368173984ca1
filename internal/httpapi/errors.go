package httpapi

import (
	"errors"
	"net/http"

	"telecom-billing/internal/apperr"
	"telecom-billing/internal/auth"
	"telecom-billing/pkg/logger"

	"github.com/gin-gonic/gin"
)

// writeError maps an error kind to its status and a caller-safe message.
// Server-side failures keep their detail in the request log only.
func writeError(c *gin.Context, err error) {
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		logger.FromGin(c).Error("request failed", "err", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": apperr.Message(err)})
}

func badJSON(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
}
