package httpapi

import (
	"telecom-billing/internal/audit"

	"github.com/gin-gonic/gin"
)

// ClientIP stores the caller address on the request context so audit
// events can record it.
func ClientIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := audit.WithClientIP(c.Request.Context(), c.ClientIP())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
