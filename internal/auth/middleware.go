package auth

import (
	"net/http"
	"strings"
	"time"

	"telecom-billing/pkg/logger"

	"github.com/gin-gonic/gin"
)

const authorizationHeader = "Authorization"

// RequireAccessToken admits requests carrying an access token from
// Manager.IssuePair ("Authorization: Bearer <token>", scheme case-insensitive).
// Refresh tokens and tokens without a user id or role get 401.
//
// On success the request context holds the user id and role (rbac reads
// the role, audit records the user id as actor) and the request logger is
// tagged with user_id and role. Role checks are left to rbac.
func RequireAccessToken(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, ok := bearerToken(c.GetHeader(authorizationHeader))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := m.Verify(tok, TokenTypeAccess, time.Now())
		if err != nil || claims.UserID == "" || claims.Role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		log := logger.FromGin(c).With("user_id", claims.UserID, "role", claims.Role)
		c.Set("logger", log)
		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)

		ctx := WithIdentity(c.Request.Context(), claims.UserID, claims.Role)
		c.Request = c.Request.WithContext(logger.With(ctx, log))

		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, tok, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}
