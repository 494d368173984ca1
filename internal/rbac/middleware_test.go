package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"telecom-billing/internal/auth"

	"github.com/gin-gonic/gin"
)

func serveWithRole(role string, mw gin.HandlerFunc) int {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		if role != "" {
			ctx := auth.WithIdentity(c.Request.Context(), "u", role)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}, mw, func(c *gin.Context) {
		c.Status(200)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRequireAnyRole_AdminBypasses(t *testing.T) {
	if code := serveWithRole(RoleAdmin, RequireAnyRole(RoleOperator)); code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAnyRole_OperatorAllowedWhenListed(t *testing.T) {
	if code := serveWithRole(RoleOperator, RequireAnyRole(RoleOperator)); code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAdmin_OperatorDenied(t *testing.T) {
	if code := serveWithRole(RoleOperator, RequireAdmin()); code != 403 {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireAnyRole_UnknownRoleDenied(t *testing.T) {
	if code := serveWithRole("super_admin", RequireAnyRole("super_admin")); code != 403 {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireAnyRole_MissingRole(t *testing.T) {
	if code := serveWithRole("", RequireAnyRole(RoleOperator)); code != 401 {
		t.Fatalf("expected 401, got %d", code)
	}
}
