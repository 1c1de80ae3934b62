package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/distribuidora/backend/internal/domain/identity"
	"github.com/distribuidora/backend/internal/infrastructure/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRequirePermission(t *testing.T) {
	svc := newTestJWTService()
	r := gin.New()
	r.Use(RequestID(), JWTAuth(JWTConfig{Verifier: auth.NewVerifier(svc, nil)}))
	r.POST("/orders/:id/deliver", RequirePermission(identity.ResourceOrder, identity.ActionDeliver), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.POST("/orders/:id/cancel", RequirePermission(identity.ResourceOrder, identity.ActionCancel), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/audit", RequireRole(identity.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		name string
		role identity.Role
		path string
		verb string
		want int
	}{
		{"driver delivers", identity.RoleDriver, "/orders/1/deliver", http.MethodPost, http.StatusOK},
		{"driver cannot cancel", identity.RoleDriver, "/orders/1/cancel", http.MethodPost, http.StatusForbidden},
		{"warehouse cannot deliver", identity.RoleWarehouse, "/orders/1/deliver", http.MethodPost, http.StatusForbidden},
		{"admin wildcard", identity.RoleAdmin, "/orders/1/cancel", http.MethodPost, http.StatusOK},
		{"audit admin only", identity.RoleSalesRep, "/audit", http.MethodGet, http.StatusForbidden},
		{"audit admin", identity.RoleAdmin, "/audit", http.MethodGet, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, _ := issueToken(t, svc, tt.role)
			req := httptest.NewRequest(tt.verb, tt.path, nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusForbidden {
				assert.Contains(t, w.Body.String(), `"code":"FORBIDDEN"`)
			}
		})
	}
}

func TestRequirePermission_NoClaims(t *testing.T) {
	r := gin.New()
	r.GET("/x", RequirePermission(identity.ResourceProduct, identity.ActionRead), func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
