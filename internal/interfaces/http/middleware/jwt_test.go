package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/distribuidora/backend/internal/domain/identity"
	"github.com/distribuidora/backend/internal/infrastructure/auth"
	"github.com/distribuidora/backend/internal/infrastructure/config"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		RefreshSecret:          "test-refresh-secret-key-32-chars",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "distribuidora-test",
		MaxRefreshCount:        10,
	})
}

// issueToken returns an access token for a fresh user with the role
func issueToken(t *testing.T, svc *auth.JWTService, role identity.Role) (string, uuid.UUID) {
	t.Helper()
	userID := uuid.New()
	pair, err := svc.GenerateTokenPair(auth.GenerateTokenInput{UserID: userID, Username: "u-" + string(role), Role: role})
	require.NoError(t, err)
	return pair.AccessToken, userID
}

func newAuthRouter(verifier *auth.Verifier, handler gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), JWTAuth(JWTConfig{Verifier: verifier, SkipPaths: []string{"/health"}}))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/me", handler)
	return r
}

func TestJWTAuth_InstallsActor(t *testing.T) {
	svc := newTestJWTService()
	token, userID := issueToken(t, svc, identity.RoleDriver)

	r := newAuthRouter(auth.NewVerifier(svc, nil), func(c *gin.Context) {
		actor, ok := GetActor(c)
		require.True(t, ok)
		assert.Equal(t, userID, actor.UserID)
		assert.Equal(t, identity.RoleDriver, actor.Role)
		assert.Equal(t, userID.String(), GetClaims(c).UserID)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJWTAuth_Rejections(t *testing.T) {
	svc := newTestJWTService()
	blacklist := auth.NewInMemoryTokenBlacklist()
	verifier := auth.NewVerifier(svc, blacklist)
	r := newAuthRouter(verifier, func(c *gin.Context) { c.Status(http.StatusOK) })

	revoked, _ := issueToken(t, svc, identity.RoleSalesRep)
	claims, err := svc.ValidateAccessToken(revoked)
	require.NoError(t, err)
	require.NoError(t, verifier.Revoke(context.Background(), claims))

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", "UNAUTHORIZED"},
		{"not bearer", "Basic abc", "UNAUTHORIZED"},
		{"garbage token", "Bearer not-a-jwt", "TOKEN_INVALID"},
		{"revoked token", "Bearer " + revoked, "TOKEN_REVOKED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), `"code":"`+tt.code+`"`)
		})
	}
}

func TestJWTAuth_SkipPaths(t *testing.T) {
	r := newAuthRouter(auth.NewVerifier(newTestJWTService(), nil), func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
