package middleware

import (
	"errors"
	"strings"

	"github.com/distribuidora/backend/internal/domain/identity"
	"github.com/distribuidora/backend/internal/infrastructure/auth"
	"github.com/distribuidora/backend/internal/infrastructure/logger"
	"github.com/distribuidora/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JWT context keys
const (
	JWTClaimsKey = "jwt_claims"
	JWTUserIDKey = "user_id"
	bearerPrefix = "Bearer "
)

// JWTConfig holds configuration for JWT middleware
type JWTConfig struct {
	Verifier *auth.Verifier
	// SkipPaths are full paths that do not require a token
	SkipPaths []string
	Logger    *zap.Logger
}

// JWTAuth validates the bearer token and installs the caller as the request
// actor, which drives permission checks, data scopes and the database session.
func JWTAuth(cfg JWTConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, bearerPrefix)
		if !found || token == "" {
			abort(c, dto.ErrCodeUnauthorized, "Missing bearer token")
			return
		}

		claims, err := cfg.Verifier.Verify(c.Request.Context(), token)
		if err != nil {
			code, message := authErrorCode(err)
			log.Debug("JWT authentication failed", zap.Error(err), zap.String("path", c.Request.URL.Path))
			abort(c, code, message)
			return
		}
		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			abort(c, dto.ErrCodeTokenInvalid, "Invalid token")
			return
		}

		actor := identity.Actor{UserID: userID, Username: claims.Username, Role: identity.Role(claims.Role)}
		c.Set(JWTClaimsKey, claims)
		c.Set(JWTUserIDKey, claims.UserID)

		ctx := identity.WithActor(c.Request.Context(), actor)
		ctx, _ = logger.WithUserID(ctx, logger.FromContext(ctx), claims.UserID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func authErrorCode(err error) (string, string) {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenBlacklisted):
		return dto.ErrCodeTokenRevoked, "Token has been revoked"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrInvalidTokenType),
		errors.Is(err, auth.ErrInvalidClaims),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrInvalidRole):
		return dto.ErrCodeTokenInvalid, "Invalid token"
	}
	return dto.ErrCodeUnauthorized, "Authentication required"
}

// GetClaims returns the validated token claims, or nil on public routes
func GetClaims(c *gin.Context) *auth.Claims {
	claims, _ := c.Get(JWTClaimsKey)
	cl, _ := claims.(*auth.Claims)
	return cl
}

// GetActor returns the authenticated caller
func GetActor(c *gin.Context) (identity.Actor, bool) {
	return identity.ActorFromContext(c.Request.Context())
}
