package middleware

import (
	"github.com/distribuidora/backend/internal/domain/identity"
	"github.com/distribuidora/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// RequirePermission answers 403 FORBIDDEN unless the caller's token carries
// resource:action. The role is not consulted: the permissions were fixed when
// the token was issued.
func RequirePermission(resource, action string) gin.HandlerFunc {
	required := identity.Permission(resource, action)
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			abort(c, dto.ErrCodeUnauthorized, "Authentication required")
			return
		}
		if !identity.HasPermission(claims.Permissions, required) {
			abort(c, dto.ErrCodeForbidden, "Missing permission "+required)
			return
		}
		c.Next()
	}
}

// RequireRole restricts a route to the listed roles
func RequireRole(roles ...identity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			abort(c, dto.ErrCodeUnauthorized, "Authentication required")
			return
		}
		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}
		abort(c, dto.ErrCodeForbidden, "Role "+actor.Role.String()+" may not access this resource")
	}
}
