package middleware

import (
	"net/netip"
	"strings"

	"github.com/distribuidora/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// swaggerCSP lets the bundled UI load its own scripts and styles, which the
// API-wide policy from Secure forbids
const swaggerCSP = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; frame-ancestors 'none'"

// SwaggerConfig controls who may read the API documentation
type SwaggerConfig struct {
	Enabled bool
	// RequireAuth runs the authenticate handler before serving the docs
	RequireAuth bool
	// AllowedIPs are addresses or CIDR ranges; empty allows every client
	AllowedIPs []string
}

// SwaggerProtection guards /swagger. A disabled endpoint answers 404, a
// client outside AllowedIPs 403, and with RequireAuth the request must pass
// authenticate (normally JWTAuth) first.
func SwaggerProtection(cfg SwaggerConfig, authenticate gin.HandlerFunc) gin.HandlerFunc {
	allowed := parsePrefixes(cfg.AllowedIPs)

	return func(c *gin.Context) {
		if !cfg.Enabled {
			abort(c, dto.ErrCodeNotFound, "API documentation is not available")
			return
		}
		if len(cfg.AllowedIPs) > 0 && !clientAllowed(c.ClientIP(), allowed) {
			abort(c, dto.ErrCodeForbidden, "Access to API documentation is restricted")
			return
		}
		c.Header("Content-Security-Policy", swaggerCSP)
		if cfg.RequireAuth && authenticate != nil {
			// authenticate continues the chain itself
			authenticate(c)
			return
		}
		c.Next()
	}
}

// parsePrefixes turns addresses and CIDR ranges into prefixes, a bare
// address becoming a single-host prefix. Unparsable entries are skipped.
func parsePrefixes(entries []string) []netip.Prefix {
	prefixes := make([]netip.Prefix, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if strings.Contains(entry, "/") {
			if p, err := netip.ParsePrefix(entry); err == nil {
				prefixes = append(prefixes, p.Masked())
			}
			continue
		}
		if addr, err := netip.ParseAddr(entry); err == nil {
			prefixes = append(prefixes, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
		}
	}
	return prefixes
}

func clientAllowed(clientIP string, allowed []netip.Prefix) bool {
	addr, err := netip.ParseAddr(clientIP)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range allowed {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
