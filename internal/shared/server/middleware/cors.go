package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	corsAllowMethods = "GET,POST,PUT,OPTIONS"
	corsAllowHeaders = "Content-Type, " + RequestIDHeader
)

// OriginPolicy is the configured browser-origin allowlist shared by CORS and
// the websocket upgrade. "*" admits any origin without credentials, which is
// meant for local development.
type OriginPolicy struct {
	origins  map[string]struct{}
	wildcard bool
}

// NewOriginPolicy builds a policy from CORS_ALLOW_ORIGINS entries. Trailing
// slashes and blanks are ignored.
func NewOriginPolicy(allowedOrigins []string) OriginPolicy {
	p := OriginPolicy{origins: make(map[string]struct{})}
	for _, o := range allowedOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		switch o {
		case "":
		case "*":
			p.wildcard = true
		default:
			p.origins[o] = struct{}{}
		}
	}
	return p
}

// Listed reports whether origin is named explicitly.
func (p OriginPolicy) Listed(origin string) bool {
	_, ok := p.origins[origin]
	return ok
}

// Allows reports whether a browser at origin may call the API. An empty
// policy behaves like the wildcard.
func (p OriginPolicy) Allows(origin string) bool {
	return p.wildcard || len(p.origins) == 0 || p.Listed(origin)
}

// CORS lets the candidate UI call the API from its own origin. Preflight
// requests are answered here and never reach the rate limiter.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	policy := NewOriginPolicy(allowedOrigins)

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		h := c.Writer.Header()
		if origin != "" {
			h.Add("Vary", "Origin")
			if policy.Listed(origin) {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
			} else if policy.wildcard {
				h.Set("Access-Control-Allow-Origin", "*")
			}
			if h.Get("Access-Control-Allow-Origin") != "" {
				h.Set("Access-Control-Allow-Methods", corsAllowMethods)
				h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
				h.Set("Access-Control-Expose-Headers", RequestIDHeader+", Retry-After")
				h.Set("Access-Control-Max-Age", "600")
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
