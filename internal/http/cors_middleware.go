package http

import (
	"net/http"

	"github.com/novamoderation/novamod/internal/metrics"

	"github.com/gin-gonic/gin"
)

const (
	corsAllowHeaders = "authorization, x-api-key, x-client-info, apikey, content-type"
	corsAllowMethods = "GET, POST, OPTIONS"
	corsMaxAge       = "86400"
)

// CORSMiddleware validates the caller's Origin against the configured
// allow-list and emits cross-origin headers on every response. A disallowed
// origin is rejected before any other processing; preflight requests are
// answered immediately. Requests without an Origin header pass through, with
// the allow-origin header defaulting to the first configured origin.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowAll := false
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = struct{}{}
	}
	defaultOrigin := "*"
	if len(allowedOrigins) > 0 {
		defaultOrigin = allowedOrigins[0]
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowOrigin := defaultOrigin
		originAllowed := true
		if origin != "" {
			if allowAll {
				allowOrigin = "*"
			} else if _, ok := allowed[origin]; ok {
				allowOrigin = origin
			} else {
				originAllowed = false
			}
		}

		c.Header("Access-Control-Allow-Origin", allowOrigin)
		c.Header("Access-Control-Allow-Headers", corsAllowHeaders)
		c.Header("Access-Control-Allow-Methods", corsAllowMethods)
		c.Header("Access-Control-Max-Age", corsMaxAge)

		// Preflight always succeeds, even from an origin the browser will
		// ultimately be refused; the actual request is rejected below.
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		if !originAllowed {
			metrics.RequestsTotal.WithLabelValues(metrics.OutcomeOriginDenied).Inc()
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Origin not allowed"})
			return
		}

		c.Next()
	}
}
