package http

import (
	"errors"
	"net/http"

	"github.com/novamoderation/novamod/internal/access"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// accessResultKey is the gin context key holding the authenticated result.
const accessResultKey = "accessResult"

// AccessAuthMiddleware authenticates API keys and injects the access result.
func AccessAuthMiddleware(provider *access.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, errAuth := provider.Authenticate(c.Request.Context(), c.Request)
		if errAuth == nil {
			c.Set(accessResultKey, result)
			c.Next()
			return
		}
		AbortWithAuthError(c, errAuth)
	}
}

// AbortWithAuthError maps an authentication failure to its HTTP response.
// Invalid-credential and quota messages are surfaced verbatim.
func AbortWithAuthError(c *gin.Context, errAuth error) {
	switch {
	case errors.Is(errAuth, access.ErrNoCredentials):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errAuth.Error()})
	case errors.Is(errAuth, access.ErrInvalidCredential):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": errAuth.Error()})
	case errors.Is(errAuth, access.ErrQuotaExhausted):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": errAuth.Error()})
	default:
		log.WithError(errAuth).Error("access auth error")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Authentication service error"})
	}
}

// AccessResult returns the authenticated result stored by the middleware.
func AccessResult(c *gin.Context) *access.Result {
	val, exists := c.Get(accessResultKey)
	if !exists {
		return nil
	}
	result, ok := val.(*access.Result)
	if !ok {
		return nil
	}
	return result
}
