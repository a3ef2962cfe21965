package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/carecollective/care-api/pkg/auth/manager"
)

// CSRFProtection enforces the double-submit-cookie scheme on state-changing
// requests: the X-CSRF-Token header must match the hash of the HttpOnly CSRF
// secret cookie. Safe methods pass through.
func CSRFProtection(tokenManager *manager.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		secret, err := tokenManager.GetCSRFSecretFromCookie(c.Request)
		if err != nil || secret == "" {
			// Fallback cookie name for local development, where the __Host-
			// prefix cannot be set without Secure. In production the prefixed
			// cookie is the only accepted source.
			if !tokenManager.IsProductionMode() {
				if cookie, cerr := c.Request.Cookie("csrf-secret"); cerr == nil {
					secret = cookie.Value
				}
			}
		}
		if secret == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "csrf_secret_missing"})
			return
		}

		header := c.GetHeader(manager.CSRFHeader)
		expected := manager.HashCSRFSecret(secret)
		if subtle.ConstantTimeCompare([]byte(header), []byte(expected)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "csrf_token_invalid"})
			return
		}

		c.Next()
	}
}
