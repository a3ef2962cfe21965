package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carecollective/care-api/pkg/auth/manager"
)

func newCSRFRouter(t *testing.T, production bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokenManager, err := manager.NewTokenManager(new(mockRefreshTokenRepo), new(mockManagerProfileRepo))
	require.NoError(t, err)
	tokenManager.SetProductionMode(production)

	r := gin.New()
	r.POST("/api/action", CSRFProtection(tokenManager), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/api/action", CSRFProtection(tokenManager), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func csrfRequest(method, cookieName, secret, header string) *http.Request {
	req := httptest.NewRequest(method, "/api/action", nil)
	if cookieName != "" {
		req.AddCookie(&http.Cookie{Name: cookieName, Value: secret})
	}
	if header != "" {
		req.Header.Set(manager.CSRFHeader, header)
	}
	return req
}

func TestCSRFProtection(t *testing.T) {
	const secret = "csrf-secret-value"
	valid := manager.HashCSRFSecret(secret)

	t.Run("Safe methods pass without a token", func(t *testing.T) {
		w := httptest.NewRecorder()
		newCSRFRouter(t, false).ServeHTTP(w, csrfRequest(http.MethodGet, "", "", ""))
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("Matching header and prefixed cookie accepted", func(t *testing.T) {
		w := httptest.NewRecorder()
		newCSRFRouter(t, false).ServeHTTP(w, csrfRequest(http.MethodPost, manager.CSRFSecretCookie, secret, valid))
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("Missing secret cookie refused", func(t *testing.T) {
		w := httptest.NewRecorder()
		newCSRFRouter(t, false).ServeHTTP(w, csrfRequest(http.MethodPost, "", "", valid))
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "csrf_secret_missing")
	})

	t.Run("Mismatched header refused", func(t *testing.T) {
		w := httptest.NewRecorder()
		newCSRFRouter(t, false).ServeHTTP(w, csrfRequest(http.MethodPost, manager.CSRFSecretCookie, secret, "not-the-hash"))
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "csrf_token_invalid")
	})

	t.Run("Fallback cookie accepted outside production", func(t *testing.T) {
		w := httptest.NewRecorder()
		newCSRFRouter(t, false).ServeHTTP(w, csrfRequest(http.MethodPost, "csrf-secret", secret, valid))
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("Fallback cookie refused in production", func(t *testing.T) {
		w := httptest.NewRecorder()
		newCSRFRouter(t, true).ServeHTTP(w, csrfRequest(http.MethodPost, "csrf-secret", secret, valid))
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "csrf_secret_missing")
	})
}
