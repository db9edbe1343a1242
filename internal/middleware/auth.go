package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ExtractAPIKey pulls the caller API key from the context or request headers.
func ExtractAPIKey(c *gin.Context) string {
	if v, ok := c.Get("api_key"); ok {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	auth := strings.TrimSpace(c.GetHeader("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	if v := strings.TrimSpace(c.GetHeader("x-api-key")); v != "" {
		return v
	}
	return ""
}

// APIKey stores the caller API key on the context so downstream resolution and
// logging see a single value.
func APIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := ExtractAPIKey(c); key != "" {
			c.Set("api_key", key)
		}
		c.Next()
	}
}

// RequireAccessToken enforces a static inbound token when one is configured.
// tokenFn is consulted per request so hot reload takes effect immediately.
func RequireAccessToken(tokenFn func() string) gin.HandlerFunc {
	return func(c *gin.Context) {
		want := strings.TrimSpace(tokenFn())
		if want == "" {
			c.Next()
			return
		}
		got := ExtractAPIKey(c)
		if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"message": "Invalid or missing access token",
					"type":    "authentication_error",
					"code":    "invalid_api_key",
				},
			})
			return
		}
		c.Next()
	}
}
