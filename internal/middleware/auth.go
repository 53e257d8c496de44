package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// APITokenAuth validates the X-API-Key header against a static token.
// An empty token disables the check, keeping the API open for local use.
func APITokenAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		key := c.GetHeader("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(key), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				gin.H{"error": gin.H{"code": "INVALID_API_KEY", "message": "Invalid or missing API key"}})
			return
		}
		c.Next()
	}
}
