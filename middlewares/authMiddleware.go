package middlewares

import (
	"net/http"
	"os"

	"bitbucket.org/mmdatafocus/datacheck_backend/utils"
	"github.com/gin-gonic/gin"
)

// APIKeyAuthMiddleware checks X-API-Key against the bcrypt hash in
// API_KEY_HASH. With no hash configured the API runs open, which is the
// expected mode for local development.
func APIKeyAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		hash := os.Getenv("API_KEY_HASH")
		if hash == "" {
			c.Next()
			return
		}

		key := c.GetHeader("X-API-Key")
		if key == "" || utils.CompareAPIKey(hash, key) != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}
