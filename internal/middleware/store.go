package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StoreMiddleware ensures a store context is present for inventory routes.
// No default fallback - requests without store context are rejected.
func StoreMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		storeID := c.GetString("store_id")
		if storeID == "" {
			storeID = c.GetHeader("X-Store-ID")
		}

		if storeID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "STORE_REQUIRED",
					"message": "Store ID is required. Include X-Store-ID header or a token with a storeId claim.",
				},
			})
			c.Abort()
			return
		}

		c.Set("store_id", storeID)
		c.Next()
	}
}

// GetStoreID retrieves the store ID from gin context
func GetStoreID(c *gin.Context) string {
	return c.GetString("store_id")
}

// GetUserID retrieves the authenticated user ID from gin context
func GetUserID(c *gin.Context) string {
	return c.GetString("user_id")
}
