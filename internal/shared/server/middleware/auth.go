package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"jobpilot-backend/internal/shared/server/respond"
)

const userIDKey = "userId"

// Identity reads the gateway-forwarded X-User-Id header and stores the
// caller identity in context. The API sits behind a gateway that has
// already authenticated the user; internal callbacks registered under
// exempt prefixes skip the check.
func Identity(exemptPrefixes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		path := c.Request.URL.Path
		for _, prefix := range exemptPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		userID := strings.TrimSpace(c.GetHeader("X-User-Id"))
		if userID == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserIDFromContext fetches the user ID set by the identity middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}
