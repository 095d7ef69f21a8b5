package middlewares

import (
	"net/http"

	"github.com/carehub/patienthub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// RequireRole gates a route group on an exact role. Runs after RequireAuth.
func (m *AuthMiddleware) RequireRole(required user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFromContext(c)

		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "Missing identity context",
			})
			return
		}

		if identity.Role != required {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"message": "Insufficient role for this endpoint",
			})
			return
		}
		c.Next()
	}
}
