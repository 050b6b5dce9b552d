package middleware

import (
	"net/http"

	userRepo "appispot/database/repository/user"
	"appispot/models"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
)

// RequireHost allows only accounts with the host (or admin) role through.
// Must run after JWTAuthMiddleware.
func RequireHost(users userRepo.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		callerID := CallerID(c)
		if callerID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		usr, err := users.GetByIDWithProjection(callerID, bson.M{"id": 1, "role": 1})
		if err != nil || usr == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication error"})
			return
		}
		if usr.Role != models.RoleHost && usr.Role != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Host account required"})
			return
		}
		c.Next()
	}
}
