package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/bogdanivan12/odes/internal/models"
	"github.com/bogdanivan12/odes/internal/repository"
)

// Audit records an audit log entry after each mutating request on the route.
func Audit(repo *repository.UserRepository, action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		var userID *string
		if claims, ok := c.Get(ContextUserKey); ok {
			subject := claims.(*models.JWTClaims).Subject
			userID = &subject
		}

		var resourceID *string
		if id := c.Param("id"); id != "" {
			resourceID = &id
		}

		_ = repo.CreateAuditLog(c.Request.Context(), &models.AuditLog{
			UserID:     userID,
			Action:     action,
			Resource:   resource,
			ResourceID: resourceID,
			Status:     c.Writer.Status(),
			IPAddress:  c.ClientIP(),
			UserAgent:  c.GetHeader("User-Agent"),
		})
	}
}
