package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/bogdanivan12/odes/internal/middleware"
	"github.com/bogdanivan12/odes/internal/models"
)

// claimsFromContext returns the JWT claims the auth middleware stored, or nil
// on unauthenticated routes.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}
