package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/bogdanivan12/odes/internal/models"
	appErrors "github.com/bogdanivan12/odes/pkg/errors"
	"github.com/bogdanivan12/odes/pkg/response"
)

// InstitutionParam is the route parameter carrying the institution scope.
const InstitutionParam = "institutionId"

// UserLoader resolves the authenticated user so roles are always read fresh
// from storage. A revoked role takes effect without waiting for token expiry.
type UserLoader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// RequireRoles allows only users holding one of the roles at the institution
// named by the route parameter.
func RequireRoles(users UserLoader, roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		institutionID := c.Param(InstitutionParam)
		if institutionID == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "missing institution scope"))
			c.Abort()
			return
		}

		user, err := users.FindByID(c.Request.Context(), claims.Subject)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "user no longer exists"))
			c.Abort()
			return
		}

		if !user.UserRoles.Has(institutionID, roles...) {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireSelfOrRoles additionally allows a user acting on their own record,
// matched against the given route parameter.
func RequireSelfOrRoles(users UserLoader, selfParam string, roles ...models.UserRole) gin.HandlerFunc {
	guard := RequireRoles(users, roles...)
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)
		if target := c.Param(selfParam); target != "" && target == claims.Subject {
			c.Next()
			return
		}
		guard(c)
	}
}
