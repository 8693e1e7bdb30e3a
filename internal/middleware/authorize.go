package middleware

import (
	"github.com/gin-gonic/gin"

	"lgcms/internal/apperr"
	"lgcms/internal/models"
	"lgcms/internal/response"
)

// RequireRoles must run after RequireSession.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	roleSet := make(map[models.Role]struct{}, len(roles))
	for _, role := range roles {
		roleSet[role] = struct{}{}
	}

	return func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if !ok {
			response.Fail(c, errNoToken)
			return
		}

		if _, ok := roleSet[identity.Role]; !ok {
			response.Fail(c, apperr.Forbidden("User role "+string(identity.Role)+" is not authorized to access this route"))
			return
		}

		c.Next()
	}
}
