package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/George-Dev-Web/cakes2/apperrors"
	"github.com/George-Dev-Web/cakes2/auth"
	"github.com/George-Dev-Web/cakes2/authz"
	"github.com/George-Dev-Web/cakes2/models"
)

// RequirePermission lets the request through only if the caller's role may
// perform action on resource. Unauthenticated callers denied a permission
// get 401, signed-in ones 403.
func RequirePermission(e *authz.Enforcer, log *zap.Logger, resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := auth.CurrentRole(c)
		allowed, err := e.Allowed(role, resource, action)
		if err != nil {
			log.Error("permission check failed", zap.String("role", role), zap.Error(err))
			_ = c.Error(apperrors.Database("Permission check failed", err))
			c.Abort()
			return
		}
		if allowed {
			c.Next()
			return
		}

		if role == models.RoleGuest {
			_ = c.Error(apperrors.Authentication("Authentication required"))
		} else {
			_ = c.Error(apperrors.Authorization("Admin access required"))
		}
		c.Abort()
	}
}
