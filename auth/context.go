package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/George-Dev-Web/cakes2/models"
	"github.com/George-Dev-Web/cakes2/services/cart"
	"github.com/George-Dev-Web/cakes2/services/order"
)

// Keys the middleware stores on the gin context.
const (
	ContextUserID    = "user_id"
	ContextEmail     = "email"
	ContextRole      = "role"
	ContextSessionID = "session_id"
)

func CurrentUserID(c *gin.Context) (uint, bool) {
	id, ok := c.Get(ContextUserID)
	if !ok {
		return 0, false
	}
	uid, ok := id.(uint)
	return uid, ok && uid != 0
}

// CurrentRole is the caller's role, guest when unauthenticated.
func CurrentRole(c *gin.Context) string {
	if role := c.GetString(ContextRole); role != "" {
		return role
	}
	return models.RoleGuest
}

func CurrentSessionID(c *gin.Context) string {
	return c.GetString(ContextSessionID)
}

// Owner picks the cart of the signed-in user, falling back to the guest
// session.
func Owner(c *gin.Context) cart.Owner {
	if id, ok := CurrentUserID(c); ok {
		return cart.UserOwner(id)
	}
	return cart.GuestOwner(CurrentSessionID(c))
}

// Viewer describes the caller for order visibility checks.
func Viewer(c *gin.Context) order.Viewer {
	id, _ := CurrentUserID(c)
	return order.Viewer{UserID: id, IsAdmin: CurrentRole(c) == models.RoleAdmin}
}
