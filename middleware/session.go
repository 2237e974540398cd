package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/George-Dev-Web/cakes2/apperrors"
	"github.com/George-Dev-Web/cakes2/auth"
)

// GuestSession makes sure an anonymous caller has a cart session, issuing
// the cookie on first use. Signed-in callers are left alone.
func GuestSession(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := auth.CurrentUserID(c); ok {
			c.Next()
			return
		}

		sid, err := c.Cookie(auth.SessionCookie)
		if err != nil || !auth.ValidSessionID(sid) {
			sid, err = auth.NewSessionID()
			if err != nil {
				_ = c.Error(apperrors.Database("Failed to create guest session", err))
				c.Abort()
				return
			}
			auth.SetSessionCookie(c, sid, secure)
		}
		c.Set(auth.ContextSessionID, sid)
		c.Next()
	}
}
