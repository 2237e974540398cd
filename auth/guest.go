package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/George-Dev-Web/cakes2/apperrors"
)

// POST /api/auth/guest
//
// Issues a guest cart session, reusing the caller's current one when it is
// still well formed.
func CreateGuestSession(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sid, err := c.Cookie(SessionCookie); err == nil && ValidSessionID(sid) {
			c.JSON(http.StatusOK, gin.H{"session_id": sid})
			return
		}

		sid, err := NewSessionID()
		if err != nil {
			_ = c.Error(apperrors.Database("Failed to create guest session", err))
			return
		}
		SetSessionCookie(c, sid, d.SecureCookie)
		c.JSON(http.StatusCreated, gin.H{"session_id": sid})
	}
}
