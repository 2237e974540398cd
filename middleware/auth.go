package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/George-Dev-Web/cakes2/apperrors"
	"github.com/George-Dev-Web/cakes2/auth"
)

// Authenticate reads the access token from the cookie or an
// Authorization: Bearer header and records the caller on the context. It
// never rejects a request; RequireAuth does that.
func Authenticate(tokens *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			raw, _ = c.Cookie(auth.AccessCookie)
		}
		if raw == "" {
			c.Next()
			return
		}

		claims, err := tokens.Parse(raw)
		if err != nil {
			c.Set(invalidTokenKey, true)
			c.Next()
			return
		}
		c.Set(auth.ContextUserID, claims.UserID)
		c.Set(auth.ContextEmail, claims.Email)
		c.Set(auth.ContextRole, claims.Role)
		c.Next()
	}
}

const invalidTokenKey = "invalid_token"

// RequireAuth rejects callers without a valid token.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := auth.CurrentUserID(c); ok {
			c.Next()
			return
		}
		msg := "Authentication required"
		if c.GetBool(invalidTokenKey) {
			msg = "Invalid or expired token"
		}
		_ = c.Error(apperrors.Authentication(msg))
		c.Abort()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
