package auth

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	AccessCookie  = "access_token_cookie"
	SessionCookie = "cart_session_id"

	sessionMaxAge = 30 * 24 * time.Hour
)

func SetAccessCookie(c *gin.Context, token string, ttl time.Duration, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AccessCookie, token, int(ttl.Seconds()), "/", "", secure, true)
}

func ClearAccessCookie(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AccessCookie, "", -1, "/", "", secure, true)
}

func SetSessionCookie(c *gin.Context, id string, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, id, int(sessionMaxAge.Seconds()), "/", "", secure, true)
}

// NewSessionID returns 128 random bits as hex.
func NewSessionID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// ValidSessionID accepts only ids of the shape NewSessionID produces.
func ValidSessionID(id string) bool {
	if len(id) != 32 {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}
