package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/George-Dev-Web/cakes2/models"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	user := &models.User{ID: 42, Email: "baker@example.com", IsAdmin: true}

	token, exp, err := issuer.Issue(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "baker@example.com", claims.Email)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "42", claims.Subject)
}

func TestTokenIssuer_DefaultTTL(t *testing.T) {
	assert.Equal(t, 24*time.Hour, NewTokenIssuer("secret", 0).TTL())
}

func TestTokenIssuer_Expired(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Minute)
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return start }

	token, _, err := issuer.Issue(&models.User{ID: 1})
	require.NoError(t, err)

	issuer.now = func() time.Time { return start.Add(2 * time.Minute) }
	_, err = issuer.Parse(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestTokenIssuer_RejectsForeignTokens(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	claims := Claims{
		UserID: 1,
		Role:   models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	otherSecret, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other"))
	require.NoError(t, err)
	_, err = issuer.Parse(otherSecret)
	assert.Error(t, err)

	otherAlg, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = issuer.Parse(otherAlg)
	assert.Error(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = issuer.Parse(unsigned)
	assert.Error(t, err)

	noExpiry := claims
	noExpiry.ExpiresAt = nil
	missingExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, noExpiry).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = issuer.Parse(missingExp)
	assert.Error(t, err)
}

func TestSessionID(t *testing.T) {
	id, err := NewSessionID()
	require.NoError(t, err)
	assert.Len(t, id, 32)
	assert.True(t, ValidSessionID(id))

	assert.False(t, ValidSessionID(""))
	assert.False(t, ValidSessionID("not-hex-but-thirty-two-chars-xx!"))
	assert.False(t, ValidSessionID(id[:30]))
}
