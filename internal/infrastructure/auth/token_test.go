package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret, subject, name string) string {
	t.Helper()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Name: name,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestVerifyValidToken(t *testing.T) {
	v := NewVerifier("secret", false)

	identity, err := v.Verify(signToken(t, "secret", "user-1", "Ada"), "")
	require.NoError(t, err)
	assert.Equal(t, "user-1", identity.UserID)
	assert.Equal(t, "Ada", identity.Name)
	assert.False(t, identity.Guest)
}

func TestVerifyDisplayNameOverride(t *testing.T) {
	v := NewVerifier("secret", false)

	identity, err := v.Verify(signToken(t, "secret", "user-1", "Ada"), "Ada L.")
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", identity.Name)
}

func TestVerifyWrongSecret(t *testing.T) {
	v := NewVerifier("secret", false)

	_, err := v.Verify(signToken(t, "other", "user-1", "Ada"), "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyGuestFallback(t *testing.T) {
	v := NewVerifier("secret", true)

	identity, err := v.Verify("", "Visitor")
	require.NoError(t, err)
	assert.True(t, identity.Guest)
	assert.Equal(t, "Visitor", identity.Name)
	assert.Contains(t, identity.UserID, "guest-")

	// Each guest gets a distinct identity.
	other, err := v.Verify("", "Visitor")
	require.NoError(t, err)
	assert.NotEqual(t, identity.UserID, other.UserID)
}

func TestVerifyGuestsDisallowed(t *testing.T) {
	v := NewVerifier("secret", false)

	_, err := v.Verify("", "Visitor")
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestExtractTokenPrefersQuery(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/rooms/r1/join?token=query-token", nil)
	r.Header.Set("Authorization", "Bearer header-token")
	assert.Equal(t, "query-token", ExtractToken(r))

	r = httptest.NewRequest("GET", "/api/rooms/r1/join", nil)
	r.Header.Set("Authorization", "Bearer header-token")
	assert.Equal(t, "header-token", ExtractToken(r))

	r = httptest.NewRequest("GET", "/api/rooms/r1/join", nil)
	assert.Empty(t, ExtractToken(r))
}
