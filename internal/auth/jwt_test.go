package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthenticator() *JWTAuthenticator {
	return NewJWTAuthenticator("access-secret", "refresh-secret", "AmalaJoint", "AmalaJoint", time.Hour, 24*time.Hour)
}

func TestGenerateAndValidateTokens(t *testing.T) {
	authenticator := newTestAuthenticator()

	access, refresh, err := authenticator.GenerateTokens(42)
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)

	token, err := authenticator.ValidateAccessToken(access)
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, float64(42), claims["sub"])
	assert.Equal(t, "AmalaJoint", claims["iss"])
}

func TestTokensAreNotInterchangeable(t *testing.T) {
	authenticator := newTestAuthenticator()

	access, refresh, err := authenticator.GenerateTokens(42)
	require.NoError(t, err)

	_, err = authenticator.ValidateAccessToken(refresh)
	assert.Error(t, err)

	_, err = authenticator.ValidateRefreshToken(access)
	assert.Error(t, err)

	_, err = authenticator.ValidateRefreshToken(refresh)
	assert.NoError(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	authenticator := NewJWTAuthenticator("access-secret", "refresh-secret", "AmalaJoint", "AmalaJoint", -time.Minute, -time.Minute)

	access, _, err := authenticator.GenerateTokens(42)
	require.NoError(t, err)

	_, err = authenticator.ValidateAccessToken(access)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestTamperedTokenRejected(t *testing.T) {
	authenticator := newTestAuthenticator()

	access, _, err := authenticator.GenerateTokens(42)
	require.NoError(t, err)

	_, err = authenticator.ValidateAccessToken(access + "x")
	assert.Error(t, err)
}

func TestTokenWithoutExpiryRejected(t *testing.T) {
	authenticator := newTestAuthenticator()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": int64(42)})
	signed, err := token.SignedString([]byte("access-secret"))
	require.NoError(t, err)

	_, err = authenticator.ValidateAccessToken(signed)
	assert.Error(t, err)
}
