package auth

import (
	"testing"
	"time"

	"github.com/erp/quotefinance/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser() *TokenParser {
	return NewTokenParser(config.JWTConfig{
		Secret: "test-secret-key-at-least-32-chars",
		Issuer: "identity",
	})
}

func TestTokenParser_RoundTrip(t *testing.T) {
	p := newTestParser()
	userID := uuid.New()

	token, err := p.Issue(userID, "Finance Lead", true, time.Hour)
	require.NoError(t, err)

	claims, err := p.Parse(token)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, userID, id)
	assert.True(t, claims.Privileged)
	assert.Equal(t, "Finance Lead", claims.Name)
}

func TestTokenParser_Errors(t *testing.T) {
	p := newTestParser()

	t.Run("expired", func(t *testing.T) {
		token, err := p.Issue(uuid.New(), "", false, -time.Minute)
		require.NoError(t, err)
		_, err = p.Parse(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenParser(config.JWTConfig{Secret: "another-secret-key-at-least-32-chars", Issuer: "identity"})
		token, err := other.Issue(uuid.New(), "", false, time.Hour)
		require.NoError(t, err)
		_, err = p.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewTokenParser(config.JWTConfig{Secret: "test-secret-key-at-least-32-chars", Issuer: "elsewhere"})
		token, err := other.Issue(uuid.New(), "", false, time.Hour)
		require.NoError(t, err)
		_, err = p.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("non uuid subject", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "identity",
				Subject:   "alice",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}).SignedString([]byte("test-secret-key-at-least-32-chars"))
		require.NoError(t, err)
		_, err = p.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidClaims)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := p.Parse("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
