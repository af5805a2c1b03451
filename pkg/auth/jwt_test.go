package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_GenerateAndValidate(t *testing.T) {
	svc := NewJWTService("test-secret-key", "decisionflow", time.Hour)

	token, err := svc.GenerateToken("router-client", []string{"message:send"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "router-client", claims.ClientID)
	assert.Equal(t, "decisionflow", claims.Issuer)
	assert.True(t, claims.HasScope("message:send"))
	assert.False(t, claims.HasScope("tasks:cancel"))
}

func TestJWTService_ExpiredToken(t *testing.T) {
	svc := NewJWTService("test-secret-key", "decisionflow", -time.Minute)

	token, err := svc.GenerateToken("router-client", nil)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTService_WrongSecret(t *testing.T) {
	svc := NewJWTService("secret-a", "decisionflow", time.Hour)
	other := NewJWTService("secret-b", "decisionflow", time.Hour)

	token, err := svc.GenerateToken("client", nil)
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_GarbageToken(t *testing.T) {
	svc := NewJWTService("secret", "decisionflow", time.Hour)

	_, err := svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
