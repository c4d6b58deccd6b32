package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestJWTService_RoundTrip(t *testing.T) {
	svc, err := NewJWTService(testSecret, time.Hour)
	require.NoError(t, err)

	token, expiresAt, err := svc.GenerateToken("u1", "alice@example.com", "s1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "s1", claims.SessionID)
}

func TestJWTService_RejectsExpiredToken(t *testing.T) {
	svc, err := NewJWTService(testSecret, time.Minute)
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }

	token, _, err := svc.GenerateToken("u1", "", "s1")
	require.NoError(t, err)

	_, err = svc.ParseToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestJWTService_RejectsForeignSignatureAndWrongUsage(t *testing.T) {
	svc, err := NewJWTService(testSecret, time.Hour)
	require.NoError(t, err)
	other, err := NewJWTService("ffffffffffffffffffffffffffffffff", time.Hour)
	require.NoError(t, err)

	foreign, _, err := other.GenerateToken("u1", "", "s1")
	require.NoError(t, err)
	_, err = svc.ParseToken(foreign)
	assert.ErrorIs(t, err, ErrTokenInvalid, "Токен с чужой подписью должен отклоняться")

	ticket, err := svc.GenerateWSTicket("u1", "s1")
	require.NoError(t, err)
	_, err = svc.ParseToken(ticket)
	assert.ErrorIs(t, err, ErrTokenInvalid, "WS тикет не должен приниматься как токен сессии")

	claims, err := svc.ParseWSTicket(ticket)
	require.NoError(t, err)
	assert.Equal(t, "s1", claims.SessionID)

	_, err = svc.ParseToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestNewJWTService_ShortSecret(t *testing.T) {
	_, err := NewJWTService("short", time.Hour)
	assert.Error(t, err)
}
