package auth_test

import (
	"testing"
	"time"

	"github.com/chatzone/chatzone/internal/auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestTokenRoundTrip(t *testing.T) {
	userID := uuid.New()

	token, err := auth.GenerateToken(userID, "alice@example.com", testSecret, time.Hour)
	require.NoError(t, err)

	claims, err := auth.ParseToken(token, testSecret)
	require.NoError(t, err)
	require.Equal(t, userID, claims.UserID)
	require.Equal(t, "alice@example.com", claims.Email)
	require.Equal(t, "chatzone", claims.Issuer)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := auth.GenerateToken(uuid.New(), "alice@example.com", testSecret, time.Hour)
	require.NoError(t, err)

	_, err = auth.ParseToken(token, "other-secret")
	require.Error(t, err)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	token, err := auth.GenerateToken(uuid.New(), "alice@example.com", testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = auth.ParseToken(token, testSecret)
	require.Error(t, err)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := auth.ParseToken("not.a.token", testSecret)
	require.Error(t, err)
}
