package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("s3cret")
	tok, err := GenerateToken(secret, "agent-1", "tenant-a", true, time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "agent-1", claims.Subject)
	assert.Equal(t, "tenant-a", claims.TenantID)
	assert.True(t, claims.Admin)
}

func TestValidateToken_Rejects(t *testing.T) {
	secret := []byte("s3cret")

	expired, err := GenerateToken(secret, "agent-1", "tenant-a", false, -time.Minute)
	require.NoError(t, err)
	_, err = ValidateToken(secret, expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other, err := GenerateToken([]byte("other"), "agent-1", "tenant-a", false, time.Hour)
	require.NoError(t, err)
	_, err = ValidateToken(secret, other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = GenerateToken(nil, "agent-1", "tenant-a", false, time.Hour)
	assert.Error(t, err)
}
