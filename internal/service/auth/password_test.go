package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasherRoundTrip(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost) // MinCost keeps the test fast

	hash, err := hasher.Hash("a-long-enough-password")
	require.NoError(t, err)
	assert.NotEqual(t, "a-long-enough-password", hash)

	assert.NoError(t, hasher.Compare(hash, "a-long-enough-password"))
	assert.Error(t, hasher.Compare(hash, "a-different-password"))
}

func TestBcryptHasherDefaultCost(t *testing.T) {
	hasher := NewBcryptHasher(0)
	assert.Equal(t, bcrypt.DefaultCost, hasher.cost)
}

func TestGenerateResetToken(t *testing.T) {
	plaintext, hash, err := GenerateResetToken()
	require.NoError(t, err)

	assert.Len(t, plaintext, 64) // 32 bytes hex-encoded
	assert.Equal(t, HashResetToken(plaintext), hash)
	assert.NotEqual(t, plaintext, hash)

	// Tokens are unique per call.
	other, _, err := GenerateResetToken()
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, other)
}
