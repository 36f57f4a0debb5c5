package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserNormalizesEmail(t *testing.T) {
	user, err := NewUser("  Alice@Example.COM ", "a-long-enough-password")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
}

func TestNewUserValidation(t *testing.T) {
	cases := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"empty email", "", "a-long-enough-password", ErrEmptyEmail},
		{"no at sign", "alice.example.com", "a-long-enough-password", ErrInvalidEmail},
		{"no domain dot", "alice@example", "a-long-enough-password", ErrInvalidEmail},
		{"password too short", "alice@example.com", "short", ErrPasswordTooShort},
		{"password too long", "alice@example.com", string(make([]byte, 73)), ErrPasswordTooLong},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewUser(tc.email, tc.password)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestValidateStoredUserNeedsHash(t *testing.T) {
	user, err := NewUser("alice@example.com", "a-long-enough-password")
	require.NoError(t, err)

	// Simulate a user loaded from the store: no plaintext, no hash.
	user.Password = ""
	user.HashedPassword = ""
	assert.ErrorIs(t, user.Validate(), ErrEmptyPassword)

	user.HashedPassword = "$2a$10$abcdefghijklmnopqrstuv"
	assert.NoError(t, user.Validate())
}
