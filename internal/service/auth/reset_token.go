package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// ResetTokenTTL is how long an issued password-reset token stays valid.
const ResetTokenTTL = time.Hour

// resetTokenBytes is the entropy of a reset token (hex-encoded for the wire).
const resetTokenBytes = 32

// GenerateResetToken creates a single-use password-reset token. The plaintext
// is mailed to the user; only the hash may be persisted.
func GenerateResetToken() (plaintext, hash string, err error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	plaintext = hex.EncodeToString(buf)
	return plaintext, HashResetToken(plaintext), nil
}

// HashResetToken returns the hex SHA-256 digest of a reset token, the only
// form in which tokens are stored or looked up.
func HashResetToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
