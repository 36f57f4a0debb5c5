// Package auth provides session token issuance/verification and password
// hashing services.
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TokenService defines operations for managing signed session tokens.
type TokenService interface {
	// Issue creates a signed token for the user, returning the token string
	// and its expiry time.
	Issue(ctx context.Context, userID uuid.UUID) (string, time.Time, error)

	// Verify validates the provided token string and extracts the claims.
	// Failure kinds are distinguished: ErrExpiredToken, ErrMalformedToken
	// (bad format, bad signature, wrong algorithm), ErrRevokedToken.
	Verify(ctx context.Context, tokenString string) (*Claims, error)

	// Revoke invalidates the token for the remainder of its lifetime by
	// adding it to the revocation set. The revocation entry expires together
	// with the token, so the set never grows beyond live tokens. Revoking an
	// invalid or already-expired token is a no-op.
	Revoke(ctx context.Context, tokenString string) error
}

// Claims represents the verified contents of a session token.
type Claims struct {
	// UserID is the unique identifier of the user the token was issued for.
	UserID uuid.UUID `json:"uid,omitempty"`

	// Standard registered JWT claims
	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
