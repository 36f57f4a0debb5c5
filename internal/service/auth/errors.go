package auth

import "errors"

// Common authentication service errors. Verification distinguishes the
// failure kinds so the HTTP layer can report them separately.
var (
	// ErrMalformedToken indicates the token format is invalid or the
	// signature doesn't match.
	ErrMalformedToken = errors.New("malformed authentication token")

	// ErrExpiredToken indicates the token has expired.
	ErrExpiredToken = errors.New("authentication token has expired")

	// ErrRevokedToken indicates the token was explicitly revoked (logout).
	ErrRevokedToken = errors.New("authentication token has been revoked")

	// ErrMissingToken indicates a token was expected but not provided.
	ErrMissingToken = errors.New("authentication token is missing")

	// ErrInvalidCredentials indicates an email/password pair did not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
