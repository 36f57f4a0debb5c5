package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasknest/tasknest/internal/config"
	"github.com/tasknest/tasknest/internal/platform/ttlstore"
)

const testSecret = "test-secret-that-is-at-least-32-chars!!"

// newTestTokenService builds a token service over an in-memory revocation
// store with an adjustable clock shared between both.
func newTestTokenService(t *testing.T) (*hmacTokenService, *time.Time) {
	t.Helper()

	now := time.Now().UTC()
	current := &now

	revoked := ttlstore.NewMemoryStore()
	t.Cleanup(func() { _ = revoked.Close() })

	svc, err := NewTokenService(config.AuthConfig{
		JWTSecret:            testSecret,
		TokenLifetimeMinutes: 60,
	}, revoked)
	require.NoError(t, err)

	impl := svc.(*hmacTokenService)
	impl.timeFunc = func() time.Time { return *current }
	// No skew so expiry tests don't need to reason about leeway.
	impl.clockSkew = 0

	return impl, current
}

func TestNewTokenServiceRejectsShortSecret(t *testing.T) {
	revoked := ttlstore.NewMemoryStore()
	defer func() { _ = revoked.Close() }()

	_, err := NewTokenService(config.AuthConfig{JWTSecret: "short", TokenLifetimeMinutes: 60}, revoked)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 characters")
}

func TestNewTokenServiceRequiresRevocationStore(t *testing.T) {
	_, err := NewTokenService(config.AuthConfig{JWTSecret: testSecret, TokenLifetimeMinutes: 60}, nil)
	require.Error(t, err)
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	svc, now := newTestTokenService(t)
	ctx := context.Background()
	userID := uuid.New()

	token, expiresAt, err := svc.Issue(ctx, userID)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, now.Add(time.Hour), expiresAt)

	claims, err := svc.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, expiresAt, claims.ExpiresAt, time.Second)
}

func TestVerifyExpiredToken(t *testing.T) {
	svc, now := newTestTokenService(t)
	ctx := context.Background()

	token, _, err := svc.Issue(ctx, uuid.New())
	require.NoError(t, err)

	*now = now.Add(61 * time.Minute)

	_, err = svc.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyMalformedToken(t *testing.T) {
	svc, _ := newTestTokenService(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		token string
	}{
		{"garbage", "definitely-not-a-jwt"},
		{"empty segments", ".."},
		{"never issued", jwtSignedWithOtherKey(t)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Verify(ctx, tc.token)
			assert.ErrorIs(t, err, ErrMalformedToken)
		})
	}
}

func TestVerifyMissingToken(t *testing.T) {
	svc, _ := newTestTokenService(t)

	_, err := svc.Verify(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestVerifyTamperedSignature(t *testing.T) {
	svc, _ := newTestTokenService(t)
	ctx := context.Background()

	token, _, err := svc.Issue(ctx, uuid.New())
	require.NoError(t, err)

	tampered := token[:len(token)-4] + "AAAA"
	_, err = svc.Verify(ctx, tampered)
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestRevokedTokenIsRejected(t *testing.T) {
	svc, _ := newTestTokenService(t)
	ctx := context.Background()

	token, _, err := svc.Issue(ctx, uuid.New())
	require.NoError(t, err)

	// Valid before revocation.
	_, err = svc.Verify(ctx, token)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, token))

	_, err = svc.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrRevokedToken)
}

func TestRevokeInvalidTokenIsNoOp(t *testing.T) {
	svc, _ := newTestTokenService(t)

	assert.NoError(t, svc.Revoke(context.Background(), "not-a-token"))
}

func TestRevokedEntryExpiresWithToken(t *testing.T) {
	svc, now := newTestTokenService(t)
	ctx := context.Background()

	token, _, err := svc.Issue(ctx, uuid.New())
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(ctx, token))

	// Once the token itself has expired, the verdict is "expired", not
	// "revoked". The stale revocation entry no longer matters.
	*now = now.Add(2 * time.Hour)
	_, err = svc.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

// jwtSignedWithOtherKey builds a structurally valid token signed with a
// different secret, standing in for a token this service never issued.
func jwtSignedWithOtherKey(t *testing.T) string {
	t.Helper()

	claims := jwt.RegisteredClaims{
		Subject:   uuid.New().String(),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("another-secret-also-32-characters!!!"))
	require.NoError(t, err)
	return signed
}
