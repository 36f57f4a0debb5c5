package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tasknest/tasknest/internal/config"
	"github.com/tasknest/tasknest/internal/platform/logger"
	"github.com/tasknest/tasknest/internal/platform/ttlstore"
)

// hmacTokenService is an implementation of TokenService using HMAC-SHA
// signing with a process-wide secret and a TTL-store-backed revocation set.
type hmacTokenService struct {
	signingKey    []byte
	tokenLifetime time.Duration
	revoked       ttlstore.Store
	timeFunc      func() time.Time // injectable for testing
	clockSkew     time.Duration    // allowed drift when validating time claims
}

// tokenClaims defines the structure of the JWT claims we sign.
type tokenClaims struct {
	UserID uuid.UUID `json:"uid"`
	jwt.RegisteredClaims
}

// Ensure hmacTokenService implements TokenService interface
var _ TokenService = (*hmacTokenService)(nil)

// NewTokenService creates a TokenService using HMAC-SHA256 signing. Revoked
// tokens are recorded in the given TTL store; passing an in-memory store
// means revocations do not survive a restart, which is the documented
// single-process degradation.
func NewTokenService(cfg config.AuthConfig, revoked ttlstore.Store) (TokenService, error) {
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 characters")
	}
	if revoked == nil {
		return nil, fmt.Errorf("revocation store is required")
	}

	return &hmacTokenService{
		signingKey:    []byte(cfg.JWTSecret),
		tokenLifetime: time.Duration(cfg.TokenLifetimeMinutes) * time.Minute,
		revoked:       revoked,
		timeFunc:      time.Now,
		clockSkew:     2 * time.Minute,
	}, nil
}

// Issue creates a signed session token with user claims.
func (s *hmacTokenService) Issue(ctx context.Context, userID uuid.UUID) (string, time.Time, error) {
	log := logger.FromContext(ctx)
	now := s.timeFunc()
	expiresAt := now.Add(s.tokenLifetime)

	claims := tokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(s.signingKey)
	if err != nil {
		log.Error("failed to sign session token",
			"error", err,
			"user_id", userID,
			"signing_method", jwt.SigningMethodHS256.Name)
		return "", time.Time{}, fmt.Errorf("failed to sign token with HMAC-SHA256: %w", err)
	}

	return signedToken, expiresAt, nil
}

// Verify validates a session token and returns the claims if valid.
// The revocation set is consulted after cryptographic validation so that a
// tampered token can never probe it.
func (s *hmacTokenService) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	log := logger.FromContext(ctx)

	if tokenString == "" {
		return nil, ErrMissingToken
	}

	claims, err := s.parse(ctx, tokenString)
	if err != nil {
		return nil, err
	}

	_, isRevoked, err := s.revoked.Get(ctx, tokenString)
	if err != nil {
		log.Error("failed to consult revocation set",
			"error", err,
			"token_id", claims.ID)
		return nil, fmt.Errorf("failed to consult revocation set: %w", err)
	}
	if isRevoked {
		log.Debug("token verification failed: token revoked",
			"user_id", claims.UserID,
			"token_id", claims.ID)
		return nil, ErrRevokedToken
	}

	return claims, nil
}

// Revoke adds the token to the revocation set with a TTL matching its
// remaining lifetime.
func (s *hmacTokenService) Revoke(ctx context.Context, tokenString string) error {
	log := logger.FromContext(ctx)

	claims, err := s.parse(ctx, tokenString)
	if err != nil {
		// An expired or malformed token cannot be used anyway; nothing to do.
		log.Debug("skipping revocation of invalid token", "error", err)
		return nil
	}

	ttl := claims.ExpiresAt.Sub(s.timeFunc())
	// Cover the validation leeway so a revoked token cannot slip through
	// right at its natural expiry.
	ttl += s.clockSkew
	if err := s.revoked.Set(ctx, tokenString, "revoked", ttl); err != nil {
		log.Error("failed to record token revocation",
			"error", err,
			"token_id", claims.ID)
		return fmt.Errorf("failed to record token revocation: %w", err)
	}

	log.Debug("token revoked",
		"user_id", claims.UserID,
		"token_id", claims.ID,
		"expiry", claims.ExpiresAt)
	return nil
}

// parse performs cryptographic validation and claim extraction, mapping
// jwt library errors onto this package's sentinel errors.
func (s *hmacTokenService) parse(ctx context.Context, tokenString string) (*Claims, error) {
	log := logger.FromContext(ctx)
	now := s.timeFunc()

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(s.clockSkew),
		jwt.WithTimeFunc(func() time.Time {
			return now
		}),
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&tokenClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.signingKey, nil
		},
		parserOpts...)

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			log.Debug("token validation failed: token expired", "error", err)
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenMalformed):
			log.Debug("token validation failed: malformed token", "error", err)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			log.Debug("token validation failed: invalid signature", "error", err)
		default:
			log.Debug("token validation failed: other validation error",
				"error", err,
				"error_type", fmt.Sprintf("%T", err))
		}
		return nil, ErrMalformedToken
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		log.Debug("token validation failed: invalid claims")
		return nil, ErrMalformedToken
	}

	return &Claims{
		UserID:    claims.UserID,
		Subject:   claims.Subject,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
		ID:        claims.ID,
	}, nil
}
