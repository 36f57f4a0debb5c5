package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tasknest/tasknest/internal/api/shared"
	"github.com/tasknest/tasknest/internal/domain"
	"github.com/tasknest/tasknest/internal/service/auth"
	"github.com/tasknest/tasknest/internal/store"
)

// IdentityStore is the slice of the user store the auth gate needs: resolve
// the token's subject and record activity.
type IdentityStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	TouchActivity(ctx context.Context, id uuid.UUID, at time.Time) error
}

// AuthMiddleware authenticates requests from bearer tokens.
//
// A verified token alone is not enough: the subject must still resolve to an
// existing account, so tokens outliving their account are rejected the same
// way as any other bad credential.
type AuthMiddleware struct {
	tokens   auth.TokenService
	users    IdentityStore
	logger   *slog.Logger
	timeFunc func() time.Time
}

// NewAuthMiddleware creates a new AuthMiddleware with the given dependencies.
func NewAuthMiddleware(tokens auth.TokenService, users IdentityStore, logger *slog.Logger) *AuthMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthMiddleware{
		tokens:   tokens,
		users:    users,
		logger:   logger.With(slog.String("component", "auth_middleware")),
		timeFunc: time.Now,
	}
}

// Authenticate validates the bearer token, resolves the acting user, and
// attaches the user ID, the user, and the raw token to the request context.
// The raw token is kept so logout can revoke exactly the credential that
// authenticated the request.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid authorization format")
			return
		}
		token := parts[1]

		claims, err := m.tokens.Verify(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrExpiredToken):
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Token expired")
			case errors.Is(err, auth.ErrRevokedToken):
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Token revoked")
			case errors.Is(err, auth.ErrMalformedToken), errors.Is(err, auth.ErrMissingToken):
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid token")
			default:
				m.logger.Error("token verification failed",
					slog.String("error", err.Error()))
				shared.RespondWithError(w, r, http.StatusInternalServerError, "Authentication error")
			}
			return
		}

		user, err := m.users.GetByID(r.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				// The token was valid once but its subject is gone.
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid token")
				return
			}
			m.logger.Error("failed to resolve token subject",
				slog.String("error", err.Error()),
				slog.String("user_id", claims.UserID.String()))
			shared.RespondWithError(w, r, http.StatusInternalServerError, "Authentication error")
			return
		}

		// Best effort. A failed activity touch never rejects the request.
		if err := m.users.TouchActivity(r.Context(), user.ID, m.timeFunc().UTC()); err != nil {
			m.logger.Warn("failed to record user activity",
				slog.String("error", err.Error()),
				slog.String("user_id", user.ID.String()))
		}

		ctx := context.WithValue(r.Context(), shared.UserIDContextKey, user.ID)
		ctx = context.WithValue(ctx, shared.UserContextKey, user)
		ctx = context.WithValue(ctx, shared.TokenContextKey, token)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserID extracts the user ID from the request context.
// Returns the user ID and a boolean indicating if it was found.
func GetUserID(r *http.Request) (uuid.UUID, bool) {
	userID, ok := r.Context().Value(shared.UserIDContextKey).(uuid.UUID)
	return userID, ok
}
