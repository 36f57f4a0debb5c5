package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasknest/tasknest/internal/api/middleware"
	"github.com/tasknest/tasknest/internal/api/shared"
	"github.com/tasknest/tasknest/internal/domain"
	"github.com/tasknest/tasknest/internal/service/auth"
	"github.com/tasknest/tasknest/internal/store"
)

// stubTokenService maps fixed token strings to verification outcomes.
type stubTokenService struct {
	claims map[string]*auth.Claims
	errs   map[string]error
}

func (s *stubTokenService) Issue(_ context.Context, _ uuid.UUID) (string, time.Time, error) {
	return "", time.Time{}, errors.New("not implemented")
}

func (s *stubTokenService) Verify(_ context.Context, token string) (*auth.Claims, error) {
	if err, ok := s.errs[token]; ok {
		return nil, err
	}
	if claims, ok := s.claims[token]; ok {
		return claims, nil
	}
	return nil, auth.ErrMalformedToken
}

func (s *stubTokenService) Revoke(_ context.Context, _ string) error { return nil }

type stubIdentityStore struct {
	users      map[uuid.UUID]*domain.User
	getErr     error
	touchErr   error
	touchedIDs []uuid.UUID
}

func (s *stubIdentityStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return user, nil
}

func (s *stubIdentityStore) TouchActivity(_ context.Context, id uuid.UUID, _ time.Time) error {
	s.touchedIDs = append(s.touchedIDs, id)
	return s.touchErr
}

func newAuthFixture(t *testing.T) (*middleware.AuthMiddleware, *domain.User, string, *stubIdentityStore) {
	t.Helper()

	user := &domain.User{
		ID:          uuid.New(),
		Email:       "auth-test@example.com",
		DisplayName: "Auth Tester",
	}
	const token = "valid-token"

	tokens := &stubTokenService{
		claims: map[string]*auth.Claims{
			token: {UserID: user.ID, Subject: user.ID.String()},
		},
		errs: map[string]error{
			"expired-token": auth.ErrExpiredToken,
			"revoked-token": auth.ErrRevokedToken,
			"broken-token":  errors.New("redis unavailable"),
		},
	}
	users := &stubIdentityStore{users: map[uuid.UUID]*domain.User{user.ID: user}}

	return middleware.NewAuthMiddleware(tokens, users, nil), user, token, users
}

// captureHandler records what the auth gate left in the request context.
func capturedAuthContext(t *testing.T, m *middleware.AuthMiddleware, authHeader string) (*httptest.ResponseRecorder, *http.Request) {
	t.Helper()

	var inner *http.Request
	handler := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner = r
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	return rec, inner
}

func envelopeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var envelope shared.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Message
}

func TestAuthenticateAttachesIdentity(t *testing.T) {
	m, user, token, users := newAuthFixture(t)

	rec, inner := capturedAuthContext(t, m, "Bearer "+token)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, inner)

	gotID, ok := middleware.GetUserID(inner)
	require.True(t, ok)
	assert.Equal(t, user.ID, gotID)

	gotUser, ok := inner.Context().Value(shared.UserContextKey).(*domain.User)
	require.True(t, ok)
	assert.Equal(t, user.Email, gotUser.Email)

	gotToken, ok := inner.Context().Value(shared.TokenContextKey).(string)
	require.True(t, ok)
	assert.Equal(t, token, gotToken)

	require.Len(t, users.touchedIDs, 1)
	assert.Equal(t, user.ID, users.touchedIDs[0])
}

func TestAuthenticateMissingHeader(t *testing.T) {
	m, _, _, _ := newAuthFixture(t)

	rec, inner := capturedAuthContext(t, m, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, inner)
	assert.Equal(t, "Authorization header required", envelopeMessage(t, rec))
}

func TestAuthenticateBadFormat(t *testing.T) {
	m, _, token, _ := newAuthFixture(t)

	for _, header := range []string{"Basic " + token, "Bearer", "Bearer "} {
		rec, inner := capturedAuthContext(t, m, header)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
		assert.Nil(t, inner)
		assert.Equal(t, "Invalid authorization format", envelopeMessage(t, rec))
	}
}

func TestAuthenticateTokenErrors(t *testing.T) {
	m, _, _, _ := newAuthFixture(t)

	cases := []struct {
		token      string
		wantStatus int
		wantMsg    string
	}{
		{"expired-token", http.StatusUnauthorized, "Token expired"},
		{"revoked-token", http.StatusUnauthorized, "Token revoked"},
		{"garbage", http.StatusUnauthorized, "Invalid token"},
		{"broken-token", http.StatusInternalServerError, "Authentication error"},
	}

	for _, tc := range cases {
		rec, inner := capturedAuthContext(t, m, "Bearer "+tc.token)

		assert.Equal(t, tc.wantStatus, rec.Code, "token %q", tc.token)
		assert.Nil(t, inner)
		assert.Equal(t, tc.wantMsg, envelopeMessage(t, rec))
	}
}

func TestAuthenticateDeletedSubject(t *testing.T) {
	m, user, token, users := newAuthFixture(t)

	delete(users.users, user.ID)

	rec, inner := capturedAuthContext(t, m, "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, inner)
	assert.Equal(t, "Invalid token", envelopeMessage(t, rec))
}

func TestAuthenticateActivityTouchFailureIsIgnored(t *testing.T) {
	m, _, token, users := newAuthFixture(t)

	users.touchErr = errors.New("write timeout")

	rec, inner := capturedAuthContext(t, m, "Bearer "+token)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, inner)
}
