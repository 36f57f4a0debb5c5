package api_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tasknest/tasknest/internal/api/shared"
	"github.com/tasknest/tasknest/internal/domain"
	"github.com/tasknest/tasknest/internal/service/auth"
	"github.com/tasknest/tasknest/internal/store"
)

// passthroughTx runs the transaction function with a nil *sql.Tx. The stub
// stores below ignore WithTx, so handlers exercise their transactional paths
// without a database.
func passthroughTx(ctx context.Context, fn store.TxFn) error {
	return fn(ctx, nil)
}

// stubUserStore implements store.UserStore from optional function fields.
type stubUserStore struct {
	createFn              func(ctx context.Context, user *domain.User) error
	getByIDFn             func(ctx context.Context, id uuid.UUID) (*domain.User, error)
	getByEmailFn          func(ctx context.Context, email string) (*domain.User, error)
	updateProfileFn       func(ctx context.Context, id uuid.UUID, email, displayName string) error
	updatePasswordFn      func(ctx context.Context, id uuid.UUID, hashedPassword string) error
	setResetTokenFn       func(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt *time.Time) error
	getByResetTokenHashFn func(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error)

	touchedLogins  []uuid.UUID
	touchedLogouts []uuid.UUID
}

func (s *stubUserStore) Create(ctx context.Context, user *domain.User) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, user)
}

func (s *stubUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if s.getByIDFn == nil {
		return nil, store.ErrUserNotFound
	}
	return s.getByIDFn(ctx, id)
}

func (s *stubUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if s.getByEmailFn == nil {
		return nil, store.ErrUserNotFound
	}
	return s.getByEmailFn(ctx, email)
}

func (s *stubUserStore) UpdateProfile(ctx context.Context, id uuid.UUID, email, displayName string) error {
	if s.updateProfileFn == nil {
		return nil
	}
	return s.updateProfileFn(ctx, id, email, displayName)
}

func (s *stubUserStore) UpdatePassword(ctx context.Context, id uuid.UUID, hashedPassword string) error {
	if s.updatePasswordFn == nil {
		return nil
	}
	return s.updatePasswordFn(ctx, id, hashedPassword)
}

func (s *stubUserStore) SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt *time.Time) error {
	if s.setResetTokenFn == nil {
		return nil
	}
	return s.setResetTokenFn(ctx, id, tokenHash, expiresAt)
}

func (s *stubUserStore) GetByResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error) {
	if s.getByResetTokenHashFn == nil {
		return nil, store.ErrUserNotFound
	}
	return s.getByResetTokenHashFn(ctx, tokenHash, now)
}

func (s *stubUserStore) TouchLogin(_ context.Context, id uuid.UUID, _ time.Time) error {
	s.touchedLogins = append(s.touchedLogins, id)
	return nil
}

func (s *stubUserStore) TouchLogout(_ context.Context, id uuid.UUID, _ time.Time) error {
	s.touchedLogouts = append(s.touchedLogouts, id)
	return nil
}

func (s *stubUserStore) TouchActivity(_ context.Context, _ uuid.UUID, _ time.Time) error {
	return nil
}

func (s *stubUserStore) WithTx(_ *sql.Tx) store.UserStore { return s }

// stubTaskStore implements store.TaskStore from optional function fields.
type stubTaskStore struct {
	createFn     func(ctx context.Context, task *domain.Task) error
	getByIDFn    func(ctx context.Context, ownerID, id uuid.UUID) (*domain.Task, error)
	listFn       func(ctx context.Context, ownerID uuid.UUID, filter store.TaskFilter, sort store.TaskSort, page store.Page) (*store.TaskPage, error)
	updateFn     func(ctx context.Context, task *domain.Task) error
	deleteFn     func(ctx context.Context, ownerID, id uuid.UUID) error
	updateManyFn func(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID, update store.BulkTaskUpdate) (*store.BulkResult, error)
	statsFn      func(ctx context.Context, ownerID uuid.UUID, now time.Time) (*store.TaskStats, error)
}

func (s *stubTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, task)
}

func (s *stubTaskStore) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*domain.Task, error) {
	if s.getByIDFn == nil {
		return nil, store.ErrTaskNotFound
	}
	return s.getByIDFn(ctx, ownerID, id)
}

func (s *stubTaskStore) List(ctx context.Context, ownerID uuid.UUID, filter store.TaskFilter, sort store.TaskSort, page store.Page) (*store.TaskPage, error) {
	if s.listFn == nil {
		return &store.TaskPage{}, nil
	}
	return s.listFn(ctx, ownerID, filter, sort, page)
}

func (s *stubTaskStore) Update(ctx context.Context, task *domain.Task) error {
	if s.updateFn == nil {
		return nil
	}
	return s.updateFn(ctx, task)
}

func (s *stubTaskStore) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, ownerID, id)
}

func (s *stubTaskStore) UpdateMany(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID, update store.BulkTaskUpdate) (*store.BulkResult, error) {
	if s.updateManyFn == nil {
		return &store.BulkResult{}, nil
	}
	return s.updateManyFn(ctx, ownerID, ids, update)
}

func (s *stubTaskStore) ExistsOwned(_ context.Context, _, _ uuid.UUID) (bool, error) {
	return false, nil
}

func (s *stubTaskStore) Stats(ctx context.Context, ownerID uuid.UUID, now time.Time) (*store.TaskStats, error) {
	if s.statsFn == nil {
		return &store.TaskStats{}, nil
	}
	return s.statsFn(ctx, ownerID, now)
}

func (s *stubTaskStore) ListOverdueGrouped(_ context.Context, _ time.Time) ([]store.OverdueGroup, error) {
	return nil, nil
}

func (s *stubTaskStore) WithTx(_ *sql.Tx) store.TaskStore { return s }

// stubTagStore implements store.TagStore from optional function fields.
type stubTagStore struct {
	createFn  func(ctx context.Context, tag *domain.Tag) error
	getByIDFn func(ctx context.Context, ownerID, id uuid.UUID) (*domain.Tag, error)
	listFn    func(ctx context.Context, ownerID uuid.UUID, page store.Page) (*store.TagPage, error)
	updateFn  func(ctx context.Context, tag *domain.Tag) error
	deleteFn  func(ctx context.Context, ownerID, id uuid.UUID, force bool) (*store.TagDeleteResult, error)
	statsFn   func(ctx context.Context, ownerID uuid.UUID) (*store.TagStats, error)
}

func (s *stubTagStore) Create(ctx context.Context, tag *domain.Tag) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tag)
}

func (s *stubTagStore) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*domain.Tag, error) {
	if s.getByIDFn == nil {
		return nil, store.ErrTagNotFound
	}
	return s.getByIDFn(ctx, ownerID, id)
}

func (s *stubTagStore) List(ctx context.Context, ownerID uuid.UUID, page store.Page) (*store.TagPage, error) {
	if s.listFn == nil {
		return &store.TagPage{Tags: []*domain.Tag{}}, nil
	}
	return s.listFn(ctx, ownerID, page)
}

func (s *stubTagStore) Update(ctx context.Context, tag *domain.Tag) error {
	if s.updateFn == nil {
		return nil
	}
	return s.updateFn(ctx, tag)
}

func (s *stubTagStore) Delete(ctx context.Context, ownerID, id uuid.UUID, force bool) (*store.TagDeleteResult, error) {
	if s.deleteFn == nil {
		return &store.TagDeleteResult{}, nil
	}
	return s.deleteFn(ctx, ownerID, id, force)
}

func (s *stubTagStore) ExistsOwned(_ context.Context, _, _ uuid.UUID) (bool, error) {
	return false, nil
}

func (s *stubTagStore) Stats(ctx context.Context, ownerID uuid.UUID) (*store.TagStats, error) {
	if s.statsFn == nil {
		return &store.TagStats{}, nil
	}
	return s.statsFn(ctx, ownerID)
}

func (s *stubTagStore) WithTx(_ *sql.Tx) store.TagStore { return s }

// recordingNotifier captures notification calls for assertion.
type recordingNotifier struct {
	mu          sync.Mutex
	welcomed    []*domain.User
	resetTokens []string
	resetErr    error
	scheduled   []uuid.UUID
	cancelled   []uuid.UUID
}

func (n *recordingNotifier) SendWelcome(user *domain.User) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.welcomed = append(n.welcomed, user)
}

func (n *recordingNotifier) SendPasswordReset(_ context.Context, _ *domain.User, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.resetErr != nil {
		return n.resetErr
	}
	n.resetTokens = append(n.resetTokens, token)
	return nil
}

func (n *recordingNotifier) ScheduleReminder(task *domain.Task) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.scheduled = append(n.scheduled, task.ID)
}

func (n *recordingNotifier) CancelReminder(taskID uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelled = append(n.cancelled, taskID)
}

// stubTokens issues a fixed token and records revocations.
type stubTokens struct {
	issueErr error
	revoked  []string
}

func (s *stubTokens) Issue(_ context.Context, _ uuid.UUID) (string, time.Time, error) {
	if s.issueErr != nil {
		return "", time.Time{}, s.issueErr
	}
	return "issued-token", time.Now().Add(time.Hour), nil
}

func (s *stubTokens) Verify(_ context.Context, _ string) (*auth.Claims, error) {
	return nil, auth.ErrMalformedToken
}

func (s *stubTokens) Revoke(_ context.Context, token string) error {
	s.revoked = append(s.revoked, token)
	return nil
}

// authedRequest attaches the acting user to the request context the same way
// the auth middleware does.
func authedRequest(req *http.Request, userID uuid.UUID) *http.Request {
	ctx := context.WithValue(req.Context(), shared.UserIDContextKey, userID)
	return req.WithContext(ctx)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) shared.Envelope {
	t.Helper()

	var envelope shared.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

// dataField re-marshals the envelope's data into the given view type.
func dataField[T any](t *testing.T, envelope shared.Envelope) T {
	t.Helper()

	raw, err := json.Marshal(envelope.Data)
	require.NoError(t, err)

	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}
