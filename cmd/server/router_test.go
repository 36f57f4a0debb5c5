package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apimiddleware "github.com/tasknest/tasknest/internal/api/middleware"
	"github.com/tasknest/tasknest/internal/config"
	"github.com/tasknest/tasknest/internal/platform/postgres"
	"github.com/tasknest/tasknest/internal/platform/ttlstore"
	"github.com/tasknest/tasknest/internal/ratelimit"
	"github.com/tasknest/tasknest/internal/service/auth"
	"github.com/tasknest/tasknest/internal/service/notify"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestApplication wires an application around a mocked database. Routing
// behavior up to the store boundary is real; no SQL runs in these tests.
func newTestApplication(t *testing.T) *application {
	t.Helper()

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		Server: config.ServerConfig{Port: 0, LogLevel: "error"},
		Auth: config.AuthConfig{
			JWTSecret:            "test-secret-at-least-32-characters-long",
			TokenLifetimeMinutes: 60,
		},
		RateLimit: config.RateLimitConfig{
			GeneralMax:      100,
			GeneralWindow:   time.Minute,
			LoginMax:        100,
			LoginWindow:     time.Minute,
			PublicPerSecond: 100,
			PublicBurst:     100,
		},
	}

	revocations := ttlstore.NewMemoryStore()
	t.Cleanup(func() { revocations.Close() })

	tokenService, err := auth.NewTokenService(cfg.Auth, revocations)
	require.NoError(t, err)

	userStore := postgres.NewPostgresUserStore(db, nil)
	taskStore := postgres.NewPostgresTaskStore(db, nil)
	tagStore := postgres.NewPostgresTagStore(db, nil)

	dispatcher := notify.NewDispatcher(notify.NewLogMailer(nil), taskStore, userStore,
		notify.DefaultDispatcherConfig(), nil)
	t.Cleanup(dispatcher.Stop)

	app := &application{
		config:         cfg,
		logger:         testLogger(),
		db:             db,
		revocations:    revocations,
		tokenService:   tokenService,
		hasher:         auth.NewBcryptHasher(4),
		userStore:      userStore,
		taskStore:      taskStore,
		tagStore:       tagStore,
		dispatcher:     dispatcher,
		generalLimiter: ratelimit.New(cfg.RateLimit.GeneralMax, cfg.RateLimit.GeneralWindow),
		loginLimiter:   ratelimit.New(cfg.RateLimit.LoginMax, cfg.RateLimit.LoginWindow),
		publicThrottle: apimiddleware.NewPublicThrottle(cfg.RateLimit.PublicPerSecond, cfg.RateLimit.PublicBurst, nil),
	}
	t.Cleanup(func() {
		app.publicThrottle.Stop()
		app.generalLimiter.Stop()
		app.loginLimiter.Stop()
	})

	return app
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestApplication(t).setupRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestProtectedRoutesRejectAnonymous(t *testing.T) {
	router := newTestApplication(t).setupRouter()

	protected := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/tasks"},
		{http.MethodPost, "/api/tasks"},
		{http.MethodGet, "/api/tasks/stats"},
		{http.MethodGet, "/api/tags"},
		{http.MethodGet, "/api/auth/me"},
		{http.MethodPost, "/api/auth/logout"},
	}

	for _, route := range protected {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(route.method, route.path, nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", route.method, route.path)
	}
}

func TestPublicLoginRejectsMalformedBody(t *testing.T) {
	router := newTestApplication(t).setupRouter()

	// Public routes never demand a token; the empty body is what fails here.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSecurityHeadersApplied(t *testing.T) {
	router := newTestApplication(t).setupRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}
