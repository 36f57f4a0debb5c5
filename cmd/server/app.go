package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	apimiddleware "github.com/tasknest/tasknest/internal/api/middleware"
	"github.com/tasknest/tasknest/internal/config"
	"github.com/tasknest/tasknest/internal/platform/postgres"
	"github.com/tasknest/tasknest/internal/platform/ttlstore"
	"github.com/tasknest/tasknest/internal/ratelimit"
	"github.com/tasknest/tasknest/internal/service/auth"
	"github.com/tasknest/tasknest/internal/service/notify"
	"github.com/tasknest/tasknest/internal/store"
)

// application holds every long-lived component of the server. It is built
// once at startup and torn down by cleanup in reverse order.
type application struct {
	config *config.Config
	logger *slog.Logger

	db           *sql.DB
	revocations  ttlstore.Store
	tokenService auth.TokenService
	hasher       *auth.BcryptHasher

	userStore store.UserStore
	taskStore store.TaskStore
	tagStore  store.TagStore

	dispatcher *notify.Dispatcher

	generalLimiter *ratelimit.Limiter
	loginLimiter   *ratelimit.Limiter
	publicThrottle *apimiddleware.PublicThrottle
}

// newApplication wires the application components in dependency order:
// database, migrations, token revocation store, services, stores, mailer,
// dispatcher, limiters.
func newApplication(cfg *config.Config, appLogger *slog.Logger) (*application, error) {
	db, err := openDatabase(cfg.Database, appLogger)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(db, appLogger); err != nil {
		db.Close()
		return nil, err
	}

	revocations, err := newRevocationStore(cfg.Redis, appLogger)
	if err != nil {
		db.Close()
		return nil, err
	}

	tokenService, err := auth.NewTokenService(cfg.Auth, revocations)
	if err != nil {
		revocations.Close()
		db.Close()
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}

	userStore := postgres.NewPostgresUserStore(db, appLogger)
	taskStore := postgres.NewPostgresTaskStore(db, appLogger)
	tagStore := postgres.NewPostgresTagStore(db, appLogger)

	mailer := newMailer(cfg.Mail, appLogger)
	dispatcher := notify.NewDispatcher(mailer, taskStore, userStore,
		notify.DefaultDispatcherConfig(), appLogger)
	if err := dispatcher.Start(); err != nil {
		revocations.Close()
		db.Close()
		return nil, fmt.Errorf("failed to start notification dispatcher: %w", err)
	}

	app := &application{
		config:       cfg,
		logger:       appLogger,
		db:           db,
		revocations:  revocations,
		tokenService: tokenService,
		hasher:       auth.NewBcryptHasher(0),
		userStore:    userStore,
		taskStore:    taskStore,
		tagStore:     tagStore,
		dispatcher:   dispatcher,
		generalLimiter: ratelimit.New(
			cfg.RateLimit.GeneralMax, cfg.RateLimit.GeneralWindow),
		loginLimiter: ratelimit.New(
			cfg.RateLimit.LoginMax, cfg.RateLimit.LoginWindow),
		publicThrottle: apimiddleware.NewPublicThrottle(
			cfg.RateLimit.PublicPerSecond, cfg.RateLimit.PublicBurst, appLogger),
	}

	return app, nil
}

// newRevocationStore picks the token revocation backend: Redis when a URL is
// configured, the in-process TTL map otherwise. The in-memory fallback does
// not survive restarts or span replicas, which is acceptable because every
// token also carries its own expiry.
func newRevocationStore(cfg config.RedisConfig, appLogger *slog.Logger) (ttlstore.Store, error) {
	if cfg.URL == "" {
		appLogger.Info("using in-memory token revocation store")
		return ttlstore.NewMemoryStore(), nil
	}

	redisStore, err := ttlstore.NewRedisStore(cfg.URL, "revoked")
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	appLogger.Info("using redis token revocation store")
	return redisStore, nil
}

// newMailer picks the outbound mail transport: real SMTP when a host is
// configured, the log-only mailer otherwise.
func newMailer(cfg config.MailConfig, appLogger *slog.Logger) notify.Mailer {
	if cfg.Host == "" {
		appLogger.Info("SMTP not configured, emails will be logged only")
		return notify.NewLogMailer(appLogger)
	}
	return notify.NewSMTPMailer(cfg)
}

// cleanup releases application resources. Called after the HTTP server has
// drained its in-flight requests.
func (app *application) cleanup() {
	app.dispatcher.Stop()
	app.publicThrottle.Stop()
	app.generalLimiter.Stop()
	app.loginLimiter.Stop()

	if err := app.revocations.Close(); err != nil {
		app.logger.Error("failed to close revocation store", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("failed to close database", "error", err)
	}

	app.logger.Info("application cleanup completed")
}

// shutdownTimeout bounds how long the server waits for in-flight requests.
const shutdownTimeout = 10 * time.Second
