package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tasknest/tasknest/internal/domain"
	"github.com/tasknest/tasknest/internal/platform/logger"
	"github.com/tasknest/tasknest/internal/store"
)

// PostgresUserStore implements the store.UserStore interface
// using a PostgreSQL database as the storage backend.
type PostgresUserStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresUserStore creates a new PostgreSQL implementation of the
// UserStore interface. It accepts a database connection or transaction that
// should be initialized and managed by the caller.
func NewPostgresUserStore(db store.DBTX, logger *slog.Logger) *PostgresUserStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresUserStore{
		db:     db,
		logger: logger.With(slog.String("component", "user_store")),
	}
}

// Ensure PostgresUserStore implements store.UserStore interface
var _ store.UserStore = (*PostgresUserStore)(nil)

const userColumns = `id, email, display_name, hashed_password,
		reset_token_hash, reset_token_expires_at,
		last_login_at, last_logout_at, last_activity_at,
		created_at, updated_at`

// Create implements store.UserStore.Create
func (s *PostgresUserStore) Create(ctx context.Context, user *domain.User) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := user.Validate(); err != nil {
		log.Warn("user validation failed during create",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID.String()))
		return err
	}

	query := `
		INSERT INTO users (id, email, display_name, hashed_password, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		user.ID,
		strings.ToLower(user.Email),
		user.DisplayName,
		user.HashedPassword,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			log.Debug("duplicate email during user creation",
				slog.String("user_id", user.ID.String()))
			return store.ErrEmailExists
		}

		log.Error("failed to create user",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID.String()))
		return err
	}

	log.Info("user created successfully",
		slog.String("user_id", user.ID.String()))
	return nil
}

// GetByID implements store.UserStore.GetByID
func (s *PostgresUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := s.scanUser(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("user not found", slog.String("user_id", id.String()))
			return nil, store.ErrUserNotFound
		}
		log.Error("failed to get user by ID",
			slog.String("error", err.Error()),
			slog.String("user_id", id.String()))
		return nil, err
	}

	return user, nil
}

// GetByEmail implements store.UserStore.GetByEmail
func (s *PostgresUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`

	user, err := s.scanUser(s.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("user not found by email")
			return nil, store.ErrUserNotFound
		}
		log.Error("failed to get user by email",
			slog.String("error", err.Error()))
		return nil, err
	}

	return user, nil
}

// UpdateProfile implements store.UserStore.UpdateProfile
func (s *PostgresUserStore) UpdateProfile(ctx context.Context, id uuid.UUID, email, displayName string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE users
		SET email = $1, display_name = $2, updated_at = $3
		WHERE id = $4
	`
	result, err := s.db.ExecContext(ctx, query, strings.ToLower(email), displayName, time.Now().UTC(), id)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrEmailExists
		}
		log.Error("failed to update user profile",
			slog.String("error", err.Error()),
			slog.String("user_id", id.String()))
		return err
	}

	return s.requireRowAffected(log, result, id, "profile update")
}

// UpdatePassword implements store.UserStore.UpdatePassword
// Changing the password invalidates any outstanding reset token.
func (s *PostgresUserStore) UpdatePassword(ctx context.Context, id uuid.UUID, hashedPassword string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE users
		SET hashed_password = $1, reset_token_hash = NULL, reset_token_expires_at = NULL, updated_at = $2
		WHERE id = $3
	`
	result, err := s.db.ExecContext(ctx, query, hashedPassword, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to update password",
			slog.String("error", err.Error()),
			slog.String("user_id", id.String()))
		return err
	}

	return s.requireRowAffected(log, result, id, "password update")
}

// SetResetToken implements store.UserStore.SetResetToken
func (s *PostgresUserStore) SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt *time.Time) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var hash sql.NullString
	if tokenHash != "" {
		hash = sql.NullString{String: tokenHash, Valid: true}
	}

	query := `
		UPDATE users
		SET reset_token_hash = $1, reset_token_expires_at = $2, updated_at = $3
		WHERE id = $4
	`
	result, err := s.db.ExecContext(ctx, query, hash, expiresAt, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to set reset token",
			slog.String("error", err.Error()),
			slog.String("user_id", id.String()))
		return err
	}

	return s.requireRowAffected(log, result, id, "reset token update")
}

// GetByResetTokenHash implements store.UserStore.GetByResetTokenHash
func (s *PostgresUserStore) GetByResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + userColumns + `
		FROM users
		WHERE reset_token_hash = $1 AND reset_token_expires_at > $2`

	user, err := s.scanUser(s.db.QueryRowContext(ctx, query, tokenHash, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("no user with live reset token")
			return nil, store.ErrUserNotFound
		}
		log.Error("failed to get user by reset token",
			slog.String("error", err.Error()))
		return nil, err
	}

	return user, nil
}

// TouchLogin implements store.UserStore.TouchLogin
func (s *PostgresUserStore) TouchLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return s.touch(ctx, "last_login_at", id, at)
}

// TouchLogout implements store.UserStore.TouchLogout
func (s *PostgresUserStore) TouchLogout(ctx context.Context, id uuid.UUID, at time.Time) error {
	return s.touch(ctx, "last_logout_at", id, at)
}

// TouchActivity implements store.UserStore.TouchActivity
func (s *PostgresUserStore) TouchActivity(ctx context.Context, id uuid.UUID, at time.Time) error {
	return s.touch(ctx, "last_activity_at", id, at)
}

// WithTx implements store.UserStore.WithTx
func (s *PostgresUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return &PostgresUserStore{db: tx, logger: s.logger}
}

// touch updates a single activity timestamp column. The column name comes
// from the fixed Touch* call sites, never from input.
func (s *PostgresUserStore) touch(ctx context.Context, column string, id uuid.UUID, at time.Time) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `UPDATE users SET ` + column + ` = $1 WHERE id = $2`
	result, err := s.db.ExecContext(ctx, query, at, id)
	if err != nil {
		log.Error("failed to update activity timestamp",
			slog.String("error", err.Error()),
			slog.String("column", column),
			slog.String("user_id", id.String()))
		return err
	}

	return s.requireRowAffected(log, result, id, column)
}

func (s *PostgresUserStore) requireRowAffected(log *slog.Logger, result sql.Result, id uuid.UUID, operation string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("user_id", id.String()))
		return err
	}
	if rowsAffected == 0 {
		log.Debug("user not found",
			slog.String("operation", operation),
			slog.String("user_id", id.String()))
		return store.ErrUserNotFound
	}
	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanUser.
type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresUserStore) scanUser(row rowScanner) (*domain.User, error) {
	var user domain.User
	var resetTokenHash sql.NullString

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.HashedPassword,
		&resetTokenHash,
		&user.ResetTokenExpiresAt,
		&user.LastLoginAt,
		&user.LastLogoutAt,
		&user.LastActivityAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.ResetTokenHash = resetTokenHash.String
	return &user, nil
}
