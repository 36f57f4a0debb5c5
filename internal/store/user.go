package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/tasknest/tasknest/internal/domain"
)

// UserStore defines the interface for user data persistence.
type UserStore interface {
	// Create saves a new user to the store. The caller must have hashed the
	// password already; Create persists HashedPassword, never Password.
	// Returns ErrEmailExists if the email is already taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by their email address (case-insensitive).
	// Returns ErrUserNotFound if the user does not exist.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// UpdateProfile modifies the user's email and display name.
	// Returns ErrUserNotFound if the user does not exist and ErrEmailExists
	// if the new email is already taken.
	UpdateProfile(ctx context.Context, id uuid.UUID, email, displayName string) error

	// UpdatePassword replaces the user's password hash and clears any
	// outstanding reset token. Returns ErrUserNotFound if the user does not
	// exist.
	UpdatePassword(ctx context.Context, id uuid.UUID, hashedPassword string) error

	// SetResetToken stores the hash of an issued password-reset token and
	// its expiry. Passing empty hash and nil expiry clears the token; this is
	// also the rollback path when the reset email cannot be dispatched.
	SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt *time.Time) error

	// GetByResetTokenHash retrieves the user holding the given unexpired
	// reset token hash. Returns ErrUserNotFound if no such user exists.
	GetByResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error)

	// TouchLogin, TouchLogout and TouchActivity update the corresponding
	// activity timestamps. They are best-effort bookkeeping; callers may
	// log and ignore their errors.
	TouchLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	TouchLogout(ctx context.Context, id uuid.UUID, at time.Time) error
	TouchActivity(ctx context.Context, id uuid.UUID, at time.Time) error

	// WithTx returns a new UserStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) UserStore
}
