package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/tasknest/tasknest/internal/domain"
)

// TagStats aggregates a user's non-deleted tags. MostUsed carries the tags
// with the highest usage counts, at most five.
type TagStats struct {
	Total    int
	Unused   int
	MostUsed []*domain.Tag
}

// TagPage is one page of a tag list plus the pagination metadata computed
// from the total row count.
type TagPage struct {
	Tags       []*domain.Tag
	TotalItems int
	TotalPages int
	HasNext    bool
	HasPrev    bool
}

// TagDeleteResult reports the outcome of a forced tag deletion.
type TagDeleteResult struct {
	// TasksAffected is the number of non-deleted tasks the tag was removed
	// from as part of the forced delete.
	TasksAffected int
}

// TagStore defines the interface for tag persistence. Like TaskStore, every
// method is owner-scoped and soft-deleted rows are invisible by default.
type TagStore interface {
	// Create saves a new tag. Returns ErrTagNameExists if the owner already
	// has a non-deleted tag with the same name (case-insensitive).
	Create(ctx context.Context, tag *domain.Tag) error

	// GetByID retrieves a tag owned by ownerID, with its usage count
	// populated. Returns ErrTagNotFound for missing, soft-deleted, or
	// foreign rows.
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*domain.Tag, error)

	// List returns a page of the owner's non-deleted tags with usage counts
	// populated, ordered by name.
	List(ctx context.Context, ownerID uuid.UUID, page Page) (*TagPage, error)

	// Update persists name, color and description. Returns ErrTagNotFound or
	// ErrTagNameExists as appropriate.
	Update(ctx context.Context, tag *domain.Tag) error

	// Delete soft-deletes the owner's tag. Without force, it fails with
	// *TagInUseError when the tag is still attached to non-deleted tasks.
	// With force, the tag is soft-deleted and detached from every
	// referencing task in the same transaction; the result reports how many
	// tasks were affected.
	Delete(ctx context.Context, ownerID, id uuid.UUID, force bool) (*TagDeleteResult, error)

	// ExistsOwned reports whether a non-deleted tag with the given id and
	// owner exists.
	ExistsOwned(ctx context.Context, ownerID, id uuid.UUID) (bool, error)

	// Stats aggregates the owner's tags: total count and the most used tags.
	Stats(ctx context.Context, ownerID uuid.UUID) (*TagStats, error)

	// WithTx returns a new TagStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) TagStore
}
