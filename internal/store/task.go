package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/tasknest/tasknest/internal/domain"
)

// Pagination bounds. Page numbers start at 1; limits outside [1, MaxPageLimit]
// are clamped by Normalize.
const (
	DefaultPageNumber = 1
	DefaultPageLimit  = 10
	MaxPageLimit      = 100
)

// SortOrder is the direction of a sort.
type SortOrder string

// Valid sort orders.
const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// TaskSortField enumerates the columns list queries may sort by. Anything
// outside this allow-list falls back to the default sort.
type TaskSortField string

// Valid task sort fields.
const (
	TaskSortCreatedAt TaskSortField = "created_at"
	TaskSortUpdatedAt TaskSortField = "updated_at"
	TaskSortDueDate   TaskSortField = "due_date"
	TaskSortPriority  TaskSortField = "priority"
	TaskSortTitle     TaskSortField = "title"
	TaskSortStatus    TaskSortField = "status"
)

// Valid reports whether the field is on the sort allow-list.
func (f TaskSortField) Valid() bool {
	switch f {
	case TaskSortCreatedAt, TaskSortUpdatedAt, TaskSortDueDate, TaskSortPriority, TaskSortTitle, TaskSortStatus:
		return true
	}
	return false
}

// Page describes a pagination request.
type Page struct {
	Number int
	Limit  int
}

// Normalize clamps the page request into valid bounds, applying the
// documented defaults for zero values.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = DefaultPageNumber
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

// Offset returns the SQL offset for the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Limit
}

// TaskSort describes a list ordering request.
type TaskSort struct {
	Field TaskSortField
	Order SortOrder
}

// Normalize applies the default sort (created_at desc) for missing or
// disallowed values.
func (s TaskSort) Normalize() TaskSort {
	if !s.Field.Valid() {
		s.Field = TaskSortCreatedAt
	}
	if s.Order != SortAsc && s.Order != SortDesc {
		s.Order = SortDesc
	}
	return s
}

// TaskFilter restricts a task list query. Zero values mean "no restriction".
// Owner scoping and the soft-delete filter are injected by the store itself
// and are not expressible here except via IncludeDeleted.
type TaskFilter struct {
	Status   domain.TaskStatus
	Priority domain.TaskPriority
	TagID    uuid.UUID
	Search   string // free text over title and description
	Overdue  bool   // due before now, not completed/cancelled
	DueFrom  *time.Time
	DueTo    *time.Time

	// IncludeDeleted makes soft-deleted rows visible. Callers must opt in
	// explicitly; there is no ambient query rewriting.
	IncludeDeleted bool
}

// TaskPage is one page of a task list plus the pagination metadata computed
// from the total row count.
type TaskPage struct {
	Tasks      []*domain.Task
	TotalItems int
	TotalPages int
	HasNext    bool
	HasPrev    bool
}

// BulkTaskUpdate describes the fields applied by UpdateMany. Nil fields are
// left unchanged.
type BulkTaskUpdate struct {
	Status   *domain.TaskStatus
	Priority *domain.TaskPriority
	DueDate  *time.Time
	ClearDue bool
}

// BulkResult reports how many of the requested rows were owned and visible
// (matched) and how many were actually changed (modified). Matched < requested
// is not an error.
type BulkResult struct {
	Matched  int
	Modified int
}

// TaskStats aggregates a user's non-deleted tasks.
type TaskStats struct {
	Total          int
	ByStatus       map[domain.TaskStatus]int
	ByPriority     map[domain.TaskPriority]int
	Overdue        int
	DueToday       int
	DueThisWeek    int
	CompletionRate float64
}

// OverdueGroup is one owner's batch of overdue tasks, used by the
// notification dispatcher's periodic digest scan.
type OverdueGroup struct {
	User  *domain.User
	Tasks []*domain.Task
}

// TaskStore defines the interface for task persistence. Every method is
// scoped by owner: rows belonging to other users behave exactly as if they
// did not exist.
type TaskStore interface {
	// Create saves a new task and its tag links. Tag IDs that do not belong
	// to the owner are rejected with ErrTagNotFound.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task owned by ownerID. Returns ErrTaskNotFound for
	// missing, soft-deleted, or foreign rows alike.
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*domain.Task, error)

	// List returns a filtered, sorted page of the owner's tasks.
	List(ctx context.Context, ownerID uuid.UUID, filter TaskFilter, sort TaskSort, page Page) (*TaskPage, error)

	// Update persists the task's mutable fields and replaces its tag links.
	// The completion invariant fields (is_completed, completed_at) are
	// written in the same statement as status. Returns ErrTaskNotFound if
	// the row is missing, deleted, or owned by someone else.
	Update(ctx context.Context, task *domain.Task) error

	// Delete soft-deletes the owner's task. Returns ErrTaskNotFound if no
	// visible row matched.
	Delete(ctx context.Context, ownerID, id uuid.UUID) error

	// UpdateMany applies the bulk update to the subset of ids that are owned
	// by ownerID and not deleted, reporting matched vs modified counts.
	UpdateMany(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID, update BulkTaskUpdate) (*BulkResult, error)

	// ExistsOwned reports whether a non-deleted task with the given id and
	// owner exists. Single predicate; never leaks foreign rows.
	ExistsOwned(ctx context.Context, ownerID, id uuid.UUID) (bool, error)

	// Stats aggregates the owner's non-deleted tasks.
	Stats(ctx context.Context, ownerID uuid.UUID, now time.Time) (*TaskStats, error)

	// ListOverdueGrouped returns overdue, non-deleted, incomplete tasks
	// across all users, grouped by owner. Used by the daily digest scan.
	ListOverdueGrouped(ctx context.Context, now time.Time) ([]OverdueGroup, error)

	// WithTx returns a new TaskStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) TaskStore
}
