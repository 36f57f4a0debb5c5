package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tasknest/tasknest/internal/domain"
	"github.com/tasknest/tasknest/internal/platform/logger"
	"github.com/tasknest/tasknest/internal/store"
)

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
//
// Every query carries the owner predicate and, unless the caller explicitly
// opts in to deleted rows, the soft-delete predicate. Ownership mismatches
// are indistinguishable from missing rows by construction: the predicates
// are part of the statement, not a separate check.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the
// TaskStore interface.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// taskSelectColumns is the column list for task reads, including the
// aggregated tag ids as a comma-separated string.
const taskSelectColumns = `t.id, t.user_id, t.title, t.description, t.status, t.priority,
		t.due_date, t.is_completed, t.completed_at, t.deleted_at, t.created_at, t.updated_at,
		COALESCE(string_agg(tt.tag_id::text, ','), '') AS tag_ids`

// Create implements store.TaskStore.Create
// Tag links are inserted after verifying every tag belongs to the owner and
// is not deleted; callers should run Create inside a transaction when tags
// are attached.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	query := `
		INSERT INTO tasks (id, user_id, title, description, status, priority,
			due_date, is_completed, completed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		task.ID,
		task.UserID,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.DueDate,
		task.IsCompleted,
		task.CompletedAt,
		task.CreatedAt,
		task.UpdatedAt,
	)

	if err != nil {
		if isForeignKeyViolation(err) {
			log.Warn("foreign key violation during task creation",
				slog.String("task_id", task.ID.String()),
				slog.String("user_id", task.UserID.String()))
			return fmt.Errorf("%w: user with ID %s not found",
				store.ErrInvalidEntity, task.UserID)
		}

		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	if err := s.replaceTagLinks(ctx, task); err != nil {
		return err
	}

	log.Info("task created successfully",
		slog.String("task_id", task.ID.String()),
		slog.String("user_id", task.UserID.String()),
		slog.String("status", string(task.Status)))
	return nil
}

// GetByID implements store.TaskStore.GetByID
func (s *PostgresTaskStore) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + taskSelectColumns + `
		FROM tasks t
		LEFT JOIN task_tags tt ON tt.task_id = t.id
		WHERE t.id = $1 AND t.user_id = $2 AND t.deleted_at IS NULL
		GROUP BY t.id
	`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found",
				slog.String("task_id", id.String()))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task by ID",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, err
	}

	return task, nil
}

// List implements store.TaskStore.List
func (s *PostgresTaskStore) List(
	ctx context.Context,
	ownerID uuid.UUID,
	filter store.TaskFilter,
	sort store.TaskSort,
	page store.Page,
) (*store.TaskPage, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	page = page.Normalize()
	sort = sort.Normalize()

	where, args := buildTaskFilter(ownerID, filter)

	// Total count first; pagination metadata derives from it.
	countQuery := `SELECT COUNT(*) FROM tasks t ` + where
	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		log.Error("failed to count tasks",
			slog.String("error", err.Error()),
			slog.String("user_id", ownerID.String()))
		return nil, err
	}

	// Sort field and order come from allow-listed enums, never from raw input.
	orderBy := fmt.Sprintf("ORDER BY t.%s %s, t.id %s",
		sort.Field, strings.ToUpper(string(sort.Order)), strings.ToUpper(string(sort.Order)))

	listQuery := fmt.Sprintf(`
		SELECT `+taskSelectColumns+`
		FROM tasks t
		LEFT JOIN task_tags tt ON tt.task_id = t.id
		%s
		GROUP BY t.id
		%s
		LIMIT $%d OFFSET $%d
	`, where, orderBy, len(args)+1, len(args)+2)
	args = append(args, page.Limit, page.Offset())

	rows, err := s.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		log.Error("failed to list tasks",
			slog.String("error", err.Error()),
			slog.String("user_id", ownerID.String()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	tasks := []*domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			log.Error("failed to scan task row",
				slog.String("error", err.Error()))
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, err
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + page.Limit - 1) / page.Limit
	}

	return &store.TaskPage{
		Tasks:      tasks,
		TotalItems: total,
		TotalPages: totalPages,
		HasNext:    page.Number < totalPages,
		HasPrev:    page.Number > 1 && total > 0,
	}, nil
}

// Update implements store.TaskStore.Update
// The completion invariant fields travel in the same statement as status, so
// no interleaved failure can separate them. Callers should run Update inside
// a transaction because the tag links are replaced in follow-up statements.
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during update",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	query := `
		UPDATE tasks
		SET title = $1, description = $2, status = $3, priority = $4,
			due_date = $5, is_completed = $6, completed_at = $7, updated_at = $8
		WHERE id = $9 AND user_id = $10 AND deleted_at IS NULL
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.DueDate,
		task.IsCompleted,
		task.CompletedAt,
		task.UpdatedAt,
		task.ID,
		task.UserID,
	)
	if err != nil {
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}
	if rowsAffected == 0 {
		log.Debug("task not found for update",
			slog.String("task_id", task.ID.String()))
		return store.ErrTaskNotFound
	}

	if err := s.clearTagLinks(ctx, task.ID); err != nil {
		return err
	}
	if err := s.replaceTagLinks(ctx, task); err != nil {
		return err
	}

	log.Info("task updated successfully",
		slog.String("task_id", task.ID.String()),
		slog.String("status", string(task.Status)))
	return nil
}

// Delete implements store.TaskStore.Delete
func (s *PostgresTaskStore) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	now := time.Now().UTC()
	query := `
		UPDATE tasks
		SET deleted_at = $1, updated_at = $1
		WHERE id = $2 AND user_id = $3 AND deleted_at IS NULL
	`
	result, err := s.db.ExecContext(ctx, query, now, id, ownerID)
	if err != nil {
		log.Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		log.Debug("task not found for delete",
			slog.String("task_id", id.String()))
		return store.ErrTaskNotFound
	}

	log.Info("task soft-deleted",
		slog.String("task_id", id.String()))
	return nil
}

// UpdateMany implements store.TaskStore.UpdateMany
func (s *PostgresTaskStore) UpdateMany(
	ctx context.Context,
	ownerID uuid.UUID,
	ids []uuid.UUID,
	update store.BulkTaskUpdate,
) (*store.BulkResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(ids) == 0 {
		return &store.BulkResult{}, nil
	}
	if update.Status == nil && update.Priority == nil && update.DueDate == nil && !update.ClearDue {
		return nil, fmt.Errorf("%w: bulk update changes nothing", store.ErrInvalidEntity)
	}
	if update.Status != nil && !update.Status.Valid() {
		return nil, fmt.Errorf("%w: %s", store.ErrInvalidEntity, domain.ErrInvalidTaskStatus)
	}
	if update.Priority != nil && !update.Priority.Valid() {
		return nil, fmt.Errorf("%w: %s", store.ErrInvalidEntity, domain.ErrInvalidPriority)
	}

	now := time.Now().UTC()

	// Owner-scoped membership predicate over the requested ids.
	args := []any{ownerID}
	placeholders := make([]string, len(ids))
	for i, id := range ids {
		args = append(args, id)
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}
	scope := fmt.Sprintf("user_id = $1 AND deleted_at IS NULL AND id IN (%s)",
		strings.Join(placeholders, ", "))

	// Matched: requested rows that are owned and visible.
	var matched int
	countQuery := `SELECT COUNT(*) FROM tasks WHERE ` + scope
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&matched); err != nil {
		log.Error("failed to count bulk update targets",
			slog.String("error", err.Error()),
			slog.String("user_id", ownerID.String()))
		return nil, err
	}

	// Build the SET clause and a change predicate so rows already carrying
	// the target values count as matched but not modified.
	sets := []string{}
	changed := []string{}
	if update.Status != nil {
		args = append(args, *update.Status)
		statusArg := fmt.Sprintf("$%d", len(args))
		args = append(args, now)
		nowArg := fmt.Sprintf("$%d", len(args))
		// The completion invariant fields are written in the same statement
		// as status.
		sets = append(sets,
			fmt.Sprintf("status = %s", statusArg),
			fmt.Sprintf("is_completed = (%s = 'completed')", statusArg),
			fmt.Sprintf("completed_at = CASE WHEN %s = 'completed' THEN COALESCE(completed_at, %s) ELSE NULL END",
				statusArg, nowArg),
		)
		changed = append(changed, fmt.Sprintf("status IS DISTINCT FROM %s", statusArg))
	}
	if update.Priority != nil {
		args = append(args, *update.Priority)
		priorityArg := fmt.Sprintf("$%d", len(args))
		sets = append(sets, fmt.Sprintf("priority = %s", priorityArg))
		changed = append(changed, fmt.Sprintf("priority IS DISTINCT FROM %s", priorityArg))
	}
	if update.ClearDue {
		sets = append(sets, "due_date = NULL")
		changed = append(changed, "due_date IS NOT NULL")
	} else if update.DueDate != nil {
		args = append(args, *update.DueDate)
		dueArg := fmt.Sprintf("$%d", len(args))
		sets = append(sets, fmt.Sprintf("due_date = %s", dueArg))
		changed = append(changed, fmt.Sprintf("due_date IS DISTINCT FROM %s", dueArg))
	}

	args = append(args, now)
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))

	updateQuery := fmt.Sprintf("UPDATE tasks SET %s WHERE %s AND (%s)",
		strings.Join(sets, ", "), scope, strings.Join(changed, " OR "))

	result, err := s.db.ExecContext(ctx, updateQuery, args...)
	if err != nil {
		log.Error("failed to bulk update tasks",
			slog.String("error", err.Error()),
			slog.String("user_id", ownerID.String()))
		return nil, err
	}

	modified, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}

	log.Info("bulk task update applied",
		slog.String("user_id", ownerID.String()),
		slog.Int("requested", len(ids)),
		slog.Int("matched", matched),
		slog.Int64("modified", modified))

	return &store.BulkResult{Matched: matched, Modified: int(modified)}, nil
}

// ExistsOwned implements store.TaskStore.ExistsOwned
func (s *PostgresTaskStore) ExistsOwned(ctx context.Context, ownerID, id uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM tasks WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	)`
	var exists bool
	if err := s.db.QueryRowContext(ctx, query, id, ownerID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Stats implements store.TaskStore.Stats
func (s *PostgresTaskStore) Stats(ctx context.Context, ownerID uuid.UUID, now time.Time) (*store.TaskStats, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)
	weekEnd := now.AddDate(0, 0, 7)

	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'in-progress'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'cancelled'),
			COUNT(*) FILTER (WHERE priority = 'low'),
			COUNT(*) FILTER (WHERE priority = 'medium'),
			COUNT(*) FILTER (WHERE priority = 'high'),
			COUNT(*) FILTER (WHERE priority = 'critical'),
			COUNT(*) FILTER (WHERE due_date < $2 AND status NOT IN ('completed', 'cancelled')),
			COUNT(*) FILTER (WHERE due_date >= $3 AND due_date < $4 AND status NOT IN ('completed', 'cancelled')),
			COUNT(*) FILTER (WHERE due_date >= $2 AND due_date < $5 AND status NOT IN ('completed', 'cancelled'))
		FROM tasks
		WHERE user_id = $1 AND deleted_at IS NULL
	`

	stats := &store.TaskStats{
		ByStatus:   make(map[domain.TaskStatus]int),
		ByPriority: make(map[domain.TaskPriority]int),
	}
	var pending, inProgress, completed, cancelled int
	var low, medium, high, critical int

	err := s.db.QueryRowContext(ctx, query, ownerID, now, dayStart, dayEnd, weekEnd).Scan(
		&stats.Total,
		&pending, &inProgress, &completed, &cancelled,
		&low, &medium, &high, &critical,
		&stats.Overdue,
		&stats.DueToday,
		&stats.DueThisWeek,
	)
	if err != nil {
		log.Error("failed to aggregate task stats",
			slog.String("error", err.Error()),
			slog.String("user_id", ownerID.String()))
		return nil, err
	}

	stats.ByStatus[domain.TaskStatusPending] = pending
	stats.ByStatus[domain.TaskStatusInProgress] = inProgress
	stats.ByStatus[domain.TaskStatusCompleted] = completed
	stats.ByStatus[domain.TaskStatusCancelled] = cancelled
	stats.ByPriority[domain.TaskPriorityLow] = low
	stats.ByPriority[domain.TaskPriorityMedium] = medium
	stats.ByPriority[domain.TaskPriorityHigh] = high
	stats.ByPriority[domain.TaskPriorityCritical] = critical

	if stats.Total > 0 {
		stats.CompletionRate = float64(completed) / float64(stats.Total)
	}

	return stats, nil
}

// ListOverdueGrouped implements store.TaskStore.ListOverdueGrouped
func (s *PostgresTaskStore) ListOverdueGrouped(ctx context.Context, now time.Time) ([]store.OverdueGroup, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT u.id, u.email, u.display_name,
			t.id, t.title, t.due_date, t.status, t.priority
		FROM tasks t
		JOIN users u ON u.id = t.user_id
		WHERE t.deleted_at IS NULL
			AND t.due_date < $1
			AND t.status NOT IN ('completed', 'cancelled')
		ORDER BY u.id, t.due_date
	`

	rows, err := s.db.QueryContext(ctx, query, now)
	if err != nil {
		log.Error("failed to query overdue tasks",
			slog.String("error", err.Error()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var groups []store.OverdueGroup
	var current *store.OverdueGroup

	for rows.Next() {
		var user domain.User
		var task domain.Task

		if err := rows.Scan(
			&user.ID, &user.Email, &user.DisplayName,
			&task.ID, &task.Title, &task.DueDate, &task.Status, &task.Priority,
		); err != nil {
			log.Error("failed to scan overdue row",
				slog.String("error", err.Error()))
			return nil, err
		}
		task.UserID = user.ID

		if current == nil || current.User.ID != user.ID {
			groups = append(groups, store.OverdueGroup{User: &user})
			current = &groups[len(groups)-1]
		}
		current.Tasks = append(current.Tasks, &task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return groups, nil
}

// WithTx implements store.TaskStore.WithTx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{db: tx, logger: s.logger}
}

// replaceTagLinks inserts the task's tag links after confirming every tag is
// owned by the task's owner and not deleted.
func (s *PostgresTaskStore) replaceTagLinks(ctx context.Context, task *domain.Task) error {
	if len(task.TagIDs) == 0 {
		return nil
	}

	log := logger.FromContextOrDefault(ctx, s.logger)

	args := []any{task.UserID}
	placeholders := make([]string, len(task.TagIDs))
	for i, tagID := range task.TagIDs {
		args = append(args, tagID)
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}

	// A single owned-and-visible count over the distinct requested tags.
	countQuery := fmt.Sprintf(`
		SELECT COUNT(*) FROM tags
		WHERE user_id = $1 AND deleted_at IS NULL AND id IN (%s)
	`, strings.Join(placeholders, ", "))

	var owned int
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&owned); err != nil {
		log.Error("failed to verify tag ownership",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}
	if owned != len(distinctUUIDs(task.TagIDs)) {
		log.Debug("tag not owned or not found during task write",
			slog.String("task_id", task.ID.String()))
		return store.ErrTagNotFound
	}

	insertArgs := []any{task.ID}
	values := make([]string, len(task.TagIDs))
	for i, tagID := range task.TagIDs {
		insertArgs = append(insertArgs, tagID)
		values[i] = fmt.Sprintf("($1, $%d)", len(insertArgs))
	}
	insertQuery := fmt.Sprintf(`
		INSERT INTO task_tags (task_id, tag_id) VALUES %s
		ON CONFLICT DO NOTHING
	`, strings.Join(values, ", "))

	if _, err := s.db.ExecContext(ctx, insertQuery, insertArgs...); err != nil {
		log.Error("failed to insert tag links",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	return nil
}

func (s *PostgresTaskStore) clearTagLinks(ctx context.Context, taskID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if _, err := s.db.ExecContext(ctx, `DELETE FROM task_tags WHERE task_id = $1`, taskID); err != nil {
		log.Error("failed to clear tag links",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return err
	}
	return nil
}

func distinctUUIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// buildTaskFilter renders the WHERE clause for list/count queries. Owner and
// soft-delete scoping are always injected here; the filter only narrows.
func buildTaskFilter(ownerID uuid.UUID, filter store.TaskFilter) (string, []any) {
	conds := []string{"t.user_id = $1"}
	args := []any{ownerID}

	if !filter.IncludeDeleted {
		conds = append(conds, "t.deleted_at IS NULL")
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("t.status = $%d", len(args)))
	}
	if filter.Priority != "" {
		args = append(args, filter.Priority)
		conds = append(conds, fmt.Sprintf("t.priority = $%d", len(args)))
	}
	if filter.TagID != uuid.Nil {
		args = append(args, filter.TagID)
		conds = append(conds, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM task_tags x WHERE x.task_id = t.id AND x.tag_id = $%d)", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conds = append(conds, fmt.Sprintf(
			"(t.title ILIKE $%d OR t.description ILIKE $%d)", len(args), len(args)))
	}
	if filter.Overdue {
		args = append(args, time.Now().UTC())
		conds = append(conds, fmt.Sprintf(
			"t.due_date < $%d AND t.status NOT IN ('completed', 'cancelled')", len(args)))
	}
	if filter.DueFrom != nil {
		args = append(args, *filter.DueFrom)
		conds = append(conds, fmt.Sprintf("t.due_date >= $%d", len(args)))
	}
	if filter.DueTo != nil {
		args = append(args, *filter.DueTo)
		conds = append(conds, fmt.Sprintf("t.due_date <= $%d", len(args)))
	}

	return "WHERE " + strings.Join(conds, " AND "), args
}

// scanTask reads one task row including the aggregated tag id string.
func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	var tagIDs string

	err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&task.DueDate,
		&task.IsCompleted,
		&task.CompletedAt,
		&task.DeletedAt,
		&task.CreatedAt,
		&task.UpdatedAt,
		&tagIDs,
	)
	if err != nil {
		return nil, err
	}

	task.TagIDs = []uuid.UUID{}
	if tagIDs != "" {
		for _, raw := range strings.Split(tagIDs, ",") {
			id, err := uuid.Parse(raw)
			if err != nil {
				return nil, fmt.Errorf("malformed tag id %q: %w", raw, err)
			}
			task.TagIDs = append(task.TagIDs, id)
		}
	}

	return &task, nil
}
