package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tasknest/tasknest/internal/domain"
	"github.com/tasknest/tasknest/internal/platform/logger"
	"github.com/tasknest/tasknest/internal/store"
)

// PostgresTagStore implements the store.TagStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTagStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTagStore creates a new PostgreSQL implementation of the
// TagStore interface.
func NewPostgresTagStore(db store.DBTX, logger *slog.Logger) *PostgresTagStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTagStore{
		db:     db,
		logger: logger.With(slog.String("component", "tag_store")),
	}
}

// Ensure PostgresTagStore implements store.TagStore interface
var _ store.TagStore = (*PostgresTagStore)(nil)

// tagSelectColumns selects a tag plus the count of non-deleted tasks that
// reference it.
const tagSelectColumns = `g.id, g.user_id, g.name, g.color, g.description,
		g.deleted_at, g.created_at, g.updated_at,
		(SELECT COUNT(*) FROM task_tags tt
			JOIN tasks t ON t.id = tt.task_id AND t.deleted_at IS NULL
			WHERE tt.tag_id = g.id) AS usage_count`

// Create implements store.TagStore.Create
func (s *PostgresTagStore) Create(ctx context.Context, tag *domain.Tag) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := tag.Validate(); err != nil {
		log.Warn("tag validation failed during create",
			slog.String("error", err.Error()),
			slog.String("tag_id", tag.ID.String()))
		return err
	}

	query := `
		INSERT INTO tags (id, user_id, name, color, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		tag.ID,
		tag.UserID,
		tag.Name,
		tag.Color,
		tag.Description,
		tag.CreatedAt,
		tag.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			log.Warn("duplicate tag name during creation",
				slog.String("tag_name", tag.Name),
				slog.String("user_id", tag.UserID.String()))
			return store.ErrTagNameExists
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: user with ID %s not found",
				store.ErrInvalidEntity, tag.UserID)
		}

		log.Error("failed to create tag",
			slog.String("error", err.Error()),
			slog.String("tag_id", tag.ID.String()))
		return err
	}

	log.Info("tag created successfully",
		slog.String("tag_id", tag.ID.String()),
		slog.String("user_id", tag.UserID.String()))
	return nil
}

// GetByID implements store.TagStore.GetByID
func (s *PostgresTagStore) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*domain.Tag, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + tagSelectColumns + `
		FROM tags g
		WHERE g.id = $1 AND g.user_id = $2 AND g.deleted_at IS NULL
	`

	tag, err := scanTag(s.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("tag not found",
				slog.String("tag_id", id.String()))
			return nil, store.ErrTagNotFound
		}
		log.Error("failed to get tag by ID",
			slog.String("error", err.Error()),
			slog.String("tag_id", id.String()))
		return nil, err
	}

	return tag, nil
}

// List implements store.TagStore.List
func (s *PostgresTagStore) List(ctx context.Context, ownerID uuid.UUID, page store.Page) (*store.TagPage, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	page = page.Normalize()

	// Total count first; pagination metadata derives from it.
	countQuery := `SELECT COUNT(*) FROM tags g WHERE g.user_id = $1 AND g.deleted_at IS NULL`
	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, ownerID).Scan(&total); err != nil {
		log.Error("failed to count tags",
			slog.String("error", err.Error()),
			slog.String("user_id", ownerID.String()))
		return nil, err
	}

	listQuery := `
		SELECT ` + tagSelectColumns + `
		FROM tags g
		WHERE g.user_id = $1 AND g.deleted_at IS NULL
		ORDER BY lower(g.name)
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.QueryContext(ctx, listQuery, ownerID, page.Limit, page.Offset())
	if err != nil {
		log.Error("failed to list tags",
			slog.String("error", err.Error()),
			slog.String("user_id", ownerID.String()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	tags := []*domain.Tag{}
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			log.Error("failed to scan tag row",
				slog.String("error", err.Error()))
			return nil, err
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + page.Limit - 1) / page.Limit
	}

	return &store.TagPage{
		Tags:       tags,
		TotalItems: total,
		TotalPages: totalPages,
		HasNext:    page.Number < totalPages,
		HasPrev:    page.Number > 1 && total > 0,
	}, nil
}

// Update implements store.TagStore.Update
func (s *PostgresTagStore) Update(ctx context.Context, tag *domain.Tag) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := tag.Validate(); err != nil {
		log.Warn("tag validation failed during update",
			slog.String("error", err.Error()),
			slog.String("tag_id", tag.ID.String()))
		return err
	}

	query := `
		UPDATE tags
		SET name = $1, color = $2, description = $3, updated_at = $4
		WHERE id = $5 AND user_id = $6 AND deleted_at IS NULL
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		tag.Name,
		tag.Color,
		tag.Description,
		tag.UpdatedAt,
		tag.ID,
		tag.UserID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			log.Warn("duplicate tag name during update",
				slog.String("tag_name", tag.Name),
				slog.String("tag_id", tag.ID.String()))
			return store.ErrTagNameExists
		}
		log.Error("failed to update tag",
			slog.String("error", err.Error()),
			slog.String("tag_id", tag.ID.String()))
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		log.Debug("tag not found for update",
			slog.String("tag_id", tag.ID.String()))
		return store.ErrTagNotFound
	}

	log.Info("tag updated successfully",
		slog.String("tag_id", tag.ID.String()))
	return nil
}

// Delete implements store.TagStore.Delete
// Callers must run Delete inside a transaction: the usage check, the link
// removal, the referencing tasks' updated_at bump, and the soft delete have
// to land together or not at all.
func (s *PostgresTagStore) Delete(ctx context.Context, ownerID, id uuid.UUID, force bool) (*store.TagDeleteResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	owned, err := s.ExistsOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if !owned {
		log.Debug("tag not found for delete",
			slog.String("tag_id", id.String()))
		return nil, store.ErrTagNotFound
	}

	countQuery := `
		SELECT COUNT(*) FROM task_tags tt
		JOIN tasks t ON t.id = tt.task_id AND t.deleted_at IS NULL
		WHERE tt.tag_id = $1
	`
	var inUse int
	if err := s.db.QueryRowContext(ctx, countQuery, id).Scan(&inUse); err != nil {
		log.Error("failed to count tag usage",
			slog.String("error", err.Error()),
			slog.String("tag_id", id.String()))
		return nil, err
	}

	if inUse > 0 && !force {
		log.Debug("tag delete refused, tag in use",
			slog.String("tag_id", id.String()),
			slog.Int("task_count", inUse))
		return nil, &store.TagInUseError{TaskCount: inUse}
	}

	now := time.Now().UTC()

	if inUse > 0 {
		// Referencing tasks change shape, so their updated_at moves too.
		bumpQuery := `
			UPDATE tasks SET updated_at = $1
			WHERE deleted_at IS NULL
				AND id IN (SELECT task_id FROM task_tags WHERE tag_id = $2)
		`
		if _, err := s.db.ExecContext(ctx, bumpQuery, now, id); err != nil {
			log.Error("failed to touch tasks referencing tag",
				slog.String("error", err.Error()),
				slog.String("tag_id", id.String()))
			return nil, err
		}
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM task_tags WHERE tag_id = $1`, id); err != nil {
		log.Error("failed to remove tag links",
			slog.String("error", err.Error()),
			slog.String("tag_id", id.String()))
		return nil, err
	}

	deleteQuery := `
		UPDATE tags
		SET deleted_at = $1, updated_at = $1
		WHERE id = $2 AND user_id = $3 AND deleted_at IS NULL
	`
	result, err := s.db.ExecContext(ctx, deleteQuery, now, id, ownerID)
	if err != nil {
		log.Error("failed to delete tag",
			slog.String("error", err.Error()),
			slog.String("tag_id", id.String()))
		return nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rowsAffected == 0 {
		return nil, store.ErrTagNotFound
	}

	log.Info("tag soft-deleted",
		slog.String("tag_id", id.String()),
		slog.Int("tasks_affected", inUse),
		slog.Bool("force", force))

	return &store.TagDeleteResult{TasksAffected: inUse}, nil
}

// ExistsOwned implements store.TagStore.ExistsOwned
func (s *PostgresTagStore) ExistsOwned(ctx context.Context, ownerID, id uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM tags WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	)`
	var exists bool
	if err := s.db.QueryRowContext(ctx, query, id, ownerID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Stats implements store.TagStore.Stats
func (s *PostgresTagStore) Stats(ctx context.Context, ownerID uuid.UUID) (*store.TagStats, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	totalsQuery := `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE NOT EXISTS (
				SELECT 1 FROM task_tags tt
				JOIN tasks t ON t.id = tt.task_id AND t.deleted_at IS NULL
				WHERE tt.tag_id = g.id))
		FROM tags g
		WHERE g.user_id = $1 AND g.deleted_at IS NULL
	`

	stats := &store.TagStats{}
	if err := s.db.QueryRowContext(ctx, totalsQuery, ownerID).Scan(&stats.Total, &stats.Unused); err != nil {
		log.Error("failed to aggregate tag stats",
			slog.String("error", err.Error()),
			slog.String("user_id", ownerID.String()))
		return nil, err
	}

	topQuery := `
		SELECT ` + tagSelectColumns + `
		FROM tags g
		WHERE g.user_id = $1 AND g.deleted_at IS NULL
		ORDER BY usage_count DESC, lower(g.name)
		LIMIT 5
	`
	rows, err := s.db.QueryContext(ctx, topQuery, ownerID)
	if err != nil {
		log.Error("failed to query top tags",
			slog.String("error", err.Error()),
			slog.String("user_id", ownerID.String()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	stats.MostUsed = []*domain.Tag{}
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		stats.MostUsed = append(stats.MostUsed, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

// WithTx implements store.TagStore.WithTx
func (s *PostgresTagStore) WithTx(tx *sql.Tx) store.TagStore {
	return &PostgresTagStore{db: tx, logger: s.logger}
}

func scanTag(row rowScanner) (*domain.Tag, error) {
	var tag domain.Tag

	err := row.Scan(
		&tag.ID,
		&tag.UserID,
		&tag.Name,
		&tag.Color,
		&tag.Description,
		&tag.DeletedAt,
		&tag.CreatedAt,
		&tag.UpdatedAt,
		&tag.UsageCount,
	)
	if err != nil {
		return nil, err
	}

	return &tag, nil
}
