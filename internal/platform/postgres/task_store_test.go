package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasknest/tasknest/internal/domain"
	"github.com/tasknest/tasknest/internal/store"
)

func newTaskStoreMock(t *testing.T) (*PostgresTaskStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err, "failed to open sqlmock database")
	t.Cleanup(func() { _ = db.Close() })

	return NewPostgresTaskStore(db, nil), mock
}

func validStoredTask(t *testing.T, ownerID uuid.UUID) *domain.Task {
	t.Helper()

	task, err := domain.NewTask(ownerID, "write report", "quarterly numbers", domain.TaskPriorityHigh, nil)
	require.NoError(t, err)
	return task
}

var taskRowColumns = []string{
	"id", "user_id", "title", "description", "status", "priority",
	"due_date", "is_completed", "completed_at", "deleted_at", "created_at", "updated_at",
	"tag_ids",
}

func taskRow(task *domain.Task, tagIDs string) []driver.Value {
	return []driver.Value{
		task.ID.String(), task.UserID.String(), task.Title, task.Description,
		string(task.Status), string(task.Priority),
		nullableTime(task.DueDate), task.IsCompleted,
		nullableTime(task.CompletedAt), nullableTime(task.DeletedAt),
		task.CreatedAt, task.UpdatedAt,
		tagIDs,
	}
}

func nullableTime(t *time.Time) driver.Value {
	if t == nil {
		return nil
	}
	return *t
}

func TestTaskStoreCreate(t *testing.T) {
	taskStore, mock := newTaskStoreMock(t)
	task := validStoredTask(t, uuid.New())

	mock.ExpectExec("INSERT INTO tasks").
		WithArgs(task.ID, task.UserID, task.Title, task.Description, task.Status, task.Priority,
			nil, false, nil, task.CreatedAt, task.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := taskStore.Create(context.Background(), task)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStoreCreateWithTags(t *testing.T) {
	taskStore, mock := newTaskStoreMock(t)
	task := validStoredTask(t, uuid.New())
	task.TagIDs = []uuid.UUID{uuid.New(), uuid.New()}

	mock.ExpectExec("INSERT INTO tasks").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT COUNT(.+) FROM tags").
		WithArgs(task.UserID, task.TagIDs[0], task.TagIDs[1]).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec("INSERT INTO task_tags").
		WithArgs(task.ID, task.TagIDs[0], task.TagIDs[1]).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := taskStore.Create(context.Background(), task)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStoreCreateForeignTag(t *testing.T) {
	taskStore, mock := newTaskStoreMock(t)
	task := validStoredTask(t, uuid.New())
	task.TagIDs = []uuid.UUID{uuid.New()}

	mock.ExpectExec("INSERT INTO tasks").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// The tag exists but belongs to someone else, so the owned count is 0.
	mock.ExpectQuery("SELECT COUNT(.+) FROM tags").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	err := taskStore.Create(context.Background(), task)
	assert.ErrorIs(t, err, store.ErrTagNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStoreGetByID(t *testing.T) {
	taskStore, mock := newTaskStoreMock(t)
	ownerID := uuid.New()
	task := validStoredTask(t, ownerID)
	tagID := uuid.New()

	rows := sqlmock.NewRows(taskRowColumns).AddRow(taskRow(task, tagID.String())...)
	mock.ExpectQuery("SELECT (.+) FROM tasks t").
		WithArgs(task.ID, ownerID).
		WillReturnRows(rows)

	got, err := taskStore.GetByID(context.Background(), ownerID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, task.Title, got.Title)
	assert.Equal(t, []uuid.UUID{tagID}, got.TagIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStoreGetByIDNotFound(t *testing.T) {
	taskStore, mock := newTaskStoreMock(t)

	mock.ExpectQuery("SELECT (.+) FROM tasks t").
		WillReturnError(sql.ErrNoRows)

	_, err := taskStore.GetByID(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStoreList(t *testing.T) {
	taskStore, mock := newTaskStoreMock(t)
	ownerID := uuid.New()
	first := validStoredTask(t, ownerID)
	second := validStoredTask(t, ownerID)

	mock.ExpectQuery("SELECT COUNT(.+) FROM tasks t").
		WithArgs(ownerID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	rows := sqlmock.NewRows(taskRowColumns).
		AddRow(taskRow(first, "")...).
		AddRow(taskRow(second, "")...)
	mock.ExpectQuery("SELECT (.+) FROM tasks t").
		WithArgs(ownerID, 2, 0).
		WillReturnRows(rows)

	page, err := taskStore.List(context.Background(), ownerID,
		store.TaskFilter{}, store.TaskSort{}, store.Page{Number: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Tasks, 2)
	assert.Equal(t, 3, page.TotalItems)
	assert.Equal(t, 2, page.TotalPages)
	assert.True(t, page.HasNext)
	assert.False(t, page.HasPrev)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStoreListWithFilters(t *testing.T) {
	taskStore, mock := newTaskStoreMock(t)
	ownerID := uuid.New()
	tagID := uuid.New()

	mock.ExpectQuery("SELECT COUNT(.+) FROM tasks t").
		WithArgs(ownerID, domain.TaskStatusPending, tagID, "%report%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("SELECT (.+) FROM tasks t").
		WithArgs(ownerID, domain.TaskStatusPending, tagID, "%report%", 10, 0).
		WillReturnRows(sqlmock.NewRows(taskRowColumns))

	page, err := taskStore.List(context.Background(), ownerID,
		store.TaskFilter{Status: domain.TaskStatusPending, TagID: tagID, Search: "report"},
		store.TaskSort{}, store.Page{})
	require.NoError(t, err)
	assert.Empty(t, page.Tasks)
	assert.Equal(t, 0, page.TotalPages)
	assert.False(t, page.HasNext)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStoreUpdate(t *testing.T) {
	taskStore, mock := newTaskStoreMock(t)
	task := validStoredTask(t, uuid.New())
	require.NoError(t, task.SetStatus(domain.TaskStatusCompleted, time.Now().UTC()))

	mock.ExpectExec("UPDATE tasks").
		WithArgs(task.Title, task.Description, task.Status, task.Priority,
			nil, true, task.CompletedAt, task.UpdatedAt, task.ID, task.UserID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM task_tags").
		WithArgs(task.ID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := taskStore.Update(context.Background(), task)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStoreUpdateNotFound(t *testing.T) {
	taskStore, mock := newTaskStoreMock(t)
	task := validStoredTask(t, uuid.New())

	mock.ExpectExec("UPDATE tasks").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := taskStore.Update(context.Background(), task)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
	assert.NoError(t, mock.ExpectationsWereMet(), "tag links must stay untouched when the task row is missing")
}

func TestTaskStoreDelete(t *testing.T) {
	taskStore, mock := newTaskStoreMock(t)
	ownerID := uuid.New()
	taskID := uuid.New()

	mock.ExpectExec("UPDATE tasks").
		WithArgs(sqlmock.AnyArg(), taskID, ownerID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := taskStore.Delete(context.Background(), ownerID, taskID)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStoreDeleteAlreadyDeleted(t *testing.T) {
	taskStore, mock := newTaskStoreMock(t)

	mock.ExpectExec("UPDATE tasks").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := taskStore.Delete(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStoreUpdateManyEmptyIDs(t *testing.T) {
	taskStore, mock := newTaskStoreMock(t)

	result, err := taskStore.UpdateMany(context.Background(), uuid.New(), nil,
		store.BulkTaskUpdate{})
	require.NoError(t, err)
	assert.Equal(t, &store.BulkResult{}, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStoreUpdateManyNoChanges(t *testing.T) {
	taskStore, mock := newTaskStoreMock(t)

	_, err := taskStore.UpdateMany(context.Background(), uuid.New(),
		[]uuid.UUID{uuid.New()}, store.BulkTaskUpdate{})
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStoreUpdateManyInvalidStatus(t *testing.T) {
	taskStore, mock := newTaskStoreMock(t)
	bad := domain.TaskStatus("paused")

	_, err := taskStore.UpdateMany(context.Background(), uuid.New(),
		[]uuid.UUID{uuid.New()}, store.BulkTaskUpdate{Status: &bad})
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStoreUpdateManyStatus(t *testing.T) {
	taskStore, mock := newTaskStoreMock(t)
	ownerID := uuid.New()
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	status := domain.TaskStatusCompleted

	// One requested id is foreign or deleted; one matched row already carries
	// the target status.
	mock.ExpectQuery("SELECT COUNT(.+) FROM tasks").
		WithArgs(ownerID, ids[0], ids[1], ids[2]).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec("UPDATE tasks").
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := taskStore.UpdateMany(context.Background(), ownerID, ids,
		store.BulkTaskUpdate{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Matched)
	assert.Equal(t, 1, result.Modified)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStoreExistsOwned(t *testing.T) {
	taskStore, mock := newTaskStoreMock(t)
	ownerID := uuid.New()
	taskID := uuid.New()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(taskID, ownerID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := taskStore.ExistsOwned(context.Background(), ownerID, taskID)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStoreStats(t *testing.T) {
	taskStore, mock := newTaskStoreMock(t)
	ownerID := uuid.New()
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"total", "pending", "in_progress", "completed", "cancelled",
		"low", "medium", "high", "critical",
		"overdue", "due_today", "due_this_week",
	}).AddRow(10, 4, 2, 3, 1, 2, 5, 2, 1, 2, 1, 4)
	mock.ExpectQuery("SELECT").
		WillReturnRows(rows)

	stats, err := taskStore.Stats(context.Background(), ownerID, now)
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Total)
	assert.Equal(t, 4, stats.ByStatus[domain.TaskStatusPending])
	assert.Equal(t, 3, stats.ByStatus[domain.TaskStatusCompleted])
	assert.Equal(t, 5, stats.ByPriority[domain.TaskPriorityMedium])
	assert.Equal(t, 2, stats.Overdue)
	assert.Equal(t, 1, stats.DueToday)
	assert.Equal(t, 4, stats.DueThisWeek)
	assert.InDelta(t, 0.3, stats.CompletionRate, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStoreStatsEmpty(t *testing.T) {
	taskStore, mock := newTaskStoreMock(t)

	rows := sqlmock.NewRows([]string{
		"total", "pending", "in_progress", "completed", "cancelled",
		"low", "medium", "high", "critical",
		"overdue", "due_today", "due_this_week",
	}).AddRow(0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0)
	mock.ExpectQuery("SELECT").
		WillReturnRows(rows)

	stats, err := taskStore.Stats(context.Background(), uuid.New(), time.Now().UTC())
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	assert.Zero(t, stats.CompletionRate, "no division by zero on empty accounts")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskStoreListOverdueGrouped(t *testing.T) {
	taskStore, mock := newTaskStoreMock(t)
	now := time.Now().UTC()
	due := now.Add(-48 * time.Hour)

	firstUser := uuid.New()
	secondUser := uuid.New()

	rows := sqlmock.NewRows([]string{
		"id", "email", "display_name",
		"task_id", "title", "due_date", "status", "priority",
	}).
		AddRow(firstUser.String(), "a@example.com", "A", uuid.NewString(), "one", due, "pending", "high").
		AddRow(firstUser.String(), "a@example.com", "A", uuid.NewString(), "two", due, "in-progress", "low").
		AddRow(secondUser.String(), "b@example.com", "B", uuid.NewString(), "three", due, "pending", "medium")
	mock.ExpectQuery("SELECT (.+) FROM tasks t").
		WithArgs(now).
		WillReturnRows(rows)

	groups, err := taskStore.ListOverdueGrouped(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, firstUser, groups[0].User.ID)
	assert.Len(t, groups[0].Tasks, 2)
	assert.Equal(t, secondUser, groups[1].User.ID)
	require.Len(t, groups[1].Tasks, 1)
	assert.Equal(t, "three", groups[1].Tasks[0].Title)
	assert.Equal(t, secondUser, groups[1].Tasks[0].UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildTaskFilterScoping(t *testing.T) {
	ownerID := uuid.New()

	where, args := buildTaskFilter(ownerID, store.TaskFilter{})
	assert.Equal(t, "WHERE t.user_id = $1 AND t.deleted_at IS NULL", where)
	assert.Equal(t, []any{ownerID}, args)

	where, _ = buildTaskFilter(ownerID, store.TaskFilter{IncludeDeleted: true})
	assert.Equal(t, "WHERE t.user_id = $1", where)

	from := time.Now().UTC()
	to := from.Add(24 * time.Hour)
	where, args = buildTaskFilter(ownerID, store.TaskFilter{
		Priority: domain.TaskPriorityHigh,
		DueFrom:  &from,
		DueTo:    &to,
	})
	assert.Contains(t, where, "t.priority = $2")
	assert.Contains(t, where, "t.due_date >= $3")
	assert.Contains(t, where, "t.due_date <= $4")
	assert.Len(t, args, 4)
}

func TestTaskStoreSortNeverInterpolatesInput(t *testing.T) {
	// The ORDER BY clause is rendered from normalized enums only, so a hostile
	// sort field collapses to the default rather than reaching the SQL text.
	sort := store.TaskSort{Field: store.TaskSortField("created_at; DROP TABLE tasks"), Order: "bogus"}.Normalize()
	assert.Equal(t, store.TaskSortCreatedAt, sort.Field)
	assert.Equal(t, store.SortDesc, sort.Order)
}
