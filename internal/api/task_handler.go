package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tasknest/tasknest/internal/api/shared"
	"github.com/tasknest/tasknest/internal/domain"
	"github.com/tasknest/tasknest/internal/store"
)

// TxRunner executes fn inside a database transaction. Handlers use it for
// multi-statement writes; tests substitute a pass-through.
type TxRunner func(ctx context.Context, fn store.TxFn) error

// NewDBTxRunner adapts a *sql.DB into a TxRunner.
func NewDBTxRunner(db *sql.DB) TxRunner {
	return func(ctx context.Context, fn store.TxFn) error {
		return store.RunInTransaction(ctx, db, fn)
	}
}

// TaskHandler handles task CRUD, bulk updates, and stats requests.
type TaskHandler struct {
	taskStore store.TaskStore
	notifier  Notifier
	runTx     TxRunner
	validator *validator.Validate
	logger    *slog.Logger
	timeFunc  func() time.Time
}

// NewTaskHandler creates a new TaskHandler with the given dependencies.
func NewTaskHandler(taskStore store.TaskStore, notifier Notifier, runTx TxRunner, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		taskStore: taskStore,
		notifier:  notifier,
		runTx:     runTx,
		validator: validator.New(),
		logger:    logger.With(slog.String("component", "task_handler")),
		timeFunc:  time.Now,
	}
}

// List handles GET /api/tasks.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	filter, sort, page, err := parseTaskListQuery(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	result, err := h.taskStore.List(r.Context(), userID, filter, sort, page)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}

	shared.RespondWithPage(w, r, http.StatusOK, newTaskResponses(result.Tasks), newPagination(page, result))
}

// Create handles POST /api/tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	var req CreateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error", ValidationMessages(err)...)
		return
	}

	task, err := domain.NewTask(userID, req.Title, req.Description, domain.TaskPriority(req.Priority), req.DueDate)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	task.TagIDs = req.Tags

	// Task row and tag links are written together.
	err = h.runTx(r.Context(), func(ctx context.Context, tx *sql.Tx) error {
		return h.taskStore.WithTx(tx).Create(ctx, task)
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	h.notifier.ScheduleReminder(task)

	shared.RespondWithData(w, r, http.StatusCreated, newTaskResponse(task))
}

// Get handles GET /api/tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	task, err := h.taskStore.GetByID(r.Context(), userID, taskID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithData(w, r, http.StatusOK, newTaskResponse(task))
}

// Update handles PUT /api/tasks/{id}.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error", ValidationMessages(err)...)
		return
	}

	task, err := h.taskStore.GetByID(r.Context(), userID, taskID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	now := h.timeFunc().UTC()
	task.Title = req.Title
	task.Description = req.Description
	task.Priority = domain.TaskPriority(req.Priority)
	task.DueDate = req.DueDate
	task.TagIDs = req.Tags
	if err := task.SetStatus(domain.TaskStatus(req.Status), now); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	err = h.runTx(r.Context(), func(ctx context.Context, tx *sql.Tx) error {
		return h.taskStore.WithTx(tx).Update(ctx, task)
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	// A changed due date or a closed status invalidates any armed reminder.
	if task.DueDate == nil || task.Status == domain.TaskStatusCompleted || task.Status == domain.TaskStatusCancelled {
		h.notifier.CancelReminder(task.ID)
	} else {
		h.notifier.ScheduleReminder(task)
	}

	shared.RespondWithData(w, r, http.StatusOK, newTaskResponse(task))
}

// Delete handles DELETE /api/tasks/{id}.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.taskStore.Delete(r.Context(), userID, taskID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	h.notifier.CancelReminder(taskID)

	shared.RespondWithMessage(w, r, http.StatusOK, "Task deleted")
}

// Stats handles GET /api/tasks/stats.
func (h *TaskHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	stats, err := h.taskStore.Stats(r.Context(), userID, h.timeFunc().UTC())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to compute stats")
		return
	}

	shared.RespondWithData(w, r, http.StatusOK, newTaskStatsResponse(stats))
}

// BulkUpdate handles PATCH /api/tasks/bulk.
func (h *TaskHandler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	var req BulkUpdateTasksRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error", ValidationMessages(err)...)
		return
	}
	if req.Status == nil && req.Priority == nil && req.DueDate == nil && !req.ClearDueDate {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error",
			"at least one of status, priority, dueDate, clearDueDate is required")
		return
	}
	if req.DueDate != nil && req.ClearDueDate {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error",
			"dueDate and clearDueDate are mutually exclusive")
		return
	}

	update := store.BulkTaskUpdate{
		DueDate:  req.DueDate,
		ClearDue: req.ClearDueDate,
	}
	if req.Status != nil {
		status := domain.TaskStatus(*req.Status)
		update.Status = &status
	}
	if req.Priority != nil {
		priority := domain.TaskPriority(*req.Priority)
		update.Priority = &priority
	}

	var result *store.BulkResult
	err := h.runTx(r.Context(), func(ctx context.Context, tx *sql.Tx) error {
		var txErr error
		result, txErr = h.taskStore.WithTx(tx).UpdateMany(ctx, userID, req.IDs, update)
		return txErr
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	// Closed or rescheduled tasks may carry stale reminder timers.
	if update.Status != nil || update.DueDate != nil || update.ClearDue {
		for _, id := range req.IDs {
			h.notifier.CancelReminder(id)
		}
	}

	shared.RespondWithData(w, r, http.StatusOK, BulkUpdateResponse{
		Matched:  result.Matched,
		Modified: result.Modified,
	})
}

func newTaskStatsResponse(stats *store.TaskStats) TaskStatsResponse {
	byStatus := make(map[string]int, len(stats.ByStatus))
	for status, n := range stats.ByStatus {
		byStatus[string(status)] = n
	}
	byPriority := make(map[string]int, len(stats.ByPriority))
	for priority, n := range stats.ByPriority {
		byPriority[string(priority)] = n
	}
	return TaskStatsResponse{
		Total:          stats.Total,
		ByStatus:       byStatus,
		ByPriority:     byPriority,
		Overdue:        stats.Overdue,
		DueToday:       stats.DueToday,
		DueThisWeek:    stats.DueThisWeek,
		CompletionRate: stats.CompletionRate,
	}
}

// parseTaskListQuery turns the GET /tasks query string into store arguments.
// Unknown sort fields and orders fall back to defaults via Normalize; garbage
// enum or date values are rejected instead of silently ignored.
func parseTaskListQuery(r *http.Request) (store.TaskFilter, store.TaskSort, store.Page, error) {
	q := r.URL.Query()

	var filter store.TaskFilter

	if raw := q.Get("status"); raw != "" {
		status := domain.TaskStatus(raw)
		if !status.Valid() {
			return filter, store.TaskSort{}, store.Page{},
				domain.NewValidationError("status", "has invalid value", domain.ErrValidation)
		}
		filter.Status = status
	}
	if raw := q.Get("priority"); raw != "" {
		priority := domain.TaskPriority(raw)
		if !priority.Valid() {
			return filter, store.TaskSort{}, store.Page{},
				domain.NewValidationError("priority", "has invalid value", domain.ErrValidation)
		}
		filter.Priority = priority
	}
	if raw := q.Get("tag"); raw != "" {
		tagID, err := uuid.Parse(raw)
		if err != nil {
			return filter, store.TaskSort{}, store.Page{},
				domain.NewValidationError("tag", "has invalid format", domain.ErrInvalidID)
		}
		filter.TagID = tagID
	}
	filter.Search = q.Get("search")
	filter.Overdue = q.Get("overdue") == "true"
	filter.IncludeDeleted = q.Get("includeDeleted") == "true"

	if raw := q.Get("dueFrom"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, store.TaskSort{}, store.Page{},
				domain.NewValidationError("dueFrom", "must be RFC 3339", domain.ErrValidation)
		}
		filter.DueFrom = &t
	}
	if raw := q.Get("dueTo"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, store.TaskSort{}, store.Page{},
				domain.NewValidationError("dueTo", "must be RFC 3339", domain.ErrValidation)
		}
		filter.DueTo = &t
	}

	sort := store.TaskSort{
		Field: store.TaskSortField(q.Get("sortBy")),
		Order: store.SortOrder(q.Get("sortOrder")),
	}.Normalize()

	page := store.Page{
		Number: parseIntDefault(q.Get("page"), 0),
		Limit:  parseIntDefault(q.Get("limit"), 0),
	}.Normalize()

	return filter, sort, page, nil
}

func parseIntDefault(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
