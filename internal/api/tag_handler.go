package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/tasknest/tasknest/internal/api/shared"
	"github.com/tasknest/tasknest/internal/domain"
	"github.com/tasknest/tasknest/internal/store"
)

// TagHandler handles tag CRUD and stats requests.
type TagHandler struct {
	tagStore  store.TagStore
	runTx     TxRunner
	validator *validator.Validate
	logger    *slog.Logger
}

// NewTagHandler creates a new TagHandler with the given dependencies.
func NewTagHandler(tagStore store.TagStore, runTx TxRunner, logger *slog.Logger) *TagHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TagHandler{
		tagStore:  tagStore,
		runTx:     runTx,
		validator: validator.New(),
		logger:    logger.With(slog.String("component", "tag_handler")),
	}
}

// List handles GET /api/tags.
func (h *TagHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	q := r.URL.Query()
	page := store.Page{
		Number: parseIntDefault(q.Get("page"), 0),
		Limit:  parseIntDefault(q.Get("limit"), 0),
	}.Normalize()

	result, err := h.tagStore.List(r.Context(), userID, page)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tags")
		return
	}

	shared.RespondWithPage(w, r, http.StatusOK, newTagResponses(result.Tags), newTagPagination(page, result))
}

// Create handles POST /api/tags.
func (h *TagHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	var req CreateTagRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error", ValidationMessages(err)...)
		return
	}

	tag, err := domain.NewTag(userID, req.Name, req.Color, req.Description)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.tagStore.Create(r.Context(), tag); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithData(w, r, http.StatusCreated, newTagResponse(tag))
}

// Get handles GET /api/tags/{id}.
func (h *TagHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, tagID, ok := handleUserIDAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	tag, err := h.tagStore.GetByID(r.Context(), userID, tagID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithData(w, r, http.StatusOK, newTagResponse(tag))
}

// Update handles PUT /api/tags/{id}.
func (h *TagHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, tagID, ok := handleUserIDAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateTagRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error", ValidationMessages(err)...)
		return
	}

	tag, err := h.tagStore.GetByID(r.Context(), userID, tagID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	tag.Name = req.Name
	tag.Color = req.Color
	tag.Description = req.Description
	if err := tag.Validate(); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.tagStore.Update(r.Context(), tag); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithData(w, r, http.StatusOK, newTagResponse(tag))
}

// Delete handles DELETE /api/tags/{id}. Without ?force=true the delete fails
// with 409 while the tag is still attached to tasks; with it, the unlink and
// the soft delete run in one transaction.
func (h *TagHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, tagID, ok := handleUserIDAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	force := r.URL.Query().Get("force") == "true"

	var result *store.TagDeleteResult
	err := h.runTx(r.Context(), func(ctx context.Context, tx *sql.Tx) error {
		var txErr error
		result, txErr = h.tagStore.WithTx(tx).Delete(ctx, userID, tagID, force)
		return txErr
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithData(w, r, http.StatusOK, TagDeleteResponse{
		TasksAffected: result.TasksAffected,
	})
}

// Stats handles GET /api/tags/stats.
func (h *TagHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	stats, err := h.tagStore.Stats(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to compute stats")
		return
	}

	shared.RespondWithData(w, r, http.StatusOK, TagStatsResponse{
		Total:    stats.Total,
		Unused:   stats.Unused,
		MostUsed: newTagResponses(stats.MostUsed),
	})
}
