package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/tasknest/tasknest/internal/api/shared"
	"github.com/tasknest/tasknest/internal/domain"
	"github.com/tasknest/tasknest/internal/store"
)

// Request payloads. Field names follow the wire convention (camelCase);
// validation runs through go-playground/validator before any store call.

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Email       string `json:"email"       validate:"required,email"`
	Password    string `json:"password"    validate:"required,min=12,max=72"`
	DisplayName string `json:"displayName" validate:"omitempty,max=100"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// UpdateProfileRequest defines the payload for profile updates.
type UpdateProfileRequest struct {
	Email       string `json:"email"       validate:"required,email"`
	DisplayName string `json:"displayName" validate:"omitempty,max=100"`
}

// ChangePasswordRequest defines the payload for authenticated password
// changes. The current password is re-verified before the new one is set.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword"     validate:"required,min=12,max=72"`
}

// ForgotPasswordRequest defines the payload for requesting a reset token.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest defines the payload for redeeming a reset token.
type ResetPasswordRequest struct {
	Token       string `json:"token"       validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=12,max=72"`
}

// CreateTaskRequest defines the payload for task creation.
type CreateTaskRequest struct {
	Title       string      `json:"title"       validate:"required,max=200"`
	Description string      `json:"description" validate:"omitempty,max=2000"`
	Priority    string      `json:"priority"    validate:"omitempty,oneof=low medium high critical"`
	DueDate     *time.Time  `json:"dueDate"`
	Tags        []uuid.UUID `json:"tags"        validate:"omitempty,max=20"`
}

// UpdateTaskRequest defines the payload for full task updates. Every mutable
// field must be supplied; this is a PUT, not a patch.
type UpdateTaskRequest struct {
	Title       string      `json:"title"       validate:"required,max=200"`
	Description string      `json:"description" validate:"omitempty,max=2000"`
	Status      string      `json:"status"      validate:"required,oneof=pending in-progress completed cancelled"`
	Priority    string      `json:"priority"    validate:"required,oneof=low medium high critical"`
	DueDate     *time.Time  `json:"dueDate"`
	Tags        []uuid.UUID `json:"tags"        validate:"omitempty,max=20"`
}

// BulkUpdateTasksRequest defines the payload for PATCH /tasks/bulk. At least
// one of status, priority, dueDate or clearDueDate must be present; the
// handler enforces that since validator cannot express it across fields.
type BulkUpdateTasksRequest struct {
	IDs          []uuid.UUID `json:"ids"          validate:"required,min=1,max=100"`
	Status       *string     `json:"status"       validate:"omitempty,oneof=pending in-progress completed cancelled"`
	Priority     *string     `json:"priority"     validate:"omitempty,oneof=low medium high critical"`
	DueDate      *time.Time  `json:"dueDate"`
	ClearDueDate bool        `json:"clearDueDate"`
}

// CreateTagRequest defines the payload for tag creation.
type CreateTagRequest struct {
	Name        string `json:"name"        validate:"required,max=50"`
	Color       string `json:"color"       validate:"omitempty,hexcolor"`
	Description string `json:"description" validate:"omitempty,max=500"`
}

// UpdateTagRequest defines the payload for tag updates.
type UpdateTagRequest struct {
	Name        string `json:"name"        validate:"required,max=50"`
	Color       string `json:"color"       validate:"required,hexcolor"`
	Description string `json:"description" validate:"omitempty,max=500"`
}

// Response payloads. Domain entities never serialize directly onto the wire;
// the views below fix the external field names independently of the
// persistence shapes.

// UserResponse is the public view of a user.
type UserResponse struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"displayName"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User      UserResponse `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// TaskResponse is the public view of a task.
type TaskResponse struct {
	ID          uuid.UUID   `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Status      string      `json:"status"`
	Priority    string      `json:"priority"`
	DueDate     *time.Time  `json:"dueDate,omitempty"`
	Tags        []uuid.UUID `json:"tags"`
	IsCompleted bool        `json:"isCompleted"`
	CompletedAt *time.Time  `json:"completedAt,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// TagResponse is the public view of a tag.
type TagResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	Description string    `json:"description"`
	UsageCount  int       `json:"usageCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// BulkUpdateResponse reports the outcome of a bulk task update.
type BulkUpdateResponse struct {
	Matched  int `json:"matched"`
	Modified int `json:"modified"`
}

// TaskStatsResponse is the payload of GET /tasks/stats.
type TaskStatsResponse struct {
	Total          int            `json:"total"`
	ByStatus       map[string]int `json:"byStatus"`
	ByPriority     map[string]int `json:"byPriority"`
	Overdue        int            `json:"overdue"`
	DueToday       int            `json:"dueToday"`
	DueThisWeek    int            `json:"dueThisWeek"`
	CompletionRate float64        `json:"completionRate"`
}

// TagStatsResponse is the payload of GET /tags/stats.
type TagStatsResponse struct {
	Total    int           `json:"total"`
	Unused   int           `json:"unused"`
	MostUsed []TagResponse `json:"mostUsed"`
}

// TagDeleteResponse reports the outcome of a tag deletion.
type TagDeleteResponse struct {
	TasksAffected int `json:"tasksAffected"`
}

func newUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
	}
}

func newTaskResponse(task *domain.Task) TaskResponse {
	tags := task.TagIDs
	if tags == nil {
		tags = []uuid.UUID{}
	}
	return TaskResponse{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Status:      string(task.Status),
		Priority:    string(task.Priority),
		DueDate:     task.DueDate,
		Tags:        tags,
		IsCompleted: task.IsCompleted,
		CompletedAt: task.CompletedAt,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

func newTaskResponses(tasks []*domain.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, newTaskResponse(task))
	}
	return out
}

func newTagResponse(tag *domain.Tag) TagResponse {
	return TagResponse{
		ID:          tag.ID,
		Name:        tag.Name,
		Color:       tag.Color,
		Description: tag.Description,
		UsageCount:  tag.UsageCount,
		CreatedAt:   tag.CreatedAt,
		UpdatedAt:   tag.UpdatedAt,
	}
}

func newTagResponses(tags []*domain.Tag) []TagResponse {
	out := make([]TagResponse, 0, len(tags))
	for _, tag := range tags {
		out = append(out, newTagResponse(tag))
	}
	return out
}

func newPagination(page store.Page, result *store.TaskPage) shared.Pagination {
	return shared.Pagination{
		CurrentPage: page.Number,
		TotalPages:  result.TotalPages,
		TotalItems:  result.TotalItems,
		HasNextPage: result.HasNext,
		HasPrevPage: result.HasPrev,
	}
}

func newTagPagination(page store.Page, result *store.TagPage) shared.Pagination {
	return shared.Pagination{
		CurrentPage: page.Number,
		TotalPages:  result.TotalPages,
		TotalItems:  result.TotalItems,
		HasNextPage: result.HasNext,
		HasPrevPage: result.HasPrev,
	}
}
