package api

import (
	"context"

	"github.com/google/uuid"

	"github.com/tasknest/tasknest/internal/domain"
)

// Notifier is the slice of the notification dispatcher the handlers need.
// Everything except SendPasswordReset is fire-and-forget; the reset mail must
// report failure so the issued token can be rolled back.
type Notifier interface {
	SendWelcome(user *domain.User)
	SendPasswordReset(ctx context.Context, user *domain.User, plaintextToken string) error
	ScheduleReminder(task *domain.Task)
	CancelReminder(taskID uuid.UUID)
}
