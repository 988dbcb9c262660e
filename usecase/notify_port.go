package usecase

import (
	"context"

	"github.com/notifly/backend/domain"
)

// ReminderBridge abstracts the notification bridge so the task use case stays
// platform-agnostic. Implementations are best-effort: the backend task record
// is the source of truth and bridge failures must not fail the mutation.
type ReminderBridge interface {
	// TaskCreated schedules a trigger for the task and returns the platform
	// notification id, or "" when scheduling was not possible.
	TaskCreated(ctx context.Context, task *domain.Task) string
	// TaskUpdated cancels the previous trigger and schedules a fresh one.
	TaskUpdated(ctx context.Context, previousNotificationID string, task *domain.Task) string
	// TaskDeleted cancels the task's trigger.
	TaskDeleted(ctx context.Context, notificationID string)
}
