package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/notifly/backend/domain"
	"github.com/notifly/backend/usecase"
)

// Bridge maps task schedule fields to platform trigger notifications. The
// platform and the task store are not transactionally linked: the task's
// notificationId is the only connection, so every schedule-affecting mutation
// goes through cancel-then-reschedule and Reconcile rebuilds platform state
// after a restart.
type Bridge struct {
	scheduler Scheduler
	logger    *zap.Logger

	mu            sync.Mutex
	hasPermission bool
}

func NewBridge(scheduler Scheduler, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		scheduler: scheduler,
		logger:    logger,
	}
}

// Schedule requests permission on first use and registers a trigger. It fails
// closed: a denied permission or platform error yields "" and no error, since
// a reminder the platform cannot deliver must not block the task itself.
// Monthly cadence is approximated by the platform (no native monthly repeat
// primitive exists); the trigger is re-armed one calendar month ahead after
// each delivery rather than guaranteed by the platform.
func (b *Bridge) Schedule(ctx context.Context, title, description string, task *domain.Task) string {
	if !b.ensurePermission(ctx) {
		return ""
	}

	id, err := b.scheduler.Schedule(ctx, Trigger{
		Title:  title,
		Body:   description,
		FireAt: task.ScheduledTime,
		Repeat: task.RepeatType,
	})
	if err != nil {
		b.logger.Warn("failed to schedule notification",
			zap.String("task_id", task.ID),
			zap.Error(err))
		return ""
	}
	return id
}

// Cancel is best-effort: failures are logged, never propagated.
func (b *Bridge) Cancel(ctx context.Context, notificationID string) {
	if notificationID == "" {
		return
	}
	if err := b.scheduler.Cancel(ctx, notificationID); err != nil {
		b.logger.Warn("failed to cancel notification",
			zap.String("notification_id", notificationID),
			zap.Error(err))
	}
}

// Reconcile rebuilds platform triggers from the given tasks: every known
// trigger is cancelled and each enabled task is rescheduled. Returns the new
// notification id per task id so the caller can persist the links.
func (b *Bridge) Reconcile(ctx context.Context, tasks []domain.Task) map[string]string {
	ids, err := b.scheduler.ScheduledIDs(ctx)
	if err != nil {
		b.logger.Warn("failed to list scheduled notifications", zap.Error(err))
	}
	for _, id := range ids {
		b.Cancel(ctx, id)
	}

	rescheduled := make(map[string]string)
	for i := range tasks {
		task := &tasks[i]
		if !task.IsEnabled {
			continue
		}
		if id := b.Schedule(ctx, task.Title, task.Description, task); id != "" {
			rescheduled[task.ID] = id
		}
	}

	b.logger.Info("notification reconcile complete",
		zap.Int("cancelled", len(ids)),
		zap.Int("rescheduled", len(rescheduled)))
	return rescheduled
}

func (b *Bridge) ensurePermission(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.hasPermission {
		return true
	}
	granted, err := b.scheduler.RequestPermission(ctx)
	if err != nil {
		b.logger.Warn("notification permission request failed", zap.Error(err))
		return false
	}
	b.hasPermission = granted
	return granted
}

// TaskCreated implements usecase.ReminderBridge.
func (b *Bridge) TaskCreated(ctx context.Context, task *domain.Task) string {
	return b.Schedule(ctx, task.Title, task.Description, task)
}

// TaskUpdated implements usecase.ReminderBridge via cancel-then-reschedule.
func (b *Bridge) TaskUpdated(ctx context.Context, previousNotificationID string, task *domain.Task) string {
	b.Cancel(ctx, previousNotificationID)
	return b.Schedule(ctx, task.Title, task.Description, task)
}

// TaskDeleted implements usecase.ReminderBridge.
func (b *Bridge) TaskDeleted(ctx context.Context, notificationID string) {
	b.Cancel(ctx, notificationID)
}

var _ usecase.ReminderBridge = (*Bridge)(nil)
