package task

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/notifly/backend/domain"
	"github.com/notifly/backend/repository"
	"github.com/notifly/backend/usecase"
)

// UpdateFields carries a partial update. Nil fields keep their stored value.
type UpdateFields struct {
	Title          *string
	Description    *string
	ScheduledTime  *time.Time
	RepeatType     *domain.RepeatType
	IsEnabled      *bool
	NotificationID *string
}

type UseCase struct {
	tasks  repository.TaskRepository
	bridge usecase.ReminderBridge
	logger *zap.Logger
}

func New(tasks repository.TaskRepository, bridge usecase.ReminderBridge, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		tasks:  tasks,
		bridge: bridge,
		logger: logger,
	}
}

func (uc *UseCase) ListTasks(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	return uc.tasks.List(ctx, filter)
}

func (uc *UseCase) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	return uc.tasks.GetByID(ctx, id)
}

func (uc *UseCase) CreateTask(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if err := task.Validate(); err != nil {
		return nil, err
	}

	if uc.bridge != nil && task.IsEnabled && task.NotificationID == "" {
		task.NotificationID = uc.bridge.TaskCreated(ctx, task)
	}

	created, err := uc.tasks.Create(ctx, task)
	if err != nil {
		// The trigger is orphaned if the store rejects the task.
		if uc.bridge != nil && task.NotificationID != "" {
			uc.bridge.TaskDeleted(ctx, task.NotificationID)
		}
		return nil, err
	}
	return created, nil
}

// UpdateTask applies a partial update: fields absent from the request keep
// their prior values. Schedule-affecting changes cancel and reschedule the
// task's trigger.
func (uc *UseCase) UpdateTask(ctx context.Context, id string, fields UpdateFields) (*domain.Task, error) {
	current, err := uc.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	previousNotificationID := current.NotificationID
	merge(current, fields)

	if err := current.Validate(); err != nil {
		return nil, err
	}

	if uc.bridge != nil && fields.NotificationID == nil {
		if current.IsEnabled {
			current.NotificationID = uc.bridge.TaskUpdated(ctx, previousNotificationID, current)
		} else {
			uc.bridge.TaskDeleted(ctx, previousNotificationID)
			current.NotificationID = ""
		}
	}

	if err := uc.tasks.Update(ctx, current); err != nil {
		return nil, err
	}
	current.Responses = nil
	return current, nil
}

func (uc *UseCase) DeleteTask(ctx context.Context, id string) error {
	task, err := uc.tasks.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := uc.tasks.Delete(ctx, id); err != nil {
		return err
	}

	if uc.bridge != nil && task.NotificationID != "" {
		uc.bridge.TaskDeleted(ctx, task.NotificationID)
	}
	return nil
}

func merge(task *domain.Task, fields UpdateFields) {
	if fields.Title != nil {
		task.Title = *fields.Title
	}
	if fields.Description != nil {
		task.Description = *fields.Description
	}
	if fields.ScheduledTime != nil {
		task.ScheduledTime = *fields.ScheduledTime
	}
	if fields.RepeatType != nil {
		task.RepeatType = *fields.RepeatType
	}
	if fields.IsEnabled != nil {
		task.IsEnabled = *fields.IsEnabled
	}
	if fields.NotificationID != nil {
		task.NotificationID = *fields.NotificationID
	}
}
