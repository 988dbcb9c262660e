package repository

import (
	"context"

	"github.com/notifly/backend/domain"
)

// TaskFilter controls task listing. When IncludeResponses is set, each task
// carries its most recent responses, capped at ResponseLimit.
type TaskFilter struct {
	IncludeResponses bool
	ResponseLimit    int
	Limit            int
	Offset           int
}

type TaskRepository interface {
	// GetByID loads a task together with all of its responses, newest first.
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]domain.Task, error)
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)
	Update(ctx context.Context, task *domain.Task) error
	Delete(ctx context.Context, id string) error
}
