// Package memory provides in-memory repository implementations used by tests
// and local experimentation. Semantics mirror the Postgres repositories,
// including newest-first ordering and limit clamping.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/notifly/backend/domain"
	"github.com/notifly/backend/repository"
)

type TaskStore struct {
	mu        sync.RWMutex
	tasks     map[string]domain.Task
	responses *ResponseStore
	clock     *clock
}

// NewTaskStore builds a task store sharing response state with the given
// response store, so nested includes behave like the relational backend.
func NewTaskStore(responses *ResponseStore) *TaskStore {
	if responses == nil {
		responses = NewResponseStore()
	}
	store := &TaskStore{
		tasks:     make(map[string]domain.Task),
		responses: responses,
		clock:     responses.clock,
	}
	responses.tasks = store
	return store
}

func (s *TaskStore) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	s.mu.RLock()
	task, ok := s.tasks[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrTaskNotFound
	}

	responses, err := s.responses.ListByTask(ctx, id)
	if err != nil {
		return nil, err
	}
	task.Responses = responses
	return &task, nil
}

func (s *TaskStore) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	s.mu.RLock()
	all := make([]domain.Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		all = append(all, task)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	start := filter.Offset
	if start > len(all) {
		start = len(all)
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	page := all[start:end]

	if filter.IncludeResponses {
		perTask := filter.ResponseLimit
		if perTask <= 0 {
			perTask = 5
		}
		for i := range page {
			responses, err := s.responses.ListByTask(ctx, page[i].ID)
			if err != nil {
				return nil, err
			}
			if len(responses) > perTask {
				responses = responses[:perTask]
			}
			page[i].Responses = responses
		}
	}
	return page, nil
}

func (s *TaskStore) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.next()
	task.CreatedAt = now
	task.UpdatedAt = now
	s.tasks[task.ID] = *task
	return task, nil
}

func (s *TaskStore) Update(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return domain.ErrInvalidPayload
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.tasks[task.ID]
	if !ok {
		return domain.ErrTaskNotFound
	}
	task.CreatedAt = current.CreatedAt
	task.UpdatedAt = s.clock.next()
	stored := *task
	stored.Responses = nil
	s.tasks[task.ID] = stored
	return nil
}

func (s *TaskStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return domain.ErrTaskNotFound
	}
	delete(s.tasks, id)
	s.responses.detachTask(id)
	return nil
}

// Len reports the number of stored tasks.
func (s *TaskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

var _ repository.TaskRepository = (*TaskStore)(nil)
