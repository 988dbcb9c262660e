package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/notifly/backend/domain"
	"github.com/notifly/backend/repository"
)

// clock hands out strictly increasing timestamps so newest-first ordering is
// deterministic even when records are created within the same nanosecond.
type clock struct {
	mu   sync.Mutex
	last time.Time
}

func (c *clock) next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now().UTC()
	if !now.After(c.last) {
		now = c.last.Add(time.Microsecond)
	}
	c.last = now
	return now
}

type ResponseStore struct {
	mu      sync.RWMutex
	records map[string]domain.LLMResponse
	clock   *clock

	// tasks is set by NewTaskStore so reads can attach the owning task the
	// way the relational backend's LEFT JOIN does. Nil when the store is
	// used standalone.
	tasks *TaskStore
}

func NewResponseStore() *ResponseStore {
	return &ResponseStore{
		records: make(map[string]domain.LLMResponse),
		clock:   &clock{},
	}
}

func (s *ResponseStore) Create(ctx context.Context, record *domain.LLMResponse) (*domain.LLMResponse, error) {
	if record == nil {
		return nil, domain.ErrInvalidPayload
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Status == "" {
		record.Status = domain.StatusProcessing
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	record.CreatedAt = s.clock.next()
	s.records[record.ID] = *record
	return record, nil
}

func (s *ResponseStore) SetPrompt(ctx context.Context, id, prompt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return domain.ErrResponseNotFound
	}
	record.Prompt = prompt
	s.records[id] = record
	return nil
}

func (s *ResponseStore) Complete(ctx context.Context, id, text string, tokens int, cost float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok || record.Status != domain.StatusProcessing {
		return domain.ErrResponseNotFound
	}
	record.Response = text
	record.Tokens = &tokens
	record.Cost = &cost
	record.Status = domain.StatusCompleted
	s.records[id] = record
	return nil
}

func (s *ResponseStore) Fail(ctx context.Context, id, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok || record.Status != domain.StatusProcessing {
		return domain.ErrResponseNotFound
	}
	record.Error = &message
	record.Status = domain.StatusFailed
	s.records[id] = record
	return nil
}

func (s *ResponseStore) GetByID(ctx context.Context, id string) (*domain.LLMResponse, error) {
	s.mu.RLock()
	record, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrResponseNotFound
	}
	s.attachTask(&record)
	return &record, nil
}

func (s *ResponseStore) ListByTask(ctx context.Context, taskID string) ([]domain.LLMResponse, error) {
	s.mu.RLock()
	out := make([]domain.LLMResponse, 0)
	for _, record := range s.records {
		if record.BelongsTo(taskID) {
			out = append(out, record)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *ResponseStore) List(ctx context.Context, page repository.Page) ([]domain.LLMResponse, error) {
	s.mu.RLock()
	all := make([]domain.LLMResponse, 0, len(s.records))
	for _, record := range s.records {
		all = append(all, record)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	limit := page.Limit
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	number := page.Number
	if number < 1 {
		number = 1
	}
	start := (number - 1) * limit
	if start > len(all) {
		start = len(all)
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	out := all[start:end]
	for i := range out {
		s.attachTask(&out[i])
	}
	return out, nil
}

func (s *ResponseStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// attachTask copies the owning task onto the record, without its nested
// responses. No-op for orphaned records and standalone stores.
func (s *ResponseStore) attachTask(record *domain.LLMResponse) {
	if s.tasks == nil || record.TaskID == nil {
		return
	}
	s.tasks.mu.RLock()
	task, ok := s.tasks.tasks[*record.TaskID]
	s.tasks.mu.RUnlock()
	if !ok {
		return
	}
	record.Task = &task
}

// detachTask nulls the task reference on records owned by a deleted task,
// matching the ON DELETE SET NULL behavior of the relational schema.
func (s *ResponseStore) detachTask(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, record := range s.records {
		if record.BelongsTo(taskID) {
			record.TaskID = nil
			s.records[id] = record
		}
	}
}

var _ repository.ResponseRepository = (*ResponseStore)(nil)
