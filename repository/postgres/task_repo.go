package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifly/backend/domain"
	"github.com/notifly/backend/repository"
)

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository returns a Postgres-backed implementation of TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) repository.TaskRepository {
	return &taskRepository{pool: pool}
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	const query = `
	SELECT id, title, description, scheduled_time, repeat_type, is_enabled, notification_id, created_at, updated_at
	FROM tasks
	WHERE id = $1
	`
	task, err := scanTask(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	responses, err := r.loadResponses(ctx, task.ID, 0)
	if err != nil {
		return nil, err
	}
	task.Responses = responses
	return task, nil
}

func (r *taskRepository) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	const query = `
	SELECT id, title, description, scheduled_time, repeat_type, is_enabled, notification_id, created_at, updated_at
	FROM tasks
	ORDER BY created_at DESC
	LIMIT $1 OFFSET $2
	`
	rows, err := r.pool.Query(ctx, query, clampLimit(filter.Limit), filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if filter.IncludeResponses {
		limit := filter.ResponseLimit
		if limit <= 0 {
			limit = 5
		}
		for i := range tasks {
			responses, err := r.loadResponses(ctx, tasks[i].ID, limit)
			if err != nil {
				return nil, err
			}
			tasks[i].Responses = responses
		}
	}
	return tasks, nil
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO tasks (id, title, description, scheduled_time, repeat_type, is_enabled, notification_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING created_at, updated_at
	`
	if err := r.pool.QueryRow(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.ScheduledTime,
		string(task.RepeatType),
		task.IsEnabled,
		nullString(task.NotificationID),
	).Scan(&task.CreatedAt, &task.UpdatedAt); err != nil {
		return nil, err
	}

	return task, nil
}

func (r *taskRepository) Update(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE tasks
	SET title = $2,
		description = $3,
		scheduled_time = $4,
		repeat_type = $5,
		is_enabled = $6,
		notification_id = $7,
		updated_at = NOW()
	WHERE id = $1
	RETURNING updated_at
	`
	if err := r.pool.QueryRow(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.ScheduledTime,
		string(task.RepeatType),
		task.IsEnabled,
		nullString(task.NotificationID),
	).Scan(&task.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrTaskNotFound
		}
		return err
	}

	return nil
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM tasks WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

// loadResponses returns a task's responses newest first. A limit of zero
// means no cap.
func (r *taskRepository) loadResponses(ctx context.Context, taskID string, limit int) ([]domain.LLMResponse, error) {
	query := `
	SELECT id, task_id, prompt, response, model, tokens, cost, status, error, created_at
	FROM llm_responses
	WHERE task_id = $1
	ORDER BY created_at DESC
	`
	args := []interface{}{taskID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var responses []domain.LLMResponse
	for rows.Next() {
		resp, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		responses = append(responses, *resp)
	}
	return responses, rows.Err()
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var task domain.Task
	var (
		repeat         string
		notificationID *string
	)

	if err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.ScheduledTime,
		&repeat,
		&task.IsEnabled,
		&notificationID,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}

	task.RepeatType = domain.RepeatType(repeat)
	if notificationID != nil {
		task.NotificationID = *notificationID
	}
	return &task, nil
}
