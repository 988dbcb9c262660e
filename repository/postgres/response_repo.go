package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifly/backend/domain"
	"github.com/notifly/backend/repository"
)

type responseRepository struct {
	pool *pgxpool.Pool
}

// NewResponseRepository returns a Postgres-backed implementation of ResponseRepository.
func NewResponseRepository(pool *pgxpool.Pool) repository.ResponseRepository {
	return &responseRepository{pool: pool}
}

func (r *responseRepository) Create(ctx context.Context, response *domain.LLMResponse) (*domain.LLMResponse, error) {
	if response == nil {
		return nil, domain.ErrInvalidPayload
	}
	if response.ID == "" {
		response.ID = uuid.NewString()
	}
	if response.Status == "" {
		response.Status = domain.StatusProcessing
	}

	const query = `
	INSERT INTO llm_responses (id, task_id, prompt, response, model, status)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING created_at
	`
	if err := r.pool.QueryRow(ctx, query,
		response.ID,
		response.TaskID,
		response.Prompt,
		response.Response,
		response.Model,
		string(response.Status),
	).Scan(&response.CreatedAt); err != nil {
		return nil, err
	}

	return response, nil
}

func (r *responseRepository) SetPrompt(ctx context.Context, id, prompt string) error {
	const query = `UPDATE llm_responses SET prompt = $2 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, prompt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrResponseNotFound
	}
	return nil
}

func (r *responseRepository) Complete(ctx context.Context, id, text string, tokens int, cost float64) error {
	const query = `
	UPDATE llm_responses
	SET response = $2, tokens = $3, cost = $4, status = $5, error = NULL
	WHERE id = $1 AND status = $6
	`
	tag, err := r.pool.Exec(ctx, query, id, text, tokens, cost,
		string(domain.StatusCompleted), string(domain.StatusProcessing))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrResponseNotFound
	}
	return nil
}

func (r *responseRepository) Fail(ctx context.Context, id, message string) error {
	const query = `
	UPDATE llm_responses
	SET status = $2, error = $3
	WHERE id = $1 AND status = $4
	`
	tag, err := r.pool.Exec(ctx, query, id,
		string(domain.StatusFailed), message, string(domain.StatusProcessing))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrResponseNotFound
	}
	return nil
}

// joinedColumns selects a response together with its owning task, which may
// be entirely NULL after ON DELETE SET NULL.
const joinedColumns = `
	SELECT r.id, r.task_id, r.prompt, r.response, r.model, r.tokens, r.cost, r.status, r.error, r.created_at,
	       t.id, t.title, t.description, t.scheduled_time, t.repeat_type, t.is_enabled, t.notification_id, t.created_at, t.updated_at
	FROM llm_responses r
	LEFT JOIN tasks t ON t.id = r.task_id
	`

func (r *responseRepository) GetByID(ctx context.Context, id string) (*domain.LLMResponse, error) {
	const query = joinedColumns + `WHERE r.id = $1`
	resp, err := scanResponseWithTask(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (r *responseRepository) ListByTask(ctx context.Context, taskID string) ([]domain.LLMResponse, error) {
	const query = `
	SELECT id, task_id, prompt, response, model, tokens, cost, status, error, created_at
	FROM llm_responses
	WHERE task_id = $1
	ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectResponses(rows)
}

func (r *responseRepository) List(ctx context.Context, page repository.Page) ([]domain.LLMResponse, error) {
	limit := clampLimit(page.Limit)
	offset := 0
	if page.Number > 1 {
		offset = (page.Number - 1) * limit
	}

	const query = joinedColumns + `
	ORDER BY r.created_at DESC
	LIMIT $1 OFFSET $2
	`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var responses []domain.LLMResponse
	for rows.Next() {
		resp, err := scanResponseWithTask(rows)
		if err != nil {
			return nil, err
		}
		responses = append(responses, *resp)
	}
	return responses, rows.Err()
}

func (r *responseRepository) Count(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM llm_responses`
	var count int
	if err := r.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func collectResponses(rows pgx.Rows) ([]domain.LLMResponse, error) {
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

func scanResponse(row pgx.Row) (*domain.LLMResponse, error) {
	var resp domain.LLMResponse
	var status string

	if err := row.Scan(
		&resp.ID,
		&resp.TaskID,
		&resp.Prompt,
		&resp.Response,
		&resp.Model,
		&resp.Tokens,
		&resp.Cost,
		&status,
		&resp.Error,
		&resp.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrResponseNotFound
		}
		return nil, err
	}

	resp.Status = domain.ResponseStatus(status)
	return &resp, nil
}

func scanResponseWithTask(row pgx.Row) (*domain.LLMResponse, error) {
	var resp domain.LLMResponse
	var status string
	var (
		taskID        *string
		taskTitle     *string
		taskDesc      *string
		taskScheduled *time.Time
		taskRepeat    *string
		taskEnabled   *bool
		taskNotifID   *string
		taskCreated   *time.Time
		taskUpdated   *time.Time
	)

	if err := row.Scan(
		&resp.ID,
		&resp.TaskID,
		&resp.Prompt,
		&resp.Response,
		&resp.Model,
		&resp.Tokens,
		&resp.Cost,
		&status,
		&resp.Error,
		&resp.CreatedAt,
		&taskID,
		&taskTitle,
		&taskDesc,
		&taskScheduled,
		&taskRepeat,
		&taskEnabled,
		&taskNotifID,
		&taskCreated,
		&taskUpdated,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrResponseNotFound
		}
		return nil, err
	}
	resp.Status = domain.ResponseStatus(status)

	if taskID != nil {
		task := &domain.Task{
			ID:          *taskID,
			Title:       deref(taskTitle),
			Description: deref(taskDesc),
			RepeatType:  domain.RepeatType(deref(taskRepeat)),
		}
		if taskScheduled != nil {
			task.ScheduledTime = *taskScheduled
		}
		if taskEnabled != nil {
			task.IsEnabled = *taskEnabled
		}
		if taskNotifID != nil {
			task.NotificationID = *taskNotifID
		}
		if taskCreated != nil {
			task.CreatedAt = *taskCreated
		}
		if taskUpdated != nil {
			task.UpdatedAt = *taskUpdated
		}
		resp.Task = task
	}

	return &resp, nil
}
