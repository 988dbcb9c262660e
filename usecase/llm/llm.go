package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/notifly/backend/domain"
	applogger "github.com/notifly/backend/pkg/logger"
	"github.com/notifly/backend/repository"
	"github.com/notifly/backend/usecase"
)

// DefaultModel is applied when a request does not name a model.
const DefaultModel = "gpt-3.5-turbo"

var supportedModels = map[string]struct{}{
	"gpt-3.5-turbo": {},
	"gpt-4":         {},
	"gpt-4-turbo":   {},
}

const (
	taskSystemPrompt   = "You are a helpful assistant that provides concise, accurate information based on user queries. Focus on delivering the most relevant and up-to-date information."
	promptSystemPrompt = "You are a helpful assistant that provides concise, accurate information."
)

type UseCase struct {
	tasks     repository.TaskRepository
	responses repository.ResponseRepository
	gateway   usecase.CompletionGateway
	logger    *zap.Logger

	// callTimeout bounds each provider call, including the detached task path.
	callTimeout time.Duration
}

func New(
	tasks repository.TaskRepository,
	responses repository.ResponseRepository,
	gateway usecase.CompletionGateway,
	callTimeout time.Duration,
	logger *zap.Logger,
) *UseCase {
	if callTimeout <= 0 {
		callTimeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		tasks:       tasks,
		responses:   responses,
		gateway:     gateway,
		callTimeout: callTimeout,
		logger:      logger,
	}
}

// StartTaskProcessing accepts a process request for a task: it verifies the
// task exists, creates the PROCESSING record, persists the computed prompt,
// and then runs the provider call detached from the request. The returned id
// is pollable immediately; the record always ends COMPLETED or FAILED unless
// the process dies mid-call.
func (uc *UseCase) StartTaskProcessing(ctx context.Context, taskID, customPrompt, model string) (string, error) {
	model, err := resolveModel(model)
	if err != nil {
		return "", err
	}

	// No record may be left behind when the task itself is missing.
	task, err := uc.tasks.GetByID(ctx, taskID)
	if err != nil {
		return "", err
	}

	record, err := uc.responses.Create(ctx, &domain.LLMResponse{
		TaskID: &task.ID,
		Model:  model,
		Status: domain.StatusProcessing,
	})
	if err != nil {
		return "", err
	}

	prompt := customPrompt
	if prompt == "" {
		prompt = promptFromTask(task)
	}
	if err := uc.responses.SetPrompt(ctx, record.ID, prompt); err != nil {
		// The record exists and is PROCESSING; terminate it so it cannot
		// sit in that state forever.
		persistCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if failErr := uc.responses.Fail(persistCtx, record.ID, err.Error()); failErr != nil {
			uc.logger.Error("failed to persist FAILED status",
				zap.String("response_id", record.ID),
				zap.Error(failErr))
		}
		return "", err
	}

	// Capture the request-scoped logger before detaching so the goroutine's
	// logs still carry the originating request id.
	log := applogger.WithRequestID(ctx, uc.logger)
	go func() {
		callCtx, cancel := context.WithTimeout(context.Background(), uc.callTimeout)
		defer cancel()
		if err := uc.execute(callCtx, record.ID, model, taskSystemPrompt, prompt); err != nil {
			log.Error("task processing failed",
				zap.String("task_id", taskID),
				zap.String("response_id", record.ID),
				zap.Error(err))
		}
	}()

	return record.ID, nil
}

// ProcessPrompt runs a standalone provider call not tied to a task, waiting
// for the terminal state. The record survives as an audit entry even when the
// call fails, in which case the gateway error is returned to the caller.
func (uc *UseCase) ProcessPrompt(ctx context.Context, prompt, model string) (*domain.LLMResponse, error) {
	if prompt == "" {
		return nil, domain.NewError(domain.ErrCodeInvalid, "prompt is required")
	}
	model, err := resolveModel(model)
	if err != nil {
		return nil, err
	}

	record, err := uc.responses.Create(ctx, &domain.LLMResponse{
		Prompt: prompt,
		Model:  model,
		Status: domain.StatusProcessing,
	})
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, uc.callTimeout)
	defer cancel()
	if err := uc.execute(callCtx, record.ID, model, promptSystemPrompt, prompt); err != nil {
		return nil, err
	}

	return uc.responses.GetByID(ctx, record.ID)
}

// execute drives the record from PROCESSING to a terminal status around one
// gateway call. Terminal writes use a fresh context so a timed-out call still
// leaves an auditable FAILED record.
func (uc *UseCase) execute(ctx context.Context, recordID, model, systemPrompt, userPrompt string) error {
	completion, err := uc.gateway.Complete(ctx, model, systemPrompt, userPrompt)

	persistCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err != nil {
		if failErr := uc.responses.Fail(persistCtx, recordID, err.Error()); failErr != nil {
			uc.logger.Error("failed to persist FAILED status",
				zap.String("response_id", recordID),
				zap.Error(failErr))
		}
		return domain.WrapError(domain.ErrCodeUpstream, "llm provider call failed", err)
	}

	if err := uc.responses.Complete(persistCtx, recordID, completion.Text, completion.Tokens, completion.Cost); err != nil {
		return err
	}
	return nil
}

func (uc *UseCase) GetResponse(ctx context.Context, id string) (*domain.LLMResponse, error) {
	return uc.responses.GetByID(ctx, id)
}

// GetTaskResponse loads a record scoped to its owning task. A record owned by
// a different task is reported as not found rather than leaked.
func (uc *UseCase) GetTaskResponse(ctx context.Context, taskID, responseID string) (*domain.LLMResponse, error) {
	record, err := uc.responses.GetByID(ctx, responseID)
	if err != nil {
		return nil, err
	}
	if !record.BelongsTo(taskID) {
		return nil, domain.ErrResponseNotFound
	}
	return record, nil
}

func (uc *UseCase) ListTaskResponses(ctx context.Context, taskID string) ([]domain.LLMResponse, error) {
	return uc.responses.ListByTask(ctx, taskID)
}

// ListResponses returns one page of records plus the total record count.
func (uc *UseCase) ListResponses(ctx context.Context, page repository.Page) ([]domain.LLMResponse, int, error) {
	records, err := uc.responses.List(ctx, page)
	if err != nil {
		return nil, 0, err
	}
	total, err := uc.responses.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func resolveModel(model string) (string, error) {
	if model == "" {
		return DefaultModel, nil
	}
	if _, ok := supportedModels[model]; !ok {
		return "", domain.NewError(domain.ErrCodeInvalid, fmt.Sprintf("unsupported model %q", model))
	}
	return model, nil
}

// promptFromTask builds the deterministic prompt for a task, folding in the
// repeat cadence so the provider can tailor the answer to it.
func promptFromTask(task *domain.Task) string {
	return fmt.Sprintf(`Task: %s
Frequency: %s

Please provide a comprehensive response to the task query above.
Consider the frequency context when relevant (e.g., if it's daily, provide current/today's information; if weekly, provide a weekly summary).

Response:`, task.Description, task.RepeatType)
}
