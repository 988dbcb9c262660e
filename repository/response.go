package repository

import (
	"context"

	"github.com/notifly/backend/domain"
)

// Page describes pagination parameters for response listings.
type Page struct {
	Number int
	Limit  int
}

type ResponseRepository interface {
	Create(ctx context.Context, response *domain.LLMResponse) (*domain.LLMResponse, error)
	// SetPrompt persists the computed prompt while the record is still in flight,
	// so a concurrent reader sees the real prompt before completion.
	SetPrompt(ctx context.Context, id, prompt string) error
	Complete(ctx context.Context, id, text string, tokens int, cost float64) error
	Fail(ctx context.Context, id, message string) error
	// GetByID loads a response with its owning task when one exists.
	GetByID(ctx context.Context, id string) (*domain.LLMResponse, error)
	ListByTask(ctx context.Context, taskID string) ([]domain.LLMResponse, error)
	List(ctx context.Context, page Page) ([]domain.LLMResponse, error)
	Count(ctx context.Context) (int, error)
}
