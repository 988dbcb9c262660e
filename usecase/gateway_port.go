package usecase

import "context"

// Completion is the result of one provider call.
type Completion struct {
	Text   string
	Tokens int
	// Cost is an approximation derived from a static per-model price table,
	// not a billing-accurate figure.
	Cost float64
}

// CompletionGateway abstracts the external LLM provider so use cases can be
// tested with a stub. There is exactly one construction point (main).
type CompletionGateway interface {
	Complete(ctx context.Context, model, systemPrompt, userPrompt string) (*Completion, error)
}
