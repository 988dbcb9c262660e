package openai

import (
	"context"

	gopenai "github.com/meguminnnnnnnnn/go-openai"
	"go.uber.org/zap"

	"github.com/notifly/backend/usecase"
)

const (
	temperature = 0.7
	maxTokens   = 1000
)

// pricePerToken maps a model to its approximate USD price per token.
// Unrecognized models price at zero. This is an estimate for reporting,
// not a billing-accurate figure.
var pricePerToken = map[string]float64{
	"gpt-3.5-turbo": 0.002 / 1000,
	"gpt-4":         0.03 / 1000,
	"gpt-4-turbo":   0.01 / 1000,
}

// Config carries gateway construction settings. BaseURL is optional and
// exists so tests can point the client at a stub server.
type Config struct {
	APIKey  string
	BaseURL string
}

// Gateway is the single construction point for the provider client.
type Gateway struct {
	client *gopenai.Client
	logger *zap.Logger
}

// NewGateway builds the provider client from configuration.
func NewGateway(cfg Config, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	clientCfg := gopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Gateway{
		client: gopenai.NewClientWithConfig(clientCfg),
		logger: logger,
	}
}

// Complete sends a system+user message pair to the provider and returns the
// generated text, token usage, and estimated cost. Provider errors propagate
// unchanged; the caller owns failure persistence.
func (g *Gateway) Complete(ctx context.Context, model, systemPrompt, userPrompt string) (*usecase.Completion, error) {
	temp := float32(temperature)
	resp, err := g.client.CreateChatCompletion(ctx, gopenai.ChatCompletionRequest{
		Model: model,
		Messages: []gopenai.ChatCompletionMessage{
			{Role: gopenai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: gopenai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: &temp,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return nil, err
	}

	var text string
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}
	tokens := resp.Usage.TotalTokens

	g.logger.Debug("completion received",
		zap.String("model", model),
		zap.Int("tokens", tokens))

	return &usecase.Completion{
		Text:   text,
		Tokens: tokens,
		Cost:   EstimateCost(model, tokens),
	}, nil
}

// EstimateCost computes the approximate cost of a call from the static price
// table.
func EstimateCost(model string, tokens int) float64 {
	return pricePerToken[model] * float64(tokens)
}

var _ usecase.CompletionGateway = (*Gateway)(nil)
