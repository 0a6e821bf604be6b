package classifier

import (
	"context"

	"filer/internal/services/llm"
)

// OpenRouter classifies through the JSON-mode chat client.
type OpenRouter struct {
	client *llm.Client
}

// NewOpenRouter wraps an llm client.
func NewOpenRouter(client *llm.Client) *OpenRouter {
	return &OpenRouter{client: client}
}

// Name implements Backend.
func (b *OpenRouter) Name() string { return "openrouter" }

// Classify implements Backend.
func (b *OpenRouter) Classify(ctx context.Context, req Request) ([]Suggestion, error) {
	prompt, err := BuildUserPrompt(req)
	if err != nil {
		return nil, err
	}
	raw, err := b.client.ClassifyFiles(ctx, SystemPrompt, prompt)
	if err != nil {
		return nil, err
	}
	return fromLLM(raw), nil
}
