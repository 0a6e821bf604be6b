package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiConfig configures the Gemini backend.
type GeminiConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Gemini classifies through the Gemini API in JSON response mode.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini constructs the backend.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.HTTPOptions.BaseURL = base
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Gemini{client: client, model: cfg.Model}, nil
}

// Name implements Backend.
func (b *Gemini) Name() string { return "gemini" }

// Classify implements Backend.
func (b *Gemini) Classify(ctx context.Context, req Request) ([]Suggestion, error) {
	prompt, err := BuildUserPrompt(req)
	if err != nil {
		return nil, err
	}
	resp, err := b.client.Models.GenerateContent(ctx, b.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType:  "application/json",
		SystemInstruction: genai.NewContentFromText(SystemPrompt, genai.RoleUser),
	})
	if err != nil {
		return nil, fmt.Errorf("gemini classify: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("gemini classify: empty response")
	}
	return parseSuggestions("gemini classify", text)
}
