package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// FileSuggestion is a single destination proposal returned by the model.
type FileSuggestion struct {
	FileName   string
	Path       string
	Confidence *float64
	Reasoning  string
}

// UnmarshalJSON accepts both camelCase and snake_case keys since models are
// inconsistent about which one they emit.
func (s *FileSuggestion) UnmarshalJSON(data []byte) error {
	var raw struct {
		FileName      string   `json:"fileName"`
		FileNameSnake string   `json:"file_name"`
		Path          string   `json:"path"`
		Folder        string   `json:"folder"`
		Confidence    *float64 `json:"confidence"`
		Reasoning     string   `json:"reasoning"`
		Reason        string   `json:"reason"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.FileName = firstNonEmpty(raw.FileName, raw.FileNameSnake)
	s.Path = firstNonEmpty(raw.Path, raw.Folder)
	s.Confidence = raw.Confidence
	s.Reasoning = firstNonEmpty(raw.Reasoning, raw.Reason)
	return nil
}

// ParseFileSuggestions decodes a classification reply. The canonical shape is
// {"files":[...]}, but a bare array is accepted too.
func ParseFileSuggestions(content string) ([]FileSuggestion, error) {
	var envelope struct {
		Files []FileSuggestion `json:"files"`
	}
	extracted := extractJSONPayload(content)
	if strings.HasPrefix(extracted, "[") {
		var list []FileSuggestion
		if err := DecodeLLMJSON(extracted, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	if err := DecodeLLMJSON(content, &envelope); err != nil {
		return nil, err
	}
	if envelope.Files == nil && !strings.Contains(extracted, `"files"`) {
		return nil, errors.New("missing files array")
	}
	return envelope.Files, nil
}

// ClassifyFiles asks the model for destination folders and returns the parsed
// suggestions. Reconciliation against the requested file names is left to the
// caller.
func (c *Client) ClassifyFiles(ctx context.Context, systemPrompt, userPrompt string) ([]FileSuggestion, error) {
	content, err := c.CompleteJSON(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}
	suggestions, err := ParseFileSuggestions(content)
	if err != nil {
		return nil, fmt.Errorf("llm classify: parse payload: %w", err)
	}
	return suggestions, nil
}

// HealthCheck issues a fast ping to verify the API key and model are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return errors.New("llm health: api key required")
	}
	completion, err := c.completeWithRetry(ctx,
		c.jsonRequest("You must respond with JSON only.", `Respond with {"ok":true}`), "llm health")
	if err != nil {
		return err
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := DecodeLLMJSON(completion.Content, &parsed); err != nil {
		return fmt.Errorf("llm health: parse payload: %w", err)
	}
	if !parsed.OK {
		return errors.New("llm health: unexpected response")
	}
	return nil
}
