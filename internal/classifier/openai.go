package classifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"filer/internal/services/llm"
)

const classifyToolName = "classify_files"

// OpenAIConfig configures the OpenAI backend.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OpenAI classifies through chat completions with a forced tool call, so the
// reply arrives as structured arguments instead of free text.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI constructs the backend. An empty BaseURL uses the public API.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.BaseURL = strings.TrimRight(base, "/")
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &OpenAI{client: openai.NewClientWithConfig(clientCfg), model: cfg.Model}
}

// Name implements Backend.
func (b *OpenAI) Name() string { return "openai" }

// Classify implements Backend.
func (b *OpenAI) Classify(ctx context.Context, req Request) ([]Suggestion, error) {
	prompt, err := BuildUserPrompt(req)
	if err != nil {
		return nil, err
	}
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Tools: []openai.Tool{classifyTool()},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: classifyToolName},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai classify: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai classify: response has no choices")
	}
	message := resp.Choices[0].Message
	for _, call := range message.ToolCalls {
		if call.Function.Name != classifyToolName {
			continue
		}
		return parseSuggestions("openai classify", call.Function.Arguments)
	}
	if strings.TrimSpace(message.Content) != "" {
		return parseSuggestions("openai classify", message.Content)
	}
	return nil, errors.New("openai classify: no tool call in response")
}

func classifyTool() openai.Tool {
	entry := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"fileName":   {Type: jsonschema.String, Description: "The input file name, unchanged."},
			"path":       {Type: jsonschema.String, Description: "Relative destination folder, without the file name."},
			"confidence": {Type: jsonschema.Number, Description: "Confidence between 0 and 1."},
			"reasoning":  {Type: jsonschema.String, Description: "One short sentence."},
		},
		Required: []string{"fileName", "path"},
	}
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        classifyToolName,
			Description: "Report the destination folder for every input file.",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"files": {Type: jsonschema.Array, Items: &entry},
				},
				Required: []string{"files"},
			},
		},
	}
}

func parseSuggestions(op, content string) ([]Suggestion, error) {
	raw, err := llm.ParseFileSuggestions(content)
	if err != nil {
		return nil, fmt.Errorf("%s: parse payload: %w", op, err)
	}
	return fromLLM(raw), nil
}
