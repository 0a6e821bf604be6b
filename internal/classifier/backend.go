package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"filer/internal/config"
	"filer/internal/services"
	"filer/internal/services/llm"
)

// NewBackend builds the backend selected by cfg.Classifier.Backend. Missing
// credentials are reported here, not at config load, so commands that never
// classify (doctor, history) work without them.
func NewBackend(ctx context.Context, cfg *config.Config) (Backend, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "classify", "backend", "Configuration is nil", nil)
	}
	backend := cfg.Classifier.Backend
	if backend != config.BackendProcess && strings.TrimSpace(cfg.LLM.APIKey) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "classify", backend,
			"API key required (set llm.api_key or FILER_API_KEY)", nil)
	}
	timeout := time.Duration(cfg.LLM.TimeoutSeconds) * time.Second

	switch backend {
	case config.BackendOpenRouter:
		return NewOpenRouter(llm.NewClient(llm.Config{
			APIKey:         cfg.LLM.APIKey,
			BaseURL:        cfg.LLM.BaseURL,
			Model:          cfg.LLM.Model,
			Referer:        cfg.LLM.Referer,
			Title:          cfg.LLM.Title,
			TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		})), nil
	case config.BackendOpenAI:
		return NewOpenAI(OpenAIConfig{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Timeout: timeout,
		}), nil
	case config.BackendGemini:
		gemini, err := NewGemini(ctx, GeminiConfig{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
		})
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "classify", backend, "Unable to create Gemini client", err)
		}
		return gemini, nil
	case config.BackendProcess:
		if cfg.Classifier.Command == "" {
			return nil, services.Wrap(services.ErrConfiguration, "classify", backend, "classifier.command required", nil)
		}
		return NewProcess(cfg.Classifier.Command, cfg.Classifier.Args), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "classify", "backend",
			fmt.Sprintf("Unsupported backend %q", backend), nil)
	}
}

// NewAdapterFromConfig builds the backend and wraps it with the configured
// reconciliation options.
func NewAdapterFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Adapter, error) {
	backend, err := NewBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewAdapter(backend, Options{
		DefaultBucket: cfg.Classifier.DefaultBucket,
		MinConfidence: cfg.Classifier.MinConfidence,
		MaxKnownDirs:  cfg.Classifier.MaxKnownDirs,
		Logger:        logger,
	}), nil
}
