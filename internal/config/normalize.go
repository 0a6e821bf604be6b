package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeScan()
	c.normalizeClassifier()
	c.normalizeLLM()
	if err := c.normalizeOutputs(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		name  string
		value *string
	}{
		{"paths.incoming_dir", &c.Paths.IncomingDir},
		{"paths.destination_dir", &c.Paths.DestinationDir},
		{"paths.log_dir", &c.Paths.LogDir},
		{"paths.state_dir", &c.Paths.StateDir},
	}
	for _, field := range fields {
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeScan() {
	patterns := make([]string, 0, len(c.Scan.IgnorePatterns))
	for _, pattern := range c.Scan.IgnorePatterns {
		if trimmed := strings.TrimSpace(pattern); trimmed != "" {
			patterns = append(patterns, trimmed)
		}
	}
	c.Scan.IgnorePatterns = patterns
	if c.Scan.MinAgeSeconds < 0 {
		c.Scan.MinAgeSeconds = 0
	}
}

func (c *Config) normalizeClassifier() {
	c.Classifier.Backend = strings.ToLower(strings.TrimSpace(c.Classifier.Backend))
	if c.Classifier.Backend == "" {
		c.Classifier.Backend = defaultBackend
	}
	c.Classifier.DefaultBucket = strings.Trim(strings.TrimSpace(c.Classifier.DefaultBucket), "/")
	if c.Classifier.DefaultBucket == "" {
		c.Classifier.DefaultBucket = defaultBucket
	}
	if c.Classifier.BatchDelayMS < 0 {
		c.Classifier.BatchDelayMS = 0
	}
	c.Classifier.Command = strings.TrimSpace(c.Classifier.Command)
}

func (c *Config) normalizeLLM() {
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSec
	}

	switch c.Classifier.Backend {
	case BackendOpenRouter:
		if c.LLM.BaseURL == "" {
			c.LLM.BaseURL = defaultOpenRouterBaseURL
		}
		if c.LLM.Model == "" {
			c.LLM.Model = defaultOpenRouterModel
		}
	case BackendOpenAI:
		if c.LLM.Model == "" {
			c.LLM.Model = defaultOpenAIModel
		}
	case BackendGemini:
		if c.LLM.Model == "" {
			c.LLM.Model = defaultGeminiModel
		}
	}

	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = lookupAPIKey(c.Classifier.Backend)
	}
}

// lookupAPIKey checks FILER_API_KEY first, then the provider's conventional variable.
func lookupAPIKey(backend string) string {
	names := []string{"FILER_API_KEY"}
	switch backend {
	case BackendOpenRouter:
		names = append(names, "OPENROUTER_API_KEY")
	case BackendOpenAI:
		names = append(names, "OPENAI_API_KEY")
	case BackendGemini:
		names = append(names, "GEMINI_API_KEY")
	}
	for _, name := range names {
		if value, ok := os.LookupEnv(name); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func (c *Config) normalizeOutputs() error {
	c.Describe.ExiftoolBinary = strings.TrimSpace(c.Describe.ExiftoolBinary)
	if c.Describe.ExiftoolBinary == "" {
		c.Describe.ExiftoolBinary = defaultExiftoolBinary
	}
	if c.Describe.Concurrency <= 0 {
		c.Describe.Concurrency = 1
	}
	if strings.TrimSpace(c.Metrics.Textfile) != "" {
		path, err := expandPath(strings.TrimSpace(c.Metrics.Textfile))
		if err != nil {
			return fmt.Errorf("metrics.textfile: %w", err)
		}
		c.Metrics.Textfile = path
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format != "json" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
