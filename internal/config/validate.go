package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable. API keys are not required
// here: a run whose files all match by similarity never contacts the
// classifier, and the classifier constructor reports a missing key itself.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateThresholds(); err != nil {
		return err
	}
	if err := c.validateClassifier(); err != nil {
		return err
	}
	return c.validateMover()
}

func (c *Config) validatePaths() error {
	if c.Paths.IncomingDir == "" {
		return errors.New("paths.incoming_dir must be set")
	}
	if c.Paths.DestinationDir == "" {
		return errors.New("paths.destination_dir must be set")
	}
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	if c.Paths.IncomingDir == c.Paths.DestinationDir {
		return errors.New("paths.incoming_dir and paths.destination_dir must differ")
	}
	if rel, err := filepath.Rel(c.Paths.DestinationDir, c.Paths.IncomingDir); err == nil && !strings.HasPrefix(rel, "..") {
		return errors.New("paths.incoming_dir must not be inside paths.destination_dir")
	}
	return nil
}

func (c *Config) validateThresholds() error {
	if c.Scan.MaxDepth < 0 {
		return errors.New("scan.max_depth must be zero or positive")
	}
	for _, pattern := range c.Scan.IgnorePatterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("scan.ignore_patterns: invalid pattern %q: %w", pattern, err)
		}
	}
	if c.Matching.SimilarityThreshold < 0 || c.Matching.SimilarityThreshold > 1 {
		return errors.New("matching.similarity_threshold must be between 0 and 1")
	}
	if c.Classifier.MinConfidence < 0 || c.Classifier.MinConfidence > 1 {
		return errors.New("classifier.min_confidence must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateClassifier() error {
	switch c.Classifier.Backend {
	case BackendOpenRouter, BackendOpenAI, BackendGemini:
	case BackendProcess:
		if c.Classifier.Command == "" {
			return errors.New("classifier.command must be set when classifier.backend is \"process\"")
		}
	default:
		return fmt.Errorf("classifier.backend: unsupported value %q (want openrouter, openai, gemini or process)", c.Classifier.Backend)
	}
	if c.Classifier.BatchSize <= 0 {
		return errors.New("classifier.batch_size must be positive")
	}
	if c.Classifier.MaxKnownDirs < 0 {
		return errors.New("classifier.max_known_dirs must be zero or positive")
	}
	return nil
}

func (c *Config) validateMover() error {
	if c.Mover.MaxRetries < 0 {
		return errors.New("mover.max_retries must be zero or positive")
	}
	if c.Mover.RetryBaseDelayMS < 0 {
		return errors.New("mover.retry_base_delay_ms must be zero or positive")
	}
	if c.Describe.MaxLength < 0 {
		return errors.New("describe.max_length must be zero or positive")
	}
	if c.Watch.DebounceSeconds < 0 || c.Watch.IntervalSeconds < 0 {
		return errors.New("watch intervals must be zero or positive")
	}
	return nil
}
