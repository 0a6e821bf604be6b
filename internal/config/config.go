package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the directories filer reads from and writes to.
type Paths struct {
	IncomingDir    string `toml:"incoming_dir" yaml:"incoming_dir"`
	DestinationDir string `toml:"destination_dir" yaml:"destination_dir"`
	LogDir         string `toml:"log_dir" yaml:"log_dir"`
	StateDir       string `toml:"state_dir" yaml:"state_dir"`
}

// Scan controls destination tree traversal and incoming listing.
type Scan struct {
	MaxDepth       int      `toml:"max_depth" yaml:"max_depth"`
	IgnoreHidden   bool     `toml:"ignore_hidden" yaml:"ignore_hidden"`
	IgnorePatterns []string `toml:"ignore_patterns" yaml:"ignore_patterns"`
	MinAgeSeconds  int      `toml:"min_age_seconds" yaml:"min_age_seconds"`
}

// Matching controls the filename similarity matcher.
type Matching struct {
	SimilarityThreshold float64 `toml:"similarity_threshold" yaml:"similarity_threshold"`
}

// Classifier selects and tunes the external classification backend.
type Classifier struct {
	Backend       string   `toml:"backend" yaml:"backend"`
	BatchSize     int      `toml:"batch_size" yaml:"batch_size"`
	BatchDelayMS  int      `toml:"batch_delay_ms" yaml:"batch_delay_ms"`
	DefaultBucket string   `toml:"default_bucket" yaml:"default_bucket"`
	MaxKnownDirs  int      `toml:"max_known_dirs" yaml:"max_known_dirs"`
	MinConfidence float64  `toml:"min_confidence" yaml:"min_confidence"`
	Command       string   `toml:"command" yaml:"command"`
	Args          []string `toml:"args" yaml:"args"`
}

// LLM contains connection settings shared by the HTTP classifier backends.
type LLM struct {
	APIKey         string `toml:"api_key" yaml:"api_key"`
	BaseURL        string `toml:"base_url" yaml:"base_url"`
	Model          string `toml:"model" yaml:"model"`
	Referer        string `toml:"referer" yaml:"referer"`
	Title          string `toml:"title" yaml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds" yaml:"timeout_seconds"`
}

// Mover tunes the move engine.
type Mover struct {
	MaxRetries       int  `toml:"max_retries" yaml:"max_retries"`
	RetryBaseDelayMS int  `toml:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	DryRun           bool `toml:"dry_run" yaml:"dry_run"`
}

// Describe controls content descriptions sent alongside file names.
type Describe struct {
	Enabled        bool   `toml:"enabled" yaml:"enabled"`
	ExiftoolBinary string `toml:"exiftool_binary" yaml:"exiftool_binary"`
	MaxLength      int    `toml:"max_length" yaml:"max_length"`
	Concurrency    int    `toml:"concurrency" yaml:"concurrency"`
}

// History controls the SQLite move journal.
type History struct {
	Enabled bool `toml:"enabled" yaml:"enabled"`
}

// Metrics controls the Prometheus textfile export.
type Metrics struct {
	Textfile string `toml:"textfile" yaml:"textfile"`
}

// Watch controls the long-running trigger.
type Watch struct {
	DebounceSeconds int `toml:"debounce_seconds" yaml:"debounce_seconds"`
	IntervalSeconds int `toml:"interval_seconds" yaml:"interval_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format" yaml:"format"`
	Level         string `toml:"level" yaml:"level"`
	RetentionDays int    `toml:"retention_days" yaml:"retention_days"`
}

// Config encapsulates all configuration values for filer.
type Config struct {
	Paths      Paths      `toml:"paths" yaml:"paths"`
	Scan       Scan       `toml:"scan" yaml:"scan"`
	Matching   Matching   `toml:"matching" yaml:"matching"`
	Classifier Classifier `toml:"classifier" yaml:"classifier"`
	LLM        LLM        `toml:"llm" yaml:"llm"`
	Mover      Mover      `toml:"mover" yaml:"mover"`
	Describe   Describe   `toml:"describe" yaml:"describe"`
	History    History    `toml:"history" yaml:"history"`
	Metrics    Metrics    `toml:"metrics" yaml:"metrics"`
	Watch      Watch      `toml:"watch" yaml:"watch"`
	Logging    Logging    `toml:"logging" yaml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded. The second return value is the resolved path
// and the third reports whether that file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		if err := decodeFile(resolvedPath, &cfg); err != nil {
			return nil, "", false, err
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("parse config: %w", err)
		}
	default:
		decoder := toml.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(cfg); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{defaultPath, projectPath} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a run writes to. The incoming
// directory is left alone: a missing one simply means there is nothing to do.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DestinationDir, c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath is the run lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "filer.lock")
}

// HistoryPath is the SQLite move journal.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.LLM.APIKey != "" {
		c.LLM.APIKey = "<redacted>"
	}
	return c
}

// EncodeTOML renders the configuration as TOML.
func (c Config) EncodeTOML() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
// An existing file is never overwritten.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	if _, err := file.WriteString(sampleConfig); err != nil {
		_ = file.Close()
		return fmt.Errorf("write sample config: %w", err)
	}
	return file.Close()
}
