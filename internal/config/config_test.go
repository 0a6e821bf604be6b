package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pelletier/go-toml/v2"

	"filer/internal/config"
)

func clearKeyEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"FILER_API_KEY", "OPENROUTER_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY"} {
		t.Setenv(name, "")
	}
}

func TestLoadDefaultsExpandPaths(t *testing.T) {
	clearKeyEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if resolved != filepath.Join(tempHome, ".config", "filer", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if cfg.Paths.IncomingDir != filepath.Join(tempHome, "filer", "incoming") {
		t.Fatalf("unexpected incoming dir %q", cfg.Paths.IncomingDir)
	}
	if cfg.Scan.MaxDepth != 3 || !cfg.Scan.IgnoreHidden {
		t.Fatalf("unexpected scan defaults %+v", cfg.Scan)
	}
	if cfg.Matching.SimilarityThreshold != 0.65 {
		t.Fatalf("unexpected threshold %v", cfg.Matching.SimilarityThreshold)
	}
	if cfg.Classifier.BatchSize != 5 || cfg.Classifier.DefaultBucket != "未分类" {
		t.Fatalf("unexpected classifier defaults %+v", cfg.Classifier)
	}
	if cfg.LLM.BaseURL == "" || cfg.LLM.Model == "" {
		t.Fatalf("expected openrouter defaults, got %+v", cfg.LLM)
	}
	if cfg.Mover.MaxRetries != 5 || cfg.Mover.RetryBaseDelayMS != 200 || cfg.Mover.DryRun {
		t.Fatalf("unexpected mover defaults %+v", cfg.Mover)
	}
	if cfg.LockPath() != filepath.Join(tempHome, ".local", "state", "filer", "filer.lock") {
		t.Fatalf("unexpected lock path %q", cfg.LockPath())
	}
}

func TestLoadTOMLOverrides(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-env")
	dir := t.TempDir()
	path := filepath.Join(dir, "filer.toml")
	content := `
[paths]
incoming_dir = "` + filepath.Join(dir, "in") + `"
destination_dir = "` + filepath.Join(dir, "out") + `"
state_dir = "` + filepath.Join(dir, "state") + `"

[scan]
max_depth = 0
ignore_patterns = ["*.bak", " "]

[classifier]
backend = "OpenAI"
batch_size = 2

[mover]
dry_run = true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected explicit path to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Scan.MaxDepth != 0 {
		t.Fatalf("explicit max_depth 0 must be preserved, got %d", cfg.Scan.MaxDepth)
	}
	if diff := cmp.Diff([]string{"*.bak"}, cfg.Scan.IgnorePatterns); diff != "" {
		t.Fatalf("ignore patterns mismatch (-want +got):\n%s", diff)
	}
	if cfg.Classifier.Backend != config.BackendOpenAI || cfg.Classifier.BatchSize != 2 {
		t.Fatalf("unexpected classifier %+v", cfg.Classifier)
	}
	if cfg.LLM.APIKey != "sk-env" {
		t.Fatalf("expected api key from OPENAI_API_KEY, got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected model %q", cfg.LLM.Model)
	}
	if !cfg.Mover.DryRun {
		t.Fatal("expected dry_run from file")
	}
}

func TestLoadYAML(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("FILER_API_KEY", "shared")
	dir := t.TempDir()
	path := filepath.Join(dir, "filer.yaml")
	content := "paths:\n" +
		"  incoming_dir: " + filepath.Join(dir, "in") + "\n" +
		"  destination_dir: " + filepath.Join(dir, "out") + "\n" +
		"matching:\n" +
		"  similarity_threshold: 0.8\n" +
		"classifier:\n" +
		"  backend: process\n" +
		"  command: ./classify.sh\n" +
		"  args: [\"--json\"]\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Matching.SimilarityThreshold != 0.8 {
		t.Fatalf("unexpected threshold %v", cfg.Matching.SimilarityThreshold)
	}
	if cfg.Classifier.Command != "./classify.sh" || len(cfg.Classifier.Args) != 1 {
		t.Fatalf("unexpected process settings %+v", cfg.Classifier)
	}
	if cfg.LLM.APIKey != "shared" {
		t.Fatalf("expected FILER_API_KEY fallback, got %q", cfg.LLM.APIKey)
	}
	if cfg.Scan.MaxDepth != 3 {
		t.Fatalf("defaults should survive partial yaml, got max_depth %d", cfg.Scan.MaxDepth)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "filer.toml")
	if err := os.WriteFile(path, []byte("[matching]\nsimilarity = 0.5\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestValidate(t *testing.T) {
	base := func() config.Config {
		cfg := config.Default()
		cfg.Paths.IncomingDir = "/data/in"
		cfg.Paths.DestinationDir = "/data/out"
		cfg.Paths.StateDir = "/data/state"
		return cfg
	}
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*config.Config) {}},
		{name: "same dirs", mutate: func(c *config.Config) { c.Paths.DestinationDir = c.Paths.IncomingDir }, wantErr: "must differ"},
		{name: "incoming inside destination", mutate: func(c *config.Config) { c.Paths.IncomingDir = "/data/out/inbox" }, wantErr: "inside"},
		{name: "threshold", mutate: func(c *config.Config) { c.Matching.SimilarityThreshold = 1.5 }, wantErr: "similarity_threshold"},
		{name: "negative depth", mutate: func(c *config.Config) { c.Scan.MaxDepth = -1 }, wantErr: "max_depth"},
		{name: "bad pattern", mutate: func(c *config.Config) { c.Scan.IgnorePatterns = []string{"["} }, wantErr: "ignore_patterns"},
		{name: "backend", mutate: func(c *config.Config) { c.Classifier.Backend = "magic" }, wantErr: "unsupported"},
		{name: "process without command", mutate: func(c *config.Config) { c.Classifier.Backend = config.BackendProcess }, wantErr: "classifier.command"},
		{name: "batch size", mutate: func(c *config.Config) { c.Classifier.BatchSize = 0 }, wantErr: "batch_size"},
		{name: "retries", mutate: func(c *config.Config) { c.Mover.MaxRetries = -1 }, wantErr: "max_retries"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSampleConfigParses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	if err := config.CreateSample(path); err == nil {
		t.Fatal("CreateSample must not overwrite an existing file")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var cfg config.Config
	decoder := toml.NewDecoder(strings.NewReader(string(data)))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		t.Fatalf("sample config does not decode: %v", err)
	}
	if diff := cmp.Diff(config.Default().Classifier, cfg.Classifier, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("sample classifier section drifted from defaults (-want +got):\n%s", diff)
	}
}

func TestRedactedHidesAPIKey(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKey = "secret"
	data, err := cfg.Redacted().EncodeTOML()
	if err != nil {
		t.Fatalf("EncodeTOML returned error: %v", err)
	}
	if strings.Contains(string(data), "secret") {
		t.Fatalf("api key leaked: %s", data)
	}
	if cfg.LLM.APIKey != "secret" {
		t.Fatal("Redacted must not mutate the receiver")
	}
}
