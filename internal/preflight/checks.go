package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"filer/internal/config"
	"filer/internal/deps"
	"filer/internal/services/llm"
)

// CheckLLM verifies that the chat completions endpoint is reachable and the
// key is valid. It uses a 30-second timeout and a single attempt.
func CheckLLM(ctx context.Context, name string, cfg config.LLM) Result {
	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Referer: cfg.Referer,
		Title:   cfg.Title,
	}, llm.WithRetryMaxAttempts(1))

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeLLMError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDestination is CheckDirectoryAccess for directories a run creates on
// demand: a missing path passes when its nearest existing ancestor is writable.
func CheckDestination(name, path string) Result {
	if _, err := os.Stat(path); err == nil || !os.IsNotExist(err) {
		return CheckDirectoryAccess(name, path)
	}
	parent := filepath.Dir(filepath.Clean(path))
	for {
		if _, err := os.Stat(parent); err == nil {
			break
		}
		next := filepath.Dir(parent)
		if next == parent {
			break
		}
		parent = next
	}
	ancestor := CheckDirectoryAccess(name, parent)
	if !ancestor.Passed {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: missing and %s)", path, ancestor.Detail)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}

// CheckClassifier validates backend settings without contacting the provider.
func CheckClassifier(cfg *config.Config) Result {
	const name = "Classifier"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	backend := cfg.Classifier.Backend
	switch backend {
	case config.BackendProcess:
		if strings.TrimSpace(cfg.Classifier.Command) == "" {
			return Result{Name: name, Detail: "process backend: classifier.command missing"}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("process (%s)", cfg.Classifier.Command)}
	case config.BackendOpenRouter, config.BackendOpenAI, config.BackendGemini:
		if strings.TrimSpace(cfg.LLM.APIKey) == "" {
			return Result{Name: name, Detail: fmt.Sprintf("%s: API key missing (llm.api_key or FILER_API_KEY)", backend)}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", backend, cfg.LLM.Model)}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("unsupported backend %q", backend)}
	}
}

// CheckSystemDeps evaluates the external binaries the config relies on.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	var requirements []deps.Requirement
	if cfg.Describe.Enabled {
		requirements = append(requirements, deps.Requirement{
			Name:        "exiftool",
			Command:     cfg.Describe.ExiftoolBinary,
			Description: "Richer content descriptions; falls back to MIME sniffing",
			Optional:    true,
		})
	}
	if cfg.Classifier.Backend == config.BackendProcess && cfg.Classifier.Command != "" {
		requirements = append(requirements, deps.Requirement{
			Name:        "Classifier command",
			Command:     cfg.Classifier.Command,
			Description: "Required by the process classifier backend",
		})
	}
	return deps.CheckBinaries(requirements)
}

// summarizeLLMError produces a human-readable summary for LLM health check failures.
func summarizeLLMError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (LLM API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (LLM API unreachable)"
	}
	return err.Error()
}
