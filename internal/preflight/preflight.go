package preflight

import (
	"context"

	"filer/internal/config"
	"filer/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Options tunes RunAll.
type Options struct {
	// ProbeLLM issues a live health request for the openrouter backend.
	ProbeLLM bool
}

// RunAll executes every applicable check for the given config.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Incoming directory", cfg.Paths.IncomingDir),
		CheckDestination("Destination directory", cfg.Paths.DestinationDir),
		CheckDestination("State directory", cfg.Paths.StateDir),
		CheckClassifier(cfg),
	}

	for _, status := range CheckSystemDeps(cfg) {
		results = append(results, fromStatus(status))
	}

	if opts.ProbeLLM && cfg.Classifier.Backend == config.BackendOpenRouter {
		results = append(results, CheckLLM(ctx, "Classifier LLM", cfg.LLM))
	}

	return results
}

// Failed reports whether any check did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}

func fromStatus(status deps.Status) Result {
	name := status.Name
	if status.Available {
		return Result{Name: name, Passed: true, Detail: status.Path}
	}
	detail := status.Detail
	if status.Description != "" {
		detail += " (" + status.Description + ")"
	}
	return Result{Name: name, Passed: status.Satisfied(), Detail: detail}
}
