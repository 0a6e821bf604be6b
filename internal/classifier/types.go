package classifier

import (
	"context"

	"filer/internal/services/llm"
)

// Item is one file offered for classification.
type Item struct {
	FileName    string `json:"fileName"`
	Description string `json:"description,omitempty"`
}

// Request is the payload handed to a Backend.
type Request struct {
	Items         []Item   `json:"files"`
	KnownDirs     []string `json:"knownDirs"`
	DefaultBucket string   `json:"defaultBucket"`
}

// Suggestion is an unreconciled backend answer for a single file.
type Suggestion struct {
	FileName   string
	Path       string
	Confidence *float64
	Reasoning  string
}

// Backend reaches an external classification service.
type Backend interface {
	Name() string
	Classify(ctx context.Context, req Request) ([]Suggestion, error)
}

// Fallback reasons reported on Result.
const (
	ReasonMissing       = "missing"
	ReasonEmptyPath     = "empty-path"
	ReasonLowConfidence = "low-confidence"
)

// Result is the reconciled classification of one requested file.
type Result struct {
	FileName   string
	Path       string
	Confidence *float64
	Reasoning  string
	// Fallback is set when Path is the default bucket rather than a usable
	// suggestion; FallbackReason says why.
	Fallback       bool
	FallbackReason string
}

// Unclassified reports whether the backend gave no answer for the file.
func (r Result) Unclassified() bool {
	return r.Fallback && r.FallbackReason == ReasonMissing
}

// BatchResult carries one Result per requested item, in request order.
type BatchResult struct {
	Results []Result
	// Unknown lists file names the backend returned that were not requested.
	Unknown []string
	// OmittedDirs counts known directories left out of the request.
	OmittedDirs int
}

func fromLLM(raw []llm.FileSuggestion) []Suggestion {
	out := make([]Suggestion, 0, len(raw))
	for _, s := range raw {
		out = append(out, Suggestion{
			FileName:   s.FileName,
			Path:       s.Path,
			Confidence: s.Confidence,
			Reasoning:  s.Reasoning,
		})
	}
	return out
}
