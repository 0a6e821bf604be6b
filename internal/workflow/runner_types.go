package workflow

import (
	"context"
	"time"

	"filer/internal/classifier"
	"filer/internal/history"
	"filer/internal/mover"
)

// Routing methods.
const (
	MethodSimilarity = "similarity"
	MethodAI         = "ai"
)

// Classifier is the batch classification contract the runner depends on.
type Classifier interface {
	ClassifyBatch(ctx context.Context, items []classifier.Item, knownDirs []string) (classifier.BatchResult, error)
	DefaultBucket() string
}

// Describer produces content descriptions for classifier requests.
type Describer interface {
	DescribeAll(ctx context.Context, paths []string) []string
}

// Journal persists move outcomes and run summaries.
type Journal interface {
	RecordMove(ctx context.Context, move history.Move) error
	RecordRun(ctx context.Context, run history.Run) error
}

// Result is the resolution of one incoming file.
type Result struct {
	File         string       `json:"file"`
	Source       string       `json:"source"`
	Method       string       `json:"method"`
	Status       mover.Status `json:"status"`
	TargetDir    string       `json:"targetDir,omitempty"`
	FinalPath    string       `json:"finalPath,omitempty"`
	RelativePath string       `json:"relativePath,omitempty"`
	Renamed      bool         `json:"renamed,omitempty"`
	CrossDevice  bool         `json:"crossDevice,omitempty"`
	Attempts     int          `json:"attempts,omitempty"`

	// Similarity routing.
	MatchedFile string  `json:"matchedFile,omitempty"`
	Score       float64 `json:"score,omitempty"`

	// Classifier routing.
	Batch          int      `json:"batch,omitempty"`
	Confidence     *float64 `json:"confidence,omitempty"`
	Reasoning      string   `json:"reasoning,omitempty"`
	FallbackReason string   `json:"fallbackReason,omitempty"`

	ErrorKind string `json:"errorKind,omitempty"`
	Error     string `json:"error,omitempty"`
	err       error
}

// Err returns the failure cause, if any.
func (r Result) Err() error {
	return r.err
}

// Unclassified reports whether the classifier never answered for this file.
func (r Result) Unclassified() bool {
	return r.FallbackReason == classifier.ReasonMissing
}

// Counts summarizes a run.
type Counts struct {
	Similarity   int `json:"similarity"`
	AI           int `json:"ai"`
	DryRun       int `json:"dryRun"`
	Skipped      int `json:"skipped"`
	Failed       int `json:"failed"`
	Unclassified int `json:"unclassified"`
}

// Report is the outcome of one run.
type Report struct {
	RunID         string    `json:"runId"`
	StartedAt     time.Time `json:"startedAt"`
	FinishedAt    time.Time `json:"finishedAt"`
	DryRun        bool      `json:"dryRun"`
	Incoming      int       `json:"incoming"`
	Deferred      []string  `json:"deferred,omitempty"`
	Batches       int       `json:"batches"`
	FailedBatches int       `json:"failedBatches"`
	Counts        Counts    `json:"counts"`
	Results       []Result  `json:"results"`
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	if r == nil || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// HasFailures reports whether any file could not be resolved.
func (r *Report) HasFailures() bool {
	return r != nil && r.Counts.Failed > 0
}

// FilesByMethod counts resolved files per routing method. Dry runs count
// planned moves.
func (r *Report) FilesByMethod() map[string]int {
	out := map[string]int{MethodSimilarity: 0, MethodAI: 0}
	if r == nil {
		return out
	}
	for _, result := range r.Results {
		if result.Status == mover.StatusDone || result.Status == mover.StatusDryRun {
			out[result.Method]++
		}
	}
	return out
}

func (r *Report) add(result Result) {
	r.Results = append(r.Results, result)
	switch result.Status {
	case mover.StatusDone:
		if result.Method == MethodSimilarity {
			r.Counts.Similarity++
		} else {
			r.Counts.AI++
		}
	case mover.StatusDryRun:
		r.Counts.DryRun++
	case mover.StatusSkipped:
		r.Counts.Skipped++
	case mover.StatusFailed:
		r.Counts.Failed++
	}
	if result.Unclassified() {
		r.Counts.Unclassified++
	}
}
