package classifier

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"filer/internal/logging"
	"filer/internal/services"
	"filer/internal/textutil"
)

// Options tunes an Adapter.
type Options struct {
	DefaultBucket string
	// MinConfidence routes suggestions with a lower reported confidence to
	// the default bucket. Zero disables the check.
	MinConfidence float64
	// MaxKnownDirs caps the directory context sent per request. Zero means
	// no cap.
	MaxKnownDirs int
	Logger       *slog.Logger
}

// Adapter enforces the batch contract on top of a Backend.
type Adapter struct {
	backend       Backend
	defaultBucket string
	minConfidence float64
	maxKnownDirs  int
	logger        *slog.Logger
}

// NewAdapter wraps backend.
func NewAdapter(backend Backend, opts Options) *Adapter {
	bucket := SanitizePath(opts.DefaultBucket)
	if bucket == "" {
		bucket = "unclassified"
	}
	return &Adapter{
		backend:       backend,
		defaultBucket: bucket,
		minConfidence: opts.MinConfidence,
		maxKnownDirs:  opts.MaxKnownDirs,
		logger:        logging.NewComponentLogger(opts.Logger, "classifier"),
	}
}

// Backend returns the backend name.
func (a *Adapter) Backend() string {
	if a == nil || a.backend == nil {
		return ""
	}
	return a.backend.Name()
}

// DefaultBucket returns the directory used for unplaceable files.
func (a *Adapter) DefaultBucket() string {
	return a.defaultBucket
}

// ClassifyBatch classifies items against the supplied directory context.
// A backend failure is returned as an error wrapping services.ErrExternalTool;
// a successful call always yields exactly one Result per item.
func (a *Adapter) ClassifyBatch(ctx context.Context, items []Item, knownDirs []string) (BatchResult, error) {
	if len(items) == 0 {
		return BatchResult{}, nil
	}
	if a == nil || a.backend == nil {
		return BatchResult{}, services.Wrap(services.ErrConfiguration, "classify", "adapter", "No classifier backend configured", nil)
	}
	logger := logging.WithContext(ctx, a.logger)

	dirs, omitted := limitDirs(knownDirs, a.maxKnownDirs)
	if omitted > 0 {
		logger.Debug("known directory context truncated",
			logging.Int("sent", len(dirs)),
			logging.Int("omitted", omitted),
		)
	}

	raw, err := a.backend.Classify(ctx, Request{Items: items, KnownDirs: dirs, DefaultBucket: a.defaultBucket})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return BatchResult{}, err
		}
		return BatchResult{}, services.Wrap(services.ErrExternalTool, "classify", a.backend.Name(), "Classifier request failed", err)
	}

	result := a.reconcile(logger, items, raw)
	result.OmittedDirs = omitted
	return result, nil
}

// reconcile pairs response entries with requested items. Exact names bind
// first; a case-folded name binds only when it identifies a single requested
// item, so "Report.pdf" and "report.pdf" in one batch keep their own answers.
func (a *Adapter) reconcile(logger *slog.Logger, items []Item, raw []Suggestion) BatchResult {
	exact := make(map[string]struct{}, len(items))
	folded := make(map[string][]string, len(items))
	for _, item := range items {
		if _, seen := exact[item.FileName]; seen {
			continue
		}
		exact[item.FileName] = struct{}{}
		key := textutil.NormalizeName(item.FileName)
		folded[key] = append(folded[key], item.FileName)
	}

	answers := make(map[string]Suggestion, len(raw))
	pending := make([]Suggestion, 0, len(raw))
	for _, suggestion := range raw {
		name := strings.TrimSpace(suggestion.FileName)
		if _, ok := exact[name]; !ok {
			pending = append(pending, suggestion)
			continue
		}
		if _, dup := answers[name]; dup {
			logger.Debug("duplicate classifier entry ignored", logging.String(logging.FieldFile, name))
			continue
		}
		answers[name] = suggestion
	}

	var unknown []string
	for _, suggestion := range pending {
		name := strings.TrimSpace(suggestion.FileName)
		candidates := folded[textutil.NormalizeName(name)]
		switch {
		case len(candidates) == 0:
			unknown = append(unknown, name)
			logging.WarnWithContext(logger, "classifier returned unrequested file", "classifier_unknown_file",
				logging.String("returned_name", name),
				logging.String(logging.FieldErrorHint, "the model renamed or invented a file; it is ignored"),
				logging.String(logging.FieldImpact, "no file is moved for this entry"),
			)
			continue
		case len(candidates) > 1:
			unknown = append(unknown, name)
			logging.WarnWithContext(logger, "classifier entry matches several files", "classifier_ambiguous_file",
				logging.String("returned_name", name),
				logging.String("candidates", strings.Join(candidates, ", ")),
				logging.String(logging.FieldErrorHint, "names in this batch differ only by case; the entry is ignored"),
				logging.String(logging.FieldImpact, "files without an exact entry go to the default bucket"),
			)
			continue
		}
		target := candidates[0]
		if _, dup := answers[target]; dup {
			logger.Debug("duplicate classifier entry ignored", logging.String(logging.FieldFile, name))
			continue
		}
		answers[target] = suggestion
	}

	results := make([]Result, 0, len(items))
	for _, item := range items {
		suggestion, ok := answers[item.FileName]
		if !ok {
			logging.WarnWithContext(logger, "classifier omitted file", "classifier_missing_file",
				logging.String(logging.FieldFile, item.FileName),
				logging.String(logging.FieldErrorHint, "the model returned fewer entries than requested"),
				logging.String(logging.FieldImpact, "file is moved to the default bucket"),
			)
			results = append(results, a.fallback(item.FileName, Suggestion{}, ReasonMissing))
			continue
		}
		path := SanitizePath(suggestion.Path)
		if path == "" {
			logging.WarnWithContext(logger, "classifier returned empty path", "classifier_empty_path",
				logging.String(logging.FieldFile, item.FileName),
				logging.String("suggested_path", suggestion.Path),
				logging.String(logging.FieldErrorHint, "the suggested path was blank or unsafe"),
				logging.String(logging.FieldImpact, "file is moved to the default bucket"),
			)
			results = append(results, a.fallback(item.FileName, suggestion, ReasonEmptyPath))
			continue
		}
		if a.minConfidence > 0 && suggestion.Confidence != nil && *suggestion.Confidence < a.minConfidence {
			logger.Info("classifier confidence below threshold",
				logging.String(logging.FieldFile, item.FileName),
				logging.String("suggested_path", path),
				logging.Float64("confidence", *suggestion.Confidence),
				logging.Float64("min_confidence", a.minConfidence),
			)
			results = append(results, a.fallback(item.FileName, suggestion, ReasonLowConfidence))
			continue
		}
		results = append(results, Result{
			FileName:   item.FileName,
			Path:       path,
			Confidence: suggestion.Confidence,
			Reasoning:  strings.TrimSpace(suggestion.Reasoning),
		})
	}
	return BatchResult{Results: results, Unknown: unknown}
}

func (a *Adapter) fallback(fileName string, suggestion Suggestion, reason string) Result {
	return Result{
		FileName:       fileName,
		Path:           a.defaultBucket,
		Confidence:     suggestion.Confidence,
		Reasoning:      strings.TrimSpace(suggestion.Reasoning),
		Fallback:       true,
		FallbackReason: reason,
	}
}

// limitDirs keeps the shallowest max directories, preserving input order.
func limitDirs(dirs []string, max int) ([]string, int) {
	if max <= 0 || len(dirs) <= max {
		return dirs, 0
	}
	order := make([]int, len(dirs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return strings.Count(dirs[order[i]], "/") < strings.Count(dirs[order[j]], "/")
	})
	keep := make([]bool, len(dirs))
	for _, idx := range order[:max] {
		keep[idx] = true
	}
	out := make([]string, 0, max)
	for i, dir := range dirs {
		if keep[i] {
			out = append(out, dir)
		}
	}
	return out, len(dirs) - max
}
