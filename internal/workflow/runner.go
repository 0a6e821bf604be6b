package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"filer/internal/config"
	"filer/internal/history"
	"filer/internal/logging"
	"filer/internal/metrics"
	"filer/internal/mover"
	"filer/internal/registry"
	"filer/internal/runlock"
	"filer/internal/scanner"
	"filer/internal/services"
	"filer/internal/staging"
)

// staleTempAge is how old a partial copy must be before a run removes it.
const staleTempAge = time.Hour

// Runner executes filing runs.
type Runner struct {
	cfg        *config.Config
	classifier Classifier
	describer  Describer
	journal    Journal
	base       *slog.Logger
	logger     *slog.Logger

	moverOpts []mover.Option
	now       func() time.Time
	newRunID  func() string
}

// Option configures optional Runner collaborators.
type Option func(*Runner)

// WithDescriber attaches a content describer for classifier requests.
func WithDescriber(d Describer) Option {
	return func(r *Runner) { r.describer = d }
}

// WithJournal records outcomes to a history journal.
func WithJournal(j Journal) Option {
	return func(r *Runner) { r.journal = j }
}

// WithMoverOptions passes options through to every run's mover.
func WithMoverOptions(opts ...mover.Option) Option {
	return func(r *Runner) { r.moverOpts = append(r.moverOpts, opts...) }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// WithRunIDs overrides run ID generation.
func WithRunIDs(next func() string) Option {
	return func(r *Runner) {
		if next != nil {
			r.newRunID = next
		}
	}
}

// New constructs a Runner. classifier may be nil, in which case files that
// miss the similarity threshold are reported as failed.
func New(cfg *config.Config, classifier Classifier, logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{
		cfg:        cfg,
		classifier: classifier,
		base:       logger,
		logger:     logging.NewComponentLogger(logger, "workflow"),
		now:        time.Now,
		newRunID:   func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// run holds the state of a single pass.
type run struct {
	*Runner
	report   *Report
	registry *registry.Registry
	mover    *mover.Mover
}

// Run performs one pass. The returned error is non-nil only when the run
// could not start or was aborted; per-file and per-batch failures are
// reported in the Report.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:     r.newRunID(),
		StartedAt: r.now(),
		DryRun:    r.cfg.Mover.DryRun,
	}
	ctx = services.WithRunID(ctx, report.RunID)
	logger := logging.WithContext(ctx, r.logger)

	lock, err := runlock.Acquire(r.cfg.LockPath())
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("failed to release run lock", logging.Error(err))
		}
	}()

	if !report.DryRun {
		if err := r.cfg.EnsureDirectories(); err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "scan", "prepare", "Unable to create destination directories", err)
		}
		staging.CleanStale(ctx, r.cfg.Paths.DestinationDir, staleTempAge, logger)
	}

	logger.Info("run started",
		logging.String("incoming_dir", r.cfg.Paths.IncomingDir),
		logging.String("destination_dir", r.cfg.Paths.DestinationDir),
		logging.Bool("dry_run", report.DryRun),
	)

	scanCtx := services.WithStage(ctx, "scanning")
	tree, err := scanner.Scan(r.cfg.Paths.DestinationDir, scanner.Options{
		MaxDepth:     r.cfg.Scan.MaxDepth,
		IgnoreHidden: r.cfg.Scan.IgnoreHidden,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "scan", "destination", "Unable to scan destination directory", err)
	}
	for _, dir := range tree.Unreadable {
		logging.WarnWithContext(logging.WithContext(scanCtx, r.logger), "destination subdirectory unreadable", "scan_unreadable_dir",
			logging.String("dir", dir),
			logging.String(logging.FieldErrorHint, "check permissions under destination_dir"),
			logging.String(logging.FieldImpact, "files in this directory are not used for similarity matching"),
		)
	}
	listing, err := scanner.ListIncoming(r.cfg.Paths.IncomingDir, scanner.ListOptions{
		IgnoreHidden:   r.cfg.Scan.IgnoreHidden,
		IgnorePatterns: r.cfg.Scan.IgnorePatterns,
		MinAge:         time.Duration(r.cfg.Scan.MinAgeSeconds) * time.Second,
		Now:            r.now,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "scan", "incoming", "Unable to list incoming directory", err)
	}
	report.Incoming = len(listing.Files)
	report.Deferred = listing.Deferred
	logger.Info("scan complete",
		logging.Int("known_dirs", len(tree.Dirs)),
		logging.Int("known_files", len(tree.Files)),
		logging.Int("incoming", len(listing.Files)),
		logging.Int("deferred", len(listing.Deferred)),
		logging.Int("ignored", len(listing.Ignored)),
	)

	reg := registry.New(tree.Dirs...)
	state := &run{
		Runner:   r,
		report:   report,
		registry: reg,
		mover: mover.New(mover.Options{
			Root:       r.cfg.Paths.DestinationDir,
			MaxRetries: r.cfg.Mover.MaxRetries,
			BaseDelay:  time.Duration(r.cfg.Mover.RetryBaseDelayMS) * time.Millisecond,
			DryRun:     report.DryRun,
			Registry:   reg,
			Logger:     r.base,
		}, r.moverOpts...),
	}

	hits, rest := state.partition(ctx, listing.Files, tree.Files)
	state.moveMatches(ctx, hits)
	runErr := state.classifyAndMove(ctx, rest)

	report.FinishedAt = r.now()
	r.finish(ctx, logger, report)
	if runErr != nil {
		return report, runErr
	}
	return report, nil
}

func (r *Runner) finish(ctx context.Context, logger *slog.Logger, report *Report) {
	attrs := []logging.Attr{
		logging.Int("incoming", report.Incoming),
		logging.Int("similarity", report.Counts.Similarity),
		logging.Int("ai", report.Counts.AI),
		logging.Int("dry_run", report.Counts.DryRun),
		logging.Int("skipped", report.Counts.Skipped),
		logging.Int("failed", report.Counts.Failed),
		logging.Int("unclassified", report.Counts.Unclassified),
		logging.Int("batches", report.Batches),
		logging.Int("failed_batches", report.FailedBatches),
		logging.Duration("duration", report.Duration()),
		logging.String(logging.FieldEventType, "run_complete"),
	}
	if report.Counts.Failed > 0 {
		logging.WarnWithContext(logger, "run finished with failures", "run_complete",
			append(attrs,
				logging.String(logging.FieldErrorHint, "failed files stay in incoming_dir and are retried next run"),
				logging.String(logging.FieldImpact, "some files were not filed"),
			)...,
		)
	} else {
		logger.Info("run finished", logging.Args(attrs...)...)
	}

	// Bookkeeping must not be cut short by a cancelled run context.
	bookCtx := context.WithoutCancel(ctx)
	if r.journal != nil {
		err := r.journal.RecordRun(bookCtx, history.Run{
			RunID:        report.RunID,
			StartedAt:    report.StartedAt,
			FinishedAt:   report.FinishedAt,
			DryRun:       report.DryRun,
			Incoming:     report.Incoming,
			Similarity:   report.Counts.Similarity,
			AI:           report.Counts.AI,
			Skipped:      report.Counts.Skipped,
			Failed:       report.Counts.Failed,
			Unclassified: report.Counts.Unclassified,
		})
		if err != nil {
			logging.WarnWithContext(logger, "failed to journal run summary", "history_write_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check state_dir permissions"),
				logging.String(logging.FieldImpact, "run missing from filer history"),
			)
		}
	}
	if path := r.cfg.Metrics.Textfile; path != "" {
		err := metrics.WriteTextfile(path, metrics.RunStats{
			FilesByMethod: report.FilesByMethod(),
			Failures:      report.Counts.Failed,
			Unclassified:  report.Counts.Unclassified,
			Duration:      report.Duration(),
			FinishedAt:    report.FinishedAt,
		})
		if err != nil {
			logging.WarnWithContext(logger, "failed to write metrics textfile", "metrics_write_failed",
				logging.Error(err),
				logging.String("path", path),
				logging.String(logging.FieldErrorHint, "check metrics.textfile directory permissions"),
				logging.String(logging.FieldImpact, "run metrics not exported"),
			)
		}
	}
}

// newPacer returns a limiter that admits one classifier call per delay.
func newPacer(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
