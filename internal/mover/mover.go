package mover

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"filer/internal/fileutil"
	"filer/internal/logging"
	"filer/internal/services"
)

// Status is the terminal state of a move.
type Status string

const (
	StatusDone    Status = "done"
	StatusSkipped Status = "skipped"
	StatusDryRun  Status = "dry-run"
	StatusFailed  Status = "failed"
)

// DirRecorder receives directories created by the mover.
type DirRecorder interface {
	RecordIfNew(dir string) bool
}

// Request describes one file to relocate.
type Request struct {
	// Source is the absolute path of the incoming file.
	Source string
	// TargetDir is relative to the destination root.
	TargetDir string
	// Method is carried into the outcome ("similarity" or "ai").
	Method string
}

// Outcome is the durable result of a single move.
type Outcome struct {
	Source       string
	FinalPath    string
	RelativePath string
	Method       string
	Status       Status
	Attempts     int
	CrossDevice  bool
	Renamed      bool
	Err          error
}

// Options configures a Mover.
type Options struct {
	Root       string
	MaxRetries int
	BaseDelay  time.Duration
	DryRun     bool
	Registry   DirRecorder
	Logger     *slog.Logger
}

// Mover relocates files under a destination root.
type Mover struct {
	root       string
	maxRetries int
	baseDelay  time.Duration
	dryRun     bool
	registry   DirRecorder
	logger     *slog.Logger

	now    func() time.Time
	sleep  func(context.Context, time.Duration) error
	rename func(src, dst string) error
	remove func(path string) error
	copy   func(src, dst string) (int64, error)
}

// Option customizes a Mover.
type Option func(*Mover)

// WithClock overrides the time source used for collision names.
func WithClock(now func() time.Time) Option {
	return func(m *Mover) {
		if now != nil {
			m.now = now
		}
	}
}

// WithSleeper overrides how backoff sleeps are performed.
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(m *Mover) {
		if sleep != nil {
			m.sleep = sleep
		}
	}
}

// WithRenameFunc overrides the no-replace rename primitive.
func WithRenameFunc(rename func(src, dst string) error) Option {
	return func(m *Mover) {
		if rename != nil {
			m.rename = rename
		}
	}
}

// WithRemoveFunc overrides source removal after a cross-device copy.
func WithRemoveFunc(remove func(path string) error) Option {
	return func(m *Mover) {
		if remove != nil {
			m.remove = remove
		}
	}
}

// WithCopyFunc overrides the verified copy used for cross-device moves.
func WithCopyFunc(copyFn func(src, dst string) (int64, error)) Option {
	return func(m *Mover) {
		if copyFn != nil {
			m.copy = copyFn
		}
	}
}

// New constructs a Mover.
func New(opts Options, extra ...Option) *Mover {
	m := &Mover{
		root:       opts.Root,
		maxRetries: opts.MaxRetries,
		baseDelay:  opts.BaseDelay,
		dryRun:     opts.DryRun,
		registry:   opts.Registry,
		logger:     logging.NewComponentLogger(opts.Logger, "mover"),
		now:        time.Now,
		sleep:      sleepContext,
		rename:     renameNoReplace,
		remove:     os.Remove,
		copy:       fileutil.CopyFileVerified,
	}
	if m.maxRetries < 0 {
		m.maxRetries = 0
	}
	for _, opt := range extra {
		opt(m)
	}
	return m
}

// Root returns the destination root.
func (m *Mover) Root() string {
	return m.root
}

// DryRun reports whether the mover only logs intended moves.
func (m *Mover) DryRun() bool {
	return m.dryRun
}

// Move relocates req.Source into req.TargetDir. It never returns an error
// directly; failures are reported through Outcome.Status and Outcome.Err.
func (m *Mover) Move(ctx context.Context, req Request) Outcome {
	name := filepath.Base(req.Source)
	relDir := NormalizeTargetDir(req.TargetDir, name)
	out := Outcome{Source: req.Source, Method: req.Method}
	logger := logging.WithContext(ctx, m.logger).With(
		logging.String("source", req.Source),
		logging.String("target_dir", relDir),
		logging.String("method", req.Method),
	)

	if m.dryRun {
		out.Status = StatusDryRun
		out.RelativePath = joinRel(relDir, name)
		out.FinalPath = filepath.Join(m.root, filepath.FromSlash(out.RelativePath))
		if m.registry != nil && relDir != "" {
			m.registry.RecordIfNew(relDir)
		}
		logger.Info("dry run: would move file",
			logging.String("target", out.FinalPath),
			logging.String(logging.FieldEventType, "move_dry_run"),
		)
		return out
	}

	if _, err := os.Lstat(req.Source); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			out.Status = StatusSkipped
			logger.Info("source no longer present; treating as resolved",
				logging.String(logging.FieldEventType, "move_source_vanished"),
			)
			return out
		}
		return m.fail(logger, out, services.Wrap(services.ErrValidation, "move", "stat source", "Unable to inspect incoming file", err))
	}

	absDir := filepath.Join(m.root, filepath.FromSlash(relDir))
	if err := m.ensureDir(ctx, absDir, relDir); err != nil {
		return m.fail(logger, out, err)
	}

	now := m.now()
	for n := 0; n <= maxCollisionSuffix; n++ {
		candidate := collisionName(name, now, n)
		target := filepath.Join(absDir, candidate)
		err := m.withRetry(ctx, &out.Attempts, func() error { return m.rename(req.Source, target) })
		if err == nil {
			return m.done(logger, out, relDir, candidate, n > 0)
		}
		switch classify(err) {
		case classCollision:
			logger.Debug("destination exists; trying alternative name", logging.String("target", target))
			continue
		case classCrossDevice:
			return m.moveAcrossDevices(ctx, logger, out, req.Source, absDir, relDir, name, now)
		case classNotExist:
			if _, statErr := os.Lstat(req.Source); errors.Is(statErr, fs.ErrNotExist) {
				out.Status = StatusSkipped
				logger.Info("source vanished during move; treating as resolved",
					logging.String(logging.FieldEventType, "move_source_vanished"),
				)
				return out
			}
			return m.fail(logger, out, services.Wrap(services.ErrTransient, "move", "rename", "Target directory disappeared during move", err))
		default:
			return m.fail(logger, out, services.Wrap(services.ErrTransient, "move", "rename", "Unable to move file", err))
		}
	}
	return m.fail(logger, out, services.Wrap(services.ErrValidation, "move", "allocate name",
		fmt.Sprintf("No free name for %s in %s", name, relDir), nil))
}

func (m *Mover) moveAcrossDevices(ctx context.Context, logger *slog.Logger, out Outcome, source, absDir, relDir, name string, now time.Time) Outcome {
	out.CrossDevice = true
	logger.Debug("cross-device move; copying", logging.String(logging.FieldEventType, "move_cross_device"))

	temp := filepath.Join(absDir, tempPrefix+uuid.NewString()+tempSuffix)
	written, err := m.copy(source, temp)
	if err != nil {
		_ = os.Remove(temp)
		if errors.Is(err, ErrCopyVerification) {
			return m.fail(logger, out, services.Wrap(services.ErrValidation, "move", "verify copy", "Copied file does not match source", err))
		}
		if errors.Is(err, fs.ErrNotExist) {
			if _, statErr := os.Lstat(source); errors.Is(statErr, fs.ErrNotExist) {
				out.Status = StatusSkipped
				return out
			}
		}
		return m.fail(logger, out, services.Wrap(services.ErrTransient, "move", "copy", "Cross-device copy failed", err))
	}

	var finalName string
	for n := 0; n <= maxCollisionSuffix; n++ {
		candidate := collisionName(name, now, n)
		err := m.withRetry(ctx, &out.Attempts, func() error { return m.rename(temp, filepath.Join(absDir, candidate)) })
		if err == nil {
			finalName = candidate
			break
		}
		if classify(err) == classCollision {
			continue
		}
		_ = os.Remove(temp)
		return m.fail(logger, out, services.Wrap(services.ErrTransient, "move", "finalize copy", "Unable to rename copied file into place", err))
	}
	if finalName == "" {
		_ = os.Remove(temp)
		return m.fail(logger, out, services.Wrap(services.ErrValidation, "move", "allocate name",
			fmt.Sprintf("No free name for %s in %s", name, relDir), nil))
	}

	err = m.withRetry(ctx, &out.Attempts, func() error { return m.remove(source) })
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		out.FinalPath = filepath.Join(absDir, finalName)
		out.RelativePath = joinRel(relDir, finalName)
		logging.WarnWithContext(logger, "source removal failed after copy; both copies remain", "move_source_cleanup_failed",
			logging.String("target", out.FinalPath),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "delete the incoming copy once the destination is confirmed"),
			logging.String(logging.FieldImpact, "file is duplicated until the next run resolves it"),
		)
		return m.fail(logger, out, services.Wrap(services.ErrTransient, "move", "remove source", "Source could not be removed after copy", err))
	}
	logger.Debug("cross-device copy verified", logging.Int64("bytes", written))
	return m.done(logger, out, relDir, finalName, finalName != name)
}

func (m *Mover) ensureDir(ctx context.Context, absDir, relDir string) error {
	_, statErr := os.Stat(absDir)
	existed := statErr == nil
	err := m.withRetry(ctx, nil, func() error { return os.MkdirAll(absDir, 0o755) })
	if err != nil {
		return services.Wrap(services.ErrTransient, "move", "create directory", "Unable to create target directory", err)
	}
	if relDir == "" || m.registry == nil {
		return nil
	}
	if m.registry.RecordIfNew(relDir) || !existed {
		m.logger.Debug("target directory recorded",
			logging.String("dir", relDir),
			logging.Bool("created", !existed),
		)
	}
	return nil
}

// withRetry runs op, retrying transient failures with exponential backoff.
// Non-transient errors are returned immediately for the caller to classify.
func (m *Mover) withRetry(ctx context.Context, attempts *int, op func() error) error {
	for attempt := 0; ; attempt++ {
		if attempts != nil {
			*attempts++
		}
		err := op()
		if err == nil || classify(err) != classTransient {
			return err
		}
		if attempt >= m.maxRetries {
			return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt+1, err)
		}
		delay := m.backoff(attempt + 1)
		m.logger.Debug("transient filesystem error; retrying",
			logging.Error(err),
			logging.Int("attempt", attempt+1),
			logging.Duration("delay", delay),
		)
		if err := m.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// backoff returns base * 2^(attempt-1).
func (m *Mover) backoff(attempt int) time.Duration {
	if m.baseDelay <= 0 || attempt < 1 {
		return 0
	}
	return m.baseDelay << (attempt - 1)
}

func (m *Mover) done(logger *slog.Logger, out Outcome, relDir, finalName string, renamed bool) Outcome {
	out.Status = StatusDone
	out.Renamed = renamed
	out.RelativePath = joinRel(relDir, finalName)
	out.FinalPath = filepath.Join(m.root, filepath.FromSlash(out.RelativePath))
	logger.Info("file moved",
		logging.String("target", out.FinalPath),
		logging.Bool("renamed", renamed),
		logging.Bool("cross_device", out.CrossDevice),
		logging.Int("attempts", out.Attempts),
		logging.String(logging.FieldEventType, "move_done"),
	)
	return out
}

func (m *Mover) fail(logger *slog.Logger, out Outcome, err error) Outcome {
	out.Status = StatusFailed
	out.Err = err
	logging.ErrorWithContext(logger, "move failed", "move_failed",
		logging.Error(err),
		logging.String("error_class", classify(err).String()),
		logging.Int("attempts", out.Attempts),
		logging.String(logging.FieldErrorHint, "file left in incoming directory; check permissions and retry"),
	)
	return out
}

func joinRel(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
