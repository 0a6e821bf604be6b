package describe

import (
	"context"
	"log/slog"
	"os/exec"
	"sync"

	"golang.org/x/sync/errgroup"

	"filer/internal/logging"
)

// Options configures a Describer.
type Options struct {
	ExiftoolBinary string
	MaxLength      int
	Concurrency    int
	Logger         *slog.Logger
}

// Describer builds short content descriptions. A nil Describer returns empty
// descriptions.
type Describer struct {
	binary      string
	maxLength   int
	concurrency int
	logger      *slog.Logger

	once      sync.Once
	available bool
	lookPath  func(string) (string, error)
	inspect   func(ctx context.Context, binary, path string) (Metadata, error)
}

// New constructs a Describer.
func New(opts Options) *Describer {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Describer{
		binary:      opts.ExiftoolBinary,
		maxLength:   opts.MaxLength,
		concurrency: concurrency,
		logger:      logging.NewComponentLogger(opts.Logger, "describe"),
		lookPath:    exec.LookPath,
		inspect:     Inspect,
	}
}

// Describe returns a description of the file at path, or "" when nothing
// useful could be learned.
func (d *Describer) Describe(ctx context.Context, path string) string {
	if d == nil {
		return ""
	}
	if d.exiftoolAvailable() {
		meta, err := d.inspect(ctx, d.binary, path)
		if err == nil {
			if summary := meta.Summary(); summary != "" {
				return truncate(summary, d.maxLength)
			}
		} else {
			d.logger.Debug("exiftool failed; using fallback",
				logging.String("path", path),
				logging.Error(err),
			)
		}
	}
	return truncate(sniff(path), d.maxLength)
}

// DescribeAll describes paths concurrently, returning descriptions in input
// order.
func (d *Describer) DescribeAll(ctx context.Context, paths []string) []string {
	out := make([]string, len(paths))
	if d == nil || len(paths) == 0 {
		return out
	}
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(d.concurrency)
	for i, path := range paths {
		group.Go(func() error {
			out[i] = d.Describe(groupCtx, path)
			return nil
		})
	}
	_ = group.Wait()
	return out
}

func (d *Describer) exiftoolAvailable() bool {
	d.once.Do(func() {
		if d.binary == "" {
			return
		}
		_, err := d.lookPath(d.binary)
		d.available = err == nil
		if !d.available {
			d.logger.Info("exiftool not found; descriptions use MIME detection only",
				logging.String("binary", d.binary),
			)
		}
	})
	return d.available
}

func truncate(value string, limit int) string {
	if limit <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}
