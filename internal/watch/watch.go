// Package watch re-runs filing when files land in the incoming directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"filer/internal/logging"
	"filer/internal/runlock"
)

// Trigger performs one run.
type Trigger func(ctx context.Context) error

// Options configures Run.
type Options struct {
	Dir string
	// Debounce is the quiet period after the last event before a run starts.
	Debounce time.Duration
	// Interval forces a run periodically. Zero disables it.
	Interval time.Duration
	Logger   *slog.Logger
}

// Run triggers once immediately, then after every burst of Create or Write
// events in opts.Dir (a file renamed into the directory arrives as Create)
// and on every Interval tick. It returns nil when ctx is cancelled.
func Run(ctx context.Context, opts Options, trigger Trigger) error {
	if trigger == nil {
		return errors.New("watch: trigger required")
	}
	logger := logging.NewComponentLogger(opts.Logger, "watch")
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return fmt.Errorf("watch: create %s: %w", opts.Dir, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(opts.Dir); err != nil {
		return fmt.Errorf("watch: add %s: %w", opts.Dir, err)
	}
	logger.Info("watching incoming directory",
		logging.String("dir", opts.Dir),
		logging.Duration("debounce", opts.Debounce),
		logging.Duration("interval", opts.Interval),
	)

	fire := func(reason string) {
		logger.Debug("triggering run", logging.String("reason", reason))
		if err := trigger(ctx); err != nil {
			switch {
			case ctx.Err() != nil:
			case errors.Is(err, runlock.ErrBusy):
				logger.Info("run skipped; another run is in progress", logging.String("reason", reason))
			default:
				logging.ErrorWithContext(logger, "triggered run failed", "watch_run_failed",
					logging.Error(err),
					logging.String("reason", reason),
					logging.String(logging.FieldErrorHint, "the next event or interval retries"),
				)
			}
		}
	}

	fire("startup")

	var tick <-chan time.Time
	if opts.Interval > 0 {
		ticker := time.NewTicker(opts.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}
	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	defer debounce.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			pending = true
			debounce.Reset(opts.Debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.WarnWithContext(logger, "watcher error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "events may have been dropped; interval runs still apply"),
				logging.String(logging.FieldImpact, "a new file may wait for the next event or interval"),
			)
		case <-debounce.C:
			if pending {
				pending = false
				fire("event")
			}
		case <-tick:
			fire("interval")
		}
	}
}

func relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}
	return !strings.HasPrefix(filepath.Base(event.Name), ".")
}
