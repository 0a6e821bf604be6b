// Package staging removes leftovers of interrupted cross-device moves.
//
// A cross-device move copies into a hidden ".filer-*.partial" file next to
// its final location before renaming it into place. A run killed mid-copy
// leaves that file behind while the source stays in the incoming directory,
// so the next run can safely delete it and move the source again.
package staging

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"filer/internal/logging"
	"filer/internal/mover"
)

// CleanStaleResult contains the outcome of a stale temp file cleanup.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes partial copies under root older than maxAge.
func CleanStale(ctx context.Context, root string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}

	root = strings.TrimSpace(root)
	if root == "" {
		return result
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	cutoff := time.Now().Add(-maxAge)

	walkErr := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root && os.IsNotExist(err) {
				return fs.SkipAll
			}
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if entry.IsDir() || !mover.IsTempName(entry.Name()) {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			return nil
		}
		if !info.ModTime().Before(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			logger.Warn("failed to remove stale partial copy",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldEventType, "staging_cleanup_failed"),
				logging.String(logging.FieldErrorHint, "check destination_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			return nil
		}
		result.Removed = append(result.Removed, path)
		logger.Info("removed stale partial copy",
			logging.String("path", path),
			logging.Duration("age", time.Since(info.ModTime())),
			logging.String(logging.FieldEventType, "staging_cleanup"),
		)
		return nil
	})
	if walkErr != nil && walkErr != fs.SkipAll {
		result.Errors = append(result.Errors, CleanupError{Path: root, Error: walkErr})
	}
	return result
}
