package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileEntry is a file waiting in the incoming directory.
type FileEntry struct {
	Name         string
	AbsolutePath string
	Size         int64
	ModTime      time.Time
}

// ListOptions controls which incoming entries are considered.
type ListOptions struct {
	IgnoreHidden   bool
	IgnorePatterns []string
	MinAge         time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Listing is the result of ListIncoming.
type Listing struct {
	Files []FileEntry
	// Deferred are files modified within MinAge; they are picked up next run.
	Deferred []string
	// Ignored are entries skipped by the hidden/pattern rules or because they
	// are not regular files.
	Ignored []string
}

// ListIncoming returns the regular files directly inside dir, sorted by name.
// A missing dir yields an empty listing.
func ListIncoming(dir string, opts ListOptions) (Listing, error) {
	var listing Listing
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return listing, nil
		}
		return listing, fmt.Errorf("list incoming %s: %w", dir, err)
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	cutoff := now().Add(-opts.MinAge)

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			continue
		}
		if opts.IgnoreHidden && strings.HasPrefix(name, ".") {
			listing.Ignored = append(listing.Ignored, name)
			continue
		}
		if matchesAny(name, opts.IgnorePatterns) {
			listing.Ignored = append(listing.Ignored, name)
			continue
		}
		if !entry.Type().IsRegular() {
			listing.Ignored = append(listing.Ignored, name)
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Vanished between ReadDir and Info.
			continue
		}
		if opts.MinAge > 0 && info.ModTime().After(cutoff) {
			listing.Deferred = append(listing.Deferred, name)
			continue
		}
		listing.Files = append(listing.Files, FileEntry{
			Name:         name,
			AbsolutePath: filepath.Join(dir, name),
			Size:         info.Size(),
			ModTime:      info.ModTime(),
		})
	}
	sort.Slice(listing.Files, func(i, j int) bool { return listing.Files[i].Name < listing.Files[j].Name })
	return listing, nil
}

func matchesAny(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := filepath.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}
