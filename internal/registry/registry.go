// Package registry holds the run-scoped set of known destination directories.
//
// The set is seeded from the destination scan and grows whenever the mover
// creates a directory, so later classification batches in the same run see
// directories created by earlier ones. Entries are never removed and nothing
// is persisted between runs.
package registry

import (
	"path"
	"strings"
	"sync"
)

// Registry is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	order []string
	seen  map[string]struct{}
}

// New returns a registry seeded with dirs.
func New(seed ...string) *Registry {
	r := &Registry{}
	r.Initialize(seed)
	return r
}

// Initialize replaces the contents with seed.
func (r *Registry) Initialize(seed []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = make([]string, 0, len(seed))
	r.seen = make(map[string]struct{}, len(seed))
	for _, dir := range seed {
		r.addLocked(dir)
	}
}

// RecordIfNew adds dir and reports whether it was not already known. Parent
// directories are recorded too, since creating "A/B" also creates "A".
func (r *Registry) RecordIfNew(dir string) bool {
	normalized := Normalize(dir)
	if normalized == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen == nil {
		r.seen = make(map[string]struct{})
	}
	added := false
	parts := strings.Split(normalized, "/")
	for i := range parts {
		if r.addLocked(strings.Join(parts[:i+1], "/")) {
			added = true
		}
	}
	return added
}

// Contains reports whether dir is known.
func (r *Registry) Contains(dir string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.seen[Normalize(dir)]
	return ok
}

// Snapshot returns a copy of the known directories in insertion order.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len returns the number of known directories.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

func (r *Registry) addLocked(dir string) bool {
	normalized := Normalize(dir)
	if normalized == "" {
		return false
	}
	if _, ok := r.seen[normalized]; ok {
		return false
	}
	r.seen[normalized] = struct{}{}
	r.order = append(r.order, normalized)
	return true
}

// Normalize converts dir to the registry's canonical form: slash-separated,
// cleaned, no leading or trailing separator. The destination root itself
// normalizes to "".
func Normalize(dir string) string {
	dir = strings.ReplaceAll(strings.TrimSpace(dir), "\\", "/")
	if dir == "" {
		return ""
	}
	cleaned := strings.Trim(path.Clean("/"+dir), "/")
	return cleaned
}
