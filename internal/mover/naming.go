package mover

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"filer/internal/registry"
)

const (
	collisionTimeLayout = "20060102T150405"
	maxCollisionSuffix  = 10000
	tempPrefix          = ".filer-"
	tempSuffix          = ".partial"
)

// NormalizeTargetDir cleans a relative target directory and drops a trailing
// segment equal to fileName.
func NormalizeTargetDir(targetDir, fileName string) string {
	dir := registry.Normalize(targetDir)
	if dir == "" {
		return ""
	}
	if path.Base(dir) == fileName {
		dir = path.Dir(dir)
		if dir == "." {
			return ""
		}
	}
	return dir
}

// collisionName returns the n-th alternative for name: n == 0 is name itself,
// n == 1 appends the timestamp, n > 1 appends the timestamp and n-1.
func collisionName(name string, now time.Time, n int) string {
	if n == 0 {
		return name
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if stem == "" {
		// Dotfiles such as ".env" have no stem; keep the whole name.
		stem, ext = name, ""
	}
	stamp := now.Format(collisionTimeLayout)
	if n == 1 {
		return fmt.Sprintf("%s_%s%s", stem, stamp, ext)
	}
	return fmt.Sprintf("%s_%s_%d%s", stem, stamp, n-1, ext)
}

// IsTempName reports whether name is a cross-device staging file.
func IsTempName(name string) bool {
	return strings.HasPrefix(name, tempPrefix) && strings.HasSuffix(name, tempSuffix)
}
