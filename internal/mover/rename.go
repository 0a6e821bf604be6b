package mover

import (
	"io/fs"
	"os"
)

// renameChecked is the portable no-replace rename: a racy existence check
// followed by os.Rename, which would otherwise replace the destination.
func renameChecked(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return &os.LinkError{Op: "rename", Old: src, New: dst, Err: fs.ErrExist}
	}
	return os.Rename(src, dst)
}
