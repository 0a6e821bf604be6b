package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"filer/internal/mover"
)

// Tree is the destination snapshot taken at run start.
type Tree struct {
	Dirs  []string
	Files []string
	// Unreadable lists subdirectories that could not be listed. They are
	// skipped rather than aborting the scan.
	Unreadable []string
}

// Options tunes destination traversal.
type Options struct {
	MaxDepth     int
	IgnoreHidden bool
}

// Scan walks root down to opts.MaxDepth. Depth 0 visits only the root's
// immediate children. Failure to read root itself (other than it not existing)
// is returned as an error.
func Scan(root string, opts Options) (Tree, error) {
	var tree Tree
	root = strings.TrimSpace(root)
	if root == "" {
		return tree, errors.New("scan: root required")
	}
	if opts.MaxDepth < 0 {
		opts.MaxDepth = 0
	}
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return tree, nil
		}
		return tree, fmt.Errorf("scan %s: %w", root, err)
	}
	if !info.IsDir() {
		return tree, fmt.Errorf("scan %s: not a directory", root)
	}
	if err := walk(root, "", 0, opts, &tree, true); err != nil {
		return Tree{}, err
	}
	sort.Strings(tree.Dirs)
	sort.Strings(tree.Files)
	return tree, nil
}

// ScanDirectories returns the relative directories under root.
func ScanDirectories(root string, maxDepth int) ([]string, error) {
	tree, err := Scan(root, Options{MaxDepth: maxDepth})
	return tree.Dirs, err
}

// ScanFiles returns the relative files under root.
func ScanFiles(root string, maxDepth int) ([]string, error) {
	tree, err := Scan(root, Options{MaxDepth: maxDepth})
	return tree.Files, err
}

func walk(root, rel string, depth int, opts Options, tree *Tree, isRoot bool) error {
	abs := root
	if rel != "" {
		abs = filepath.Join(root, filepath.FromSlash(rel))
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		if isRoot {
			return fmt.Errorf("scan %s: %w", root, err)
		}
		tree.Unreadable = append(tree.Unreadable, rel)
		return nil
	}
	for _, entry := range entries {
		name := entry.Name()
		if opts.IgnoreHidden && strings.HasPrefix(name, ".") {
			continue
		}
		// In-flight cross-device copies are never known files.
		if mover.IsTempName(name) {
			continue
		}
		child := path.Join(rel, name)
		isDir := entry.IsDir()
		if entry.Type()&fs.ModeSymlink != 0 {
			// Follow links so a linked subtree still counts; the depth bound
			// stops cycles.
			target, err := os.Stat(filepath.Join(abs, name))
			if err != nil {
				continue
			}
			isDir = target.IsDir()
		}
		if !isDir {
			tree.Files = append(tree.Files, child)
			continue
		}
		tree.Dirs = append(tree.Dirs, child)
		if depth < opts.MaxDepth {
			if err := walk(root, child, depth+1, opts, tree, false); err != nil {
				return err
			}
		}
	}
	return nil
}
