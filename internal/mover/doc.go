// Package mover relocates a single incoming file into the destination tree.
//
// A move is a decision procedure over the outcome of a no-replace rename:
//
//   - success: the file is in place (Done).
//   - destination exists: a timestamped name, then numbered variants, are
//     tried until one is free. Existing files are never overwritten.
//   - cross-device: the file is copied to a hidden temporary file in the
//     target directory, verified by size and SHA-256, renamed into place and
//     only then is the source removed.
//   - busy or permission denied: retried with exponential backoff
//     (base * 2^(attempt-1)) up to the configured number of retries.
//   - source missing: someone else resolved it (Skipped).
//   - anything else: Failed without retry.
//
// Dry-run mode logs the intended move and touches nothing.
//
// If the target directory's last segment equals the file's own name it is
// dropped, so "docs/a.txt" as a directory for a.txt lands in "docs".
package mover
