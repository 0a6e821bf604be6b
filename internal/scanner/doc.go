// Package scanner discovers what is already under the destination root and
// what is waiting in the incoming directory.
//
// Scan walks the destination tree to a bounded depth and returns known
// directories and known files as slash-separated relative paths, sorted so
// callers that depend on iteration order (the similarity matcher's tie-break)
// behave reproducibly. The depth bound is the only protection against
// symlink loops. A missing root is a first-run state and yields an empty
// tree, not an error.
//
// ListIncoming lists the regular files directly inside the incoming
// directory, skipping hidden files, ignore patterns and files too young to be
// considered finished.
package scanner
