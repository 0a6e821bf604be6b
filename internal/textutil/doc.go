// Package textutil provides text processing utilities for filename similarity
// and path sanitization.
//
// The primary use cases are:
//   - Normalizing filenames (Unicode NFC + case folding) before comparison
//   - Computing normalized Levenshtein similarity between two names
//   - Sanitizing filenames and relative path segments for safe filesystem use
//
// Distances are computed over runes rather than bytes so multi-byte names
// (for example CJK filenames) score the same way ASCII names do.
package textutil
