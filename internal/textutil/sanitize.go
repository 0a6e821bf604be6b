package textutil

import (
	"strings"
	"unicode"
)

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// segmentReplacer is fileNameReplacer without the separator rules; callers
// split on separators before sanitizing each segment.
var segmentReplacer = strings.NewReplacer(
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters are removed. The result is trimmed of leading/trailing whitespace.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(fileNameReplacer.Replace(stripControl(name)))
}

// SanitizePathSegment cleans a single directory name taken from an untrusted
// source. Control characters and reserved punctuation are removed, and the
// relative markers "." and ".." collapse to an empty string.
func SanitizePathSegment(segment string) string {
	segment = strings.TrimSpace(stripControl(segment))
	segment = strings.TrimSpace(segmentReplacer.Replace(segment))
	segment = strings.TrimRight(segment, ". ")
	if segment == "" || segment == "." || segment == ".." {
		return ""
	}
	return segment
}

func stripControl(value string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, value)
}
