// Package matcher routes incoming files to existing destination directories by
// filename similarity.
//
// The score is 1 - levenshtein(a, b) / max(len(a), len(b)) over NFC-normalized,
// case-folded basenames, counted in runes. Ties keep the first maximal score
// in the order knownFiles was supplied; the scanner sorts its output so this
// is reproducible across runs. Matching never opens files.
package matcher

import (
	"math"
	"path"

	"filer/internal/textutil"
)

// DefaultThreshold is the minimum score treated as a hit.
const DefaultThreshold = 0.65

// MatchResult is the best candidate for one incoming file. CandidateDir and
// CandidateFile are empty when knownFiles is empty, in which case Score is
// negative infinity.
type MatchResult struct {
	CandidateDir  string
	CandidateFile string
	Score         float64
}

// Found reports whether any candidate was considered.
func (r MatchResult) Found() bool {
	return r.CandidateFile != ""
}

// Hit reports whether the result clears threshold.
func (r MatchResult) Hit(threshold float64) bool {
	return r.Found() && r.Score >= threshold
}

// FindBestMatch scores fileName against the basename of every known file.
// knownFiles are slash-separated paths relative to the destination root.
func FindBestMatch(fileName string, knownFiles []string) MatchResult {
	best := MatchResult{Score: math.Inf(-1)}
	target := path.Base(fileName)
	for _, known := range knownFiles {
		score := textutil.Similarity(target, path.Base(known))
		if score > best.Score {
			best = MatchResult{
				CandidateDir:  directoryOf(known),
				CandidateFile: known,
				Score:         score,
			}
		}
	}
	return best
}

// Matcher applies a fixed threshold.
type Matcher struct {
	Threshold float64
}

// New returns a Matcher; a threshold outside [0,1] falls back to DefaultThreshold.
func New(threshold float64) Matcher {
	if threshold < 0 || threshold > 1 || math.IsNaN(threshold) {
		threshold = DefaultThreshold
	}
	return Matcher{Threshold: threshold}
}

// Match returns the best candidate and whether it is a hit.
func (m Matcher) Match(fileName string, knownFiles []string) (MatchResult, bool) {
	result := FindBestMatch(fileName, knownFiles)
	return result, result.Hit(m.Threshold)
}

// directoryOf returns the containing directory of a relative path, "" for the
// destination root itself.
func directoryOf(rel string) string {
	dir := path.Dir(rel)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}
