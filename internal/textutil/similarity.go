package textutil

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName returns the comparison form of a filename: NFC-composed and
// case folded. Casers carry state, so a fresh one is built per call.
func NormalizeName(name string) string {
	return cases.Fold().String(norm.NFC.String(name))
}

// Levenshtein returns the edit distance between a and b counted in runes.
func Levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// Similarity computes 1 - levenshtein(a, b) / max(len(a), len(b)) over the
// normalized forms of both names. Identical names (ignoring case) score 1.
func Similarity(a, b string) float64 {
	na := NormalizeName(a)
	nb := NormalizeName(b)
	longest := max(len([]rune(na)), len([]rune(nb)))
	if longest == 0 {
		longest = 1
	}
	return 1 - float64(Levenshtein(na, nb))/float64(longest)
}
