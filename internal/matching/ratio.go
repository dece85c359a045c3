// Package matching scores claimant answers against a finder's answer key.
package matching

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Ratio returns the Ratcliff/Obershelp similarity of a and b in [0, 1].
//
// Both inputs are trimmed and lower-cased first. The ratio is 2*M/T where M is the number of characters in the
// matching blocks found by repeatedly taking the longest common contiguous block and recursing on both sides of it,
// and T is the total number of characters. Two empty strings are identical and score 1.
//
// Ratio(a, b) == Ratio(b, a) holds for all inputs.
func Ratio(a, b string) float64 {
	a = normalize(a)
	b = normalize(b)
	if a == b {
		return 1
	}
	// Longest-block tie breaking depends on argument order, so compare in a canonical order.
	if b < a {
		a, b = b, a
	}
	return difflib.NewMatcher(runes(a), runes(b)).Ratio()
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// runes splits s into one element per Unicode code point so that multibyte characters compare as single units.
func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
