// Package similarity estimates how close two headlines are, blending a
// character alignment ratio with overlap of named entities (capitalised
// words, acronyms, numbers).
package similarity

import (
	"regexp"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const (
	baseWeight    = 0.6
	keywordWeight = 0.4
)

// keywordPattern picks proper nouns, acronyms and standalone numbers
// (Ferrari, WEC, 2027). Matching runs on the original casing.
var keywordPattern = regexp.MustCompile(`\b(?:[A-Z][a-z]+|[A-Z]{2,}|\d+)\b`)

// Score returns a similarity in [0,1] between two strings.
// Identical strings score 1.0 and Score(a, b) == Score(b, a).
func Score(a, b string) float64 {
	base := Ratio(a, b)

	ka := Keywords(a)
	kb := Keywords(b)
	if len(ka) == 0 || len(kb) == 0 {
		return base
	}
	return base*baseWeight + Jaccard(ka, kb)*keywordWeight
}

// Ratio is the case-insensitive longest-matching-blocks ratio 2*M/T over
// runes. The pair is put in a canonical order first because the block
// search itself is not symmetric.
func Ratio(a, b string) float64 {
	la := strings.ToLower(a)
	lb := strings.ToLower(b)
	if la > lb {
		la, lb = lb, la
	}
	return difflib.NewMatcher(runes(la), runes(lb)).Ratio()
}

// runes splits s into one-rune strings, the unit the matcher compares.
func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// Keywords extracts the distinct entity-like tokens of s.
func Keywords(s string) map[string]struct{} {
	found := keywordPattern.FindAllString(s, -1)
	if len(found) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(found))
	for _, w := range found {
		set[w] = struct{}{}
	}
	return set
}

// Jaccard returns |a∩b| / |a∪b|, or 0 when both sets are empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
