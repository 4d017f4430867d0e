package wordstats

import (
	"sort"
	"strings"
	"unicode"
)

// WordSet is an immutable-by-convention set of normalized words.
type WordSet map[string]struct{}

// NewWordSet builds a set from the given words. Empty strings are ignored.
func NewWordSet(words ...string) WordSet {
	set := make(WordSet, len(words))
	for _, w := range words {
		if w == "" {
			continue
		}
		set[w] = struct{}{}
	}
	return set
}

// Contains reports whether word is a member of the set. A nil set contains nothing.
func (s WordSet) Contains(word string) bool {
	_, ok := s[word]
	return ok
}

// Len returns the number of words in the set.
func (s WordSet) Len() int {
	return len(s)
}

// Sorted returns the members in ascending order.
func (s WordSet) Sorted() []string {
	words := make([]string, 0, len(s))
	for w := range s {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// Intersect returns the sorted list of words present in both sets.
func (s WordSet) Intersect(other WordSet) []string {
	var common []string
	for w := range s {
		if other.Contains(w) {
			common = append(common, w)
		}
	}
	sort.Strings(common)
	return common
}

// Filter removes numeric tokens (when filterNumbers is set) and excluded tokens.
//
// A token is numeric when, after removing every dash, it is non-empty and consists
// solely of digits. Mixed tokens such as "3rd" are kept. The input order is preserved.
func Filter(tokens []string, filterNumbers bool, exclude WordSet) []string {
	kept := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if filterNumbers && IsNumeric(token) {
			continue
		}
		if exclude.Contains(token) {
			continue
		}
		kept = append(kept, token)
	}
	return kept
}

// IsNumeric reports whether token is made only of digits once dashes are removed.
func IsNumeric(token string) bool {
	stripped := strings.ReplaceAll(token, "-", "")
	if stripped == "" {
		return false
	}
	for _, r := range stripped {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
