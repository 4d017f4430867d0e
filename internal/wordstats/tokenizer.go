// Package wordstats turns abstract text into per-year word-frequency tables.
//
// The pipeline is a pure batch transform:
//
//	Tokenize -> Filter -> Aggregate -> FormatTable
//
// Every record is tokenized and filtered exactly once. The resulting word lists are
// folded into a YearTable, which is rendered into a dense string grid suitable for
// spreadsheet export. Nothing in this package performs I/O or logging.
package wordstats

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// minTokenLength is the minimum number of characters a token must keep after stripping.
const minTokenLength = 2

// disallowedRun matches runs of characters that are not letters, digits, whitespace,
// apostrophes or dashes.
var disallowedRun = regexp.MustCompile(`[^\p{L}\p{N}\p{Z}\s'-]+`)

// Tokenize normalizes free text into an ordered list of candidate words.
//
// Runs of characters other than letters, digits, whitespace, apostrophes and dashes are
// replaced by a single space, the text is lowercased and split on whitespace. A trailing
// possessive "'s" is removed from each token, then leading and trailing apostrophes and
// dashes are trimmed. Tokens shorter than two characters are dropped.
func Tokenize(text string) []string {
	if text == "" {
		return []string{}
	}

	cleaned := disallowedRun.ReplaceAllString(text, " ")
	cleaned = strings.ToLower(cleaned)

	fields := strings.Fields(cleaned)
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		token := normalizeToken(field)
		if utf8.RuneCountInString(token) < minTokenLength {
			continue
		}
		tokens = append(tokens, token)
	}

	return tokens
}

// normalizeToken strips the possessive suffix and surrounding punctuation from a token.
func normalizeToken(token string) string {
	token = strings.TrimSuffix(token, "'s")
	return strings.Trim(token, "'-")
}
