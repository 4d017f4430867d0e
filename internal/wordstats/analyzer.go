package wordstats

import (
	"strings"

	"github.com/helixir/abstract-wordstats/internal/domain"
)

// Options configures an analysis run.
type Options struct {
	// WordsWeWant restricts aggregation to these words. Empty means every word.
	WordsWeWant []string

	// WordsWeDontWant are removed by the word filter. Nil selects DefaultStopwords;
	// an empty non-nil slice disables exclusion.
	WordsWeDontWant []string

	// FilterNumbers drops purely numeric tokens.
	FilterNumbers bool

	// YearWordMode additionally emits one (year, word) pair per retained occurrence.
	YearWordMode bool
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		FilterNumbers: true,
	}
}

// YearWord is one retained word occurrence in a study of the given year.
type YearWord struct {
	Year int
	Word string
}

// Summary is the diagnostic side channel of a run.
type Summary struct {
	CorpusStats

	WordsWeDontWant []string `json:"words_we_dont_want"`
	WordsWeWant     []string `json:"words_we_want"`
	FilterNumbers   bool     `json:"filter_numbers"`
	YearWordMode    bool     `json:"year_word_mode"`

	Years               int `json:"num_years"`
	StudiesWithoutWords int `json:"num_studies_without_words_after_filter"`
	RetainedWords       int `json:"num_words_after_filter"`
}

// Result is the complete output of a run.
type Result struct {
	Table     *YearTable
	Grid      [][]string
	YearWords []YearWord
	Summary   Summary
}

// Analyzer runs the tokenize, filter, aggregate and format pipeline with fixed options.
// It holds no mutable state and may be reused.
type Analyzer struct {
	include       WordSet
	exclude       WordSet
	filterNumbers bool
	yearWordMode  bool
}

// NewAnalyzer normalizes the configured word lists through the tokenizer and checks that
// the inclusion and exclusion sets are disjoint. An overlap, or an inclusion list that
// normalizes to nothing, is a *domain.ConfigError.
func NewAnalyzer(opts Options) (*Analyzer, error) {
	exclude := opts.WordsWeDontWant
	if exclude == nil {
		exclude = DefaultStopwords()
	}

	a := &Analyzer{
		include:       NormalizeWordList(opts.WordsWeWant),
		exclude:       NormalizeWordList(exclude),
		filterNumbers: opts.FilterNumbers,
		yearWordMode:  opts.YearWordMode,
	}

	if len(opts.WordsWeWant) > 0 && a.include.Len() == 0 {
		return nil, domain.NewConfigError("words_we_want",
			"no entry yields a countable word: "+strings.Join(opts.WordsWeWant, ", "))
	}
	if overlap := a.include.Intersect(a.exclude); len(overlap) > 0 {
		return nil, domain.NewConfigError("words_we_want",
			"overlaps with words_we_dont_want: "+strings.Join(overlap, ", "))
	}

	return a, nil
}

// Include returns the normalized inclusion set (empty when all words are counted).
func (a *Analyzer) Include() WordSet {
	return a.include
}

// Exclude returns the normalized exclusion set.
func (a *Analyzer) Exclude() WordSet {
	return a.exclude
}

// Words tokenizes and filters one text.
func (a *Analyzer) Words(text string) []string {
	return Filter(Tokenize(text), a.filterNumbers, a.exclude)
}

// Run analyzes a prepared corpus. Formatting happens only after every record has been
// aggregated.
func (a *Analyzer) Run(corpus *Corpus) *Result {
	result := &Result{}
	agg := NewAggregator(a.include)

	for _, record := range corpus.Records {
		words := a.Words(record.Text)
		if len(words) == 0 {
			result.Summary.StudiesWithoutWords++
		}
		result.Summary.RetainedWords += len(words)

		if a.yearWordMode {
			for _, w := range words {
				result.YearWords = append(result.YearWords, YearWord{Year: record.Year, Word: w})
			}
		}

		agg.Add(Study{Year: record.Year, Words: words})
	}

	result.Table = agg.Result()
	result.Grid = FormatTable(result.Table)

	result.Summary.CorpusStats = corpus.Stats
	result.Summary.WordsWeDontWant = a.exclude.Sorted()
	if a.include.Len() > 0 {
		result.Summary.WordsWeWant = a.include.Sorted()
	}
	result.Summary.FilterNumbers = a.filterNumbers
	result.Summary.YearWordMode = a.yearWordMode
	result.Summary.Years = result.Table.Len()

	return result
}

// NormalizeWordList tokenizes every entry and returns the union of the tokens, so that
// configured words match the form produced by Tokenize. A multi-word entry contributes
// each of its words.
func NormalizeWordList(entries []string) WordSet {
	set := make(WordSet)
	for _, entry := range entries {
		for _, token := range Tokenize(entry) {
			set[token] = struct{}{}
		}
	}
	return set
}
