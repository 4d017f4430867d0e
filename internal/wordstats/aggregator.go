package wordstats

import "sort"

// Study is one filtered record ready for aggregation.
type Study struct {
	Year  int
	Words []string
}

// WordEntry holds the statistics of one word within one year.
type WordEntry struct {
	// TotalMentions is the number of occurrences across all studies of the year.
	TotalMentions int

	// PerStudyPercentages has one value per study mentioning the word, in study order:
	// 100 * (occurrences in the study) / (filtered words in the study).
	PerStudyPercentages []float64

	// StudiesMentioning is the number of distinct studies containing the word.
	StudiesMentioning int
}

// PercentageSum returns the sum of the per-study percentages.
func (e *WordEntry) PercentageSum() float64 {
	var sum float64
	for _, p := range e.PerStudyPercentages {
		sum += p
	}
	return sum
}

// YearEntry holds the statistics of every word counted in one year.
type YearEntry struct {
	// StudyCount is the number of studies that contributed to the year,
	// including studies left with no words after filtering.
	StudyCount int

	words map[string]*WordEntry
	order []string
}

func newYearEntry() *YearEntry {
	return &YearEntry{words: make(map[string]*WordEntry)}
}

// Word returns the entry for word, or nil when the word was never counted in the year.
func (y *YearEntry) Word(word string) *WordEntry {
	return y.words[word]
}

// WordCount returns the number of distinct words counted in the year.
func (y *YearEntry) WordCount() int {
	return len(y.order)
}

// Words returns the counted words in discovery order.
func (y *YearEntry) Words() []string {
	words := make([]string, len(y.order))
	copy(words, y.order)
	return words
}

// RankedWords returns the counted words sorted by TotalMentions descending.
// Ties keep their discovery order.
func (y *YearEntry) RankedWords() []string {
	words := y.Words()
	sort.SliceStable(words, func(i, j int) bool {
		return y.words[words[i]].TotalMentions > y.words[words[j]].TotalMentions
	})
	return words
}

// wordEntry returns the entry for word, creating it on first use.
func (y *YearEntry) wordEntry(word string) *WordEntry {
	entry, ok := y.words[word]
	if !ok {
		entry = &WordEntry{}
		y.words[word] = entry
		y.order = append(y.order, word)
	}
	return entry
}

// YearTable maps publication years to their aggregated statistics.
type YearTable struct {
	years map[int]*YearEntry
}

// Year returns the entry for year, or nil when no study was published that year.
func (t *YearTable) Year(year int) *YearEntry {
	return t.years[year]
}

// Years returns the covered years in ascending order.
func (t *YearTable) Years() []int {
	years := make([]int, 0, len(t.years))
	for year := range t.years {
		years = append(years, year)
	}
	sort.Ints(years)
	return years
}

// Len returns the number of covered years.
func (t *YearTable) Len() int {
	return len(t.years)
}

// MaxWords returns the largest number of distinct words counted in any single year.
func (t *YearTable) MaxWords() int {
	maxWords := 0
	for _, entry := range t.years {
		if n := entry.WordCount(); n > maxWords {
			maxWords = n
		}
	}
	return maxWords
}

// Aggregator accumulates studies into a YearTable one study at a time.
// It is not safe for concurrent use.
type Aggregator struct {
	include WordSet
	table   *YearTable
}

// NewAggregator creates an aggregator. When include is non-empty, only its words are
// counted; studies still contribute to the study count of their year.
func NewAggregator(include WordSet) *Aggregator {
	if include.Len() == 0 {
		include = nil
	}
	return &Aggregator{
		include: include,
		table:   &YearTable{years: make(map[int]*YearEntry)},
	}
}

// Add folds one study into the table.
func (a *Aggregator) Add(study Study) {
	entry, ok := a.table.years[study.Year]
	if !ok {
		entry = newYearEntry()
		a.table.years[study.Year] = entry
	}
	entry.StudyCount++

	total := len(study.Words)
	if total == 0 {
		return
	}

	counts := make(map[string]int, total)
	for _, word := range study.Words {
		counts[word]++
	}

	seen := make(map[string]struct{}, len(counts))
	for _, word := range study.Words {
		if a.include != nil && !a.include.Contains(word) {
			continue
		}

		wordEntry := entry.wordEntry(word)
		wordEntry.TotalMentions++

		if _, done := seen[word]; done {
			continue
		}
		seen[word] = struct{}{}
		wordEntry.PerStudyPercentages = append(wordEntry.PerStudyPercentages,
			100.0*float64(counts[word])/float64(total))
		wordEntry.StudiesMentioning++
	}
}

// Result returns the accumulated table. The aggregator must not be used afterwards.
func (a *Aggregator) Result() *YearTable {
	return a.table
}

// Aggregate builds the per-year statistics for the given studies in input order.
func Aggregate(studies []Study, include WordSet) *YearTable {
	agg := NewAggregator(include)
	for _, study := range studies {
		agg.Add(study)
	}
	return agg.Result()
}
