package wordstats

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/helixir/abstract-wordstats/internal/domain"
)

// Default publication year bounds accepted by the analysis.
const (
	DefaultMinYear = 1950
	DefaultMaxYear = 2025
)

// Skip reasons reported in CorpusStats and metrics.
const (
	SkipReasonNoYear     = "no_year"
	SkipReasonNoAbstract = "no_abstract"
)

// missingTextPlaceholder is what spreadsheet round-trips leave in empty abstract cells.
const missingTextPlaceholder = "nan"

// YearBounds is the inclusive range of accepted publication years.
type YearBounds struct {
	Min int
	Max int
}

// DefaultYearBounds returns the [1950, 2025] range.
func DefaultYearBounds() YearBounds {
	return YearBounds{Min: DefaultMinYear, Max: DefaultMaxYear}
}

// Contains reports whether year lies within the bounds.
func (b YearBounds) Contains(year int) bool {
	return year >= b.Min && year <= b.Max
}

// Record is a validated study: a publication year and its non-empty abstract text.
type Record struct {
	PMID string
	Year int
	Text string
}

// CorpusStats counts what happened to the input articles during preparation.
type CorpusStats struct {
	Input             int `json:"num_papers_input"`
	Retained          int `json:"num_papers_after_filter_no_year_or_no_abstract"`
	SkippedNoYear     int `json:"num_papers_skipped_no_year"`
	SkippedNoAbstract int `json:"num_papers_skipped_no_abstract"`
}

// Corpus is the validated input of an analysis run.
type Corpus struct {
	Records []Record
	Stats   CorpusStats
}

// PrepareRecords validates articles into records.
//
// Articles without a parsable year or without abstract text are skipped and counted.
// A parsable year outside bounds aborts the whole preparation with a
// *domain.YearRangeError; no partial corpus is returned in that case.
func PrepareRecords(articles []*domain.Article, bounds YearBounds) (*Corpus, error) {
	corpus := &Corpus{
		Records: make([]Record, 0, len(articles)),
	}
	corpus.Stats.Input = len(articles)

	for _, article := range articles {
		if article == nil {
			corpus.Stats.SkippedNoYear++
			continue
		}

		year, ok := ParsePubDateYear(article.PubDate)
		if !ok {
			corpus.Stats.SkippedNoYear++
			continue
		}
		if !bounds.Contains(year) {
			return nil, domain.NewYearRangeError(article.PMID, year, bounds.Min, bounds.Max)
		}

		text := strings.TrimSpace(article.Abstract)
		if text == "" || text == missingTextPlaceholder {
			corpus.Stats.SkippedNoAbstract++
			continue
		}

		corpus.Records = append(corpus.Records, Record{
			PMID: article.PMID,
			Year: year,
			Text: text,
		})
	}

	corpus.Stats.Retained = len(corpus.Records)
	return corpus, nil
}

// ParsePubDateYear extracts the "Year" member of a JSON-encoded PubMed PubDate object.
// It returns false when the value is absent, not JSON, or not an integer.
func ParsePubDateYear(pubDate string) (int, bool) {
	pubDate = strings.TrimSpace(pubDate)
	if pubDate == "" {
		return 0, false
	}

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(pubDate), &fields); err != nil {
		return 0, false
	}

	switch v := fields["Year"].(type) {
	case string:
		year, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return year, true
	case float64:
		// PubDate JSON built from efetch XML always carries Year as a string.
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}
