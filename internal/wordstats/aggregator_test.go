package wordstats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate_TwoStudiesOneYear(t *testing.T) {
	table := Aggregate([]Study{
		{Year: 2000, Words: []string{"pain", "pain", "anxiety"}},
		{Year: 2000, Words: []string{"pain"}},
	}, nil)

	require.Equal(t, []int{2000}, table.Years())
	year := table.Year(2000)
	require.NotNil(t, year)
	assert.Equal(t, 2, year.StudyCount)

	pain := year.Word("pain")
	require.NotNil(t, pain)
	assert.Equal(t, 3, pain.TotalMentions)
	assert.Equal(t, 2, pain.StudiesMentioning)
	require.Len(t, pain.PerStudyPercentages, 2)
	assert.InDelta(t, 66.6667, pain.PerStudyPercentages[0], 1e-3)
	assert.InDelta(t, 100.0, pain.PerStudyPercentages[1], 1e-9)

	anxiety := year.Word("anxiety")
	require.NotNil(t, anxiety)
	assert.Equal(t, 1, anxiety.TotalMentions)
	assert.Equal(t, 1, anxiety.StudiesMentioning)
	require.Len(t, anxiety.PerStudyPercentages, 1)
	assert.InDelta(t, 33.3333, anxiety.PerStudyPercentages[0], 1e-3)

	assert.Equal(t, []string{"pain", "anxiety"}, year.Words())
}

func TestAggregate_StudyWithoutWords(t *testing.T) {
	table := Aggregate([]Study{
		{Year: 1990, Words: nil},
		{Year: 1990, Words: []string{}},
	}, nil)

	year := table.Year(1990)
	require.NotNil(t, year)
	assert.Equal(t, 2, year.StudyCount)
	assert.Equal(t, 0, year.WordCount())
	assert.Equal(t, 0, table.MaxWords())
}

func TestAggregate_InclusionSet(t *testing.T) {
	include := NewWordSet("anxiety", "depression")
	table := Aggregate([]Study{
		{Year: 2010, Words: []string{"pain", "anxiety", "anxiety", "stone"}},
		{Year: 2010, Words: []string{"stone"}},
		{Year: 2011, Words: []string{"kidney"}},
	}, include)

	y2010 := table.Year(2010)
	require.NotNil(t, y2010)
	assert.Equal(t, 2, y2010.StudyCount)
	assert.Equal(t, []string{"anxiety"}, y2010.Words())
	assert.Nil(t, y2010.Word("pain"))

	// The denominator is every filtered word of the study, not only the wanted ones.
	anxiety := y2010.Word("anxiety")
	require.NotNil(t, anxiety)
	assert.Equal(t, 2, anxiety.TotalMentions)
	assert.Equal(t, []float64{50}, anxiety.PerStudyPercentages)

	// A year whose studies mention no wanted word still exists with its study count.
	y2011 := table.Year(2011)
	require.NotNil(t, y2011)
	assert.Equal(t, 1, y2011.StudyCount)
	assert.Equal(t, 0, y2011.WordCount())
}

func TestAggregate_EmptyInclusionSetCountsEverything(t *testing.T) {
	table := Aggregate([]Study{{Year: 2000, Words: []string{"pain"}}}, NewWordSet())
	assert.NotNil(t, table.Year(2000).Word("pain"))
}

func TestAggregate_PercentagesFollowStudyOrder(t *testing.T) {
	table := Aggregate([]Study{
		{Year: 2000, Words: []string{"pain", "stone", "stone", "stone"}},
		{Year: 2000, Words: []string{"pain", "pain"}},
		{Year: 2000, Words: []string{"stone", "pain"}},
	}, nil)

	assert.Equal(t, []float64{25, 100, 50}, table.Year(2000).Word("pain").PerStudyPercentages)
	assert.Equal(t, []float64{75, 50}, table.Year(2000).Word("stone").PerStudyPercentages)
}

func TestAggregate_Invariants(t *testing.T) {
	studies := []Study{
		{Year: 1999, Words: []string{"stress", "stress", "urology", "kidney"}},
		{Year: 2001, Words: []string{"stress"}},
		{Year: 1999, Words: []string{"kidney", "urology", "kidney"}},
		{Year: 2001, Words: nil},
		{Year: 1999, Words: []string{"anxiety"}},
	}
	table := Aggregate(studies, nil)

	assert.Equal(t, []int{1999, 2001}, table.Years())
	for _, y := range table.Years() {
		year := table.Year(y)
		for _, w := range year.Words() {
			entry := year.Word(w)
			assert.Equal(t, entry.StudiesMentioning, len(entry.PerStudyPercentages), "%d/%s", y, w)
			assert.GreaterOrEqual(t, entry.TotalMentions, entry.StudiesMentioning, "%d/%s", y, w)
			assert.LessOrEqual(t, entry.StudiesMentioning, year.StudyCount, "%d/%s", y, w)
		}
	}

	assert.Equal(t, 3, table.Year(1999).StudyCount)
	assert.Equal(t, 2, table.Year(2001).StudyCount)
	assert.Nil(t, table.Year(2000))
}

func TestAggregate_Idempotent(t *testing.T) {
	studies := []Study{
		{Year: 2005, Words: []string{"incontinence", "quality", "life", "quality"}},
		{Year: 2004, Words: []string{"quality"}},
		{Year: 2005, Words: []string{"life"}},
	}

	first := Aggregate(studies, nil)
	second := Aggregate(studies, nil)

	assert.Equal(t, first, second)
	assert.Equal(t, FormatTable(first), FormatTable(second))
}

func TestAggregator_Incremental(t *testing.T) {
	agg := NewAggregator(nil)
	agg.Add(Study{Year: 2020, Words: []string{"covid-19", "anxiety"}})
	agg.Add(Study{Year: 2020, Words: []string{"anxiety"}})

	table := agg.Result()
	assert.Equal(t, 2, table.Year(2020).StudyCount)
	assert.Equal(t, 2, table.Year(2020).Word("anxiety").TotalMentions)
	assert.Equal(t, 1, table.Len())
}

func TestYearEntry_RankedWords(t *testing.T) {
	table := Aggregate([]Study{
		{Year: 2000, Words: []string{"beta", "alpha", "gamma", "gamma"}},
		{Year: 2000, Words: []string{"delta"}},
	}, nil)

	// Ties keep discovery order.
	assert.Equal(t, []string{"gamma", "beta", "alpha", "delta"}, table.Year(2000).RankedWords())
}

func TestWordEntry_PercentageSum(t *testing.T) {
	e := &WordEntry{PerStudyPercentages: []float64{10, 20.5}}
	assert.InDelta(t, 30.5, e.PercentageSum(), 1e-9)
	assert.Equal(t, 0.0, (&WordEntry{}).PercentageSum())
}
