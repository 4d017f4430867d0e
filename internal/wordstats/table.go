package wordstats

import (
	"math"
	"strconv"
	"strings"
)

// ColumnsPerYear is the width of one year block in the formatted grid.
const ColumnsPerYear = 4

// studyCountPrefix annotates the study count in the first row of a year block.
const studyCountPrefix = "Num studies:"

// ColumnTitles are the headers repeated in the second row of every year block.
var ColumnTitles = [ColumnsPerYear]string{
	"word",
	"number of mentions",
	"Avg percent of mentions per study",
	"percent of studies in year mentioning word",
}

// FormatTable renders the table as a dense grid, one 4-column block per year in
// ascending order.
//
// Row 0 carries the year and its study count, row 1 the column titles and the remaining
// rows one word each, most mentioned first. The grid has MaxWords()+2 rows; cells not
// used by a year with fewer words are empty strings.
func FormatTable(t *YearTable) [][]string {
	years := t.Years()
	rows := t.MaxWords() + 2
	cols := ColumnsPerYear * len(years)

	grid := make([][]string, rows)
	for i := range grid {
		grid[i] = make([]string, cols)
	}

	for yearIndex, year := range years {
		entry := t.Year(year)
		col := yearIndex * ColumnsPerYear

		grid[0][col] = strconv.Itoa(year)
		grid[0][col+1] = studyCountPrefix + strconv.Itoa(entry.StudyCount)
		copy(grid[1][col:col+ColumnsPerYear], ColumnTitles[:])

		studies := float64(entry.StudyCount)
		for i, word := range entry.RankedWords() {
			w := entry.Word(word)
			row := grid[i+2]
			row[col] = word
			row[col+1] = strconv.Itoa(w.TotalMentions)
			// Studies without the word count as 0%, so divide by every study of the year.
			row[col+2] = FormatPercent(w.PercentageSum() / studies)
			row[col+3] = FormatPercent(100.0 * float64(w.StudiesMentioning) / studies)
		}
	}

	return grid
}

// FormatPercent renders v in shortest round-trip form with at least one fractional digit
// followed by a percent sign, e.g. "100.0%", "83.33333333333333%", "5e-05%".
func FormatPercent(v float64) string {
	var s string
	if v != 0 && math.Abs(v) < 1e-4 {
		s = strconv.FormatFloat(v, 'e', -1, 64)
	} else {
		s = strconv.FormatFloat(v, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
	}
	return s + "%"
}
