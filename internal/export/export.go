// Package export writes analysis results to the output directory.
//
// Grids are written as comma separated text with every cell quoted, so spreadsheet
// tools keep numeric-looking cells such as years and percentages as text.
package export

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/helixir/abstract-wordstats/internal/wordstats"
)

// Output file names.
const (
	GridFile      = "wordcount.csv"
	SummaryFile   = "otherData.txt"
	YearWordsFile = "yearWords.csv"
)

// ErrOutputExists is returned when the output directory exists and overwriting is off.
var ErrOutputExists = errors.New("output directory already exists")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

const lineEnd = "\r\n"

// WriteGrid writes grid as CSV rows with every cell quoted and CRLF line endings.
// bom prefixes the output with a UTF-8 byte order mark.
func WriteGrid(w io.Writer, grid [][]string, bom bool) error {
	bw := bufio.NewWriter(w)
	if bom {
		if _, err := bw.Write(utf8BOM); err != nil {
			return err
		}
	}
	for _, row := range grid {
		writeRow(bw, row)
	}
	return bw.Flush()
}

// WriteYearWords writes one "year","word" row per pair after a header row.
func WriteYearWords(w io.Writer, pairs []wordstats.YearWord, bom bool) error {
	bw := bufio.NewWriter(w)
	if bom {
		if _, err := bw.Write(utf8BOM); err != nil {
			return err
		}
	}
	writeRow(bw, []string{"year", "word"})
	for _, p := range pairs {
		writeRow(bw, []string{strconv.Itoa(p.Year), p.Word})
	}
	return bw.Flush()
}

// WriteSummary writes the run summary as indented JSON.
func WriteSummary(w io.Writer, summary wordstats.Summary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// writeRow buffers one quoted row. Errors surface on Flush.
func writeRow(bw *bufio.Writer, row []string) {
	for i, cell := range row {
		if i > 0 {
			bw.WriteByte(',')
		}
		bw.WriteByte('"')
		bw.WriteString(strings.ReplaceAll(cell, `"`, `""`))
		bw.WriteByte('"')
	}
	bw.WriteString(lineEnd)
}

// Options configures a Writer.
type Options struct {
	// Dir receives the output files.
	Dir string
	// Overwrite allows writing into an existing directory.
	Overwrite bool
	// BOM prefixes CSV files with a UTF-8 byte order mark.
	BOM bool
}

// Writer writes a complete result set to a directory.
type Writer struct {
	opts   Options
	logger zerolog.Logger
}

// NewWriter creates a Writer.
func NewWriter(opts Options, logger zerolog.Logger) *Writer {
	return &Writer{
		opts:   opts,
		logger: logger.With().Str("component", "export").Str("dir", opts.Dir).Logger(),
	}
}

// WriteAll writes the grid, the summary and, in year-word mode, the year-word pairs.
// It returns the paths written. Each file is renamed into place only once complete.
func (w *Writer) WriteAll(result *wordstats.Result) ([]string, error) {
	if result == nil {
		return nil, errors.New("no result to export")
	}
	if err := w.prepareDir(); err != nil {
		return nil, err
	}

	var written []string
	write := func(name string, fn func(io.Writer) error) error {
		path := filepath.Join(w.opts.Dir, name)
		if err := writeFileAtomic(path, fn); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		written = append(written, path)
		return nil
	}

	if err := write(GridFile, func(out io.Writer) error {
		return WriteGrid(out, result.Grid, w.opts.BOM)
	}); err != nil {
		return written, err
	}

	if err := write(SummaryFile, func(out io.Writer) error {
		return WriteSummary(out, result.Summary)
	}); err != nil {
		return written, err
	}

	if result.Summary.YearWordMode {
		if err := write(YearWordsFile, func(out io.Writer) error {
			return WriteYearWords(out, result.YearWords, w.opts.BOM)
		}); err != nil {
			return written, err
		}
	}

	w.logger.Info().Strs("files", written).Msg("results written")
	return written, nil
}

func (w *Writer) prepareDir() error {
	info, err := os.Stat(w.opts.Dir)
	switch {
	case err == nil && !info.IsDir():
		return fmt.Errorf("output path %s is not a directory", w.opts.Dir)
	case err == nil && !w.opts.Overwrite:
		return fmt.Errorf("%w: %s", ErrOutputExists, w.opts.Dir)
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("stat output directory: %w", err)
	}
	if err := os.MkdirAll(w.opts.Dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return nil
}

// writeFileAtomic writes path through a temporary file in the same directory.
func writeFileAtomic(path string, fn func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	err = fn(tmp)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
