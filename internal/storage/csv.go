package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/helixir/abstract-wordstats/internal/domain"
)

// Dataset column names, in file order.
const (
	ColumnPMID         = "PMID"
	ColumnTitle        = "Title"
	ColumnAbstract     = "Abstract"
	ColumnAuthors      = "Authors"
	ColumnJournal      = "Journal"
	ColumnKeywords     = "Keywords"
	ColumnURL          = "URL"
	ColumnAffiliations = "Affiliations"
	ColumnPubDate      = "pubDate"
	ColumnFullRecord   = "fullRecord"
)

// Columns is the header row written by CSVStore.
var Columns = []string{
	ColumnPMID, ColumnTitle, ColumnAbstract, ColumnAuthors, ColumnJournal,
	ColumnKeywords, ColumnURL, ColumnAffiliations, ColumnPubDate, ColumnFullRecord,
}

// requiredColumns must be present for a dataset to be analyzed.
var requiredColumns = []string{ColumnPMID, ColumnAbstract, ColumnPubDate}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVStore keeps the article dataset in one UTF-8 CSV file with a header row.
type CSVStore struct {
	path   string
	logger zerolog.Logger
}

// NewCSVStore creates a store backed by the file at path.
func NewCSVStore(path string, logger zerolog.Logger) *CSVStore {
	return &CSVStore{
		path:   path,
		logger: logger.With().Str("component", "csv_store").Str("path", path).Logger(),
	}
}

// Path returns the dataset file.
func (s *CSVStore) Path() string {
	return s.path
}

// SaveArticles replaces the dataset file with the given articles. The file is
// written next to its destination and renamed into place, so an interrupted save
// leaves the previous dataset intact.
func (s *CSVStore) SaveArticles(ctx context.Context, articles []*domain.Article) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dataset directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temporary dataset: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op once the rename succeeded.
		_ = os.Remove(tmpName)
	}()

	written, err := writeArticles(tmp, articles)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace dataset: %w", err)
	}

	s.logger.Info().Int("articles", written).Msg("dataset written")
	return nil
}

func writeArticles(w io.Writer, articles []*domain.Article) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return 0, err
	}

	written := 0
	for _, a := range articles {
		if a == nil {
			continue
		}
		record := []string{
			a.PMID, a.Title, a.Abstract, a.Authors, a.Journal,
			a.Keywords, a.URL, a.Affiliations, a.PubDate, a.FullRecord,
		}
		if err := cw.Write(record); err != nil {
			return written, err
		}
		written++
	}

	cw.Flush()
	return written, cw.Error()
}

// LoadArticles reads the dataset file. Columns are matched by header name, so
// extra columns are ignored and missing optional columns are left empty.
func (s *CSVStore) LoadArticles(ctx context.Context) ([]*domain.Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", s.path, err)
	}

	articles, err := ReadArticles(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	if err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", s.path, err)
	}

	s.logger.Info().Int("articles", len(articles)).Msg("dataset loaded")
	return articles, nil
}

// ReadArticles parses a CSV dataset with a header row.
func ReadArticles(r io.Reader) ([]*domain.Article, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, domain.NewValidationError("header", "dataset is empty")
	}
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	for _, name := range requiredColumns {
		if _, ok := index[name]; !ok {
			return nil, domain.NewValidationError("header", fmt.Sprintf("missing column %q", name))
		}
	}

	field := func(record []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	articles := []*domain.Article{}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if blankRecord(record) {
			continue
		}
		articles = append(articles, &domain.Article{
			PMID:         field(record, ColumnPMID),
			Title:        field(record, ColumnTitle),
			Abstract:     field(record, ColumnAbstract),
			Authors:      field(record, ColumnAuthors),
			Journal:      field(record, ColumnJournal),
			Keywords:     field(record, ColumnKeywords),
			URL:          field(record, ColumnURL),
			Affiliations: field(record, ColumnAffiliations),
			PubDate:      field(record, ColumnPubDate),
			FullRecord:   field(record, ColumnFullRecord),
		})
	}

	return articles, nil
}

// blankRecord reports whether every field of record is empty or whitespace.
func blankRecord(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
