// Package harvest downloads every PubMed record matching a query, one
// publication month at a time, and hands the articles to a sink.
//
// Monthly queries keep each search below the number of identifiers PubMed
// returns per request. A month whose identifier list comes back shorter than
// its count is searched again with exponential backoff.
package harvest

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/helixir/abstract-wordstats/internal/domain"
	"github.com/helixir/abstract-wordstats/internal/observability"
	"github.com/helixir/abstract-wordstats/internal/papersources"
)

// ArticleSink receives the harvested articles.
type ArticleSink interface {
	SaveArticles(ctx context.Context, articles []*domain.Article) error
}

// Config controls a harvest.
type Config struct {
	// Query is the PubMed search term every monthly query starts from.
	Query string

	// StartYear and EndYear bound the publication years, both inclusive.
	StartYear int
	EndYear   int

	// MaxPerQuery is the number of PMIDs requested per monthly search. A month
	// counting this many records or more cannot be harvested completely.
	MaxPerQuery int

	// ChunkSize is the number of PMIDs per efetch request.
	ChunkSize int

	// Concurrency bounds the number of efetch requests in flight.
	Concurrency int

	// MaxAttempts bounds the searches of one month whose results are incomplete.
	MaxAttempts int

	// InitialInterval and MaxInterval shape the backoff between those searches.
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Result summarizes a finished harvest.
type Result struct {
	Queries  int
	PMIDs    int
	Chunks   int
	Articles int
	// Missing counts PMIDs that efetch did not return.
	Missing  int
	Duration time.Duration
}

// Harvester runs harvests against an ArticleSource.
type Harvester struct {
	source  papersources.ArticleSource
	sink    ArticleSink
	cfg     Config
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// New creates a Harvester. The metrics parameter may be nil.
func New(source papersources.ArticleSource, sink ArticleSink, cfg Config, logger zerolog.Logger, metrics *observability.Metrics) *Harvester {
	if cfg.MaxPerQuery <= 0 {
		cfg.MaxPerQuery = 9999
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 500
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &Harvester{
		source:  source,
		sink:    sink,
		cfg:     cfg,
		logger:  logger.With().Str("component", "harvester").Logger(),
		metrics: metrics,
	}
}

// MonthQuery restricts query to the records published in the given month.
func MonthQuery(query string, year, month int) string {
	return fmt.Sprintf(`%s AND ("%d/%d:%d/%d"[pdat])`, query, year, month, year, month)
}

// Run collects the PMIDs of every month in the configured year range, fetches their
// records and saves them to the sink. Any failure stops the whole harvest.
func (h *Harvester) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	logger := observability.LoggerFromContext(ctx, h.logger)

	logger.Info().
		Str("query", h.cfg.Query).
		Int("start_year", h.cfg.StartYear).
		Int("end_year", h.cfg.EndYear).
		Msg("starting harvest")

	pmids, queries, err := h.CollectPMIDs(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info().Int("pmids", len(pmids)).Int("queries", queries).Msg("collected PMIDs")

	chunks := Chunk(pmids, h.cfg.ChunkSize)
	articles, err := h.fetchAll(ctx, chunks)
	if err != nil {
		return nil, err
	}

	if err := h.sink.SaveArticles(ctx, articles); err != nil {
		return nil, fmt.Errorf("save articles: %w", err)
	}

	result := &Result{
		Queries:  queries,
		PMIDs:    len(pmids),
		Chunks:   len(chunks),
		Articles: len(articles),
		Missing:  len(pmids) - len(articles),
		Duration: time.Since(start),
	}
	if result.Missing < 0 {
		result.Missing = 0
	}
	h.metrics.RecordHarvestCompleted(result.Duration.Seconds())

	logger.Info().
		Int("pmids", result.PMIDs).
		Int("articles", result.Articles).
		Int("missing", result.Missing).
		Dur("duration", result.Duration).
		Msg("harvest finished")

	return result, nil
}

// CollectPMIDs runs the monthly searches and returns the unique PMIDs in the order
// they were first seen, together with the number of months searched.
func (h *Harvester) CollectPMIDs(ctx context.Context) ([]string, int, error) {
	logger := observability.LoggerFromContext(ctx, h.logger)

	seen := make(map[string]struct{})
	var pmids []string
	queries := 0

	for year := h.cfg.StartYear; year <= h.cfg.EndYear; year++ {
		yearStart := len(pmids)
		for month := 1; month <= 12; month++ {
			ids, err := h.searchMonth(ctx, year, month)
			if err != nil {
				return nil, queries, fmt.Errorf("search %d/%d: %w", year, month, err)
			}
			queries++

			added := 0
			for _, id := range ids {
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
				pmids = append(pmids, id)
				added++
			}
			h.metrics.RecordHarvestQuery(added)
		}
		logger.Info().
			Int("year", year).
			Int("new_pmids", len(pmids)-yearStart).
			Int("total_pmids", len(pmids)).
			Msg("year searched")
	}

	return pmids, queries, nil
}

// searchMonth counts and lists the PMIDs of one month. An identifier list whose
// length differs from the count is searched again until MaxAttempts is reached.
func (h *Harvester) searchMonth(ctx context.Context, year, month int) ([]string, error) {
	logger := observability.WithHarvestContext(observability.LoggerFromContext(ctx, h.logger), year, month)
	query := MonthQuery(h.cfg.Query, year, month)

	var ids []string
	operation := func() error {
		count, err := h.source.Count(ctx, query)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("count: %w", err))
		}
		if count >= h.cfg.MaxPerQuery {
			return backoff.Permanent(fmt.Errorf("%w: %d records match, limit is %d", domain.ErrTooManyResults, count, h.cfg.MaxPerQuery))
		}
		if count == 0 {
			ids = nil
			return nil
		}

		result, err := h.source.SearchIDs(ctx, papersources.SearchParams{
			Query:      query,
			MaxResults: h.cfg.MaxPerQuery,
		})
		if err != nil {
			return backoff.Permanent(fmt.Errorf("search IDs: %w", err))
		}
		if len(result.IDs) != count {
			return fmt.Errorf("%w: got %d of %d PMIDs", domain.ErrIncompleteResults, len(result.IDs), count)
		}
		ids = result.IDs
		return nil
	}

	notify := func(err error, wait time.Duration) {
		h.metrics.RecordHarvestQueryRetry("incomplete_results")
		logger.Warn().Err(err).Dur("retry_in", wait).Msg("incomplete month, searching again")
	}

	if err := backoff.RetryNotify(operation, h.retryPolicy(ctx), notify); err != nil {
		return nil, err
	}
	logger.Debug().Int("pmids", len(ids)).Msg("month searched")
	return ids, nil
}

// retryPolicy returns exponential backoff limited to MaxAttempts tries in total.
func (h *Harvester) retryPolicy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if h.cfg.InitialInterval > 0 {
		b.InitialInterval = h.cfg.InitialInterval
	}
	if h.cfg.MaxInterval > 0 {
		b.MaxInterval = h.cfg.MaxInterval
	}
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(h.cfg.MaxAttempts-1)), ctx)
}

// fetchAll downloads every chunk with at most Concurrency requests in flight and
// returns the articles in chunk order, without duplicate PMIDs.
func (h *Harvester) fetchAll(ctx context.Context, chunks [][]string) ([]*domain.Article, error) {
	logger := observability.LoggerFromContext(ctx, h.logger)
	results := make([][]*domain.Article, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.cfg.Concurrency)

	for i, chunk := range chunks {
		g.Go(func() error {
			chunkLogger := observability.WithChunkContext(logger, i, len(chunk))
			articles, err := h.source.FetchArticles(gctx, chunk)
			if err != nil {
				return fmt.Errorf("fetch chunk %d: %w", i, err)
			}
			results[i] = articles
			h.metrics.RecordArticlesFetched(len(articles))
			chunkLogger.Debug().Int("articles", len(articles)).Msg("chunk fetched")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []*domain.Article
	for _, articles := range results {
		all = append(all, articles...)
	}
	return domain.DedupeArticles(all), nil
}

// Chunk splits ids into consecutive slices of at most size elements.
func Chunk(ids []string, size int) [][]string {
	if size <= 0 {
		size = len(ids)
	}
	var chunks [][]string
	for len(ids) > 0 {
		n := min(size, len(ids))
		chunks = append(chunks, ids[:n:n])
		ids = ids[n:]
	}
	return chunks
}
