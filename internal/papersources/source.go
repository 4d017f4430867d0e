// Package papersources provides interfaces and types for article source clients.
//
// The harvester talks to an ArticleSource rather than to a concrete API, so the
// PubMed client can be replaced by a fake in tests. The package also holds the
// shared HTTP plumbing (rate limiting and retries) the clients are built on.
//
// Example usage:
//
//	source := pubmed.New(cfg, httpClient)
//	params := papersources.SearchParams{
//		Query:      `"Urology"[MeSH Terms]`,
//		MaxResults: 9999,
//	}
//	result, err := source.SearchIDs(ctx, params)
package papersources

import (
	"context"
	"time"

	"github.com/helixir/abstract-wordstats/internal/domain"
)

// SearchParams defines the parameters for an identifier search.
type SearchParams struct {
	// Query is the search term (required), in the source's query syntax.
	Query string

	// DateFrom filters records published on or after this date.
	// If nil, no lower date bound is applied.
	DateFrom *time.Time

	// DateTo filters records published on or before this date.
	// If nil, no upper date bound is applied.
	DateTo *time.Time

	// MaxResults limits the number of identifiers returned in a single request.
	// A value of 0 uses the source's default limit.
	MaxResults int

	// Offset specifies the starting position for paginated results.
	Offset int
}

// SearchResult contains the identifiers returned by a search.
type SearchResult struct {
	// IDs holds the source identifiers (PMIDs for PubMed) in the order returned.
	IDs []string

	// TotalResults is the total number of records matching the query,
	// regardless of pagination limits.
	TotalResults int

	// HasMore indicates whether additional identifiers are available
	// beyond the current page.
	HasMore bool

	// NextOffset is the offset value to use for fetching the next page.
	// Only meaningful when HasMore is true.
	NextOffset int

	// Source identifies which source provided these results.
	Source domain.SourceType

	// SearchDuration is the time taken to execute the search.
	SearchDuration time.Duration
}

// ArticleSource defines what the harvester needs from a bibliographic API.
type ArticleSource interface {
	// Count returns how many records match query.
	Count(ctx context.Context, query string) (int, error)

	// SearchIDs returns the identifiers of records matching params.
	SearchIDs(ctx context.Context, params SearchParams) (*SearchResult, error)

	// FetchArticles retrieves the full records for ids. Identifiers the source
	// does not know are absent from the result rather than reported as errors.
	FetchArticles(ctx context.Context, ids []string) ([]*domain.Article, error)

	// GetByID retrieves a single record.
	// Returns domain.ErrNotFound if the record does not exist.
	GetByID(ctx context.Context, id string) (*domain.Article, error)

	// SourceType returns the type identifier for this source.
	SourceType() domain.SourceType

	// Name returns a human-readable name for this source.
	Name() string
}
