package repository

import (
	"context"

	"github.com/helixir/abstract-wordstats/internal/domain"
)

// ArticleRepository defines the interface for article persistence operations.
type ArticleRepository interface {
	// SaveArticles creates or updates the given articles, matched by PMID.
	// Every article must carry a PMID; otherwise nothing is written and a
	// domain.ValidationError is returned.
	SaveArticles(ctx context.Context, articles []*domain.Article) error

	// LoadArticles returns every stored article in first insertion order.
	LoadArticles(ctx context.Context) ([]*domain.Article, error)

	// List returns one page of articles in first insertion order.
	List(ctx context.Context, filter ArticleFilter) ([]*domain.Article, error)

	// Count returns the number of stored articles.
	Count(ctx context.Context) (int64, error)
}

// ArticleFilter specifies the page returned by List.
type ArticleFilter struct {
	// Limit is the maximum number of articles to return (default: 100, max: 1000).
	Limit int

	// Offset is the number of articles to skip.
	Offset int
}

// Validate normalizes the pagination values.
func (f *ArticleFilter) Validate() error {
	applyPaginationDefaults(&f.Limit, &f.Offset)
	return nil
}
