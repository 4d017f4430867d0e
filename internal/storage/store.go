// Package storage defines where harvested articles are kept between the download
// and analyze commands.
//
// Two interchangeable stores implement ArticleStore: CSVStore keeps the dataset
// in a single CSV file and repository.PgArticleRepository keeps it in PostgreSQL.
package storage

import (
	"context"

	"github.com/helixir/abstract-wordstats/internal/domain"
	"github.com/helixir/abstract-wordstats/internal/repository"
)

// ArticleStore saves and loads the article dataset.
type ArticleStore interface {
	// SaveArticles persists the articles. A store keyed by PMID updates existing records.
	SaveArticles(ctx context.Context, articles []*domain.Article) error

	// LoadArticles returns every stored article in the order it was saved.
	LoadArticles(ctx context.Context) ([]*domain.Article, error)
}

var (
	_ ArticleStore = (*CSVStore)(nil)
	_ ArticleStore = (*repository.PgArticleRepository)(nil)
)
