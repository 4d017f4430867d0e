package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/helixir/abstract-wordstats/internal/database"
	"github.com/helixir/abstract-wordstats/internal/domain"
)

// upsertBatchSize is the number of rows queued per pgx.Batch.
const upsertBatchSize = 500

const articleColumns = `id, pmid, title, abstract, authors, journal, keywords, url,
	affiliations, pub_date, full_record, created_at, updated_at`

const upsertArticleQuery = `
	INSERT INTO articles (
		id, pmid, title, abstract, authors, journal, keywords, url,
		affiliations, pub_date, full_record, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
	)
	ON CONFLICT (pmid) DO UPDATE SET
		title = EXCLUDED.title,
		abstract = EXCLUDED.abstract,
		authors = EXCLUDED.authors,
		journal = EXCLUDED.journal,
		keywords = EXCLUDED.keywords,
		url = EXCLUDED.url,
		affiliations = EXCLUDED.affiliations,
		pub_date = EXCLUDED.pub_date,
		full_record = EXCLUDED.full_record,
		updated_at = NOW()
	RETURNING id, created_at, updated_at`

// Compile-time check that PgArticleRepository implements ArticleRepository.
var _ ArticleRepository = (*PgArticleRepository)(nil)

// PgArticleRepository implements ArticleRepository using PostgreSQL.
type PgArticleRepository struct {
	db     Conn
	logger zerolog.Logger
}

// NewPgArticleRepository creates a new PostgreSQL article repository.
func NewPgArticleRepository(db Conn, logger zerolog.Logger) *PgArticleRepository {
	return &PgArticleRepository{
		db:     db,
		logger: logger.With().Str("component", "article_repository").Logger(),
	}
}

// SaveArticles upserts the articles in one transaction, sending them in batches
// of upsertBatchSize rows. Database-generated fields are written back to the articles.
func (r *PgArticleRepository) SaveArticles(ctx context.Context, articles []*domain.Article) error {
	if len(articles) == 0 {
		return nil
	}

	for i, article := range articles {
		if article == nil {
			return domain.NewValidationError("article", fmt.Sprintf("article at index %d is nil", i))
		}
		if !article.HasPMID() {
			return domain.NewValidationError("pmid", fmt.Sprintf("article at index %d has no PMID", i))
		}
	}

	err := database.RunInTx(ctx, r.db, r.logger, func(tx pgx.Tx) error {
		for start := 0; start < len(articles); start += upsertBatchSize {
			end := min(start+upsertBatchSize, len(articles))
			if err := upsertBatch(ctx, tx, articles[start:end], start); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Debug().Int("articles", len(articles)).Msg("articles saved")
	return nil
}

// upsertBatch sends one pgx.Batch of upserts. offset is the index of the first
// article in the caller's slice and only used in error messages.
func upsertBatch(ctx context.Context, db DBTX, articles []*domain.Article, offset int) error {
	now := time.Now().UTC()
	batch := &pgx.Batch{}

	for _, a := range articles {
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		batch.Queue(upsertArticleQuery,
			a.ID,
			a.PMID,
			a.Title,
			a.Abstract,
			a.Authors,
			a.Journal,
			a.Keywords,
			a.URL,
			a.Affiliations,
			a.PubDate,
			a.FullRecord,
			now,
			now,
		)
	}

	br := db.SendBatch(ctx, batch)
	defer br.Close()

	for i, a := range articles {
		if err := br.QueryRow().Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return fmt.Errorf("failed to upsert article at index %d: %w", offset+i, err)
		}
	}

	return nil
}

// LoadArticles returns every stored article, reading maxFilterLimit rows per query.
func (r *PgArticleRepository) LoadArticles(ctx context.Context) ([]*domain.Article, error) {
	var all []*domain.Article
	filter := ArticleFilter{Limit: maxFilterLimit}

	for {
		page, err := r.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < filter.Limit {
			break
		}
		filter.Offset += len(page)
	}

	if all == nil {
		all = []*domain.Article{}
	}
	return all, nil
}

// List returns one page of articles in first insertion order.
func (r *PgArticleRepository) List(ctx context.Context, filter ArticleFilter) ([]*domain.Article, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM articles ORDER BY seq LIMIT $1 OFFSET $2`, articleColumns)

	rows, err := r.db.Query(ctx, query, filter.Limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	defer rows.Close()

	articles := make([]*domain.Article, 0, filter.Limit)
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating articles: %w", err)
	}

	return articles, nil
}

// Count returns the number of stored articles.
func (r *PgArticleRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM articles`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return count, nil
}

// scanArticle scans the current row into an Article.
func scanArticle(row pgx.Row) (*domain.Article, error) {
	var a domain.Article
	err := row.Scan(
		&a.ID, &a.PMID, &a.Title, &a.Abstract, &a.Authors, &a.Journal, &a.Keywords, &a.URL,
		&a.Affiliations, &a.PubDate, &a.FullRecord, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
