package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/abstract-wordstats/internal/domain"
)

var articleRowColumns = []string{
	"id", "pmid", "title", "abstract", "authors", "journal", "keywords", "url",
	"affiliations", "pub_date", "full_record", "created_at", "updated_at",
}

func newTestArticle(pmid string) *domain.Article {
	return &domain.Article{
		PMID:         pmid,
		Title:        "Pelvic pain after surgery",
		Abstract:     "Patients reported pain.",
		Authors:      "Smith John, Doe Jane",
		Journal:      "J Urol",
		Keywords:     "Pelvic Pain, Urology",
		URL:          domain.ArticleURL(pmid),
		Affiliations: "Department of Urology",
		PubDate:      `{"Year":"2001","Month":"Jan"}`,
		FullRecord:   `{"MedlineCitation":{}}`,
	}
}

func articleRow(rows *pgxmock.Rows, a *domain.Article) *pgxmock.Rows {
	return rows.AddRow(
		a.ID, a.PMID, a.Title, a.Abstract, a.Authors, a.Journal, a.Keywords, a.URL,
		a.Affiliations, a.PubDate, a.FullRecord, a.CreatedAt, a.UpdatedAt,
	)
}

func upsertArgs(a *domain.Article) []interface{} {
	return []interface{}{
		pgxmock.AnyArg(), a.PMID, a.Title, a.Abstract, a.Authors, a.Journal, a.Keywords, a.URL,
		a.Affiliations, a.PubDate, a.FullRecord, pgxmock.AnyArg(), pgxmock.AnyArg(),
	}
}

func TestNewPgArticleRepository(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgArticleRepository(mock, zerolog.Nop())
	assert.NotNil(t, repo)
	assert.NotNil(t, repo.db)
}

func TestPgArticleRepository_SaveArticles(t *testing.T) {
	ctx := context.Background()

	t.Run("empty input does nothing", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgArticleRepository(mock, zerolog.Nop())
		require.NoError(t, repo.SaveArticles(ctx, nil))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nil article is rejected before any query", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgArticleRepository(mock, zerolog.Nop())
		err = repo.SaveArticles(ctx, []*domain.Article{newTestArticle("1"), nil})

		var validationErr *domain.ValidationError
		require.True(t, errors.As(err, &validationErr))
		assert.Contains(t, validationErr.Message, "index 1")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("article without PMID is rejected", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgArticleRepository(mock, zerolog.Nop())
		err = repo.SaveArticles(ctx, []*domain.Article{newTestArticle(" ")})

		var validationErr *domain.ValidationError
		require.True(t, errors.As(err, &validationErr))
		assert.Equal(t, "pmid", validationErr.Field)
	})

	t.Run("upserts in one transaction and writes back generated fields", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgArticleRepository(mock, zerolog.Nop())
		articles := []*domain.Article{newTestArticle("11"), newTestArticle("12")}
		existingID := uuid.New()
		created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

		mock.ExpectBegin()
		batch := mock.ExpectBatch()
		for i, a := range articles {
			id := uuid.New()
			if i == 1 {
				id = existingID
			}
			batch.ExpectQuery("INSERT INTO articles").
				WithArgs(upsertArgs(a)...).
				WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).
					AddRow(id, created, created))
		}
		mock.ExpectCommit()

		require.NoError(t, repo.SaveArticles(ctx, articles))
		assert.Equal(t, existingID, articles[1].ID)
		assert.NotEqual(t, uuid.Nil, articles[0].ID)
		assert.Equal(t, created, articles[0].CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("splits large saves into several batches", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgArticleRepository(mock, zerolog.Nop())
		articles := make([]*domain.Article, upsertBatchSize+1)
		for i := range articles {
			articles[i] = newTestArticle(fmt.Sprintf("%d", i+1))
		}

		now := time.Now().UTC()
		mock.ExpectBegin()
		first := mock.ExpectBatch()
		for _, a := range articles[:upsertBatchSize] {
			first.ExpectQuery("INSERT INTO articles").
				WithArgs(upsertArgs(a)...).
				WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).
					AddRow(uuid.New(), now, now))
		}
		second := mock.ExpectBatch()
		second.ExpectQuery("INSERT INTO articles").
			WithArgs(upsertArgs(articles[upsertBatchSize])...).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow(uuid.New(), now, now))
		mock.ExpectCommit()

		require.NoError(t, repo.SaveArticles(ctx, articles))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed upsert rolls back", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgArticleRepository(mock, zerolog.Nop())
		article := newTestArticle("21")

		mock.ExpectBegin()
		mock.ExpectBatch().ExpectQuery("INSERT INTO articles").
			WithArgs(upsertArgs(article)...).
			WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		err = repo.SaveArticles(ctx, []*domain.Article{article})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to upsert article at index 0")
		assert.Contains(t, err.Error(), "disk full")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgArticleRepository_List(t *testing.T) {
	ctx := context.Background()

	t.Run("lists one page in insertion order", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgArticleRepository(mock, zerolog.Nop())
		a := newTestArticle("31")
		a.ID = uuid.New()
		a.CreatedAt = time.Now().UTC()
		a.UpdatedAt = a.CreatedAt

		mock.ExpectQuery("SELECT .* FROM articles ORDER BY seq LIMIT \\$1 OFFSET \\$2").
			WithArgs(100, 0).
			WillReturnRows(articleRow(pgxmock.NewRows(articleRowColumns), a))

		results, err := repo.List(ctx, ArticleFilter{})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, a, results[0])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error is wrapped", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgArticleRepository(mock, zerolog.Nop())
		mock.ExpectQuery("SELECT .* FROM articles").
			WithArgs(10, 20).
			WillReturnError(errors.New("relation \"articles\" does not exist"))

		_, err = repo.List(ctx, ArticleFilter{Limit: 10, Offset: 20})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to list articles")
	})
}

func TestPgArticleRepository_LoadArticles(t *testing.T) {
	ctx := context.Background()

	t.Run("empty table", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgArticleRepository(mock, zerolog.Nop())
		mock.ExpectQuery("SELECT .* FROM articles ORDER BY seq").
			WithArgs(maxFilterLimit, 0).
			WillReturnRows(pgxmock.NewRows(articleRowColumns))

		articles, err := repo.LoadArticles(ctx)
		require.NoError(t, err)
		assert.NotNil(t, articles)
		assert.Empty(t, articles)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("pages until a short page", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgArticleRepository(mock, zerolog.Nop())

		full := pgxmock.NewRows(articleRowColumns)
		for i := 0; i < maxFilterLimit; i++ {
			full = articleRow(full, newTestArticle(fmt.Sprintf("%d", i+1)))
		}
		last := newTestArticle("999999")
		mock.ExpectQuery("SELECT .* FROM articles ORDER BY seq").
			WithArgs(maxFilterLimit, 0).
			WillReturnRows(full)
		mock.ExpectQuery("SELECT .* FROM articles ORDER BY seq").
			WithArgs(maxFilterLimit, maxFilterLimit).
			WillReturnRows(articleRow(pgxmock.NewRows(articleRowColumns), last))

		articles, err := repo.LoadArticles(ctx)
		require.NoError(t, err)
		require.Len(t, articles, maxFilterLimit+1)
		assert.Equal(t, "1", articles[0].PMID)
		assert.Equal(t, "999999", articles[maxFilterLimit].PMID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgArticleRepository_Count(t *testing.T) {
	ctx := context.Background()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgArticleRepository(mock, zerolog.Nop())
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM articles").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(42)))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestArticleFilter_Validate(t *testing.T) {
	tests := []struct {
		name       string
		filter     ArticleFilter
		wantLimit  int
		wantOffset int
	}{
		{"defaults", ArticleFilter{}, defaultFilterLimit, 0},
		{"caps limit", ArticleFilter{Limit: 5000}, maxFilterLimit, 0},
		{"negative offset", ArticleFilter{Limit: 10, Offset: -3}, 10, 0},
		{"kept", ArticleFilter{Limit: 50, Offset: 100}, 50, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.filter
			require.NoError(t, f.Validate())
			assert.Equal(t, tt.wantLimit, f.Limit)
			assert.Equal(t, tt.wantOffset, f.Offset)
		})
	}
}
