// Package repository provides PostgreSQL persistence for harvested articles.
//
// # Overview
//
// PgArticleRepository stores domain.Article records in the articles table, one
// row per PMID. It is one of the two article stores the CLI can be configured
// with; the other is the CSV dataset in the storage package.
//
// # Thread Safety
//
// Repository implementations are safe for concurrent use by multiple goroutines.
// The underlying pgxpool handles connection pooling and synchronization.
//
// # Error Handling
//
// Database errors are wrapped with context using fmt.Errorf and the %w verb.
// Invalid input is reported as a *domain.ValidationError.
//
// # Transactions
//
// SaveArticles writes all rows inside one transaction so a failed save leaves the
// table unchanged. Pass a database.DB, a pgxpool.Pool or a pgxmock pool.
//
// # Usage Pattern
//
//	db, _ := database.New(ctx, &cfg.Database, logger)
//	repo := repository.NewPgArticleRepository(db, logger)
//	err := repo.SaveArticles(ctx, articles)
package repository

import (
	"github.com/helixir/abstract-wordstats/internal/database"
)

// DBTX is the database interface supporting both pool and transaction contexts.
type DBTX = database.DBTX

// Conn is a DBTX that can also begin transactions.
type Conn = database.Conn

// Filter pagination defaults and limits.
const (
	defaultFilterLimit = 100
	maxFilterLimit     = 1000
)

// applyPaginationDefaults normalizes limit and offset values for filter queries.
// It clamps limit to [1, maxFilterLimit] and ensures offset >= 0.
func applyPaginationDefaults(limit, offset *int) {
	if *limit <= 0 {
		*limit = defaultFilterLimit
	}
	if *limit > maxFilterLimit {
		*limit = maxFilterLimit
	}
	if *offset < 0 {
		*offset = 0
	}
}
