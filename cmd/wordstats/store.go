package main

import (
	"context"
	"fmt"

	"github.com/helixir/abstract-wordstats/internal/database"
	"github.com/helixir/abstract-wordstats/internal/domain"
	"github.com/helixir/abstract-wordstats/internal/repository"
	"github.com/helixir/abstract-wordstats/internal/storage"
)

// openStore returns the configured article store and a function releasing it.
func (a *app) openStore(ctx context.Context) (storage.ArticleStore, func(), error) {
	logger := a.runLogger()

	switch domain.StorageBackend(a.cfg.Storage.Backend) {
	case domain.StorageBackendCSV:
		return storage.NewCSVStore(a.cfg.Storage.CSVPath, logger), func() {}, nil

	case domain.StorageBackendPostgres:
		db, err := database.New(ctx, &a.cfg.Database, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}

		if a.cfg.Database.MigrationAutoRun {
			if err := migrateUp(ctx, db, a.cfg.Database.MigrationPath, a); err != nil {
				db.Close()
				return nil, nil, err
			}
		}

		return repository.NewPgArticleRepository(db, logger), db.Close, nil

	default:
		return nil, nil, domain.NewConfigError("storage.backend", fmt.Sprintf("unsupported backend %q", a.cfg.Storage.Backend))
	}
}

// migrateUp brings the articles schema up to date before the store is used.
func migrateUp(ctx context.Context, db *database.DB, path string, a *app) error {
	migrator, err := database.NewMigrator(db, path, a.runLogger())
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			a.logger.Error().Err(closeErr).Msg("failed to close migrator")
		}
	}()

	if _, err := migrator.Up(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
