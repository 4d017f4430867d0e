package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
)

// MigrationsTable records the applied schema version.
const MigrationsTable = "schema_migrations"

// MigrationResult reports the schema version before and after a migration run.
type MigrationResult struct {
	From  uint
	To    uint
	Dirty bool
}

// Changed reports whether the run applied or rolled back anything.
func (r MigrationResult) Changed() bool {
	return r.From != r.To
}

// Migrator applies the SQL migrations of the articles schema.
type Migrator struct {
	migrate *migrate.Migrate
	sqlDB   *sql.DB // wraps the pgx pool, must be closed
	logger  zerolog.Logger
}

// NewMigrator creates a migrator reading migrations from migrationsPath.
func NewMigrator(db *DB, migrationsPath string, logger zerolog.Logger) (*Migrator, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if db.pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}
	sourceURL, err := migrationsSourceURL(migrationsPath)
	if err != nil {
		return nil, err
	}

	sqlDB := stdlib.OpenDBFromPool(db.pool)
	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{
		MigrationsTable: MigrationsTable,
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(sourceURL, "postgres", driver)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	logger = logger.With().Str("component", "migrator").Logger()
	m.Log = migrateLogger{logger: logger}

	return &Migrator{
		migrate: m,
		sqlDB:   sqlDB,
		logger:  logger,
	}, nil
}

// migrationsSourceURL checks that path is a directory and returns its file:// URL.
func migrationsSourceURL(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("migrations path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("migrations path validation failed: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("migrations path validation failed: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("migrations path validation failed: %s is not a directory", abs)
	}
	return "file://" + filepath.ToSlash(abs), nil
}

// Up applies all pending migrations. Canceling ctx stops after the migration
// in progress.
func (m *Migrator) Up(ctx context.Context) (MigrationResult, error) {
	return m.run(ctx, "up", m.migrate.Up)
}

// Down rolls back all migrations. Canceling ctx stops after the migration in
// progress.
func (m *Migrator) Down(ctx context.Context) (MigrationResult, error) {
	return m.run(ctx, "down", m.migrate.Down)
}

func (m *Migrator) run(ctx context.Context, direction string, apply func() error) (MigrationResult, error) {
	from, _, err := m.Version()
	if err != nil {
		return MigrationResult{}, err
	}

	stop := context.AfterFunc(ctx, func() {
		m.migrate.GracefulStop <- true
	})
	defer stop()

	applyErr := apply()
	if errors.Is(applyErr, migrate.ErrNoChange) {
		applyErr = nil
	}

	to, dirty, err := m.Version()
	if err != nil {
		return MigrationResult{}, errors.Join(applyErr, err)
	}
	result := MigrationResult{From: from, To: to, Dirty: dirty}

	if applyErr != nil {
		return result, fmt.Errorf("migrate %s: %w", direction, applyErr)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, fmt.Errorf("migrate %s interrupted at version %d: %w", direction, to, ctxErr)
	}

	m.logger.Info().
		Str("direction", direction).
		Uint("from", from).
		Uint("to", to).
		Bool("changed", result.Changed()).
		Msg("migrations finished")
	return result, nil
}

// Version returns the current migration version and whether it is dirty.
// A database without any applied migration reports version 0.
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read migration version: %w", err)
	}
	return version, dirty, nil
}

// Close releases the migration source and the sql.DB wrapper.
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	if m.sqlDB != nil {
		if err := m.sqlDB.Close(); err != nil && dbErr == nil {
			dbErr = err
		}
	}
	if sourceErr != nil {
		sourceErr = fmt.Errorf("close migration source: %w", sourceErr)
	}
	if dbErr != nil {
		dbErr = fmt.Errorf("close migration database: %w", dbErr)
	}
	return errors.Join(sourceErr, dbErr)
}

// migrateLogger forwards golang-migrate progress lines to zerolog at debug level.
type migrateLogger struct {
	logger zerolog.Logger
}

func (l migrateLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l migrateLogger) Verbose() bool {
	return l.logger.GetLevel() <= zerolog.DebugLevel
}
