package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/helixir/abstract-wordstats/internal/database"
)

// migrateConnectTimeout bounds the database connection of the migrate commands.
const migrateConnectTimeout = 30 * time.Second

func migrateCmd(root *rootOptions) *cobra.Command {
	var migrationsPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the articles schema of the postgres store",
	}
	cmd.PersistentFlags().StringVar(&migrationsPath, "path", "", "Override the migrations directory path")

	action := func(name string, fn func(*cobra.Command, *database.Migrator) error) *cobra.Command {
		return &cobra.Command{
			Use:  name,
			Args: cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := newApp(root, "migrate "+name)
				if err != nil {
					return err
				}
				if migrationsPath != "" {
					a.cfg.Database.MigrationPath = migrationsPath
				}
				return withMigrator(cmd.Context(), a, func(m *database.Migrator) error {
					return fn(cmd, m)
				})
			},
		}
	}

	up := action("up", func(cmd *cobra.Command, m *database.Migrator) error {
		result, err := m.Up(cmd.Context())
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), result)
	})
	up.Short = "Apply all pending migrations"

	down := action("down", func(cmd *cobra.Command, m *database.Migrator) error {
		result, err := m.Down(cmd.Context())
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), result)
	})
	down.Short = "Roll back all migrations"

	version := action("version", func(cmd *cobra.Command, m *database.Migrator) error {
		v, dirty, err := m.Version()
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), database.MigrationResult{From: v, To: v, Dirty: dirty})
	})
	version.Short = "Print the current migration version"

	cmd.AddCommand(up, down, version)
	return cmd
}

func withMigrator(parent context.Context, a *app, fn func(*database.Migrator) error) error {
	logger := a.runLogger()

	ctx, cancel := context.WithTimeout(parent, migrateConnectTimeout)
	defer cancel()

	db, err := database.New(ctx, &a.cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	migrator, err := database.NewMigrator(db, a.cfg.Database.MigrationPath, logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close migrator")
		}
	}()

	return fn(migrator)
}

// printResult writes the schema version reached, flagging a dirty schema.
func printResult(w io.Writer, result database.MigrationResult) error {
	var err error
	switch {
	case result.Dirty:
		_, err = fmt.Fprintf(w, "version %d (dirty)\n", result.To)
	case result.Changed():
		_, err = fmt.Fprintf(w, "version %d -> %d\n", result.From, result.To)
	default:
		_, err = fmt.Fprintf(w, "version %d\n", result.To)
	}
	return err
}
