package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/birlikkoshan/tasksync/internal/app"
	"github.com/birlikkoshan/tasksync/internal/config"
	"github.com/birlikkoshan/tasksync/internal/migrations"

	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(
		migrateSubcommand("up", "Apply all pending migrations", migrations.Up),
		migrateSubcommand("down", "Roll back the most recent migration", migrations.Down),
		migrateSubcommand("status", "Show the state of every migration", migrations.Status),
	)
	return cmd
}

func migrateSubcommand(use, short string, run func(ctx context.Context, db *sql.DB) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			slog.SetDefault(app.NewLogger(cfg.App))

			db, err := app.NewPostgres(cfg.PG)
			if err != nil {
				return err
			}
			defer db.Close()
			return run(cmd.Context(), db.DB)
		},
	}
}
