package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/caiwu/internal/database"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Long: `Bring the database schema up to date. Migrations are embedded in the
binary and applied in order under an advisory lock, so running this next to a
starting API server is safe.`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "List migrations without applying them")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	status, _ := cmd.Flags().GetBool("status")

	if status {
		migrations, err := database.Migrations()
		if err != nil {
			return err
		}

		for _, m := range migrations {
			fmt.Fprintf(cmd.OutOrStdout(), "%04d  %s\n", m.Version, m.Name)
		}

		return nil
	}

	db, err := openDB(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	applied, err := database.Migrate(cmd.Context(), db)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed", "applied", applied)

	return nil
}
