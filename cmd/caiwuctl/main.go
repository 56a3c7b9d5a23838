package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/caiwu/internal/config"
	"github.com/MrJamesThe3rd/caiwu/internal/database"
)

var (
	cfg     *config.Config
	rootCmd = &cobra.Command{
		Use:   "caiwuctl",
		Short: "Maintenance commands for the caiwu finance backend",
		Long: `caiwuctl runs operational tasks against the caiwu database:
schema migrations, one-off reminder passes and loan repayment schedules.

Configuration is read from the environment (and a .env file when present),
the same way the API server reads it.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "override LOG_LEVEL (debug, info, warn, error)")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(remindCmd())
	rootCmd.AddCommand(amortizeCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load()

	loaded, err := config.Load()
	if err != nil {
		return err
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		loaded.App.LogLevel = level
	}

	cfg = loaded
	slog.SetDefault(cfg.Logger(os.Stderr))

	return nil
}

func openDB(ctx context.Context) (*sql.DB, error) {
	db, err := database.New(ctx, cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return db, nil
}
