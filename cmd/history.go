package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/huangsam/prosoul/internal/contract"
	"github.com/huangsam/prosoul/internal/history"
	"github.com/huangsam/prosoul/internal/outwriter"
	"github.com/huangsam/prosoul/schema"
	"github.com/spf13/cobra"
)

// historySetupWrapper wraps historySetup to provide PreRunE for history commands.
func historySetupWrapper(_ *cobra.Command, _ []string) error {
	return historySetup()
}

// openHistoryStore opens the configured history store. Tracking must be enabled.
func openHistoryStore() (*history.Store, error) {
	if cfg.HistoryBackend == schema.NoneBackend {
		return nil, errors.New("history tracking is disabled; set --history-backend to sqlite, mysql or postgresql")
	}
	return history.NewHistoryStore(cfg.HistoryBackend, cfg.HistoryDBConnect)
}

// historyCmd focused on assessment run history.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage assessment run history and exports",
	Long: `Manage the history of assessment runs used for trend tracking and reporting.

When enabled with --history-backend, every assess run stores:
- Run metadata (model, index, window, timestamps, duration, configuration)
- Every published score and placeholder, per window

Supported backends: SQLite, MySQL, PostgreSQL, or None (disabled, default)

Subcommands:
  status  - Show history statistics
  export  - Export runs and scores to Parquet
  clear   - Remove all history
  migrate - Run database schema migrations

Examples:
  # Check tracking status
  prosoul history status --history-backend sqlite

  # Export for analysis in pandas/DuckDB
  prosoul history export --history-backend sqlite --output-file history`,
}

// historyStatusCmd shows history status.
var historyStatusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Display history statistics and connection details",
	PreRunE: historySetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		store, err := history.NewHistoryStore(cfg.HistoryBackend, cfg.HistoryDBConnect)
		if err != nil {
			contract.LogFatal("Cannot open history store", err)
		}
		defer func() { _ = store.Close() }()

		status, err := store.GetStatus(rootCtx)
		if err != nil {
			_ = store.Close()
			contract.LogFatal("Failed to get history status", err)
		}
		outwriter.PrintHistoryStatus(os.Stdout, status)
	},
}

// historyExportCmd exports runs and scores to Parquet files.
var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export run history to Parquet for BI tools and analytics",
	Long: `Export all stored runs and scores to Parquet.

Writes two files next to --output-file:
- <output-file>.runs.parquet   - one row per assessment run
- <output-file>.scores.parquet - one row per score or placeholder

Examples:
  prosoul history export --history-backend sqlite --output-file prosoul
  duckdb -c "SELECT project, avg(score) FROM read_parquet('prosoul.scores.parquet') GROUP BY 1"`,
	PreRunE: historySetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		store, err := openHistoryStore()
		if err != nil {
			contract.LogFatal("Cannot open history store", err)
		}
		defer func() { _ = store.Close() }()

		result, err := history.Export(rootCtx, store, cfg.OutputFile)
		if err != nil {
			_ = store.Close()
			contract.LogFatal("Failed to export history", err)
		}
		fmt.Printf("Exported %d run(s) to %s\n", result.Runs, result.RunsFile)
		fmt.Printf("Exported %d score(s) to %s\n", result.Scores, result.ScoresFile)
	},
}

// historyClearCmd deletes every run and score.
var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all assessment run history",
	Long: `Delete all stored runs and scores.

WARNING: This action cannot be undone. Consider exporting data first.`,
	PreRunE: historySetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		store, err := openHistoryStore()
		if err != nil {
			contract.LogFatal("Cannot open history store", err)
		}
		defer func() { _ = store.Close() }()

		if err := store.Clear(rootCtx); err != nil {
			_ = store.Close()
			contract.LogFatal("Failed to clear history", err)
		}
		fmt.Println("History cleared successfully.")
	},
}

// historyMigrateCmd runs database migrations for the history store.
var historyMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run history schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the history store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  prosoul history migrate --history-backend sqlite
  prosoul history migrate --history-backend sqlite --target-version 0`,
	PreRunE: historySetupWrapper,
	Run: func(cmd *cobra.Command, _ []string) {
		target, _ := cmd.Flags().GetInt("target-version")
		result, err := history.Migrate(cfg.HistoryBackend, cfg.HistoryDBConnect, target)
		if err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
		printMigrateResult("History store", result.From, result.To, result.Changed)
	},
}
