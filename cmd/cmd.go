// Package cmd defines the command-line interface for prosoul.
package cmd

import (
	"github.com/huangsam/prosoul/internal/contract"
	"github.com/huangsam/prosoul/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(assessCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the models subcommands to the parent models command
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsShowCmd)
	modelsCmd.AddCommand(modelsImportCmd)
	modelsCmd.AddCommand(modelsDeleteCmd)
	modelsCmd.AddCommand(modelsStatusCmd)
	modelsCmd.AddCommand(modelsMigrateCmd)

	// Add the metrics subcommands to the parent metrics command
	metricsCmd.AddCommand(metricsListCmd)
	metricsCmd.AddCommand(metricsStatsCmd)

	// Add the history subcommands to the parent history command
	historyCmd.AddCommand(historyStatusCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("elastic-url", contract.DefaultElasticURL, "URL of the Elasticsearch cluster holding metrics and scores")
	rootCmd.PersistentFlags().String("index", contract.DefaultIndex, "Metrics index; score indices are derived from it")
	rootCmd.PersistentFlags().String("model", "", "Name of the quality model to assess")
	rootCmd.PersistentFlags().String("backend-metrics-data", string(schema.GrimoireLabBackend), "Metrics layout: grimoirelab or ossmeter or scava-metrics")
	rootCmd.PersistentFlags().String("from-date", contract.DefaultFromDate, "Start date in YYYY-MM-DD or time ago")
	rootCmd.PersistentFlags().String("to-date", contract.DefaultToDate, "End date in YYYY-MM-DD or time ago")
	rootCmd.PersistentFlags().String("attribute", "", "Only assess the attribute with this name")
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Concurrent metric queries per attribute")
	rootCmd.PersistentFlags().Bool("insecure", false, "Skip TLS certificate verification against Elasticsearch")
	rootCmd.PersistentFlags().String("timeout", "", "Overall deadline for one assessment (e.g. 5m); empty means none")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().String("report", string(schema.BigNumberReport), "Report kind: big_number or stats")
	rootCmd.PersistentFlags().Bool("no-publish", false, "Assess without writing score indices")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().Bool("debug", false, "Log per-metric diagnostics")
	rootCmd.PersistentFlags().String("model-backend", string(schema.SQLiteBackend), "Model store backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("model-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("models-file", "", "Read models from this JSON or YAML file instead of the model store")
	rootCmd.PersistentFlags().String("history-backend", string(schema.NoneBackend), "Run history backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("history-db-connect", "", "Database connection string for run history (SQLite files must differ from the model store)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of assessCmd to Viper
	assessCmd.Flags().String("csv-dir", "", "Write assessment CSV files to this directory")
	assessCmd.Flags().Bool("plot", false, "Print a bar chart of project averages")
	if err := viper.BindPFlags(assessCmd.Flags()); err != nil {
		contract.LogFatal("Error binding assess flags", err)
	}

	// Bind all flags of serveCmd to Viper
	serveCmd.Flags().String("listen", contract.DefaultListen, "Address the HTTP API listens on")
	if err := viper.BindPFlags(serveCmd.Flags()); err != nil {
		contract.LogFatal("Error binding serve flags", err)
	}

	// Bind all flags of scheduleCmd to Viper
	scheduleCmd.Flags().String("cron", contract.DefaultCronSpec, "Cron expression for assessment runs")
	if err := viper.BindPFlags(scheduleCmd.Flags()); err != nil {
		contract.LogFatal("Error binding schedule flags", err)
	}

	// Metrics stats flags are read from the command itself since assess binds --plot
	metricsStatsCmd.Flags().StringSlice("metric", nil, "Metric name to summarize (repeatable)")
	metricsStatsCmd.Flags().Bool("plot", false, "Print a bar chart of the per-project values")

	// Migration flags are read from the command itself since both stores share the name
	modelsMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	historyMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
}
