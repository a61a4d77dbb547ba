package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/huangsam/prosoul/core"
	"github.com/huangsam/prosoul/internal/contract"
	"github.com/spf13/cobra"
)

// metricsCmd inspects the metrics of one quality model.
var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Inspect the metrics of a quality model",
	Long: `Inspect the metrics a quality model is built from.

Subcommands:
  list  - List every metric with its goal, attribute and data source
  stats - Query one or more metrics and summarize their raw value per project

Examples:
  # List the metrics of a model
  prosoul metrics list --model health

  # Raw commit counts per project over one year, with a bar chart
  prosoul metrics stats --model health --metric commits --from-date 2023-01-01 --to-date 2023-12-31 --plot`,
}

// metricsListCmd lists the metrics of --model.
var metricsListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List the metrics of a quality model",
	PreRunE: sharedSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if cfg.Model == "" {
			contract.LogFatal("Cannot list metrics", errors.New("--model is required"))
		}
		src, closeFn, err := openModelSource(cfg)
		if err != nil {
			contract.LogFatal("Cannot open models", err)
		}
		defer closeFn()

		if _, err := core.ExecuteMetricsList(rootCtx, cfg, core.Deps{Models: src}); err != nil {
			closeFn()
			contract.LogFatal("Cannot list metrics", err)
		}
	},
}

// metricsStatsCmd prints per-project values of the given metrics.
var metricsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the raw value of metrics across projects",
	Long: `Query each --metric of the model for every project in the date range and
print the values with their max, min, mean, median and sample standard
deviation. No score index is written.`,
	PreRunE: metricsStatsSetup,
	Run: func(cmd *cobra.Command, _ []string) {
		names, _ := cmd.Flags().GetStringSlice("metric")
		deps, cleanup, err := openDeps(cfg, nil)
		if err != nil {
			contract.LogFatal("Cannot connect to stores", err)
		}
		defer cleanup()

		_, _ = fmt.Fprintf(os.Stderr, "📅 Range: %s → %s\n", contract.FormatDate(cfg.StartTime), contract.FormatDate(cfg.EndTime))
		if _, err := core.ExecuteMetricsStats(rootCtx, cfg, deps, names); err != nil {
			cleanup()
			contract.LogFatal("Cannot compute metric stats", err)
		}
	},
}

// metricsStatsSetup runs the shared setup and reads the flags owned by the
// stats command. --plot is read from the command since assess binds the same
// key in viper.
func metricsStatsSetup(cmd *cobra.Command, args []string) error {
	if err := sharedSetup(cmd, args); err != nil {
		return err
	}
	return applyMetricsStatsFlags(cmd)
}

func applyMetricsStatsFlags(cmd *cobra.Command) error {
	if cfg.Model == "" {
		return errors.New("--model is required")
	}
	names, err := cmd.Flags().GetStringSlice("metric")
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return errors.New("at least one --metric is required")
	}
	plot, err := cmd.Flags().GetBool("plot")
	if err != nil {
		return err
	}
	cfg.Plot = plot
	return nil
}
