package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/huangsam/prosoul/core"
	"github.com/huangsam/prosoul/internal/contract"
	"github.com/spf13/cobra"
)

// assessCmd runs a full quarterly assessment and publishes the scores.
var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Score all projects against a quality model and publish the results.",
	Long: `Assess every project of the metrics index against a quality model.

The date range is split into 3-month windows stepping from --from-date (they
are not aligned to calendar quarters). For every window and for the whole
range the model is assessed and two sets of scores are published:
- <index>_scores_by_quarters / <index>_scores for projects with data
- the matching _diff indices with placeholders for projects without data

The score indices are reset at the start of every run and grouped under
<index>_scores_alias and <index>_scores_by_quarters_alias.

Examples:
  # Assess and publish with the default GrimoireLab layout
  prosoul assess --model "CHAOSS health" --index git_enriched

  # Dry run over one year with a stats report and a plot
  prosoul assess --model health --from-date 2023-01-01 --to-date 2023-12-31 --no-publish --report stats --plot

  # Read the model from a file and export per-project CSVs
  prosoul assess --models-file models.json --model health --csv-dir ./scores

  # Track runs in a history database
  prosoul assess --model health --history-backend sqlite`,
	PreRunE: sharedSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if cfg.Model == "" {
			contract.LogFatal("Cannot run assessment", errors.New("--model is required"))
		}
		deps, cleanup, err := openDeps(cfg, nil)
		if err != nil {
			contract.LogFatal("Cannot connect to stores", err)
		}
		defer cleanup()

		_, _ = fmt.Fprintf(os.Stderr, "🧠 prosoul: Assessing %s on %s (%s)\n", cfg.Model, cfg.Index, cfg.Backend)
		_, _ = fmt.Fprintf(os.Stderr, "📅 Range: %s → %s\n", contract.FormatDate(cfg.StartTime), contract.FormatDate(cfg.EndTime))

		result, err := core.ExecuteAssess(rootCtx, cfg, deps)
		if err != nil {
			cleanup()
			contract.LogFatal("Cannot run assessment", err)
		}
		if cfg.Publish {
			_, _ = fmt.Fprintf(os.Stderr, "📤 Published %d scores (run %s)\n", result.Published, result.RunID)
		}
	},
}
