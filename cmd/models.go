package cmd

import (
	"fmt"
	"os"

	"github.com/huangsam/prosoul/internal/contract"
	"github.com/huangsam/prosoul/internal/modelstore"
	"github.com/huangsam/prosoul/internal/outwriter"
	"github.com/spf13/cobra"
)

// modelSetupWrapper wraps modelSetup to provide PreRunE for model commands.
func modelSetupWrapper(_ *cobra.Command, _ []string) error {
	return modelSetup()
}

// openModelStore opens the writable model store, refusing a models file.
func openModelStore() (*modelstore.Store, error) {
	if cfg.ModelsFile != "" {
		return nil, fmt.Errorf("--models-file is read-only; use 'prosoul models import %s' to store it", cfg.ModelsFile)
	}
	return modelstore.NewModelStore(cfg.ModelBackend, cfg.ModelDBConnect)
}

// modelsCmd focused on quality model management.
//
// Note: Model subcommands use minimal initialization (modelSetup) instead of
// the full sharedSetup used by assess. This avoids metrics store validation
// for simple model operations.
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Manage stored quality models",
	Long: `Manage the quality models that assessments are run against.

Models are stored as goal/attribute/metric trees in a database, or read
directly from a JSON or YAML file with --models-file.

Supported backends: SQLite (default), MySQL, PostgreSQL

Subcommands:
  list    - List model names
  show    - Print a model as a tree (or JSON outline)
  import  - Store every model of a JSON or YAML file
  delete  - Remove a stored model
  status  - Show model store statistics
  migrate - Run database schema migrations

Examples:
  # Import the GrimoireLab-style model file
  prosoul models import models.json

  # Show one model
  prosoul models show "CHAOSS health"`,
}

// modelsListCmd lists model names.
var modelsListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List all quality model names",
	PreRunE: modelSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		src, closeFn, err := openModelSource(cfg)
		if err != nil {
			contract.LogFatal("Cannot open models", err)
		}
		defer closeFn()

		names, err := src.ListModels(rootCtx)
		if err != nil {
			contract.LogFatal("Cannot list models", err)
		}
		if err := outwriter.NewOutWriter().WriteModelList(names, cfg); err != nil {
			contract.LogFatal("Cannot print models", err)
		}
	},
}

// modelsShowCmd prints one model.
var modelsShowCmd = &cobra.Command{
	Use:     "show <name>",
	Short:   "Print the goals, attributes and metrics of a model",
	Args:    cobra.ExactArgs(1),
	PreRunE: modelSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		src, closeFn, err := openModelSource(cfg)
		if err != nil {
			contract.LogFatal("Cannot open models", err)
		}
		defer closeFn()

		model, err := src.GetModel(rootCtx, args[0])
		if err != nil {
			closeFn()
			contract.LogFatal("Cannot load model", err)
		}
		if err := outwriter.NewOutWriter().WriteModel(model, cfg); err != nil {
			contract.LogFatal("Cannot print model", err)
		}
	},
}

// modelsImportCmd stores the models of a file.
var modelsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Store every model of a JSON or YAML file",
	Long: `Parse a model file and save each model, replacing stored models with the same name.

Both the {"qualityModels": [...]} layout and a single model object are
accepted. Metric data may be given inline (data_implementation, data_params)
or as a nested data object.

Examples:
  prosoul models import models.json
  prosoul models import health.yaml --model-backend postgresql --model-db-connect "host=... dbname=..."`,
	Args:    cobra.ExactArgs(1),
	PreRunE: modelSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		models, err := modelstore.LoadModelsFile(args[0])
		if err != nil {
			contract.LogFatal("Cannot read models file", err)
		}
		store, err := modelstore.NewModelStore(cfg.ModelBackend, cfg.ModelDBConnect)
		if err != nil {
			contract.LogFatal("Cannot open model store", err)
		}
		defer func() { _ = store.Close() }()

		names, err := modelstore.SaveModels(rootCtx, store, models)
		if err != nil {
			_ = store.Close()
			contract.LogFatal("Cannot import models", err)
		}
		for _, name := range names {
			fmt.Printf("📥 Imported %s\n", name)
		}
		fmt.Printf("Imported %d model(s) into %s.\n", len(names), cfg.ModelBackend)
	},
}

// modelsDeleteCmd removes a stored model.
var modelsDeleteCmd = &cobra.Command{
	Use:     "delete <name>",
	Short:   "Remove a stored model and its whole tree",
	Args:    cobra.ExactArgs(1),
	PreRunE: modelSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		store, err := openModelStore()
		if err != nil {
			contract.LogFatal("Cannot open model store", err)
		}
		defer func() { _ = store.Close() }()

		if err := store.DeleteModel(rootCtx, args[0]); err != nil {
			_ = store.Close()
			contract.LogFatal("Cannot delete model", err)
		}
		fmt.Printf("Model %s deleted.\n", args[0])
	},
}

// modelsStatusCmd shows model store status.
var modelsStatusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Display model store statistics and connection details",
	PreRunE: modelSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		store, err := openModelStore()
		if err != nil {
			contract.LogFatal("Cannot open model store", err)
		}
		defer func() { _ = store.Close() }()

		status, err := store.GetStatus(rootCtx)
		if err != nil {
			_ = store.Close()
			contract.LogFatal("Failed to get model store status", err)
		}
		outwriter.PrintModelStoreStatus(os.Stdout, status)
	},
}

// modelsMigrateCmd runs database migrations for the model store.
var modelsMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run model store schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the model store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  prosoul models migrate

  # Rollback to initial state
  prosoul models migrate --target-version 0`,
	PreRunE: modelSetupWrapper,
	Run: func(cmd *cobra.Command, _ []string) {
		target, _ := cmd.Flags().GetInt("target-version")
		result, err := modelstore.Migrate(cfg.ModelBackend, cfg.ModelDBConnect, target)
		if err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
		printMigrateResult("Model store", result.From, result.To, result.Changed)
	},
}

func printMigrateResult(store string, from, to uint, changed bool) {
	if !changed {
		fmt.Printf("%s already at version %d.\n", store, to)
		return
	}
	fmt.Printf("%s migrated from version %d to %d.\n", store, from, to)
}
