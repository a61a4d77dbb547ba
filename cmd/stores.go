package cmd

import (
	"fmt"
	"os"

	"github.com/huangsam/prosoul/core"
	"github.com/huangsam/prosoul/internal/contract"
	"github.com/huangsam/prosoul/internal/esclient"
	"github.com/huangsam/prosoul/internal/history"
	"github.com/huangsam/prosoul/internal/modelstore"
	"github.com/huangsam/prosoul/schema"
	"github.com/spf13/viper"
)

// openModelSource returns the models file when one is configured and the
// model store otherwise.
func openModelSource(c *contract.Config) (contract.ModelSource, func(), error) {
	if c.ModelsFile != "" {
		src, err := modelstore.NewFileSource(c.ModelsFile)
		if err != nil {
			return nil, nil, err
		}
		return src, func() {}, nil
	}
	store, err := modelstore.NewModelStore(c.ModelBackend, c.ModelDBConnect)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open model store: %w", err)
	}
	return store, func() { _ = store.Close() }, nil
}

// openDeps connects every store an assessment needs. metrics may be nil.
// The returned cleanup closes whatever was opened.
func openDeps(c *contract.Config, metrics *esclient.Metrics) (core.Deps, func(), error) {
	var deps core.Deps
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	client, err := esclient.New(esclient.Options{URL: c.ElasticURL, Insecure: c.Insecure, Metrics: metrics})
	if err != nil {
		return deps, cleanup, err
	}
	deps.Metrics = client
	deps.Sink = client

	models, closeModels, err := openModelSource(c)
	if err != nil {
		return deps, cleanup, err
	}
	closers = append(closers, closeModels)
	deps.Models = models

	if c.HistoryBackend != schema.NoneBackend {
		hs, err := history.NewHistoryStore(c.HistoryBackend, c.HistoryDBConnect)
		if err != nil {
			cleanup()
			return deps, func() {}, fmt.Errorf("failed to open history store: %w", err)
		}
		closers = append(closers, func() { _ = hs.Close() })
		deps.History = hs
	}
	return deps, cleanup, nil
}

// modelSetup loads the minimal configuration needed for model management.
// It skips the metrics store and date validation done by sharedSetup.
func modelSetup() error {
	if err := loadConfigFile(); err != nil {
		return err
	}
	contract.InitLogger(os.Stderr, viper.GetBool("debug"))

	backend, err := contract.ParseDatabaseBackend(viper.GetString("model-backend"), schema.SQLiteBackend)
	if err != nil {
		return err
	}
	connStr := viper.GetString("model-db-connect")
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}

	cfg.ModelBackend = backend
	cfg.ModelDBConnect = connStr
	cfg.ModelsFile = viper.GetString("models-file")
	return outputSetup()
}

// historySetup loads the minimal configuration needed for history management.
func historySetup() error {
	if err := loadConfigFile(); err != nil {
		return err
	}
	contract.InitLogger(os.Stderr, viper.GetBool("debug"))

	backend, err := contract.ParseDatabaseBackend(viper.GetString("history-backend"), schema.NoneBackend)
	if err != nil {
		return err
	}
	connStr := viper.GetString("history-db-connect")
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}

	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr
	return outputSetup()
}

// outputSetup reads the output flags shared by management commands.
func outputSetup() error {
	cfg.Output = schema.OutputMode(viper.GetString("output"))
	if cfg.Output != schema.TextOut && cfg.Output != schema.JSONOut {
		return fmt.Errorf("invalid output format '%s'. management commands support text, json", cfg.Output)
	}
	cfg.OutputFile = viper.GetString("output-file")
	return nil
}
