// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/prosoul/schema"
)

// MetricsStore defines the read side of the metrics index.
// This allows the assessment logic to be tested without a running search engine.
type MetricsStore interface {
	// QueryMetric returns one aggregated value per project for a metric data source.
	// An empty result is not an error.
	QueryMetric(ctx context.Context, index string, backend schema.MetricsBackend, data schema.MetricData, window schema.Window) ([]schema.ProjectSample, error)

	// ListProjects returns every project with any data in the window.
	ListProjects(ctx context.Context, index string, backend schema.MetricsBackend, window schema.Window) ([]string, error)
}

// ScoreSink defines the write side for published scores.
type ScoreSink interface {
	// ResetIndex deletes the index if it exists and creates it empty.
	ResetIndex(ctx context.Context, index string) error

	// Publish writes the documents to the index and makes them searchable.
	// It returns the number of documents written.
	Publish(ctx context.Context, index string, docs []Document) (int, error)

	// LinkAlias registers every index under the alias.
	LinkAlias(ctx context.Context, alias string, indices ...string) error
}

// Document is one score document addressed by a stable ID.
type Document struct {
	ID     string
	Source map[string]any
}

// ModelSource provides read-only access to quality models.
type ModelSource interface {
	// GetModel returns the model with the given name or ErrModelNotFound.
	GetModel(ctx context.Context, name string) (*schema.QualityModel, error)

	// ListModels returns all model names in sorted order.
	ListModels(ctx context.Context) ([]string, error)
}

// ModelStore is a ModelSource that can also persist models.
type ModelStore interface {
	ModelSource

	// SaveModel inserts or replaces a model and its whole tree.
	SaveModel(ctx context.Context, model *schema.QualityModel) error

	// DeleteModel removes a model and its whole tree by name.
	DeleteModel(ctx context.Context, name string) error

	// GetStatus returns status information about the model store
	GetStatus(ctx context.Context) (schema.ModelStoreStatus, error)

	// Close closes the underlying connection
	Close() error
}

// HistoryStore defines the interface for tracking assessment runs and their scores.
type HistoryStore interface {
	// BeginRun records the start of an assessment run
	BeginRun(ctx context.Context, run schema.RunRecord) error

	// RecordScores stores the scores produced for one window of a run
	RecordScores(ctx context.Context, rows []schema.ScoreRow) error

	// EndRun updates the run with completion data
	EndRun(ctx context.Context, runID string, endTime time.Time, totalScores int) error

	// GetStatus returns status information about the history store
	GetStatus(ctx context.Context) (schema.HistoryStatus, error)

	// Close closes the underlying connection
	Close() error
}
