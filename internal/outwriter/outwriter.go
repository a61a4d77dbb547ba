// Package outwriter has output and writer logic.
package outwriter

import (
	"time"

	"github.com/huangsam/prosoul/internal/contract"
	"github.com/huangsam/prosoul/schema"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the core logic.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteReport prints the assessment report using the configured output format.
func (ow *OutWriter) WriteReport(report schema.Report, cfg *contract.Config, duration time.Duration) error {
	return PrintReport(report, cfg, duration)
}

// WriteAssessmentCSV exports the project view of an assessment to dir.
func (ow *OutWriter) WriteAssessmentCSV(dir string, pa schema.ProjectAssessment) error {
	return WriteAssessmentCSV(dir, pa)
}

// WriteModel prints one quality model using the configured output format.
func (ow *OutWriter) WriteModel(model *schema.QualityModel, cfg *contract.Config) error {
	return PrintModel(model, cfg)
}

// WriteModelList prints the stored model names using the configured output format.
func (ow *OutWriter) WriteModelList(names []string, cfg *contract.Config) error {
	return PrintModelList(names, cfg)
}

// WriteMetricList prints the metrics of a model using the configured output format.
func (ow *OutWriter) WriteMetricList(model string, entries []schema.MetricEntry, cfg *contract.Config) error {
	return PrintMetricList(model, entries, cfg)
}

// WriteMetricStats prints per-project metric values using the configured output format.
func (ow *OutWriter) WriteMetricStats(stats []schema.MetricStats, cfg *contract.Config) error {
	return PrintMetricStats(stats, cfg)
}
