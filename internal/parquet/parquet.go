// Package parquet provides data structures and functions for exporting prosoul
// assessment data to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/huangsam/prosoul/schema"
	"github.com/parquet-go/parquet-go"
)

// AssessmentRun represents a single assessment run with metadata.
// This struct maps to the prosoul_runs database table.
type AssessmentRun struct {
	// RunID is the UUID of the run
	RunID string `parquet:"run_id,snappy"`

	// Model is the quality model that was assessed
	Model string `parquet:"model,snappy"`

	// Backend is the metrics backend layout of the index
	Backend string `parquet:"backend,snappy"`

	// Index is the metrics index that was queried
	Index string `parquet:"index,snappy"`

	// WindowStart and WindowEnd bound the assessed range
	WindowStart time.Time `parquet:"window_start,snappy"`
	WindowEnd   time.Time `parquet:"window_end,snappy"`

	// StartTime is when the run began (stored as TIMESTAMP with nanosecond precision)
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the run completed (nullable)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs is the duration of the run in milliseconds (nullable)
	RunDurationMs *int32 `parquet:"run_duration_ms,optional,snappy"`

	// TotalScores is the number of primary scores produced by the run
	TotalScores int32 `parquet:"total_scores,snappy"`

	// ConfigParams contains the JSON-encoded configuration parameters (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// Score is one leaf score of a run.
// This struct maps to the prosoul_scores database table.
type Score struct {
	RunID           string    `parquet:"run_id,snappy"`
	ScoreType       string    `parquet:"score_type,snappy"`
	WindowStart     time.Time `parquet:"window_start,snappy"`
	WindowEnd       time.Time `parquet:"window_end,snappy"`
	Goal            string    `parquet:"goal,snappy"`
	Attribute       string    `parquet:"attribute,snappy"`
	Metric          string    `parquet:"metric,snappy"`
	Project         string    `parquet:"project,snappy"`
	CalculationType string    `parquet:"calculation_type,snappy"`

	// Score is null when the metric has no thresholds or the row is a placeholder
	Score *int32 `parquet:"score,optional,snappy"`

	// RawValue is null for placeholders
	RawValue *float64 `parquet:"raw_value,optional,snappy"`

	Placeholder bool `parquet:"placeholder,snappy"`
}

// ProjectSummary is one row of a printed report.
type ProjectSummary struct {
	Rank    int32   `parquet:"rank,snappy"`
	Model   string  `parquet:"model,snappy"`
	Project string  `parquet:"project,snappy"`
	Average float64 `parquet:"average,snappy"`
	Label   string  `parquet:"label,snappy"`
	Scored  int32   `parquet:"scored,snappy"`
	Metrics int32   `parquet:"metrics,snappy"`
}

// Write encodes rows of T to w. The schema is derived from T's struct tags.
func Write[T any](w io.Writer, data []T) error {
	writer := parquet.NewGenericWriter[T](w)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

// WriteFile creates outputPath and writes rows of T to it.
func WriteFile[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()
	return Write(file, data)
}

// WriteAssessmentRunsParquet writes a slice of AssessmentRun structs to a Parquet file.
func WriteAssessmentRunsParquet(data []AssessmentRun, outputPath string) error {
	return WriteFile(data, outputPath)
}

// WriteScoresParquet writes a slice of Score structs to a Parquet file.
func WriteScoresParquet(data []Score, outputPath string) error {
	return WriteFile(data, outputPath)
}

// ConvertRunRecords converts schema.RunRecord to AssessmentRun for Parquet export.
func ConvertRunRecords(records []schema.RunRecord) []AssessmentRun {
	result := make([]AssessmentRun, len(records))
	for i, record := range records {
		result[i] = AssessmentRun{
			RunID:         record.RunID,
			Model:         record.Model,
			Backend:       record.Backend,
			Index:         record.Index,
			WindowStart:   record.WindowStart,
			WindowEnd:     record.WindowEnd,
			StartTime:     record.StartTime,
			EndTime:       record.EndTime,
			RunDurationMs: record.DurationMs,
			TotalScores:   record.TotalScores,
			ConfigParams:  record.ConfigParams,
		}
	}
	return result
}

// ConvertScoreRows converts schema.ScoreRow to Score for Parquet export.
func ConvertScoreRows(rows []schema.ScoreRow) []Score {
	result := make([]Score, len(rows))
	for i, row := range rows {
		result[i] = Score{
			RunID:           row.RunID,
			ScoreType:       string(row.ScoreType),
			WindowStart:     row.WindowStart,
			WindowEnd:       row.WindowEnd,
			Goal:            row.Goal,
			Attribute:       row.Attribute,
			Metric:          row.Metric,
			Project:         row.Project,
			CalculationType: row.CalculationType,
			Score:           row.Score,
			RawValue:        row.RawValue,
			Placeholder:     row.Placeholder,
		}
	}
	return result
}

// ConvertReport converts the ranked summaries of a report, labelling each
// average with label.
func ConvertReport(report schema.Report, label func(float64) string) []ProjectSummary {
	result := make([]ProjectSummary, len(report.Summaries))
	for i, s := range report.Summaries {
		result[i] = ProjectSummary{
			Rank:    int32(i + 1),
			Model:   report.Model,
			Project: s.Project,
			Average: s.Average,
			Label:   label(s.Average),
			Scored:  int32(s.Scored),
			Metrics: int32(s.Metrics),
		}
	}
	return result
}
