package schema

import "time"

// RunRecord represents a row from the prosoul_runs table.
type RunRecord struct {
	RunID        string
	Model        string
	Backend      string
	Index        string
	WindowStart  time.Time
	WindowEnd    time.Time
	StartTime    time.Time
	EndTime      *time.Time
	DurationMs   *int32
	TotalScores  int32
	ConfigParams *string
}

// ScoreRow represents a row from the prosoul_scores table.
type ScoreRow struct {
	RunID           string
	ScoreType       ScoreType
	WindowStart     time.Time
	WindowEnd       time.Time
	Goal            string
	Attribute       string
	Metric          string
	Project         string
	CalculationType string
	Score           *int32
	RawValue        *float64
	Placeholder     bool
}
