package schema

import "time"

// ModelStoreStatus represents the status of the quality model store.
type ModelStoreStatus struct {
	Backend     string           `json:"backend"`
	Connected   bool             `json:"connected"`
	TotalModels int              `json:"total_models"`
	TableSizes  map[string]int64 `json:"table_sizes"`
}

// HistoryStatus represents the status of the assessment history store.
type HistoryStatus struct {
	Backend       string           `json:"backend"`
	Connected     bool             `json:"connected"`
	TotalRuns     int              `json:"total_runs"`
	LastRunID     string           `json:"last_run_id"`
	LastRunTime   time.Time        `json:"last_run_time"`
	OldestRunTime time.Time        `json:"oldest_run_time"`
	TotalScores   int              `json:"total_scores"`
	TableSizes    map[string]int64 `json:"table_sizes"`
}
