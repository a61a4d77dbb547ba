// Package history records assessment runs and their scores in SQL databases.
package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/huangsam/prosoul/internal/contract"
	"github.com/huangsam/prosoul/internal/sqldb"
	"github.com/huangsam/prosoul/schema"
)

// Table names for run tracking.
const (
	runsTable              = "prosoul_runs"
	scoresTable            = "prosoul_scores"
	historyMigrationsTable = "prosoul_history_migrations"
)

//go:embed migrations
var migrationsFS embed.FS

func migrations() sqldb.Migrations {
	sub, _ := fs.Sub(migrationsFS, "migrations")
	return sqldb.Migrations{FS: sub, Table: historyMigrationsTable}
}

// Store implements contract.HistoryStore on database/sql. With the none
// backend every write is skipped.
type Store struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.HistoryStore = &Store{} // Compile-time check

// NewHistoryStore opens the history store for backend and migrates it to the latest schema.
func NewHistoryStore(backend schema.DatabaseBackend, connStr string) (*Store, error) {
	if backend == schema.NoneBackend {
		// Return a no-op store for disabled tracking
		return &Store{backend: backend}, nil
	}
	db, err := sqldb.Open(backend, connStr, contract.GetHistoryDBFilePath())
	if err != nil {
		return nil, err
	}
	if _, err := sqldb.Migrate(db, backend, migrations(), -1); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history tables: %w", err)
	}
	return &Store{db: db, backend: backend}, nil
}

// Migrate runs history migrations to targetVersion (see sqldb.Migrate).
func Migrate(backend schema.DatabaseBackend, connStr string, targetVersion int) (sqldb.MigrateResult, error) {
	if backend == schema.NoneBackend {
		return sqldb.MigrateResult{}, fmt.Errorf("migrations are not supported for NoneBackend")
	}
	db, err := sqldb.Open(backend, connStr, contract.GetHistoryDBFilePath())
	if err != nil {
		return sqldb.MigrateResult{}, err
	}
	defer func() { _ = db.Close() }()
	return sqldb.Migrate(db, backend, migrations(), targetVersion)
}

func (s *Store) disabled() bool {
	return s.backend == schema.NoneBackend || s.db == nil
}

func (s *Store) q(query string) string {
	return sqldb.Rebind(query, s.backend)
}

func (s *Store) table(name string) string {
	return sqldb.QuoteTable(name, s.backend)
}

func (s *Store) ts(t time.Time) any {
	return sqldb.FormatTime(t, s.backend)
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// BeginRun records the start of an assessment run.
func (s *Store) BeginRun(ctx context.Context, run schema.RunRecord) error {
	if s.disabled() {
		return nil
	}
	if run.RunID == "" {
		return errors.New("run id is required")
	}
	query := s.q(fmt.Sprintf(`INSERT INTO %s (run_id, model, backend, index_name, window_start, window_end,
		start_time, total_scores, config_params) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table(runsTable)))
	_, err := s.db.ExecContext(ctx, query,
		run.RunID, run.Model, run.Backend, run.Index,
		s.ts(run.WindowStart), s.ts(run.WindowEnd), s.ts(run.StartTime),
		run.TotalScores, run.ConfigParams)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.RunID, err)
	}
	return nil
}

// RecordScores stores the scores produced for one window of a run.
func (s *Store) RecordScores(ctx context.Context, rows []schema.ScoreRow) error {
	if s.disabled() || len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, s.q(fmt.Sprintf(`INSERT INTO %s (run_id, score_type, window_start, window_end,
		goal, attribute, metric, project, calculation_type, score, raw_value, placeholder)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table(scoresTable))))
	if err != nil {
		return fmt.Errorf("failed to prepare score insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx,
			r.RunID, string(r.ScoreType), s.ts(r.WindowStart), s.ts(r.WindowEnd),
			r.Goal, r.Attribute, r.Metric, r.Project, r.CalculationType,
			r.Score, r.RawValue, r.Placeholder); err != nil {
			return fmt.Errorf("failed to insert score for %s/%s: %w", r.Metric, r.Project, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit scores: %w", err)
	}
	return nil
}

// EndRun updates the run with completion data.
func (s *Store) EndRun(ctx context.Context, runID string, endTime time.Time, totalScores int) error {
	if s.disabled() {
		return nil
	}

	// First, get the start_time to calculate duration
	var start sqldb.TimeValue
	err := s.db.QueryRowContext(ctx, s.q(fmt.Sprintf("SELECT start_time FROM %s WHERE run_id = ?", s.table(runsTable))), runID).Scan(&start)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("run %s was never started", runID)
	}
	if err != nil {
		return fmt.Errorf("failed to get start_time for run %s: %w", runID, err)
	}
	durationMs := endTime.Sub(start.Time).Milliseconds()

	query := s.q(fmt.Sprintf("UPDATE %s SET end_time = ?, run_duration_ms = ?, total_scores = ? WHERE run_id = ?", s.table(runsTable)))
	if _, err := s.db.ExecContext(ctx, query, s.ts(endTime), durationMs, totalScores, runID); err != nil {
		return fmt.Errorf("failed to update run %s: %w", runID, err)
	}
	slog.Debug("run recorded", "run_id", runID, "scores", totalScores, "duration_ms", durationMs)
	return nil
}

// GetStatus returns status information about the history store.
func (s *Store) GetStatus(ctx context.Context) (schema.HistoryStatus, error) {
	status := schema.HistoryStatus{
		Backend:    string(s.backend),
		Connected:  s.db != nil,
		TableSizes: make(map[string]int64),
	}
	if s.disabled() {
		return status, nil
	}

	sizes, err := sqldb.CountRows(ctx, s.db, s.backend, runsTable, scoresTable)
	if err != nil {
		return status, err
	}
	status.TableSizes = sizes
	status.TotalRuns = int(sizes[runsTable])
	if status.TotalRuns == 0 {
		return status, nil
	}

	// Get last run info
	var last, oldest sqldb.TimeValue
	lastQuery := fmt.Sprintf("SELECT run_id, start_time FROM %s ORDER BY id DESC LIMIT 1", s.table(runsTable))
	if err := s.db.QueryRowContext(ctx, lastQuery).Scan(&status.LastRunID, &last); err != nil {
		return status, fmt.Errorf("failed to get last run info: %w", err)
	}
	status.LastRunTime = last.Time

	oldestQuery := fmt.Sprintf("SELECT start_time FROM %s ORDER BY id ASC LIMIT 1", s.table(runsTable))
	if err := s.db.QueryRowContext(ctx, oldestQuery).Scan(&oldest); err != nil {
		return status, fmt.Errorf("failed to get oldest run time: %w", err)
	}
	status.OldestRunTime = oldest.Time

	scoresQuery := fmt.Sprintf("SELECT COALESCE(SUM(total_scores), 0) FROM %s", s.table(runsTable))
	if err := s.db.QueryRowContext(ctx, scoresQuery).Scan(&status.TotalScores); err != nil {
		return status, fmt.Errorf("failed to get total scores: %w", err)
	}
	return status, nil
}

// ListRuns returns every recorded run, oldest first.
func (s *Store) ListRuns(ctx context.Context) ([]schema.RunRecord, error) {
	if s.disabled() {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, model, backend, index_name, window_start, window_end,
		start_time, end_time, run_duration_ms, total_scores, config_params FROM %s ORDER BY id`, s.table(runsTable))
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.RunRecord
	for rows.Next() {
		var r schema.RunRecord
		var windowStart, windowEnd, start, end sqldb.TimeValue
		if err := rows.Scan(&r.RunID, &r.Model, &r.Backend, &r.Index, &windowStart, &windowEnd,
			&start, &end, &r.DurationMs, &r.TotalScores, &r.ConfigParams); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.WindowStart, r.WindowEnd, r.StartTime = windowStart.Time, windowEnd.Time, start.Time
		r.EndTime = end.Ptr()
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return results, nil
}

// ListScores returns the scores of one run in insertion order. An empty
// runID returns the scores of every run.
func (s *Store) ListScores(ctx context.Context, runID string) ([]schema.ScoreRow, error) {
	if s.disabled() {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, score_type, window_start, window_end, goal, attribute, metric,
		project, calculation_type, score, raw_value, placeholder FROM %s`, s.table(scoresTable))
	var args []any
	if runID != "" {
		query += " WHERE run_id = ?"
		args = append(args, runID)
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scores: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.ScoreRow
	for rows.Next() {
		var r schema.ScoreRow
		var scoreType string
		var windowStart, windowEnd sqldb.TimeValue
		if err := rows.Scan(&r.RunID, &scoreType, &windowStart, &windowEnd, &r.Goal, &r.Attribute, &r.Metric,
			&r.Project, &r.CalculationType, &r.Score, &r.RawValue, &r.Placeholder); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		r.ScoreType = schema.ScoreType(scoreType)
		r.WindowStart, r.WindowEnd = windowStart.Time, windowEnd.Time
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scores: %w", err)
	}
	return results, nil
}

// Clear deletes every run and score.
func (s *Store) Clear(ctx context.Context) error {
	if s.disabled() {
		return nil
	}
	for _, table := range []string{scoresTable, runsTable} {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", s.table(table))); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}
