package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/huangsam/prosoul/internal/parquet"
)

// ExportResult names the files written by Export and their row counts.
type ExportResult struct {
	RunsFile   string
	ScoresFile string
	Runs       int
	Scores     int
}

// Export writes every run and score to two Parquet files next to outputFile.
func Export(ctx context.Context, store *Store, outputFile string) (ExportResult, error) {
	var result ExportResult
	if outputFile == "" {
		return result, errors.New("--output-file is required for export command")
	}

	status, err := store.GetStatus(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to get history status: %w", err)
	}
	if status.TotalRuns == 0 {
		return result, errors.New("no assessment history found to export")
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to retrieve runs: %w", err)
	}
	scores, err := store.ListScores(ctx, "")
	if err != nil {
		return result, fmt.Errorf("failed to retrieve scores: %w", err)
	}

	result.RunsFile = outputFile + ".runs.parquet"
	if err := parquet.WriteAssessmentRunsParquet(parquet.ConvertRunRecords(runs), result.RunsFile); err != nil {
		return result, fmt.Errorf("failed to write runs: %w", err)
	}
	result.Runs = len(runs)

	result.ScoresFile = outputFile + ".scores.parquet"
	if err := parquet.WriteScoresParquet(parquet.ConvertScoreRows(scores), result.ScoresFile); err != nil {
		return result, fmt.Errorf("failed to write scores: %w", err)
	}
	result.Scores = len(scores)
	return result, nil
}
