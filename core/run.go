package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/prosoul/core/algo"
	"github.com/huangsam/prosoul/internal/contract"
	"github.com/huangsam/prosoul/internal/outwriter"
	"github.com/huangsam/prosoul/schema"
)

// IndexSet names the score indices and aliases derived from a metrics index.
type IndexSet struct {
	Scores        string
	ScoresDiff    string
	Quarters      string
	QuartersDiff  string
	ScoresAlias   string
	QuartersAlias string
}

// IndexNames returns the score indices for the metrics index base.
func IndexNames(base string) IndexSet {
	return IndexSet{
		Scores:        base + "_scores",
		ScoresDiff:    base + "_scores_diff",
		Quarters:      base + "_scores_by_quarters",
		QuartersDiff:  base + "_scores_by_quarters_diff",
		ScoresAlias:   base + "_scores_alias",
		QuartersAlias: base + "_scores_by_quarters_alias",
	}
}

// All lists every score index in reset order.
func (s IndexSet) All() []string {
	return []string{s.Scores, s.ScoresDiff, s.Quarters, s.QuartersDiff}
}

// Runner performs a full assess-and-publish run.
type Runner struct {
	cfg      *contract.Config
	assessor *Assessor
	sink     contract.ScoreSink   // nil disables publishing
	history  contract.HistoryStore // nil disables run tracking
	now      func() time.Time
}

// NewRunner wires a runner. sink and history may be nil.
func NewRunner(cfg *contract.Config, store contract.MetricsStore, models contract.ModelSource, sink contract.ScoreSink, history contract.HistoryStore) *Runner {
	if !cfg.Publish {
		sink = nil
	}
	return &Runner{
		cfg:      cfg,
		assessor: NewAssessor(cfg, store, models),
		sink:     sink,
		history:  history,
		now:      time.Now,
	}
}

// Assessor returns the assessor used by the runner.
func (r *Runner) Assessor() *Assessor {
	return r.assessor
}

// AssessAndPublish assesses the model once per quarter and once for the whole
// range, publishing primary and diff scores for each window.
//
// The model is loaded before any index is touched, so a missing model leaves
// the score indices alone. Any later store failure aborts the run and may
// leave the indices partially written. Once tracking has begun the run is
// always ended in history, failed or not.
func (r *Runner) AssessAndPublish(ctx context.Context) (*schema.RunResult, error) {
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	// --- 1. Load the model ---
	model, err := r.assessor.loadModel(ctx, r.cfg.Model)
	if err != nil {
		return nil, err
	}

	result := &schema.RunResult{
		RunID:     uuid.NewString(),
		Model:     model.Name,
		CreatedAt: r.now().UTC(),
	}
	indices := IndexNames(r.cfg.Index)
	r.beginRun(ctx, result)
	defer r.endRun(context.WithoutCancel(ctx), result)

	// --- 2. Reset the score indices ---
	if r.sink != nil {
		for _, index := range indices.All() {
			if err := r.sink.ResetIndex(ctx, index); err != nil {
				return nil, fmt.Errorf("reset %s: %w", index, err)
			}
		}
	}

	// --- 3. Quarters ---
	for _, w := range Quarters(r.cfg.StartTime, r.cfg.EndTime) {
		wr, err := r.assessWindow(ctx, model, w, schema.QuarterScore, indices.Quarters, indices.QuartersDiff, result)
		if err != nil {
			return nil, fmt.Errorf("quarter %s: %w", contract.FormatDate(w.Start), err)
		}
		result.Quarters = append(result.Quarters, wr)
	}

	// --- 4. Whole range ---
	all, err := r.assessWindow(ctx, model, r.cfg.Window(), schema.AllScore, indices.Scores, indices.ScoresDiff, result)
	if err != nil {
		return nil, fmt.Errorf("full range: %w", err)
	}
	result.All = all

	// --- 5. Aliases ---
	if r.sink != nil {
		if err := r.sink.LinkAlias(ctx, indices.QuartersAlias, indices.Quarters, indices.QuartersDiff); err != nil {
			return nil, err
		}
		if err := r.sink.LinkAlias(ctx, indices.ScoresAlias, indices.Scores, indices.ScoresDiff); err != nil {
			return nil, err
		}
	}

	// --- 6. Reshape and export ---
	result.Projects = algo.GoalsToProjects(all.Primary, all.Diff)
	if r.cfg.CSVDir != "" {
		if err := outwriter.NewOutWriter().WriteAssessmentCSV(r.cfg.CSVDir, result.Projects); err != nil {
			return nil, fmt.Errorf("write csv: %w", err)
		}
	}
	if all.Primary.Empty() {
		slog.Warn("assessment produced no scores", "model", model.Name, "index", r.cfg.Index)
	}

	return result, nil
}

// assessWindow computes primary and diff for one window and publishes both.
func (r *Runner) assessWindow(ctx context.Context, model *schema.QualityModel, w schema.Window, scoreType schema.ScoreType, index, diffIndex string, result *schema.RunResult) (schema.WindowResult, error) {
	primary, err := r.assessor.Assess(ctx, model, w, r.cfg.Attribute)
	if err != nil {
		return schema.WindowResult{}, err
	}
	diff, err := r.assessor.Diff(ctx, primary, w)
	if err != nil {
		return schema.WindowResult{}, err
	}
	wr := schema.WindowResult{Type: scoreType, Primary: primary, Diff: diff}

	meta := DocumentMeta{Type: scoreType, Window: w, CreatedAt: result.CreatedAt, RunID: result.RunID}
	primaryRecords := algo.Flatten(primary)
	diffRecords := algo.Flatten(diff)

	if r.sink != nil {
		n, err := r.sink.Publish(ctx, index, ToDocuments(primaryRecords, meta))
		result.Published += n
		if err != nil {
			return wr, err
		}
		n, err = r.sink.Publish(ctx, diffIndex, ToDocuments(diffRecords, meta))
		result.Published += n
		if err != nil {
			return wr, err
		}
		slog.Info("scores published", "index", index, "type", scoreType,
			"start", contract.FormatDate(w.Start), "scores", len(primaryRecords), "placeholders", len(diffRecords))
	}

	if r.history != nil {
		rows := ToScoreRows(primaryRecords, result.RunID, scoreType, w, false)
		rows = append(rows, ToScoreRows(diffRecords, result.RunID, scoreType, w, true)...)
		if err := r.history.RecordScores(ctx, rows); err != nil {
			contract.LogWarn("Failed to record scores", err)
		}
	}
	return wr, nil
}

// ToScoreRows converts records to history rows for one window.
func ToScoreRows(records []schema.ScoreRecord, runID string, scoreType schema.ScoreType, w schema.Window, placeholder bool) []schema.ScoreRow {
	rows := make([]schema.ScoreRow, 0, len(records))
	for _, rec := range records {
		row := schema.ScoreRow{
			RunID:           runID,
			ScoreType:       scoreType,
			WindowStart:     w.Start,
			WindowEnd:       w.End,
			Goal:            rec.Goal,
			Attribute:       rec.Attribute,
			Metric:          rec.Metric,
			Project:         rec.Project,
			CalculationType: string(rec.CalculationType),
			RawValue:        rec.RawValue,
			Placeholder:     placeholder,
		}
		if rec.Score != nil {
			s := int32(*rec.Score)
			row.Score = &s
		}
		rows = append(rows, row)
	}
	return rows
}

func (r *Runner) beginRun(ctx context.Context, result *schema.RunResult) {
	if r.history == nil {
		return
	}
	params, err := json.Marshal(map[string]any{
		"elastic_url": r.cfg.ElasticURL,
		"attribute":   r.cfg.Attribute,
		"workers":     r.cfg.Workers,
		"publish":     r.sink != nil,
	})
	var paramsStr *string
	if err == nil {
		s := string(params)
		paramsStr = &s
	}
	run := schema.RunRecord{
		RunID:        result.RunID,
		Model:        result.Model,
		Backend:      string(r.cfg.Backend),
		Index:        r.cfg.Index,
		WindowStart:  r.cfg.StartTime,
		WindowEnd:    r.cfg.EndTime,
		StartTime:    result.CreatedAt,
		ConfigParams: paramsStr,
	}
	if err := r.history.BeginRun(ctx, run); err != nil {
		contract.LogWarn("Run tracking initialization failed", err)
	}
}

func (r *Runner) endRun(ctx context.Context, result *schema.RunResult) {
	if r.history == nil {
		return
	}
	total := len(algo.Flatten(result.All.Primary))
	for _, q := range result.Quarters {
		total += len(algo.Flatten(q.Primary))
	}
	if err := r.history.EndRun(ctx, result.RunID, r.now().UTC(), total); err != nil {
		contract.LogWarn("Failed to finalize run tracking", err)
	}
}
