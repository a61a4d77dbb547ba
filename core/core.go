// Package core has core logic for walking quality models, scoring projects and publishing results.
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/huangsam/prosoul/core/algo"
	"github.com/huangsam/prosoul/internal/contract"
	"github.com/huangsam/prosoul/internal/outwriter"
	"github.com/huangsam/prosoul/schema"
)

// Deps bundles the stores an assessment talks to.
type Deps struct {
	Metrics contract.MetricsStore
	Models  contract.ModelSource
	Sink    contract.ScoreSink    // nil disables publishing
	History contract.HistoryStore // nil disables run tracking
}

// ExecuteAssess runs the full assess-and-publish pass and prints the report.
// It serves as the main entry point for the 'assess' command.
func ExecuteAssess(ctx context.Context, cfg *contract.Config, deps Deps) (*schema.RunResult, error) {
	start := time.Now()
	runner := NewRunner(cfg, deps.Metrics, deps.Models, deps.Sink, deps.History)
	result, err := runner.AssessAndPublish(ctx)
	if err != nil {
		return nil, err
	}
	if result.All.Primary.Empty() {
		contract.LogWarn("Nothing to show for "+result.Model, contract.ErrEmptyAssessment)
	}
	report := algo.BuildReport(cfg.Report, result.Model, result.Projects)
	if err := outwriter.NewOutWriter().WriteReport(report, cfg, time.Since(start)); err != nil {
		return result, err
	}
	return result, nil
}

// Assessment is a single-window assessment that was not published.
type Assessment struct {
	Primary  *schema.ModelAssessment
	Diff     *schema.ModelAssessment
	Projects schema.ProjectAssessment
	Report   schema.Report
}

// AssessWindow assesses cfg.Model over the whole configured window without
// touching any score index. An assessment without a single entry is
// returned together with contract.ErrEmptyAssessment.
func AssessWindow(ctx context.Context, cfg *contract.Config, deps Deps) (*Assessment, error) {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	assessor := NewAssessor(cfg, deps.Metrics, deps.Models)
	primary, err := assessor.AssessModel(ctx, cfg.Model, cfg.Window(), cfg.Attribute)
	if err != nil {
		return nil, err
	}
	diff, err := assessor.Diff(ctx, primary, cfg.Window())
	if err != nil {
		return nil, err
	}

	a := &Assessment{Primary: primary, Diff: diff}
	a.Projects = algo.GoalsToProjects(primary, diff)
	a.Report = algo.BuildReport(cfg.Report, primary.Model, a.Projects)
	if primary.Empty() {
		return a, fmt.Errorf("model %s: %w", primary.Model, contract.ErrEmptyAssessment)
	}
	return a, nil
}
