package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/huangsam/prosoul/core/algo"
	"github.com/huangsam/prosoul/internal/contract"
	"github.com/huangsam/prosoul/schema"
	"golang.org/x/sync/errgroup"
)

// Assessor scores quality models against one metrics index.
type Assessor struct {
	store   contract.MetricsStore
	models  contract.ModelSource
	index   string
	backend schema.MetricsBackend
	workers int
}

// NewAssessor creates an assessor for the index and backend in cfg.
func NewAssessor(cfg *contract.Config, store contract.MetricsStore, models contract.ModelSource) *Assessor {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Assessor{
		store:   store,
		models:  models,
		index:   cfg.Index,
		backend: cfg.Backend,
		workers: workers,
	}
}

// scoredMetric is a metric bound to data with its thresholds parsed.
type scoredMetric struct {
	metric     *schema.Metric
	thresholds []float64
}

// AssessAttribute scores every metric of attr that has metric data.
//
// Metrics without data and metrics whose query returns no samples produce no
// entry. Up to the configured number of workers query the store at once and
// results are merged in metric order. Any query error aborts the attribute.
func (a *Assessor) AssessAttribute(ctx context.Context, attr *schema.Attribute, window schema.Window) (schema.AttributeAssessment, error) {
	result := schema.AttributeAssessment{Attribute: attr.Name}
	slog.Debug("assessing attribute", "attribute", attr.Name, "start", contract.FormatDate(window.Start), "end", contract.FormatDate(window.End))

	// --- 1. Keep metrics with data and valid thresholds ---
	var metrics []scoredMetric
	for _, m := range attr.Metrics {
		if m == nil {
			continue
		}
		if m.Data == nil || m.Data.Implementation == "" {
			slog.Debug("metric has no data, skipping", "attribute", attr.Name, "metric", m.Name)
			continue
		}
		thresholds, err := algo.ParseThresholds(m.Thresholds)
		if err != nil {
			return result, fmt.Errorf("metric %s: %w", m.Name, err)
		}
		metrics = append(metrics, scoredMetric{metric: m, thresholds: thresholds})
	}
	if len(metrics) == 0 {
		return result, nil
	}

	// --- 2. Query in parallel, one slot per metric ---
	samples := make([][]schema.ProjectSample, len(metrics))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, sm := range metrics {
		g.Go(func() error {
			s, err := a.store.QueryMetric(gctx, a.index, a.backend, *sm.metric.Data, window)
			if err != nil {
				return fmt.Errorf("query metric %s: %w", sm.metric.Data.Implementation, err)
			}
			samples[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	// --- 3. Classify and merge in metric order ---
	position := make(map[string]int)
	for i, sm := range metrics {
		name := sm.metric.Data.Implementation
		if len(samples[i]) == 0 {
			slog.Debug("metric has no values in window, skipping", "attribute", attr.Name, "metric", name)
			continue
		}
		ma := classifySamples(name, sm, samples[i])
		if pos, ok := position[name]; ok {
			result.Metrics[pos] = ma
			continue
		}
		position[name] = len(result.Metrics)
		result.Metrics = append(result.Metrics, ma)
	}
	return result, nil
}

// classifySamples records the raw value of every sample and its score when
// the metric has thresholds.
func classifySamples(name string, sm scoredMetric, samples []schema.ProjectSample) schema.MetricAssessment {
	ma := schema.MetricAssessment{
		Metric:          name,
		CalculationType: schema.NormalizeCalculationType(sm.metric.Data.CalculationType),
		Projects:        make(map[string]schema.ScoreEntry, len(samples)),
	}
	for _, s := range samples {
		entry := schema.ScoreEntry{RawValue: schema.FloatPtr(s.Value)}
		if score, ok := algo.Classify(s.Value, sm.thresholds, sm.metric.Reverse); ok {
			entry.Score = schema.IntPtr(score)
			slog.Debug("scored project", "project", s.Project, "metric", name, "value", s.Value,
				"score", score, "level", schema.ScoreLabel(entry.Score, len(sm.thresholds)))
		}
		ma.Projects[s.Project] = entry
	}
	return ma
}
