package core

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/huangsam/prosoul/core/algo"
	"github.com/huangsam/prosoul/internal/contract"
	"github.com/huangsam/prosoul/internal/outwriter"
	"github.com/huangsam/prosoul/schema"
)

// ListMetrics returns the metrics of every goal's directly attached
// attributes, in goal walk order.
func ListMetrics(model *schema.QualityModel) []schema.MetricEntry {
	var entries []schema.MetricEntry
	for _, g := range Goals(model) {
		for _, attr := range g.Attributes {
			if attr == nil {
				continue
			}
			for _, m := range attr.Metrics {
				if m == nil {
					continue
				}
				entry := schema.MetricEntry{Goal: g.Name, Attribute: attr.Name, Metric: m.Name}
				if m.Data != nil {
					entry.Implementation = m.Data.Implementation
					entry.CalculationType = schema.NormalizeCalculationType(m.Data.CalculationType)
				}
				entries = append(entries, entry)
			}
		}
	}
	return entries
}

// findMetric returns the first metric named name in walk order.
func findMetric(model *schema.QualityModel, name string) (*schema.Metric, error) {
	for _, g := range Goals(model) {
		for _, attr := range g.Attributes {
			if attr == nil {
				continue
			}
			for _, m := range attr.Metrics {
				if m != nil && m.Name == name {
					return m, nil
				}
			}
		}
	}
	return nil, fmt.Errorf("%s in model %s: %w", name, model.Name, contract.ErrMetricNotFound)
}

// MetricStats queries the raw value of one metric for every project in
// window and summarizes them. Samples are ordered by value, highest first.
func (a *Assessor) MetricStats(ctx context.Context, model *schema.QualityModel, name string, window schema.Window) (schema.MetricStats, error) {
	out := schema.MetricStats{Metric: name, Window: window}
	m, err := findMetric(model, name)
	if err != nil {
		return out, err
	}
	if m.Data == nil || m.Data.Implementation == "" {
		return out, fmt.Errorf("%s: %w", name, contract.ErrMetricNoData)
	}

	samples, err := a.store.QueryMetric(ctx, a.index, a.backend, *m.Data, window)
	if err != nil {
		return out, fmt.Errorf("query %s: %w", name, err)
	}
	sorted := make([]schema.ProjectSample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Value != sorted[j].Value {
			return sorted[i].Value > sorted[j].Value
		}
		return sorted[i].Project < sorted[j].Project
	})

	values := make([]float64, len(sorted))
	for i, s := range sorted {
		values[i] = s.Value
	}
	out.Samples = sorted
	out.Stats = algo.Stats(values)
	return out, nil
}

// ExecuteMetricsList prints the metrics of cfg.Model.
func ExecuteMetricsList(ctx context.Context, cfg *contract.Config, deps Deps) ([]schema.MetricEntry, error) {
	model, err := NewAssessor(cfg, deps.Metrics, deps.Models).loadModel(ctx, cfg.Model)
	if err != nil {
		return nil, err
	}
	entries := ListMetrics(model)
	if err := outwriter.NewOutWriter().WriteMetricList(model.Name, entries, cfg); err != nil {
		return entries, err
	}
	return entries, nil
}

// ExecuteMetricsStats computes and prints per-project values of the named
// metrics of cfg.Model over the configured window. The first unknown or
// dataless metric aborts before anything is printed.
func ExecuteMetricsStats(ctx context.Context, cfg *contract.Config, deps Deps, names []string) ([]schema.MetricStats, error) {
	if len(names) == 0 {
		return nil, errors.New("at least one metric name is required")
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	assessor := NewAssessor(cfg, deps.Metrics, deps.Models)
	model, err := assessor.loadModel(ctx, cfg.Model)
	if err != nil {
		return nil, err
	}

	results := make([]schema.MetricStats, 0, len(names))
	for _, name := range names {
		st, err := assessor.MetricStats(ctx, model, name, cfg.Window())
		if err != nil {
			return nil, err
		}
		results = append(results, st)
	}
	if err := outwriter.NewOutWriter().WriteMetricStats(results, cfg); err != nil {
		return results, err
	}
	return results, nil
}
