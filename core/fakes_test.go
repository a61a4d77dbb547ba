package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/huangsam/prosoul/internal/contract"
	"github.com/huangsam/prosoul/schema"
)

// fakeMetrics serves canned samples keyed by metric implementation.
type fakeMetrics struct {
	mu       sync.Mutex
	samples  map[string][]schema.ProjectSample
	errs     map[string]error
	projects []string
	listErr  error
	queried  []string
	windows  []schema.Window
}

var _ contract.MetricsStore = &fakeMetrics{}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{samples: map[string][]schema.ProjectSample{}, errs: map[string]error{}}
}

func (f *fakeMetrics) QueryMetric(_ context.Context, _ string, _ schema.MetricsBackend, data schema.MetricData, window schema.Window) ([]schema.ProjectSample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queried = append(f.queried, data.Implementation)
	f.windows = append(f.windows, window)
	if err := f.errs[data.Implementation]; err != nil {
		return nil, err
	}
	return f.samples[data.Implementation], nil
}

func (f *fakeMetrics) ListProjects(context.Context, string, schema.MetricsBackend, schema.Window) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.projects, nil
}

// fakeSink records every call in order.
type fakeSink struct {
	calls      []string
	docs       map[string][]contract.Document
	resetErr   error
	publishErr error
}

var _ contract.ScoreSink = &fakeSink{}

func newFakeSink() *fakeSink {
	return &fakeSink{docs: map[string][]contract.Document{}}
}

func (f *fakeSink) ResetIndex(_ context.Context, index string) error {
	f.calls = append(f.calls, "reset "+index)
	return f.resetErr
}

func (f *fakeSink) Publish(_ context.Context, index string, docs []contract.Document) (int, error) {
	f.calls = append(f.calls, fmt.Sprintf("publish %s %d", index, len(docs)))
	if f.publishErr != nil {
		return 0, f.publishErr
	}
	f.docs[index] = append(f.docs[index], docs...)
	return len(docs), nil
}

func (f *fakeSink) LinkAlias(_ context.Context, alias string, indices ...string) error {
	f.calls = append(f.calls, fmt.Sprintf("alias %s %v", alias, indices))
	return nil
}

func metric(name, impl, thresholds string) *schema.Metric {
	m := &schema.Metric{Name: name, Thresholds: thresholds}
	if impl != "" {
		m.Data = &schema.MetricData{Implementation: impl}
	}
	return m
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testConfig() *contract.Config {
	return &contract.Config{
		Index:     "metrics",
		Model:     "health",
		Backend:   schema.GrimoireLabBackend,
		StartTime: date(2020, 1, 1),
		EndTime:   date(2020, 10, 1),
		Workers:   2,
		Publish:   true,
		Output:    schema.TextOut,
		Report:    schema.BigNumberReport,
		Precision: 2,
	}
}

// healthModel has a root goal with one subgoal and a metric without data.
func healthModel() *schema.QualityModel {
	activity := &schema.Attribute{Name: "Activity", Metrics: []*schema.Metric{
		metric("commits", "scm_commits", "10,50,100"),
		metric("notes", "", "1,2"),
	}}
	people := &schema.Attribute{Name: "People", Metrics: []*schema.Metric{
		metric("authors", "scm_authors", ""),
	}}
	growth := &schema.Goal{Name: "Growth", Attributes: []*schema.Attribute{people}}
	community := &schema.Goal{Name: "Community", Attributes: []*schema.Attribute{activity}, Subgoals: []*schema.Goal{growth}}
	return &schema.QualityModel{Name: "health", Goals: []*schema.Goal{community}}
}

func healthMetrics() *fakeMetrics {
	f := newFakeMetrics()
	f.samples["scm_commits"] = []schema.ProjectSample{{Project: "alpha", Value: 75}, {Project: "beta", Value: 5}}
	f.samples["scm_authors"] = []schema.ProjectSample{{Project: "alpha", Value: 4}}
	f.projects = []string{"alpha", "beta", "gamma"}
	return f
}
