package core

import (
	"errors"
	"testing"

	"github.com/huangsam/prosoul/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssessAttribute(t *testing.T) {
	store := newFakeMetrics()
	store.samples["scm_commits"] = []schema.ProjectSample{{Project: "alpha", Value: 75}}
	store.samples["its_open"] = []schema.ProjectSample{{Project: "alpha", Value: 5}}
	store.samples["scm_authors"] = []schema.ProjectSample{{Project: "alpha", Value: 4.5}}

	reverse := metric("open", "its_open", "10,50,100")
	reverse.Reverse = true
	reverse.Data.CalculationType = schema.CalcAvg
	attr := &schema.Attribute{Name: "Activity", Metrics: []*schema.Metric{
		metric("commits", "scm_commits", "10,50,100"),
		reverse,
		metric("authors", "scm_authors", ""),
	}}

	a := NewAssessor(testConfig(), store, nil)
	got, err := a.AssessAttribute(t.Context(), attr, schema.Window{Start: date(2020, 1, 1), End: date(2020, 4, 1)})
	require.NoError(t, err)

	assert.Equal(t, "Activity", got.Attribute)
	require.Len(t, got.Metrics, 3)

	commits := got.Metrics[0]
	assert.Equal(t, "scm_commits", commits.Metric)
	assert.Equal(t, schema.CalcMax, commits.CalculationType)
	require.NotNil(t, commits.Projects["alpha"].Score)
	assert.Equal(t, 2, *commits.Projects["alpha"].Score)
	assert.InDelta(t, 75.0, *commits.Projects["alpha"].RawValue, 1e-9)

	open := got.Metrics[1]
	assert.Equal(t, schema.CalcAvg, open.CalculationType)
	assert.Equal(t, 3, *open.Projects["alpha"].Score)

	authors := got.Metrics[2]
	assert.Nil(t, authors.Projects["alpha"].Score, "no thresholds means no score")
	assert.InDelta(t, 4.5, *authors.Projects["alpha"].RawValue, 1e-9)
}

func TestAssessAttributeSkipsMetricsWithoutData(t *testing.T) {
	store := newFakeMetrics()
	store.samples["scm_commits"] = []schema.ProjectSample{{Project: "alpha", Value: 1}}

	attr := &schema.Attribute{Name: "Activity", Metrics: []*schema.Metric{
		metric("unbound", "", "1,2"),
		nil,
		metric("empty", "scm_empty", "1,2"),
		metric("commits", "scm_commits", "1,2"),
	}}

	got, err := NewAssessor(testConfig(), store, nil).AssessAttribute(t.Context(), attr, schema.Window{})
	require.NoError(t, err)
	require.Len(t, got.Metrics, 1)
	assert.Equal(t, "scm_commits", got.Metrics[0].Metric)
	assert.ElementsMatch(t, []string{"scm_empty", "scm_commits"}, store.queried)
}

func TestAssessAttributeNoScorableMetrics(t *testing.T) {
	store := newFakeMetrics()
	attr := &schema.Attribute{Name: "Docs", Metrics: []*schema.Metric{metric("readme", "", "")}}

	got, err := NewAssessor(testConfig(), store, nil).AssessAttribute(t.Context(), attr, schema.Window{})
	require.NoError(t, err)
	assert.Empty(t, got.Metrics)
	assert.Empty(t, store.queried)
}

func TestAssessAttributeNoDataIsNotZero(t *testing.T) {
	store := newFakeMetrics()
	attr := &schema.Attribute{Name: "Activity", Metrics: []*schema.Metric{metric("commits", "scm_commits", "10,50,100")}}

	got, err := NewAssessor(testConfig(), store, nil).AssessAttribute(t.Context(), attr, schema.Window{})
	require.NoError(t, err)
	assert.Empty(t, got.Metrics)
}

func TestAssessAttributeInvalidThresholds(t *testing.T) {
	store := newFakeMetrics()
	attr := &schema.Attribute{Name: "Activity", Metrics: []*schema.Metric{metric("commits", "scm_commits", "10,abc")}}

	_, err := NewAssessor(testConfig(), store, nil).AssessAttribute(t.Context(), attr, schema.Window{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commits")
	assert.Empty(t, store.queried, "thresholds are checked before any query")
}

func TestAssessAttributeQueryError(t *testing.T) {
	store := newFakeMetrics()
	boom := errors.New("boom")
	store.errs["scm_commits"] = boom
	store.samples["scm_authors"] = []schema.ProjectSample{{Project: "alpha", Value: 1}}
	attr := &schema.Attribute{Name: "Activity", Metrics: []*schema.Metric{
		metric("authors", "scm_authors", ""),
		metric("commits", "scm_commits", "1"),
	}}

	_, err := NewAssessor(testConfig(), store, nil).AssessAttribute(t.Context(), attr, schema.Window{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestAssessAttributeDuplicateImplementation(t *testing.T) {
	store := newFakeMetrics()
	store.samples["scm_commits"] = []schema.ProjectSample{{Project: "alpha", Value: 75}}
	attr := &schema.Attribute{Name: "Activity", Metrics: []*schema.Metric{
		metric("commits", "scm_commits", "10,50,100"),
		metric("commits again", "scm_commits", "100,200"),
		metric("authors", "scm_authors", ""),
	}}
	store.samples["scm_authors"] = []schema.ProjectSample{{Project: "alpha", Value: 1}}

	got, err := NewAssessor(testConfig(), store, nil).AssessAttribute(t.Context(), attr, schema.Window{})
	require.NoError(t, err)
	require.Len(t, got.Metrics, 2)
	assert.Equal(t, "scm_commits", got.Metrics[0].Metric)
	assert.Equal(t, 0, *got.Metrics[0].Projects["alpha"].Score, "the later metric replaces the earlier one in place")
	assert.Equal(t, "scm_authors", got.Metrics[1].Metric)
}

func TestAssessAttributeMetricOrderWithManyWorkers(t *testing.T) {
	store := newFakeMetrics()
	var metrics []*schema.Metric
	want := make([]string, 0, 20)
	for i := range 20 {
		impl := "m" + string(rune('a'+i))
		store.samples[impl] = []schema.ProjectSample{{Project: "p", Value: float64(i)}}
		metrics = append(metrics, metric(impl, impl, ""))
		want = append(want, impl)
	}
	cfg := testConfig()
	cfg.Workers = 8

	got, err := NewAssessor(cfg, store, nil).AssessAttribute(t.Context(), &schema.Attribute{Name: "A", Metrics: metrics}, schema.Window{})
	require.NoError(t, err)
	names := make([]string, 0, len(got.Metrics))
	for _, m := range got.Metrics {
		names = append(names, m.Metric)
	}
	assert.Equal(t, want, names)
}
