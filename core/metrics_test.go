package core

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/prosoul/internal/contract"
	"github.com/huangsam/prosoul/internal/modelstore"
	"github.com/huangsam/prosoul/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListMetrics(t *testing.T) {
	tests := []struct {
		name  string
		model *schema.QualityModel
		want  []schema.MetricEntry
	}{
		{
			name:  "goals in walk order",
			model: healthModel(),
			want: []schema.MetricEntry{
				{Goal: "Community", Attribute: "Activity", Metric: "commits", Implementation: "scm_commits", CalculationType: schema.CalcMax},
				{Goal: "Community", Attribute: "Activity", Metric: "notes"},
				{Goal: "Growth", Attribute: "People", Metric: "authors", Implementation: "scm_authors", CalculationType: schema.CalcMax},
			},
		},
		{
			name:  "empty model",
			model: &schema.QualityModel{Name: "empty"},
			want:  nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ListMetrics(tt.model))
		})
	}
}

func TestMetricStats(t *testing.T) {
	window := testConfig().Window()

	tests := []struct {
		name    string
		metric  string
		prepare func(store *fakeMetrics)
		want    schema.MetricStats
		wantErr error
	}{
		{
			name:   "values per project",
			metric: "commits",
			want: schema.MetricStats{
				Metric:  "commits",
				Window:  window,
				Samples: []schema.ProjectSample{{Project: "alpha", Value: 75}, {Project: "beta", Value: 5}},
				Stats:   schema.ReportStats{Projects: 2, Max: 75, Min: 5, Mean: 40, Median: 40, Stdev: 49.5},
			},
		},
		{
			name:   "highest value first then project name",
			metric: "commits",
			prepare: func(store *fakeMetrics) {
				store.samples["scm_commits"] = []schema.ProjectSample{{Project: "b", Value: 3}, {Project: "a", Value: 3}, {Project: "c", Value: 9}}
			},
			want: schema.MetricStats{
				Metric:  "commits",
				Window:  window,
				Samples: []schema.ProjectSample{{Project: "c", Value: 9}, {Project: "a", Value: 3}, {Project: "b", Value: 3}},
				Stats:   schema.ReportStats{Projects: 3, Max: 9, Min: 3, Mean: 5, Median: 3, Stdev: 3.46},
			},
		},
		{
			name:   "single project",
			metric: "authors",
			want: schema.MetricStats{
				Metric:  "authors",
				Window:  window,
				Samples: []schema.ProjectSample{{Project: "alpha", Value: 4}},
				Stats:   schema.ReportStats{Projects: 1, Max: 4, Min: 4, Mean: 4, Median: 4},
			},
		},
		{
			name:    "unknown metric",
			metric:  "stars",
			wantErr: contract.ErrMetricNotFound,
		},
		{
			name:    "metric without data",
			metric:  "notes",
			wantErr: contract.ErrMetricNoData,
		},
		{
			name:    "query failure",
			metric:  "commits",
			prepare: func(store *fakeMetrics) { store.errs["scm_commits"] = errBoom },
			wantErr: errBoom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := healthMetrics()
			if tt.prepare != nil {
				tt.prepare(store)
			}
			a := NewAssessor(testConfig(), store, nil)
			got, err := a.MetricStats(t.Context(), healthModel(), tt.metric, window)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, []schema.Window{window}, store.windows)
		})
	}
}

var errBoom = errors.New("boom")

func TestExecuteMetricsStats(t *testing.T) {
	cfg := testConfig()
	cfg.Output = schema.JSONOut
	cfg.OutputFile = filepath.Join(t.TempDir(), "stats.json")

	results, err := ExecuteMetricsStats(t.Context(), cfg, Deps{
		Metrics: healthMetrics(),
		Models:  modelstore.NewMemorySource(healthModel()),
	}, []string{"commits", "authors"})
	require.NoError(t, err)
	require.Len(t, results, 2)

	data, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	var printed []schema.MetricStats
	require.NoError(t, json.Unmarshal(data, &printed))
	require.Len(t, printed, 2)
	assert.Equal(t, "commits", printed[0].Metric)
	assert.Equal(t, 49.5, printed[0].Stats.Stdev)
	assert.Equal(t, "authors", printed[1].Metric)
	assert.Equal(t, []schema.ProjectSample{{Project: "alpha", Value: 4}}, printed[1].Samples)
}

func TestExecuteMetricsStatsErrors(t *testing.T) {
	tests := []struct {
		name    string
		models  contract.ModelSource
		names   []string
		wantErr error
	}{
		{"model not found", modelstore.NewMemorySource(), []string{"commits"}, contract.ErrModelNotFound},
		{"unknown metric", modelstore.NewMemorySource(healthModel()), []string{"commits", "stars"}, contract.ErrMetricNotFound},
		{"no names", modelstore.NewMemorySource(healthModel()), nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.OutputFile = filepath.Join(t.TempDir(), "stats.txt")
			_, err := ExecuteMetricsStats(t.Context(), cfg, Deps{Metrics: healthMetrics(), Models: tt.models}, tt.names)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			_, statErr := os.Stat(cfg.OutputFile)
			assert.True(t, os.IsNotExist(statErr), "nothing is printed on failure")
		})
	}
}

func TestExecuteMetricsList(t *testing.T) {
	cfg := testConfig()
	cfg.Output = schema.JSONOut
	cfg.OutputFile = filepath.Join(t.TempDir(), "metrics.json")

	entries, err := ExecuteMetricsList(t.Context(), cfg, Deps{Models: modelstore.NewMemorySource(healthModel())})
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	data, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	var printed struct {
		Model   string               `json:"model"`
		Metrics []schema.MetricEntry `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(data, &printed))
	assert.Equal(t, "health", printed.Model)
	assert.Equal(t, entries, printed.Metrics)

	_, err = ExecuteMetricsList(t.Context(), cfg, Deps{Models: modelstore.NewMemorySource()})
	assert.ErrorIs(t, err, contract.ErrModelNotFound)
}
