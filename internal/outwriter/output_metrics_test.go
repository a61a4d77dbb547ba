package outwriter

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/huangsam/prosoul/internal/contract"
	"github.com/huangsam/prosoul/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMetricStats() schema.MetricStats {
	return schema.MetricStats{
		Metric:  "commits",
		Samples: []schema.ProjectSample{{Project: "alpha", Value: 75}, {Project: "beta", Value: 5}},
		Stats:   schema.ReportStats{Projects: 2, Max: 75, Min: 5, Mean: 40, Median: 40, Stdev: 49.5},
	}
}

func TestWriteMetricStatsText(t *testing.T) {
	tests := []struct {
		name     string
		stats    schema.MetricStats
		plot     bool
		contains []string
		bars     int
	}{
		{
			name:  "table and summary",
			stats: sampleMetricStats(),
			contains: []string{
				"Total number of projects for commits: 2\n",
				"alpha",
				"75.00",
				"max: 75.00, min: 5.00, mean: 40.00, median: 40.00, stdev: 49.50\n",
			},
		},
		{
			name:     "with plot",
			stats:    sampleMetricStats(),
			plot:     true,
			contains: []string{"stdev: 49.50\n"},
			bars:     2,
		},
		{
			name:     "no projects",
			stats:    schema.MetricStats{Metric: "stars"},
			plot:     true,
			contains: []string{"Total number of projects for stars: 0\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &contract.Config{Width: 100, Plot: tt.plot}
			var buf bytes.Buffer
			require.NoError(t, writeMetricStatsText(&buf, tt.stats, cfg, createFormatter(2)))
			for _, want := range tt.contains {
				assert.Contains(t, buf.String(), want)
			}
			assert.Equal(t, tt.bars, strings.Count(buf.String(), "│ "+plotBar))
		})
	}
}

func TestWriteBars(t *testing.T) {
	rows := []plotRow{{name: "up", value: 10}, {name: "zero", value: 0}, {name: "down", value: -4}}
	var buf bytes.Buffer
	require.NoError(t, writeBars(&buf, rows, &contract.Config{Width: 60}, createFormatter(0), nil))

	lines := strings.Split(strings.Trim(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Positive(t, strings.Count(lines[0], plotBar))
	assert.Zero(t, strings.Count(lines[1], plotBar))
	assert.Zero(t, strings.Count(lines[2], plotBar))
	assert.True(t, strings.HasSuffix(lines[2], " -4"))
}

func TestPrintMetricStatsToFile(t *testing.T) {
	tests := []struct {
		name    string
		output  schema.OutputMode
		want    string
		wantErr bool
	}{
		{name: "csv", output: schema.CSVOut, want: "metric,project,value\ncommits,alpha,75.00\ncommits,beta,5.00\n"},
		{name: "json", output: schema.JSONOut, want: `"stdev": 49.5`},
		{name: "text", output: schema.TextOut, want: "Total number of projects for commits: 2"},
		{name: "parquet", output: schema.ParquetOut, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "stats")
			cfg := &contract.Config{Output: tt.output, OutputFile: path, Precision: 2, Width: 100}
			err := PrintMetricStats([]schema.MetricStats{sampleMetricStats()}, cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Contains(t, string(data), tt.want)
		})
	}
}

func TestPrintMetricList(t *testing.T) {
	entries := []schema.MetricEntry{
		{Goal: "Community", Attribute: "Activity", Metric: "commits", Implementation: "scm_commits", CalculationType: schema.CalcMax},
		{Goal: "Community", Attribute: "Activity", Metric: "notes"},
	}

	tests := []struct {
		name    string
		output  schema.OutputMode
		entries []schema.MetricEntry
		want    []string
	}{
		{
			name:    "text",
			output:  schema.TextOut,
			entries: entries,
			want:    []string{"scm_commits", "notes", "2 metrics in health\n"},
		},
		{
			name:    "csv",
			output:  schema.CSVOut,
			entries: entries,
			want:    []string{"goal,attribute,metric,implementation,calculation_type\nCommunity,Activity,commits,scm_commits,max\nCommunity,Activity,notes,,\n"},
		},
		{
			name:    "json",
			output:  schema.JSONOut,
			entries: entries,
			want:    []string{`"model": "health"`, `"implementation": "scm_commits"`},
		},
		{
			name:   "json empty",
			output: schema.JSONOut,
			want:   []string{`"metrics": []`},
		},
		{
			name:   "text empty",
			output: schema.TextOut,
			want:   []string{"No metrics in health.\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "metrics")
			cfg := &contract.Config{Output: tt.output, OutputFile: path}
			require.NoError(t, PrintMetricList("health", tt.entries, cfg))
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			for _, want := range tt.want {
				assert.Contains(t, string(data), want)
			}
		})
	}
}
