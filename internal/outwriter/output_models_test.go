package outwriter

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/prosoul/internal/contract"
	"github.com/huangsam/prosoul/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteModelTree(t *testing.T) {
	activity := &schema.Attribute{
		Name:     "Activity",
		Factoids: []string{"Commits per quarter"},
		Metrics: []*schema.Metric{
			{Name: "commits", Thresholds: "1,10,100,1000", Data: &schema.MetricData{Implementation: "git_commits"}},
			{Name: "open issues", Reverse: true, Data: &schema.MetricData{Implementation: "issues_open", CalculationType: schema.CalcLast}},
			{Name: "unbound"},
		},
	}
	root := &schema.Goal{Name: "Community", Attributes: []*schema.Attribute{activity}}
	child := &schema.Goal{Name: "Growth", Attributes: []*schema.Attribute{activity}}
	root.Subgoals = []*schema.Goal{child}
	child.Subgoals = []*schema.Goal{root}

	var buf bytes.Buffer
	require.NoError(t, writeModelTree(&buf, &schema.QualityModel{Name: "CHAOSS", Description: "Health", Goals: []*schema.Goal{root}}))

	expected := "📐 CHAOSS\n" +
		"   Health\n" +
		"  🎯 Community\n" +
		"    🔹 Activity\n" +
		"      📏 commits [git_commits/max, thresholds 1,10,100,1000]\n" +
		"      📏 open issues [issues_open/last, reverse]\n" +
		"      📏 unbound [no data]\n" +
		"      💡 Commits per quarter\n" +
		"    🎯 Growth\n" +
		"      🔹 Activity (see above)\n" +
		"      🎯 Community (see above)\n"
	assert.Equal(t, expected, buf.String())
}

func TestPrintModelJSONCyclic(t *testing.T) {
	root := &schema.Goal{Name: "Community"}
	child := &schema.Goal{Name: "Growth", Subgoals: []*schema.Goal{root}}
	root.Subgoals = []*schema.Goal{child}

	path := filepath.Join(t.TempDir(), "model.json")
	cfg := &contract.Config{Output: schema.JSONOut, OutputFile: path}
	require.NoError(t, PrintModel(&schema.QualityModel{Name: "loop", Goals: []*schema.Goal{root}}, cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"loop","roots":["Community"],"goals":[
		{"name":"Community","subgoals":["Growth"]},
		{"name":"Growth","subgoals":["Community"]}]}`, string(data))
}

func TestPrintModelListToFile(t *testing.T) {
	tests := []struct {
		name     string
		output   schema.OutputMode
		names    []string
		expected string
	}{
		{name: "text", output: schema.TextOut, names: []string{"a", "b"}, expected: "a\nb\n"},
		{name: "text empty", output: schema.TextOut, expected: "No quality models found.\n"},
		{name: "json empty", output: schema.JSONOut, expected: "[]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "models")
			require.NoError(t, PrintModelList(tt.names, &contract.Config{Output: tt.output, OutputFile: path}))
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(data))
		})
	}
}

func TestPrintHistoryStatus(t *testing.T) {
	last := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	PrintHistoryStatus(&buf, schema.HistoryStatus{
		Backend:       "sqlite",
		Connected:     true,
		TotalRuns:     2,
		LastRunID:     "run-2",
		LastRunTime:   last,
		OldestRunTime: last.Add(-24 * time.Hour),
		TotalScores:   40,
		TableSizes:    map[string]int64{"prosoul_scores": 40, "prosoul_runs": 2},
	})

	out := buf.String()
	assert.Contains(t, out, "History Backend: sqlite\n")
	assert.Contains(t, out, "Last Run ID: run-2\n")
	assert.Contains(t, out, "Last Run: 2024-03-01 12:00:00\n")
	assert.Contains(t, out, "Oldest Run: 2024-02-29 12:00:00\n")
	assert.Contains(t, out, "Table Sizes:\n  prosoul_runs: 2 rows\n  prosoul_scores: 40 rows\n")
}

func TestPrintModelStoreStatusDisconnected(t *testing.T) {
	var buf bytes.Buffer
	PrintModelStoreStatus(&buf, schema.ModelStoreStatus{Backend: "mysql"})
	assert.Equal(t, "Model Backend: mysql\nConnected: false\n", buf.String())
}
