package algo

import (
	"math"
	"sort"

	"github.com/huangsam/prosoul/schema"
)

// Summarize returns the mean of the non-null scores, rounded to two decimals.
// Unscored entries and placeholders are excluded. The second value is false
// when nothing was scored.
func Summarize(metrics []schema.ProjectMetric) (float64, bool) {
	total, n := 0, 0
	for _, m := range metrics {
		if m.Score == nil {
			continue
		}
		total += *m.Score
		n++
	}
	if n == 0 {
		return 0, false
	}
	return Round2(float64(total) / float64(n)), true
}

// BuildReport computes per-project averages and summary statistics.
// Projects without any score are left out.
func BuildReport(kind schema.ReportKind, model string, pa schema.ProjectAssessment) schema.Report {
	report := schema.Report{Kind: kind, Model: model}
	for _, project := range pa.Projects() {
		metrics := pa[project]
		avg, ok := Summarize(metrics)
		if !ok {
			continue
		}
		scored := 0
		for _, m := range metrics {
			if m.Score != nil {
				scored++
			}
		}
		report.Summaries = append(report.Summaries, schema.ProjectSummary{
			Project: project,
			Average: avg,
			Scored:  scored,
			Metrics: len(metrics),
		})
	}
	report.Summaries = RankSummaries(report.Summaries, len(report.Summaries))

	averages := make([]float64, len(report.Summaries))
	for i, s := range report.Summaries {
		averages[i] = s.Average
	}
	report.Stats = Stats(averages)
	return report
}

// Stats computes max, min, mean, median and sample standard deviation.
// The deviation is zero for fewer than two values.
func Stats(values []float64) schema.ReportStats {
	st := schema.ReportStats{Projects: len(values)}
	if len(values) == 0 {
		return st
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(len(sorted))

	variance := 0.0
	if len(sorted) > 1 {
		for _, v := range sorted {
			variance += (v - mean) * (v - mean)
		}
		variance /= float64(len(sorted) - 1)
	}

	mid := len(sorted) / 2
	median := sorted[mid]
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	}

	st.Max = sorted[len(sorted)-1]
	st.Min = sorted[0]
	st.Mean = Round2(mean)
	st.Median = Round2(median)
	st.Stdev = Round2(math.Sqrt(variance))
	return st
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
