package schema

import "sort"

// ScoreRecord is one flattened leaf of an assessment.
type ScoreRecord struct {
	Goal            string          `json:"goal"`
	Attribute       string          `json:"attribute"`
	Metric          string          `json:"metric"`
	Project         string          `json:"project"`
	CalculationType CalculationType `json:"calculation_type"`
	Score           *int            `json:"score"`
	RawValue        *float64        `json:"raw_value"`
}

// ProjectMetric is a score for one project keyed by its position in the model.
type ProjectMetric struct {
	Goal            string          `json:"goal"`
	Attribute       string          `json:"attribute"`
	Metric          string          `json:"metric"`
	CalculationType CalculationType `json:"calculation_type"`
	Score           *int            `json:"score"`
	RawValue        *float64        `json:"raw_value"`
}

// ProjectAssessment regroups an assessment by project. Each project's
// metrics keep model order.
type ProjectAssessment map[string][]ProjectMetric

// Projects returns the project names in sorted order.
func (p ProjectAssessment) Projects() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Records flattens the project view back into leaf records.
func (p ProjectAssessment) Records() []ScoreRecord {
	var records []ScoreRecord
	for _, project := range p.Projects() {
		for _, m := range p[project] {
			records = append(records, ScoreRecord{
				Goal:            m.Goal,
				Attribute:       m.Attribute,
				Metric:          m.Metric,
				Project:         project,
				CalculationType: m.CalculationType,
				Score:           m.Score,
				RawValue:        m.RawValue,
			})
		}
	}
	return records
}

// ProjectSummary is the average score of one project.
type ProjectSummary struct {
	Project string  `json:"project"`
	Average float64 `json:"average"`
	Scored  int     `json:"scored"`  // metrics with a score
	Metrics int     `json:"metrics"` // metrics including unscored
}

// ReportStats summarizes the project averages of a report.
type ReportStats struct {
	Projects int     `json:"projects"`
	Max      float64 `json:"max"`
	Min      float64 `json:"min"`
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	Stdev    float64 `json:"stdev"`
}

// Report is the summary printed after an assessment.
type Report struct {
	Kind      ReportKind       `json:"kind"`
	Model     string           `json:"model"`
	Summaries []ProjectSummary `json:"summaries"`
	Stats     ReportStats      `json:"stats"`
}

// MetricEntry locates one metric inside a quality model.
type MetricEntry struct {
	Goal            string          `json:"goal"`
	Attribute       string          `json:"attribute"`
	Metric          string          `json:"metric"`
	Implementation  string          `json:"implementation,omitempty"`
	CalculationType CalculationType `json:"calculation_type,omitempty"`
}

// MetricStats holds one metric's raw value per project over a window, with
// the same summary statistics as a stats report.
type MetricStats struct {
	Metric  string          `json:"metric"`
	Window  Window          `json:"window"`
	Samples []ProjectSample `json:"samples"`
	Stats   ReportStats     `json:"stats"`
}
