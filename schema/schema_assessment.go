package schema

import "time"

// Window is a closed date interval an assessment is computed over.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ScoreEntry is the result for one project on one metric. A nil Score means
// the metric has no thresholds. A nil Score and nil RawValue is a placeholder
// for a project with no data for the metric.
type ScoreEntry struct {
	Score    *int     `json:"score"`
	RawValue *float64 `json:"raw_value"`
}

// IsPlaceholder reports whether the entry carries no value at all.
func (e ScoreEntry) IsPlaceholder() bool {
	return e.Score == nil && e.RawValue == nil
}

// MetricAssessment holds per-project entries for one metric.
type MetricAssessment struct {
	Metric          string                `json:"metric"`
	CalculationType CalculationType       `json:"calculation_type"`
	Projects        map[string]ScoreEntry `json:"projects"`
}

// AttributeAssessment holds the metric results of one attribute in model order.
type AttributeAssessment struct {
	Attribute string             `json:"attribute"`
	Metrics   []MetricAssessment `json:"metrics"`
}

// GoalAssessment holds the attribute results of one goal in model order.
type GoalAssessment struct {
	Goal       string                `json:"goal"`
	Attributes []AttributeAssessment `json:"attributes"`
}

// ModelAssessment is the full goal/attribute/metric/project score tree
// for one window. The diff assessment uses the same shape with placeholder entries.
type ModelAssessment struct {
	Model  string           `json:"model"`
	Window Window           `json:"window"`
	Goals  []GoalAssessment `json:"goals"`
}

// Empty reports whether the assessment holds no project entries.
func (m *ModelAssessment) Empty() bool {
	if m == nil {
		return true
	}
	for _, g := range m.Goals {
		for _, a := range g.Attributes {
			for _, ma := range a.Metrics {
				if len(ma.Projects) > 0 {
					return false
				}
			}
		}
	}
	return true
}

// Entry looks up the entry for a goal, attribute, metric and project.
func (m *ModelAssessment) Entry(goal, attribute, metric, project string) (ScoreEntry, bool) {
	if m == nil {
		return ScoreEntry{}, false
	}
	for _, g := range m.Goals {
		if g.Goal != goal {
			continue
		}
		for _, a := range g.Attributes {
			if a.Attribute != attribute {
				continue
			}
			for _, ma := range a.Metrics {
				if ma.Metric != metric {
					continue
				}
				e, ok := ma.Projects[project]
				return e, ok
			}
		}
	}
	return ScoreEntry{}, false
}

// WindowResult pairs the primary and diff assessments of one window.
type WindowResult struct {
	Type    ScoreType        `json:"type"`
	Primary *ModelAssessment `json:"primary"`
	Diff    *ModelAssessment `json:"diff"`
}

// RunResult is everything produced by one assess-and-publish run.
type RunResult struct {
	RunID     string            `json:"run_id"`
	Model     string            `json:"model"`
	CreatedAt time.Time         `json:"created_at"`
	Quarters  []WindowResult    `json:"quarters"`
	All       WindowResult      `json:"all"`
	Projects  ProjectAssessment `json:"projects"`
	Published int               `json:"published"`
}
