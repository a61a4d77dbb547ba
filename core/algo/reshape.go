package algo

import (
	"sort"

	"github.com/huangsam/prosoul/schema"
)

// leafKey identifies one project entry in an assessment tree.
type leafKey struct {
	goal, attribute, metric, project string
}

// GoalsToProjects regroups a primary assessment and its diff by project.
// Primary entries win whenever both carry the same leaf.
func GoalsToProjects(primary, diff *schema.ModelAssessment) schema.ProjectAssessment {
	pa := make(schema.ProjectAssessment)
	seen := make(map[leafKey]struct{})

	add := func(g, a string, ma schema.MetricAssessment, project string, e schema.ScoreEntry) {
		k := leafKey{g, a, ma.Metric, project}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		pa[project] = append(pa[project], schema.ProjectMetric{
			Goal:            g,
			Attribute:       a,
			Metric:          ma.Metric,
			CalculationType: ma.CalculationType,
			Score:           e.Score,
			RawValue:        e.RawValue,
		})
	}

	// Walk the primary tree and fold in the diff at each metric so the
	// per-project lists keep model order.
	if primary != nil {
		for _, g := range primary.Goals {
			for _, a := range g.Attributes {
				for _, ma := range a.Metrics {
					for _, project := range sortedProjects(ma.Projects) {
						add(g.Goal, a.Attribute, ma, project, ma.Projects[project])
					}
					if dm, ok := findMetric(diff, g.Goal, a.Attribute, ma.Metric); ok {
						for _, project := range sortedProjects(dm.Projects) {
							add(g.Goal, a.Attribute, ma, project, dm.Projects[project])
						}
					}
				}
			}
		}
	}

	// Diff groups without a primary counterpart.
	if diff != nil {
		for _, g := range diff.Goals {
			for _, a := range g.Attributes {
				for _, ma := range a.Metrics {
					for _, project := range sortedProjects(ma.Projects) {
						add(g.Goal, a.Attribute, ma, project, ma.Projects[project])
					}
				}
			}
		}
	}

	return pa
}

// Flatten lists every leaf of an assessment in model order, projects sorted.
func Flatten(a *schema.ModelAssessment) []schema.ScoreRecord {
	if a == nil {
		return nil
	}
	var records []schema.ScoreRecord
	for _, g := range a.Goals {
		for _, at := range g.Attributes {
			for _, ma := range at.Metrics {
				for _, project := range sortedProjects(ma.Projects) {
					e := ma.Projects[project]
					records = append(records, schema.ScoreRecord{
						Goal:            g.Goal,
						Attribute:       at.Attribute,
						Metric:          ma.Metric,
						Project:         project,
						CalculationType: ma.CalculationType,
						Score:           e.Score,
						RawValue:        e.RawValue,
					})
				}
			}
		}
	}
	return records
}

// findMetric returns the metric group at goal/attribute/metric, if present.
func findMetric(a *schema.ModelAssessment, goal, attribute, metric string) (schema.MetricAssessment, bool) {
	if a == nil {
		return schema.MetricAssessment{}, false
	}
	for _, g := range a.Goals {
		if g.Goal != goal {
			continue
		}
		for _, at := range g.Attributes {
			if at.Attribute != attribute {
				continue
			}
			for _, ma := range at.Metrics {
				if ma.Metric == metric {
					return ma, true
				}
			}
		}
	}
	return schema.MetricAssessment{}, false
}

func sortedProjects(m map[string]schema.ScoreEntry) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
