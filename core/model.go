package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/huangsam/prosoul/internal/contract"
	"github.com/huangsam/prosoul/schema"
)

// AssessModel loads the named model and assesses it over window.
// A missing model is reported as contract.ErrModelNotFound.
func (a *Assessor) AssessModel(ctx context.Context, name string, window schema.Window, onlyAttribute string) (*schema.ModelAssessment, error) {
	model, err := a.loadModel(ctx, name)
	if err != nil {
		return nil, err
	}
	return a.Assess(ctx, model, window, onlyAttribute)
}

// goalKey identifies a goal for cycle detection. Stored goals are keyed by
// ID, in-memory goals by pointer.
type goalKey struct {
	id  int64
	ptr *schema.Goal
}

func keyOf(g *schema.Goal) goalKey {
	if g.ID > 0 {
		return goalKey{id: g.ID}
	}
	return goalKey{ptr: g}
}

// Goals returns every goal reachable from the model's root goals in
// depth-first pre-order. Each goal is returned once even when the graph
// has cycles or shared subgoals.
func Goals(model *schema.QualityModel) []*schema.Goal {
	var ordered []*schema.Goal
	visited := make(map[goalKey]struct{})

	stack := make([]*schema.Goal, 0, len(model.Goals))
	for i := len(model.Goals) - 1; i >= 0; i-- {
		stack = append(stack, model.Goals[i])
	}
	for len(stack) > 0 {
		g := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if g == nil {
			continue
		}
		k := keyOf(g)
		if _, seen := visited[k]; seen {
			continue
		}
		visited[k] = struct{}{}
		ordered = append(ordered, g)

		for i := len(g.Subgoals) - 1; i >= 0; i-- {
			stack = append(stack, g.Subgoals[i])
		}
	}
	return ordered
}

// Assess scores the directly attached attributes of every goal in the model.
// Subattributes are not assessed. When onlyAttribute is set, other
// attributes are skipped.
func (a *Assessor) Assess(ctx context.Context, model *schema.QualityModel, window schema.Window, onlyAttribute string) (*schema.ModelAssessment, error) {
	result := &schema.ModelAssessment{Model: model.Name, Window: window}

	for _, g := range Goals(model) {
		ga := schema.GoalAssessment{Goal: g.Name}
		for _, attr := range g.Attributes {
			if attr == nil {
				continue
			}
			if onlyAttribute != "" && attr.Name != onlyAttribute {
				continue
			}
			aa, err := a.AssessAttribute(ctx, attr, window)
			if err != nil {
				return nil, fmt.Errorf("goal %s, attribute %s: %w", g.Name, attr.Name, err)
			}
			ga.Attributes = append(ga.Attributes, aa)
		}
		result.Goals = append(result.Goals, ga)
	}
	return result, nil
}

// Diff lists the projects with any data in window and returns placeholder
// entries for each one missing from a metric group of primary. Groups with
// nothing missing are left out.
func (a *Assessor) Diff(ctx context.Context, primary *schema.ModelAssessment, window schema.Window) (*schema.ModelAssessment, error) {
	projects, err := a.store.ListProjects(ctx, a.index, a.backend, window)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return DiffProjects(primary, projects), nil
}

// DiffProjects builds the diff of primary against a known project list.
func DiffProjects(primary *schema.ModelAssessment, projects []string) *schema.ModelAssessment {
	diff := &schema.ModelAssessment{}
	if primary == nil {
		return diff
	}
	diff.Model = primary.Model
	diff.Window = primary.Window

	placeholders := 0
	for _, g := range primary.Goals {
		var gd *schema.GoalAssessment
		for _, at := range g.Attributes {
			var ad *schema.AttributeAssessment
			for _, ma := range at.Metrics {
				missing := make(map[string]schema.ScoreEntry)
				for _, p := range projects {
					if _, ok := ma.Projects[p]; !ok {
						missing[p] = schema.ScoreEntry{}
					}
				}
				if len(missing) == 0 {
					continue
				}
				if gd == nil {
					diff.Goals = append(diff.Goals, schema.GoalAssessment{Goal: g.Goal})
					gd = &diff.Goals[len(diff.Goals)-1]
				}
				if ad == nil {
					gd.Attributes = append(gd.Attributes, schema.AttributeAssessment{Attribute: at.Attribute})
					ad = &gd.Attributes[len(gd.Attributes)-1]
				}
				ad.Metrics = append(ad.Metrics, schema.MetricAssessment{
					Metric:          ma.Metric,
					CalculationType: ma.CalculationType,
					Projects:        missing,
				})
				placeholders += len(missing)
			}
		}
	}
	slog.Debug("diff computed", "projects", len(projects), "placeholders", placeholders)
	return diff
}

// loadModel fetches a model, treating a nil result as not found.
func (a *Assessor) loadModel(ctx context.Context, name string) (*schema.QualityModel, error) {
	model, err := a.models.GetModel(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", name, err)
	}
	if model == nil {
		return nil, fmt.Errorf("load model %s: %w", name, contract.ErrModelNotFound)
	}
	return model, nil
}
