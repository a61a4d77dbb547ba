// Package schema has the quality model, assessment and report types shared by all parts of prosoul.
package schema

// QualityModel is a named tree of goals used to assess projects.
type QualityModel struct {
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Goals       []*Goal `json:"goals" yaml:"goals"`
}

// Goal groups attributes and may contain subgoals. The goal graph is not
// guaranteed to be acyclic.
type Goal struct {
	ID          int64        `json:"-" yaml:"-"`
	Name        string       `json:"name" yaml:"name"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Attributes  []*Attribute `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Subgoals    []*Goal      `json:"subgoals,omitempty" yaml:"subgoals,omitempty"`
}

// Attribute is a measurable quality of a goal, backed by metrics.
type Attribute struct {
	ID            int64        `json:"-" yaml:"-"`
	Name          string       `json:"name" yaml:"name"`
	Description   string       `json:"description,omitempty" yaml:"description,omitempty"`
	Metrics       []*Metric    `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Factoids      []string     `json:"factoids,omitempty" yaml:"factoids,omitempty"`
	Subattributes []*Attribute `json:"subattributes,omitempty" yaml:"subattributes,omitempty"`
}

// Metric binds threshold scoring to a metric data source.
type Metric struct {
	Name       string      `json:"name" yaml:"name"`
	Thresholds string      `json:"thresholds,omitempty" yaml:"thresholds,omitempty"` // comma-separated numbers
	Reverse    bool        `json:"reverse,omitempty" yaml:"reverse,omitempty"`       // lower values score higher
	Data       *MetricData `json:"data,omitempty" yaml:"data,omitempty"`
}

// MetricData names the time series a metric is computed from.
type MetricData struct {
	Implementation  string          `json:"implementation" yaml:"implementation"`
	Params          string          `json:"params,omitempty" yaml:"params,omitempty"` // raw JSON object
	CalculationType CalculationType `json:"calculation_type,omitempty" yaml:"calculation_type,omitempty"`
}

// ProjectSample is one aggregated metric value for one project.
type ProjectSample struct {
	Project string  `json:"project"`
	Value   float64 `json:"value"`
}

// ModelOutline is a flat, encodable view of a quality model. Goals appear
// once each and refer to their subgoals by name, so cyclic models encode.
type ModelOutline struct {
	Name        string        `json:"name" yaml:"name"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Roots       []string      `json:"roots" yaml:"roots"`
	Goals       []GoalOutline `json:"goals" yaml:"goals"`
}

// GoalOutline is one goal of a ModelOutline.
type GoalOutline struct {
	Name        string       `json:"name" yaml:"name"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Attributes  []*Attribute `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Subgoals    []string     `json:"subgoals,omitempty" yaml:"subgoals,omitempty"`
}

// Outline flattens the goal graph in depth-first pre-order.
func (m *QualityModel) Outline() ModelOutline {
	out := ModelOutline{Name: m.Name, Description: m.Description, Roots: []string{}, Goals: []GoalOutline{}}
	visited := make(map[*Goal]bool)
	var walk func(g *Goal)
	walk = func(g *Goal) {
		if g == nil || visited[g] {
			return
		}
		visited[g] = true
		goal := GoalOutline{Name: g.Name, Description: g.Description, Attributes: g.Attributes}
		for _, sg := range g.Subgoals {
			if sg != nil {
				goal.Subgoals = append(goal.Subgoals, sg.Name)
			}
		}
		out.Goals = append(out.Goals, goal)
		for _, sg := range g.Subgoals {
			walk(sg)
		}
	}
	for _, g := range m.Goals {
		if g == nil {
			continue
		}
		out.Roots = append(out.Roots, g.Name)
		walk(g)
	}
	return out
}
