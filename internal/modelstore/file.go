package modelstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/huangsam/prosoul/internal/contract"
	"github.com/huangsam/prosoul/schema"
	"gopkg.in/yaml.v3"
)

// File layout shared by JSON and YAML model files. Metric data may be given
// inline (data_implementation, data_params) or as a nested data object.
type (
	fileModels struct {
		QualityModels []fileModel `json:"qualityModels" yaml:"qualityModels"`
	}

	fileModel struct {
		Name        string     `json:"name" yaml:"name"`
		Description string     `json:"description" yaml:"description"`
		Goals       []fileGoal `json:"goals" yaml:"goals"`
	}

	fileGoal struct {
		Name        string          `json:"name" yaml:"name"`
		Description string          `json:"description" yaml:"description"`
		Attributes  []fileAttribute `json:"attributes" yaml:"attributes"`
		Subgoals    []fileGoal      `json:"subgoals" yaml:"subgoals"`
	}

	fileAttribute struct {
		Name          string          `json:"name" yaml:"name"`
		Description   string          `json:"description" yaml:"description"`
		Metrics       []fileMetric    `json:"metrics" yaml:"metrics"`
		Factoids      []fileFactoid   `json:"factoids" yaml:"factoids"`
		Subattributes []fileAttribute `json:"subattributes" yaml:"subattributes"`
	}

	fileMetric struct {
		Name               string          `json:"name" yaml:"name"`
		Thresholds         string          `json:"thresholds" yaml:"thresholds"`
		Reverse            bool            `json:"reverse" yaml:"reverse"`
		DataImplementation string          `json:"data_implementation" yaml:"data_implementation"`
		DataParams         fileParams      `json:"data_params" yaml:"data_params"`
		CalculationType    string          `json:"calculation_type" yaml:"calculation_type"`
		Data               *fileMetricData `json:"data" yaml:"data"`
	}

	fileMetricData struct {
		Implementation  string     `json:"implementation" yaml:"implementation"`
		Params          fileParams `json:"params" yaml:"params"`
		CalculationType string     `json:"calculation_type" yaml:"calculation_type"`
	}
)

// fileFactoid is a factoid given as a plain string or as an object with a name.
type fileFactoid string

// UnmarshalJSON implements json.Unmarshaler.
func (f *fileFactoid) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = fileFactoid(s)
		return nil
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("factoid must be a string or an object with a name: %w", err)
	}
	*f = fileFactoid(obj.Name)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (f *fileFactoid) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		*f = fileFactoid(n.Value)
		return nil
	}
	var obj struct {
		Name string `yaml:"name"`
	}
	if err := n.Decode(&obj); err != nil {
		return fmt.Errorf("factoid must be a string or a mapping with a name: %w", err)
	}
	*f = fileFactoid(obj.Name)
	return nil
}

// fileParams holds metric params as raw JSON text. Files may give them as a
// JSON string or as a nested object.
type fileParams string

// UnmarshalJSON implements json.Unmarshaler.
func (p *fileParams) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*p = fileParams(s)
		return nil
	}
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*p = ""
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, b); err != nil {
		return err
	}
	*p = fileParams(buf.String())
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *fileParams) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		*p = fileParams(n.Value)
		return nil
	}
	var v any
	if err := n.Decode(&v); err != nil {
		return err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("params must be JSON-compatible: %w", err)
	}
	*p = fileParams(b)
	return nil
}

// ParseModels decodes a model file. JSON is detected by the leading brace,
// everything else is read as YAML. Both the {"qualityModels": [...]} layout
// and a single model object are accepted.
func ParseModels(data []byte) ([]*schema.QualityModel, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("model file is empty")
	}
	isJSON := trimmed[0] == '{' || trimmed[0] == '['

	unmarshal := func(v any) error {
		if isJSON {
			return json.Unmarshal(trimmed, v)
		}
		return yaml.Unmarshal(trimmed, v)
	}

	var doc fileModels
	if err := unmarshal(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode models: %w", err)
	}
	if len(doc.QualityModels) == 0 {
		var single fileModel
		if err := unmarshal(&single); err != nil {
			return nil, fmt.Errorf("failed to decode model: %w", err)
		}
		if single.Name == "" {
			return nil, errors.New("no quality models found")
		}
		doc.QualityModels = []fileModel{single}
	}

	models := make([]*schema.QualityModel, 0, len(doc.QualityModels))
	seen := make(map[string]bool)
	for _, fm := range doc.QualityModels {
		if strings.TrimSpace(fm.Name) == "" {
			return nil, errors.New("quality model without a name")
		}
		if seen[fm.Name] {
			return nil, fmt.Errorf("duplicate quality model %q", fm.Name)
		}
		seen[fm.Name] = true
		models = append(models, fm.toSchema())
	}
	return models, nil
}

func (fm fileModel) toSchema() *schema.QualityModel {
	m := &schema.QualityModel{Name: fm.Name, Description: fm.Description}
	for _, g := range fm.Goals {
		m.Goals = append(m.Goals, g.toSchema())
	}
	return m
}

func (fg fileGoal) toSchema() *schema.Goal {
	g := &schema.Goal{Name: fg.Name, Description: fg.Description}
	for _, a := range fg.Attributes {
		g.Attributes = append(g.Attributes, a.toSchema())
	}
	for _, sg := range fg.Subgoals {
		g.Subgoals = append(g.Subgoals, sg.toSchema())
	}
	return g
}

func (fa fileAttribute) toSchema() *schema.Attribute {
	a := &schema.Attribute{Name: fa.Name, Description: fa.Description}
	for _, m := range fa.Metrics {
		a.Metrics = append(a.Metrics, m.toSchema())
	}
	for _, f := range fa.Factoids {
		a.Factoids = append(a.Factoids, string(f))
	}
	for _, sub := range fa.Subattributes {
		a.Subattributes = append(a.Subattributes, sub.toSchema())
	}
	return a
}

func (fm fileMetric) toSchema() *schema.Metric {
	m := &schema.Metric{Name: fm.Name, Thresholds: strings.TrimSpace(fm.Thresholds), Reverse: fm.Reverse}
	switch {
	case fm.Data != nil && fm.Data.Implementation != "":
		calc := fm.Data.CalculationType
		if calc == "" {
			calc = fm.CalculationType
		}
		m.Data = &schema.MetricData{
			Implementation:  fm.Data.Implementation,
			Params:          string(fm.Data.Params),
			CalculationType: schema.CalculationType(strings.ToLower(calc)),
		}
	case fm.DataImplementation != "":
		m.Data = &schema.MetricData{
			Implementation:  fm.DataImplementation,
			Params:          string(fm.DataParams),
			CalculationType: schema.CalculationType(strings.ToLower(fm.CalculationType)),
		}
	}
	return m
}

// LoadModelsFile reads and parses a JSON or YAML model file.
func LoadModelsFile(path string) ([]*schema.QualityModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read models file: %w", err)
	}
	models, err := ParseModels(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return models, nil
}

// FileSource is a read-only ModelSource backed by a models file.
type FileSource struct {
	models map[string]*schema.QualityModel
}

var _ contract.ModelSource = &FileSource{} // Compile-time check

// NewFileSource loads every model in path.
func NewFileSource(path string) (*FileSource, error) {
	models, err := LoadModelsFile(path)
	if err != nil {
		return nil, err
	}
	return NewMemorySource(models...), nil
}

// NewMemorySource serves the given models.
func NewMemorySource(models ...*schema.QualityModel) *FileSource {
	fs := &FileSource{models: make(map[string]*schema.QualityModel, len(models))}
	for _, m := range models {
		fs.models[m.Name] = m
	}
	return fs
}

// GetModel returns the model with the given name or ErrModelNotFound.
func (fs *FileSource) GetModel(_ context.Context, name string) (*schema.QualityModel, error) {
	m, ok := fs.models[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", contract.ErrModelNotFound, name)
	}
	return m, nil
}

// ListModels returns all model names in sorted order.
func (fs *FileSource) ListModels(context.Context) ([]string, error) {
	names := make([]string, 0, len(fs.models))
	for name := range fs.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
