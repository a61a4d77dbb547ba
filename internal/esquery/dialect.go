package esquery

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/sortorder"
	"github.com/huangsam/prosoul/internal/contract"
	"github.com/huangsam/prosoul/schema"
)

// Aggregation names used in the request and read back from the response.
const (
	projectsAgg = "3"
	valueAgg    = "2"
)

// Date fields per index layout.
const (
	CountingDateField   = "grimoire_creation_date"
	TimeSeriesDateField = "datetime"
)

// MetricField returns the document field holding the metric name for a backend.
func MetricField(backend schema.MetricsBackend) (string, error) {
	switch backend {
	case schema.GrimoireLabBackend:
		return "metadata__gelk_backend_name", nil
	case schema.OSSMeterBackend:
		return "metric_es_name", nil
	case schema.ScavaMetricsBackend:
		return "metric_name", nil
	default:
		return "", fmt.Errorf("%w: %q", contract.ErrUnsupportedBackend, backend)
	}
}

// Dialect builds the metric query for one index layout and reads its response.
type Dialect interface {
	// Name identifies the dialect in logs and metrics.
	Name() string

	// Build returns the search request computing one value per project.
	Build(data schema.MetricData, window schema.Window) (SearchRequest, error)

	// Parse extracts per-project samples from a search response.
	Parse(data schema.MetricData, resp *SearchResponse) ([]schema.ProjectSample, error)

	// DateField is the document timestamp field used for windowing.
	DateField() string
}

// DialectFor returns the dialect matching a backend.
func DialectFor(backend schema.MetricsBackend) (Dialect, error) {
	field, err := MetricField(backend)
	if err != nil {
		return nil, err
	}
	if backend == schema.GrimoireLabBackend {
		return &countingDialect{metricField: field}, nil
	}
	return &timeSeriesDialect{metricField: field}, nil
}

// ProjectsQuery lists every project with any document in the window.
func ProjectsQuery(backend schema.MetricsBackend, window schema.Window) (SearchRequest, error) {
	d, err := DialectFor(backend)
	if err != nil {
		return SearchRequest{}, err
	}
	return newSearch(
		Must(DateRange(d.DateField(), window.Start, window.End)),
		map[string]types.Aggregations{projectsAgg: Terms(ProjectField, MaxProjects)},
	), nil
}

// ParseProjects reads the project names of a ProjectsQuery response in sorted order.
func ParseProjects(resp *SearchResponse) ([]string, error) {
	buckets, err := resp.Buckets(projectsAgg)
	if err != nil {
		return nil, err
	}
	projects := make([]string, 0, len(buckets))
	for _, b := range buckets {
		projects = append(projects, b.Key)
	}
	sort.Strings(projects)
	return projects, nil
}

// metricParams is the optional JSON attached to a metric data source.
type metricParams struct {
	Filter json.RawMessage            `json:"filter"`
	Aggs   map[string]json.RawMessage `json:"aggs"`
}

func parseParams(raw string) (metricParams, error) {
	var p metricParams
	if raw == "" {
		return p, nil
	}
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return p, fmt.Errorf("invalid metric params: %w", err)
	}
	return p, nil
}

// firstAggName returns the lowest aggregation name so the choice is stable.
func firstAggName(aggs map[string]json.RawMessage) string {
	names := make([]string, 0, len(aggs))
	for name := range aggs {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

// countingDialect counts documents per project, optionally narrowed by a
// filter or replaced by a custom aggregation from the metric params.
type countingDialect struct {
	metricField string
}

func (d *countingDialect) Name() string      { return "counting" }
func (d *countingDialect) DateField() string { return CountingDateField }

func (d *countingDialect) Build(data schema.MetricData, window schema.Window) (SearchRequest, error) {
	params, err := parseParams(data.Params)
	if err != nil {
		return SearchRequest{}, err
	}

	must := []types.Query{Term(d.metricField, data.Implementation)}
	projects := Terms(ProjectField, MaxProjects)

	// A filter takes precedence over custom aggregations.
	switch {
	case len(params.Filter) > 0:
		filter, err := RawQuery(params.Filter)
		if err != nil {
			return SearchRequest{}, err
		}
		must = append(must, filter)
	case len(params.Aggs) > 0:
		for name, raw := range params.Aggs {
			agg, err := RawAggregation(raw)
			if err != nil {
				return SearchRequest{}, fmt.Errorf("aggregation %s: %w", name, err)
			}
			projects = With(projects, name, agg)
		}
	}
	must = append(must, DateRange(CountingDateField, window.Start, window.End))

	return newSearch(Must(must...), map[string]types.Aggregations{projectsAgg: projects}), nil
}

func (d *countingDialect) Parse(data schema.MetricData, resp *SearchResponse) ([]schema.ProjectSample, error) {
	params, err := parseParams(data.Params)
	if err != nil {
		return nil, err
	}
	aggName := ""
	if len(params.Filter) == 0 {
		aggName = firstAggName(params.Aggs)
	}

	buckets, err := resp.Buckets(projectsAgg)
	if err != nil {
		return nil, err
	}
	samples := make([]schema.ProjectSample, 0, len(buckets))
	for _, b := range buckets {
		if aggName == "" {
			samples = append(samples, schema.ProjectSample{Project: b.Key, Value: float64(b.DocCount)})
			continue
		}
		v, ok, err := b.SingleValue(aggName)
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", b.Key, err)
		}
		if ok {
			samples = append(samples, schema.ProjectSample{Project: b.Key, Value: v})
		}
	}
	return samples, nil
}

// timeSeriesDialect aggregates the stored metric value per project with the
// metric's calculation type.
type timeSeriesDialect struct {
	metricField string
}

func (d *timeSeriesDialect) Name() string      { return "timeseries" }
func (d *timeSeriesDialect) DateField() string { return TimeSeriesDateField }

func (d *timeSeriesDialect) Build(data schema.MetricData, window schema.Window) (SearchRequest, error) {
	var value types.Aggregations
	switch ct := schema.NormalizeCalculationType(data.CalculationType); ct {
	case schema.CalcMedian:
		value = Percentiles(ValueField, 50)
	case schema.CalcLast:
		value = TopHits(ValueField, TimeSeriesDateField, sortorder.Desc)
	case schema.CalcMax, schema.CalcMin, schema.CalcAvg, schema.CalcSum:
		var err error
		if value, err = Metric(ct, ValueField); err != nil {
			return SearchRequest{}, err
		}
	default:
		return SearchRequest{}, fmt.Errorf("unsupported calculation type %q", ct)
	}

	return newSearch(
		Must(
			Term(d.metricField, data.Implementation),
			DateRange(TimeSeriesDateField, window.Start, window.End),
		),
		map[string]types.Aggregations{
			projectsAgg: With(Terms(ProjectField, MaxProjects), valueAgg, value),
		},
	), nil
}

func (d *timeSeriesDialect) Parse(data schema.MetricData, resp *SearchResponse) ([]schema.ProjectSample, error) {
	buckets, err := resp.Buckets(projectsAgg)
	if err != nil {
		return nil, err
	}

	ct := schema.NormalizeCalculationType(data.CalculationType)
	samples := make([]schema.ProjectSample, 0, len(buckets))
	for _, b := range buckets {
		var (
			v  float64
			ok bool
		)
		switch ct {
		case schema.CalcMedian:
			v, ok, err = b.Percentile(valueAgg, "50.0")
		case schema.CalcLast:
			v, ok, err = b.TopHitField(valueAgg, ValueField)
		default:
			v, ok, err = b.SingleValue(valueAgg)
		}
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", b.Key, err)
		}
		if ok {
			samples = append(samples, schema.ProjectSample{Project: b.Key, Value: v})
		}
	}
	return samples, nil
}
