// Package esquery builds typed search requests for the metrics index and
// normalizes their aggregation responses into per-project samples.
package esquery

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8/typedapi/core/search"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/sortorder"
	"github.com/huangsam/prosoul/schema"
)

// Field names shared by every metrics index layout.
const (
	ProjectField = "project"
	ValueField   = "metric_es_value"

	// MaxProjects bounds the project terms aggregation.
	MaxProjects = 10000

	// esDateFormat is the range format matching contract.DateFormat.
	esDateFormat = "yyyy-MM-dd"
	goDateFormat = "2006-01-02"
)

// SearchRequest is the body of a _search call.
type SearchRequest struct {
	search.Request
}

// newSearch returns a hits-free request with the given query and top-level aggregations.
func newSearch(query *types.Query, aggs map[string]types.Aggregations) SearchRequest {
	size := 0
	return SearchRequest{Request: search.Request{Size: &size, Query: query, Aggregations: aggs}}
}

// Encode serializes the request for the transport.
func (r SearchRequest) Encode() ([]byte, error) {
	return json.Marshal(r.Request)
}

// Must is a conjunction of clauses.
func Must(clauses ...types.Query) *types.Query {
	if clauses == nil {
		clauses = []types.Query{}
	}
	return &types.Query{Bool: &types.BoolQuery{Must: clauses}}
}

// Term matches documents whose field equals value exactly.
func Term(field, value string) types.Query {
	return types.Query{Term: map[string]types.TermQuery{field: {Value: value}}}
}

// DateRange matches documents whose date field lies within [from, to], inclusive.
func DateRange(field string, from, to time.Time) types.Query {
	gte, lte, format := from.Format(goDateFormat), to.Format(goDateFormat), esDateFormat
	return types.Query{Range: map[string]types.RangeQuery{
		field: types.DateRangeQuery{Gte: &gte, Lte: &lte, Format: &format},
	}}
}

// RawQuery decodes a clause supplied by the metric definition.
func RawQuery(raw json.RawMessage) (types.Query, error) {
	var q types.Query
	if err := json.Unmarshal(raw, &q); err != nil {
		return q, fmt.Errorf("invalid filter: %w", err)
	}
	return q, nil
}

// Terms buckets documents by the values of a field.
func Terms(field string, size int) types.Aggregations {
	return types.Aggregations{Terms: &types.TermsAggregation{Field: &field, Size: &size}}
}

// Metric computes a single-value metric (max, min, avg or sum) over a field.
func Metric(ct schema.CalculationType, field string) (types.Aggregations, error) {
	switch ct {
	case schema.CalcMax:
		return types.Aggregations{Max: &types.MaxAggregation{Field: &field}}, nil
	case schema.CalcMin:
		return types.Aggregations{Min: &types.MinAggregation{Field: &field}}, nil
	case schema.CalcAvg:
		return types.Aggregations{Avg: &types.AverageAggregation{Field: &field}}, nil
	case schema.CalcSum:
		return types.Aggregations{Sum: &types.SumAggregation{Field: &field}}, nil
	default:
		return types.Aggregations{}, fmt.Errorf("%q is not a single-value metric", ct)
	}
}

// Percentiles computes the given percentiles over a field.
func Percentiles(field string, percents ...float64) types.Aggregations {
	agg := &types.PercentilesAggregation{Field: &field}
	for _, p := range percents {
		agg.Percents = append(agg.Percents, types.Float64(p))
	}
	return types.Aggregations{Percentiles: agg}
}

// TopHits returns the first document by sortField, exposing field as a doc value.
func TopHits(field, sortField string, order sortorder.SortOrder) types.Aggregations {
	size := 1
	return types.Aggregations{TopHits: &types.TopHitsAggregation{
		DocvalueFields: []types.FieldAndFormat{{Field: field}},
		Source_:        false,
		Size:           &size,
		Sort: []types.SortCombinations{
			map[string]types.FieldSort{sortField: {Order: &order}},
		},
	}}
}

// RawAggregation decodes an aggregation supplied by the metric definition.
func RawAggregation(raw json.RawMessage) (types.Aggregations, error) {
	var agg types.Aggregations
	if err := json.Unmarshal(raw, &agg); err != nil {
		return agg, fmt.Errorf("invalid aggregation: %w", err)
	}
	return agg, nil
}

// With returns parent with a named sub-aggregation attached.
func With(parent types.Aggregations, name string, sub types.Aggregations) types.Aggregations {
	aggs := make(map[string]types.Aggregations, len(parent.Aggregations)+1)
	for k, v := range parent.Aggregations {
		aggs[k] = v
	}
	aggs[name] = sub
	parent.Aggregations = aggs
	return parent
}
