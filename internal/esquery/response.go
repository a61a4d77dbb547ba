package esquery

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cast"
)

// SearchResponse is the subset of a _search response read by the dialects.
type SearchResponse struct {
	Took         int                        `json:"took"`
	TimedOut     bool                       `json:"timed_out"`
	Aggregations map[string]json.RawMessage `json:"aggregations"`
}

// DecodeResponse parses a raw _search response body.
func DecodeResponse(body []byte) (*SearchResponse, error) {
	var resp SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &resp, nil
}

// Bucket is one terms bucket with its sub-aggregations kept raw.
type Bucket struct {
	Key      string
	DocCount int64
	sub      map[string]json.RawMessage
}

// Buckets returns the buckets of a top-level terms aggregation.
func (r *SearchResponse) Buckets(name string) ([]Bucket, error) {
	raw, ok := r.Aggregations[name]
	if !ok {
		return nil, fmt.Errorf("response has no aggregation %q", name)
	}
	var agg struct {
		Buckets []map[string]json.RawMessage `json:"buckets"`
	}
	if err := json.Unmarshal(raw, &agg); err != nil {
		return nil, fmt.Errorf("decode aggregation %q: %w", name, err)
	}

	buckets := make([]Bucket, 0, len(agg.Buckets))
	for _, fields := range agg.Buckets {
		key, err := decodeAny(fields["key"])
		if err != nil {
			return nil, err
		}
		keyStr, err := cast.ToStringE(key)
		if err != nil || keyStr == "" {
			return nil, fmt.Errorf("bucket in %q has no usable key", name)
		}
		count, err := decodeAny(fields["doc_count"])
		if err != nil {
			return nil, err
		}
		docCount, err := cast.ToInt64E(count)
		if err != nil {
			return nil, fmt.Errorf("bucket %s: invalid doc_count: %w", keyStr, err)
		}
		buckets = append(buckets, Bucket{Key: keyStr, DocCount: docCount, sub: fields})
	}
	return buckets, nil
}

// SingleValue reads {"value": x} from a sub-aggregation. A null value yields ok=false.
func (b Bucket) SingleValue(name string) (float64, bool, error) {
	var agg struct {
		Value json.RawMessage `json:"value"`
	}
	if err := b.decodeSub(name, &agg); err != nil {
		return 0, false, err
	}
	return toFloat(agg.Value)
}

// Percentile reads {"values": {"50.0": x}} from a percentiles sub-aggregation.
func (b Bucket) Percentile(name, key string) (float64, bool, error) {
	var agg struct {
		Values map[string]json.RawMessage `json:"values"`
	}
	if err := b.decodeSub(name, &agg); err != nil {
		return 0, false, err
	}
	raw, ok := agg.Values[key]
	if !ok {
		return 0, false, nil
	}
	return toFloat(raw)
}

// TopHitField reads the first doc value of field from a top_hits sub-aggregation.
func (b Bucket) TopHitField(name, field string) (float64, bool, error) {
	var agg struct {
		Hits struct {
			Hits []struct {
				Fields map[string][]json.RawMessage `json:"fields"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := b.decodeSub(name, &agg); err != nil {
		return 0, false, err
	}
	if len(agg.Hits.Hits) == 0 {
		return 0, false, nil
	}
	values := agg.Hits.Hits[0].Fields[field]
	if len(values) == 0 {
		return 0, false, nil
	}
	return toFloat(values[0])
}

func (b Bucket) decodeSub(name string, dst any) error {
	raw, ok := b.sub[name]
	if !ok {
		return fmt.Errorf("bucket %s has no aggregation %q", b.Key, name)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("bucket %s: decode aggregation %q: %w", b.Key, name, err)
	}
	return nil
}

// decodeAny decodes a raw JSON scalar, keeping numbers exact.
func decodeAny(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return v, nil
}

// toFloat coerces a raw JSON value to float64. Null or missing yields ok=false.
func toFloat(raw json.RawMessage) (float64, bool, error) {
	v, err := decodeAny(raw)
	if err != nil {
		return 0, false, err
	}
	if v == nil {
		return 0, false, nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, false, fmt.Errorf("non-numeric metric value %v: %w", v, err)
	}
	return f, true, nil
}
