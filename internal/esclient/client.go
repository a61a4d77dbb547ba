// Package esclient implements the metrics store and score sink on top of Elasticsearch.
package esclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/huangsam/prosoul/internal/contract"
	"github.com/huangsam/prosoul/internal/esquery"
	"github.com/huangsam/prosoul/schema"
)

// DefaultBulkSize is the number of documents sent per _bulk request.
const DefaultBulkSize = 1000

// Options configures a Client.
type Options struct {
	URL       string
	Insecure  bool              // skip TLS certificate verification
	Transport http.RoundTripper // overrides the default transport when set
	Metrics   *Metrics          // optional
	BulkSize  int
}

// Client talks to one Elasticsearch cluster. Requests are never retried.
type Client struct {
	es       *elasticsearch.Client
	metrics  *Metrics
	bulkSize int
}

// Compile-time checks.
var (
	_ contract.MetricsStore = &Client{}
	_ contract.ScoreSink    = &Client{}
)

// New creates a client for the cluster at opts.URL.
func New(opts Options) (*Client, error) {
	transport := opts.Transport
	if transport == nil && opts.Insecure {
		transport = &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // opt-in via --insecure
		}
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    []string{opts.URL},
		Transport:    transport,
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	bulkSize := opts.BulkSize
	if bulkSize <= 0 {
		bulkSize = DefaultBulkSize
	}
	return &Client{es: es, metrics: opts.Metrics, bulkSize: bulkSize}, nil
}

// QueryMetric runs the backend's metric query and returns one sample per project.
func (c *Client) QueryMetric(ctx context.Context, index string, backend schema.MetricsBackend, data schema.MetricData, window schema.Window) ([]schema.ProjectSample, error) {
	d, err := esquery.DialectFor(backend)
	if err != nil {
		return nil, err
	}
	req, err := d.Build(data, window)
	if err != nil {
		return nil, fmt.Errorf("build query for %s: %w", data.Implementation, err)
	}
	resp, err := c.search(ctx, index, d.Name(), req)
	if err != nil {
		return nil, err
	}
	samples, err := d.Parse(data, resp)
	if err != nil {
		return nil, fmt.Errorf("parse response for %s: %w", data.Implementation, err)
	}
	slog.Debug("metric query", "implementation", data.Implementation, "dialect", d.Name(), "projects", len(samples))
	return samples, nil
}

// ListProjects returns the projects with any document in the window.
func (c *Client) ListProjects(ctx context.Context, index string, backend schema.MetricsBackend, window schema.Window) ([]string, error) {
	req, err := esquery.ProjectsQuery(backend, window)
	if err != nil {
		return nil, err
	}
	resp, err := c.search(ctx, index, "projects", req)
	if err != nil {
		return nil, err
	}
	return esquery.ParseProjects(resp)
}

// search posts a request to <index>/_search and decodes the response.
func (c *Client) search(ctx context.Context, index, dialect string, req esquery.SearchRequest) (*esquery.SearchResponse, error) {
	body, err := req.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	start := time.Now()
	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithBody(bytes.NewReader(body)),
	)
	raw, err := readResponse("search", index, res, err)
	c.metrics.observe("search", dialect, err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return esquery.DecodeResponse(raw)
}

// ResetIndex deletes the index when present and creates it with the score mapping.
func (c *Client) ResetIndex(ctx context.Context, index string) error {
	start := time.Now()
	err := c.resetIndex(ctx, index)
	c.metrics.observe("reset", "", err, time.Since(start))
	return err
}

func (c *Client) resetIndex(ctx context.Context, index string) error {
	res, err := c.es.Indices.Exists([]string{index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return &contract.StoreError{Op: "exists", Index: index, Err: err}
	}
	_ = res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		res, err := c.es.Indices.Delete([]string{index}, c.es.Indices.Delete.WithContext(ctx))
		if _, err := readResponse("delete", index, res, err); err != nil {
			return err
		}
	case http.StatusNotFound:
	default:
		return &contract.StoreError{Op: "exists", Index: index, Status: res.StatusCode}
	}

	res, err = c.es.Indices.Create(index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(bytes.NewReader(scoreMapping)),
	)
	_, err = readResponse("create", index, res, err)
	return err
}

// Publish bulk-indexes documents in batches and refreshes the index.
func (c *Client) Publish(ctx context.Context, index string, docs []contract.Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	written := 0
	for lo := 0; lo < len(docs); lo += c.bulkSize {
		hi := min(lo+c.bulkSize, len(docs))
		start := time.Now()
		n, err := c.bulk(ctx, index, docs[lo:hi])
		c.metrics.observe("bulk", "", err, time.Since(start))
		written += n
		if err != nil {
			return written, err
		}
	}
	c.metrics.published(written)

	res, err := c.es.Indices.Refresh(
		c.es.Indices.Refresh.WithContext(ctx),
		c.es.Indices.Refresh.WithIndex(index),
	)
	if _, err := readResponse("refresh", index, res, err); err != nil {
		return written, err
	}
	return written, nil
}

// bulkResponse is the subset of a _bulk response needed to detect item failures.
type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		Status int `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

func (c *Client) bulk(ctx context.Context, index string, docs []contract.Document) (int, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, doc := range docs {
		meta := map[string]map[string]string{"index": {"_index": index}}
		if doc.ID != "" {
			meta["index"]["_id"] = doc.ID
		}
		if err := enc.Encode(meta); err != nil {
			return 0, fmt.Errorf("encode bulk action: %w", err)
		}
		if err := enc.Encode(doc.Source); err != nil {
			return 0, fmt.Errorf("encode document %s: %w", doc.ID, err)
		}
	}

	res, err := c.es.Bulk(bytes.NewReader(buf.Bytes()),
		c.es.Bulk.WithContext(ctx),
		c.es.Bulk.WithIndex(index),
	)
	raw, err := readResponse("bulk", index, res, err)
	if err != nil {
		return 0, err
	}

	var br bulkResponse
	if err := json.Unmarshal(raw, &br); err != nil {
		return 0, &contract.StoreError{Op: "bulk", Index: index, Err: fmt.Errorf("decode bulk response: %w", err)}
	}
	if !br.Errors {
		return len(docs), nil
	}

	failed, reason := 0, ""
	for _, item := range br.Items {
		for _, result := range item {
			if result.Error != nil {
				failed++
				if reason == "" {
					reason = result.Error.Type + ": " + result.Error.Reason
				}
			}
		}
	}
	return len(docs) - failed, &contract.StoreError{
		Op:     "bulk",
		Index:  index,
		Reason: fmt.Sprintf("%d of %d documents failed, first: %s", failed, len(docs), reason),
	}
}

// LinkAlias points alias at every given index in one atomic update.
func (c *Client) LinkAlias(ctx context.Context, alias string, indices ...string) error {
	type addAction struct {
		Index string `json:"index"`
		Alias string `json:"alias"`
	}
	actions := make([]map[string]addAction, 0, len(indices))
	for _, index := range indices {
		actions = append(actions, map[string]addAction{"add": {Index: index, Alias: alias}})
	}
	body, err := json.Marshal(map[string]any{"actions": actions})
	if err != nil {
		return fmt.Errorf("encode alias actions: %w", err)
	}

	start := time.Now()
	res, err := c.es.Indices.UpdateAliases(bytes.NewReader(body),
		c.es.Indices.UpdateAliases.WithContext(ctx),
	)
	_, err = readResponse("alias", alias, res, err)
	c.metrics.observe("alias", "", err, time.Since(start))
	return err
}

// readResponse drains and closes the body, turning transport failures and
// non-2xx statuses into StoreErrors.
func readResponse(op, index string, res *esapi.Response, err error) ([]byte, error) {
	if err != nil {
		return nil, &contract.StoreError{Op: op, Index: index, Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	raw, readErr := io.ReadAll(res.Body)
	if res.IsError() {
		return nil, &contract.StoreError{Op: op, Index: index, Status: res.StatusCode, Reason: errorReason(raw)}
	}
	if readErr != nil {
		return nil, &contract.StoreError{Op: op, Index: index, Status: res.StatusCode, Err: readErr}
	}
	return raw, nil
}

// errorReason extracts error.type and error.reason from an error body.
func errorReason(raw []byte) string {
	var body struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error.Type != "" {
		return body.Error.Type + ": " + body.Error.Reason
	}
	return contract.TruncateText(string(bytes.TrimSpace(raw)), 200)
}

// scoreMapping types the fixed fields of published score documents.
var scoreMapping = []byte(`{
  "mappings": {
    "properties": {
      "goal": {"type": "keyword"},
      "attribute": {"type": "keyword"},
      "metric": {"type": "keyword"},
      "project": {"type": "keyword"},
      "calculation_type": {"type": "keyword"},
      "type": {"type": "keyword"},
      "run_id": {"type": "keyword"},
      "score": {"type": "integer"},
      "raw_value": {"type": "double"},
      "start_date": {"type": "date"},
      "end_date": {"type": "date"},
      "creation_date": {"type": "date"}
    }
  }
}`)
