package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/prosoul/core"
	"github.com/huangsam/prosoul/internal/contract"
	"github.com/huangsam/prosoul/internal/modelstore"
	"github.com/huangsam/prosoul/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMetrics struct {
	samples  map[string][]schema.ProjectSample
	err      error
	projects []string
	windows  []schema.Window
}

func (s *stubMetrics) QueryMetric(_ context.Context, _ string, _ schema.MetricsBackend, data schema.MetricData, window schema.Window) ([]schema.ProjectSample, error) {
	s.windows = append(s.windows, window)
	if s.err != nil {
		return nil, s.err
	}
	return s.samples[data.Implementation], nil
}

func (s *stubMetrics) ListProjects(context.Context, string, schema.MetricsBackend, schema.Window) ([]string, error) {
	return s.projects, nil
}

type countingSink struct {
	published int
}

func (c *countingSink) ResetIndex(context.Context, string) error { return nil }

func (c *countingSink) Publish(_ context.Context, _ string, docs []contract.Document) (int, error) {
	c.published += len(docs)
	return len(docs), nil
}

func (c *countingSink) LinkAlias(context.Context, string, ...string) error { return nil }

type envelope struct {
	Status int             `json:"status"`
	Msg    string          `json:"msg"`
	Data   json.RawMessage `json:"data"`
}

func date(s string) time.Time {
	t, _ := time.Parse(contract.DateFormat, s)
	return t
}

func healthModel() *schema.QualityModel {
	activity := &schema.Attribute{
		Name: "Activity",
		Metrics: []*schema.Metric{{
			Name:       "commits",
			Thresholds: "10,50,100",
			Data:       &schema.MetricData{Implementation: "scm_commits"},
		}},
	}
	return &schema.QualityModel{Name: "health", Goals: []*schema.Goal{{Name: "Community", Attributes: []*schema.Attribute{activity}}}}
}

func emptyModel() *schema.QualityModel {
	return &schema.QualityModel{Name: "empty", Goals: []*schema.Goal{{
		Name:       "Docs",
		Attributes: []*schema.Attribute{{Name: "Readme", Metrics: []*schema.Metric{{Name: "unbound"}}}},
	}}}
}

type fixture struct {
	server  *Server
	handler http.Handler
	metrics *stubMetrics
	sink    *countingSink
}

func newFixture() *fixture {
	metrics := &stubMetrics{
		samples: map[string][]schema.ProjectSample{
			"scm_commits": {{Project: "alpha", Value: 75}, {Project: "beta", Value: 5}},
		},
		projects: []string{"alpha", "beta", "gamma"},
	}
	sink := &countingSink{}
	cfg := &contract.Config{
		Index:     "metrics",
		Backend:   schema.GrimoireLabBackend,
		StartTime: date("2020-01-01"),
		EndTime:   date("2020-10-01"),
		Workers:   1,
		Publish:   true,
		Report:    schema.BigNumberReport,
		CSVDir:    "ignored-by-api",
	}
	deps := core.Deps{
		Metrics: metrics,
		Models:  modelstore.NewMemorySource(healthModel(), emptyModel()),
		Sink:    sink,
	}
	reg := prometheus.NewRegistry()
	s := NewServer(cfg, deps, "1.2.3", reg)
	s.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return &fixture{server: s, handler: NewRouter(s, reg), metrics: metrics, sink: sink}
}

func (f *fixture) do(t *testing.T, method, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestHealth(t *testing.T) {
	f := newFixture()
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, HealthResponse{
		Status:    "ok",
		Timestamp: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Version:   "1.2.3",
		Service:   "prosoul",
	}, resp)
}

func TestListModels(t *testing.T) {
	f := newFixture()
	rec, env := f.do(t, http.MethodGet, "/models")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, env.Status)
	assert.JSONEq(t, `["empty","health"]`, string(env.Data))
}

func TestGetModel(t *testing.T) {
	f := newFixture()

	rec, env := f.do(t, http.MethodGet, "/models/health")
	require.Equal(t, http.StatusOK, rec.Code)
	var outline schema.ModelOutline
	require.NoError(t, json.Unmarshal(env.Data, &outline))
	assert.Equal(t, "health", outline.Name)
	assert.Equal(t, []string{"Community"}, outline.Roots)
	require.Len(t, outline.Goals, 1)
	assert.Equal(t, "Activity", outline.Goals[0].Attributes[0].Name)

	rec, env = f.do(t, http.MethodGet, "/models/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, env.Status)
	assert.Contains(t, env.Msg, "missing")
}

func TestGetAssessment(t *testing.T) {
	f := newFixture()
	rec, env := f.do(t, http.MethodGet, "/models/health/assessment?from=2020-04-01&to=2020-06-30")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp AssessmentResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))

	assert.Equal(t, "health", resp.Model)
	assert.Equal(t, schema.Window{Start: date("2020-04-01"), End: date("2020-06-30")}, resp.Window)
	require.Len(t, resp.Scores, 3)
	assert.Equal(t, "alpha", resp.Scores[0].Project)
	assert.Equal(t, 2, *resp.Scores[0].Score)
	assert.Equal(t, 75.0, *resp.Scores[0].RawValue)
	assert.Equal(t, 0, *resp.Scores[1].Score)
	assert.Equal(t, "gamma", resp.Scores[2].Project)
	assert.Nil(t, resp.Scores[2].Score)
	assert.Nil(t, resp.Scores[2].RawValue)

	require.Len(t, resp.Report.Summaries, 2)
	assert.Equal(t, "alpha", resp.Report.Summaries[0].Project)

	// Only the requested window is queried and nothing is published.
	assert.Equal(t, []schema.Window{{Start: date("2020-04-01"), End: date("2020-06-30")}}, f.metrics.windows)
	assert.Zero(t, f.sink.published)
}

func TestGetAssessmentErrors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		setup  func(f *fixture)
		code   int
		msg    string
	}{
		{name: "unknown model", target: "/models/nope/assessment", code: http.StatusNotFound, msg: "quality model not found"},
		{name: "bad from", target: "/models/health/assessment?from=yesterday", code: http.StatusBadRequest, msg: "from"},
		{name: "reversed window", target: "/models/health/assessment?from=2021-01-01&to=2020-01-01", code: http.StatusBadRequest, msg: "cannot be after"},
		{name: "bad report", target: "/models/health/assessment?report=pie", code: http.StatusBadRequest, msg: "invalid report"},
		{name: "empty", target: "/models/empty/assessment", code: http.StatusUnprocessableEntity, msg: "empty assessment"},
		{
			name:   "store failure",
			target: "/models/health/assessment",
			setup: func(f *fixture) {
				f.metrics.err = &contract.StoreError{Op: "search", Index: "metrics", Status: 503}
			},
			code: http.StatusBadGateway,
			msg:  "store search failed",
		},
		{
			name:   "other failure",
			target: "/models/health/assessment",
			setup:  func(f *fixture) { f.metrics.err = errors.New("boom") },
			code:   http.StatusInternalServerError,
			msg:    "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			if tt.setup != nil {
				tt.setup(f)
			}
			rec, env := f.do(t, http.MethodGet, tt.target)
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.code, env.Status)
			assert.Contains(t, env.Msg, tt.msg)
		})
	}
}

func TestGetAssessmentEmptyCarriesResult(t *testing.T) {
	f := newFixture()
	rec, env := f.do(t, http.MethodGet, "/models/empty/assessment")

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp AssessmentResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, "empty", resp.Model)
	assert.Empty(t, resp.Scores)
}

func TestGetReport(t *testing.T) {
	f := newFixture()

	rec, env := f.do(t, http.MethodGet, "/models/health/report?report=stats&limit=1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var report schema.Report
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, schema.StatsReport, report.Kind)
	require.Len(t, report.Summaries, 1)
	assert.Equal(t, "alpha", report.Summaries[0].Project)
	assert.Equal(t, 2.0, report.Summaries[0].Average)
	assert.Equal(t, 2, report.Stats.Projects)

	rec, env = f.do(t, http.MethodGet, "/models/health/report?limit=-2")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Msg, "invalid limit")
}

func TestCreateRun(t *testing.T) {
	f := newFixture()
	rec, env := f.do(t, http.MethodPost, "/models/health/runs")

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp RunResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, "health", resp.Model)
	assert.Equal(t, 4, resp.Quarters)
	// Two scores and one placeholder for each of four quarters plus the full range.
	assert.Equal(t, 15, resp.Published)
	assert.Equal(t, 15, f.sink.published)
	assert.Len(t, resp.Report.Summaries, 2)
}

func TestCreateRunWithoutPublishing(t *testing.T) {
	f := newFixture()
	rec, env := f.do(t, http.MethodPost, "/models/health/runs?publish=false")

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp RunResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Zero(t, resp.Published)
	assert.Zero(t, f.sink.published)

	rec, env = f.do(t, http.MethodPost, "/models/health/runs?publish=maybe")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Msg, "invalid publish")
}

func TestCreateRunConflict(t *testing.T) {
	f := newFixture()
	f.server.runMu.Lock()
	defer f.server.runMu.Unlock()

	rec, env := f.do(t, http.MethodPost, "/models/health/runs")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, env.Msg, "already in progress")
	assert.Zero(t, f.sink.published)
}

func TestCreateRunUnknownModel(t *testing.T) {
	f := newFixture()
	rec, _ := f.do(t, http.MethodPost, "/models/nope/runs")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNotFoundRoute(t *testing.T) {
	f := newFixture()
	rec, env := f.do(t, http.MethodGet, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "route not found", env.Msg)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture()
	f.do(t, http.MethodGet, "/models/health/assessment")
	f.do(t, http.MethodGet, "/models/nope/assessment")

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `prosoul_http_requests_total{code="200",method="GET",route="/models/{name}/assessment"} 1`)
	assert.Contains(t, body, `prosoul_http_requests_total{code="404",method="GET",route="/models/{name}/assessment"} 1`)
	assert.Contains(t, body, `prosoul_assessments_total{kind="window",outcome="ok"} 1`)
	assert.Contains(t, body, `prosoul_assessments_total{kind="window",outcome="error"} 1`)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{contract.ErrModelNotFound, http.StatusNotFound},
		{contract.ErrEmptyAssessment, http.StatusUnprocessableEntity},
		{contract.ErrUnsupportedBackend, http.StatusBadRequest},
		{errBadRequest, http.StatusBadRequest},
		{&contract.StoreError{Op: "bulk"}, http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("x"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.code, statusFor(tt.err))
		})
	}
}
