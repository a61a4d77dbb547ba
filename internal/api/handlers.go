package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/huangsam/prosoul/core"
	"github.com/huangsam/prosoul/core/algo"
	"github.com/huangsam/prosoul/internal/contract"
	"github.com/huangsam/prosoul/schema"
	"github.com/spf13/cast"
)

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Service   string    `json:"service"`
}

// AssessmentResponse is a single-window assessment flattened to score records.
type AssessmentResponse struct {
	Model  string               `json:"model"`
	Window schema.Window        `json:"window"`
	Scores []schema.ScoreRecord `json:"scores"`
	Report schema.Report        `json:"report"`
}

// RunResponse summarizes a publishing run.
type RunResponse struct {
	RunID     string        `json:"run_id"`
	Model     string        `json:"model"`
	CreatedAt time.Time     `json:"created_at"`
	Quarters  int           `json:"quarters"`
	Published int           `json:"published"`
	Report    schema.Report `json:"report"`
}

// Health reports liveness.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, HealthResponse{
		Status:    "ok",
		Timestamp: s.now().UTC(),
		Version:   s.version,
		Service:   "prosoul",
	})
}

// ListModels returns the names of all stored models.
func (s *Server) ListModels(w http.ResponseWriter, r *http.Request) {
	names, err := s.deps.Models.ListModels(r.Context())
	if err != nil {
		renderFailure(w, r, err, nil)
		return
	}
	if names == nil {
		names = []string{}
	}
	renderOK(w, r, names)
}

// GetModel returns the outline of one model.
func (s *Server) GetModel(w http.ResponseWriter, r *http.Request) {
	name := modelParam(r)
	model, err := s.deps.Models.GetModel(r.Context(), name)
	if err == nil && model == nil {
		err = fmt.Errorf("%w: %s", contract.ErrModelNotFound, name)
	}
	if err != nil {
		renderFailure(w, r, err, nil)
		return
	}
	renderOK(w, r, model.Outline())
}

// GetAssessment assesses one model over the requested window without publishing.
func (s *Server) GetAssessment(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.requestConfig(r)
	if err != nil {
		renderFailure(w, r, err, nil)
		return
	}
	a, err := core.AssessWindow(r.Context(), cfg, s.deps)
	s.metrics.assessed("window", err)
	if a == nil {
		renderFailure(w, r, err, nil)
		return
	}

	resp := AssessmentResponse{
		Model:  a.Primary.Model,
		Window: cfg.Window(),
		Scores: a.Projects.Records(),
		Report: a.Report,
	}
	if resp.Scores == nil {
		resp.Scores = []schema.ScoreRecord{}
	}
	if err != nil {
		renderFailure(w, r, err, resp)
		return
	}
	renderOK(w, r, resp)
}

// GetReport returns the ranked project summaries of one model. The optional
// limit parameter keeps only the top entries.
func (s *Server) GetReport(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.requestConfig(r)
	if err != nil {
		renderFailure(w, r, err, nil)
		return
	}
	limit := -1
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = cast.ToIntE(v)
		if err != nil || limit < 0 {
			renderFailure(w, r, fmt.Errorf("%w: invalid limit %q", errBadRequest, v), nil)
			return
		}
	}

	a, err := core.AssessWindow(r.Context(), cfg, s.deps)
	s.metrics.assessed("report", err)
	if a == nil {
		renderFailure(w, r, err, nil)
		return
	}
	report := a.Report
	report.Summaries = algo.RankSummaries(report.Summaries, limit)
	if err != nil {
		renderFailure(w, r, err, report)
		return
	}
	renderOK(w, r, report)
}

// CreateRun runs a full quarterly assessment and publishes it unless
// publish=false is given. Concurrent runs are refused with 409.
func (s *Server) CreateRun(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.requestConfig(r)
	if err != nil {
		renderFailure(w, r, err, nil)
		return
	}
	if v := r.URL.Query().Get("publish"); v != "" {
		publish, err := cast.ToBoolE(v)
		if err != nil {
			renderFailure(w, r, fmt.Errorf("%w: invalid publish %q", errBadRequest, v), nil)
			return
		}
		cfg.Publish = publish
	}

	if !s.runMu.TryLock() {
		renderError(w, r, http.StatusConflict, "an assessment run is already in progress")
		return
	}
	defer s.runMu.Unlock()

	runner := core.NewRunner(cfg, s.deps.Metrics, s.deps.Models, s.deps.Sink, s.deps.History)
	result, err := runner.AssessAndPublish(r.Context())
	s.metrics.assessed("run", err)
	if err != nil {
		renderFailure(w, r, err, nil)
		return
	}

	render.Status(r, http.StatusCreated)
	renderOK(w, r, RunResponse{
		RunID:     result.RunID,
		Model:     result.Model,
		CreatedAt: result.CreatedAt,
		Quarters:  len(result.Quarters),
		Published: result.Published,
		Report:    algo.BuildReport(cfg.Report, result.Model, result.Projects),
	})
}

// requestConfig applies the from, to, attribute and report query parameters
// to a copy of the server configuration. File outputs are never written.
func (s *Server) requestConfig(r *http.Request) (*contract.Config, error) {
	cfg := s.cfg.Clone()
	cfg.Model = modelParam(r)
	cfg.OutputFile = ""
	cfg.CSVDir = ""

	q := r.URL.Query()
	now := s.now()
	if v := q.Get("from"); v != "" {
		t, err := contract.ParseDate(v, now)
		if err != nil {
			return nil, fmt.Errorf("%w: from: %v", errBadRequest, err)
		}
		cfg.StartTime = t
	}
	if v := q.Get("to"); v != "" {
		t, err := contract.ParseDate(v, now)
		if err != nil {
			return nil, fmt.Errorf("%w: to: %v", errBadRequest, err)
		}
		cfg.EndTime = t
	}
	if cfg.StartTime.After(cfg.EndTime) {
		return nil, fmt.Errorf("%w: from date (%s) cannot be after to date (%s)", errBadRequest,
			contract.FormatDate(cfg.StartTime), contract.FormatDate(cfg.EndTime))
	}
	if v := q.Get("attribute"); v != "" {
		cfg.Attribute = strings.TrimSpace(v)
	}
	if v := q.Get("report"); v != "" {
		kind := schema.ReportKind(strings.ToLower(v))
		if _, ok := schema.ValidReportKinds[kind]; !ok {
			return nil, fmt.Errorf("%w: invalid report '%s'", errBadRequest, v)
		}
		cfg.Report = kind
	}
	return cfg, nil
}

func modelParam(r *http.Request) string {
	name := chi.URLParam(r, "name")
	if unescaped, err := url.PathUnescape(name); err == nil {
		return unescaped
	}
	return name
}
