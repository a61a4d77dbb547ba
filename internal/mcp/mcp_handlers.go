package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/prosoul/core"
	"github.com/huangsam/prosoul/core/algo"
	"github.com/huangsam/prosoul/internal/contract"
	"github.com/huangsam/prosoul/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	deps    core.Deps
}

func (h *toolHandler) handleListModels(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names, err := h.deps.Models.ListModels(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing models failed: %v", err)), nil
	}
	if names == nil {
		names = []string{}
	}
	return jsonResult(names), nil
}

func (h *toolHandler) handleGetModel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := strings.TrimSpace(request.GetString("model", ""))
	if name == "" {
		return mcp.NewToolResultError("model is required"), nil
	}
	model, err := h.deps.Models.GetModel(ctx, name)
	if err == nil && model == nil {
		err = fmt.Errorf("%w: %s", contract.ErrModelNotFound, name)
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading model failed: %v", err)), nil
	}
	return jsonResult(model.Outline()), nil
}

func (h *toolHandler) handleAssessModel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.requestConfig(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid assessment parameters: %v", err)), nil
	}
	if a := strings.TrimSpace(request.GetString("attribute", "")); a != "" {
		cfg.Attribute = a
	}

	a, err := core.AssessWindow(ctx, cfg, h.deps)
	if errors.Is(err, contract.ErrEmptyAssessment) {
		return mcp.NewToolResultError(fmt.Sprintf("no project could be scored with model %s in this window", cfg.Model)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("assessment failed: %v", err)), nil
	}

	records := a.Projects.Records()
	if records == nil {
		records = []schema.ScoreRecord{}
	}
	return jsonResult(struct {
		Model  string               `json:"model"`
		Window schema.Window        `json:"window"`
		Scores []schema.ScoreRecord `json:"scores"`
	}{Model: a.Primary.Model, Window: cfg.Window(), Scores: records}), nil
}

func (h *toolHandler) handleProjectReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.requestConfig(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid report parameters: %v", err)), nil
	}
	if k := request.GetString("report", ""); k != "" {
		kind := schema.ReportKind(strings.ToLower(k))
		if _, ok := schema.ValidReportKinds[kind]; !ok {
			return mcp.NewToolResultError(fmt.Sprintf("invalid report '%s'. must be big_number, stats", k)), nil
		}
		cfg.Report = kind
	}
	limit := request.GetInt("limit", -1)

	a, err := core.AssessWindow(ctx, cfg, h.deps)
	if err != nil && !errors.Is(err, contract.ErrEmptyAssessment) {
		return mcp.NewToolResultError(fmt.Sprintf("report failed: %v", err)), nil
	}
	report := a.Report
	report.Summaries = algo.RankSummaries(report.Summaries, limit)
	if report.Summaries == nil {
		report.Summaries = []schema.ProjectSummary{}
	}
	return jsonResult(report), nil
}

// requestConfig clones the base config with the model and date range of a request.
func (h *toolHandler) requestConfig(request mcp.CallToolRequest) (*contract.Config, error) {
	cfg := h.baseCfg.Clone()
	cfg.OutputFile = ""
	cfg.CSVDir = ""
	cfg.Model = strings.TrimSpace(request.GetString("model", ""))
	if cfg.Model == "" {
		return nil, errors.New("model is required")
	}

	now := time.Now()
	if v := request.GetString("from_date", ""); v != "" {
		t, err := contract.ParseDate(v, now)
		if err != nil {
			return nil, fmt.Errorf("from_date: %w", err)
		}
		cfg.StartTime = t
	}
	if v := request.GetString("to_date", ""); v != "" {
		t, err := contract.ParseDate(v, now)
		if err != nil {
			return nil, fmt.Errorf("to_date: %w", err)
		}
		cfg.EndTime = t
	}
	if cfg.StartTime.After(cfg.EndTime) {
		return nil, fmt.Errorf("from date (%s) cannot be after to date (%s)",
			contract.FormatDate(cfg.StartTime), contract.FormatDate(cfg.EndTime))
	}
	return cfg, nil
}

func jsonResult(v any) *mcp.CallToolResult {
	jsonData, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(jsonData))
}
