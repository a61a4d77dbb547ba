// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/prosoul/core"
	"github.com/huangsam/prosoul/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the prosoul MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, deps core.Deps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"Prosoul Quality Model Server",
		version,
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		deps:    deps,
	}

	// --- 1. Tool: list_models ---
	s.AddTool(mcp.NewTool("list_models",
		mcp.WithDescription("List the names of all stored quality models."),
	), h.handleListModels)

	// --- 2. Tool: get_model ---
	s.AddTool(mcp.NewTool("get_model",
		mcp.WithDescription("Show the goals, attributes and metrics of a quality model."),
		mcp.WithString("model", mcp.Description("Name of the quality model."), mcp.Required()),
	), h.handleGetModel)

	// --- 3. Tool: assess_model ---
	s.AddTool(mcp.NewTool("assess_model",
		mcp.WithDescription("Score every project of the metrics index against a quality model over a date range. Nothing is published."),
		mcp.WithString("model", mcp.Description("Name of the quality model."), mcp.Required()),
		mcp.WithString("from_date", mcp.Description("Start date (YYYY-MM-DD or 'N [units] ago'). Defaults to the configured start.")),
		mcp.WithString("to_date", mcp.Description("End date (YYYY-MM-DD or 'N [units] ago'). Defaults to the configured end.")),
		mcp.WithString("attribute", mcp.Description("Restrict the assessment to one attribute.")),
	), h.handleAssessModel)

	// --- 4. Tool: project_report ---
	s.AddTool(mcp.NewTool("project_report",
		mcp.WithDescription("Rank projects by their average score on a quality model."),
		mcp.WithString("model", mcp.Description("Name of the quality model."), mcp.Required()),
		mcp.WithString("from_date", mcp.Description("Start date (YYYY-MM-DD or 'N [units] ago').")),
		mcp.WithString("to_date", mcp.Description("End date (YYYY-MM-DD or 'N [units] ago').")),
		mcp.WithString("report", mcp.Description("Report kind. Defaults to 'big_number'."), mcp.Enum("big_number", "stats")),
		mcp.WithNumber("limit", mcp.Description("Limit the number of projects returned.")),
	), h.handleProjectReport)

	return s
}

// StartMCPServer serves the prosoul MCP server over stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, deps core.Deps, version string) error {
	s := NewMCPServer(baseCfg, deps, version)
	return server.ServeStdio(s)
}
