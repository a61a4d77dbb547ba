package cmd

import (
	"github.com/huangsam/prosoul/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the prosoul MCP server",
	Long: `Launch an MCP server over stdio that lets AI agents list quality models,
assess projects and rank them via standard tools. Nothing is published.`,
	PreRunE: sharedSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		deps, cleanup, err := openDeps(cfg, nil)
		if err != nil {
			return err
		}
		defer cleanup()
		return mcp.StartMCPServer(rootCtx, cfg, deps, version)
	},
}
