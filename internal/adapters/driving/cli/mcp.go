package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mnemo/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so an assistant can search documents,
edit the basket and ask questions for an operator.

By default, the server communicates over stdio using JSON-RPC.
Use --port to serve over HTTP instead; Prometheus metrics are then
available at /metrics on the same port.

Examples:
  # Stdio mode (default)
  mnemo mcp serve

  # HTTP mode
  mnemo mcp serve --port 8080

Assistant configuration:
  {
    "mcpServers": {
      "mnemo": {
        "command": "/path/to/mnemo",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	if err := requireServices(); err != nil {
		return err
	}
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	ports := &mcp.Ports{
		Catalog:   catalogService,
		Selection: selectionService,
		Pipeline:  pipelineService,
		Document:  documentService,
	}

	server, err := mcp.NewServer(ports, operatorID)
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		extra := map[string]http.Handler{}
		if metricsHandler != nil {
			extra["/metrics"] = metricsHandler
		}
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr, extra)
	}

	return server.Run(cmd.Context())
}
