package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/lexrag/internal/adapters/driving/mcp"
)

var mcpHTTPAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

Tools: ask (map-reduce answer), retrieve (hybrid search), collections.
Resources: lexrag://collections, lexrag://collections/{collection}/documents,
lexrag://documents/{documentId}.

By default, the server communicates over stdio using JSON-RPC.
Use --http to serve the streamable HTTP transport instead.

Examples:
  # Stdio mode (default, for desktop assistants)
  lexrag mcp

  # HTTP mode (for MCP Inspector, remote access)
  lexrag mcp --http :8080`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", "HTTP listen address (empty = use stdio)")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if err := requireCatalog(); err != nil {
		return err
	}
	if err := requireRetrieval(ctx); err != nil {
		return err
	}

	ports := &mcp.Ports{
		Retrieval: retrievalService,
		Catalog:   catalogService,
	}
	// ask needs a completion provider; without one the other tools still work.
	if err := requireAsk(ctx); err == nil {
		ports.Ask = askService
	} else {
		cmd.PrintErrf("ask tool disabled: %v\n", err)
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if mcpHTTPAddr != "" {
		printf(cmd, "MCP server listening on http://localhost%s\n", mcpHTTPAddr)
		return server.RunHTTP(ctx, mcpHTTPAddr)
	}
	return server.Run(ctx)
}
