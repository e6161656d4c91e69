package main

import (
	"fmt"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/jward/arbor/internal/tools"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the index to MCP clients over stdio",
	Long:  "Run an MCP server on stdin/stdout exposing index_directory, file_summary, find_type, find_senders, package_graph and index_summary. The configured database is used when set; otherwise the index lives in memory.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting cwd: %w", err)
		}
		engine, err := newEngine(resolveDBPath(findRepoRoot(cwd)))
		if err != nil {
			return err
		}
		defer engine.Close()

		ctx, cancel := signalContext()
		defer cancel()
		srv := tools.NewServer(engine)
		logger.Info("serve.start", "transport", "stdio")
		return srv.MCPServer().Run(ctx, &mcp.StdioTransport{})
	},
}
