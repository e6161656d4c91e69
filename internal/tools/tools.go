// Package tools exposes the summary index to MCP clients.
package tools

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jward/arbor"
)

// Version is reported to clients in the server implementation info.
var Version = "0.1.0"

// Server wraps the MCP server with tool handlers.
type Server struct {
	mcp    *mcp.Server
	engine *arbor.Engine
}

// NewServer creates a new MCP server with all tools registered.
func NewServer(e *arbor.Engine) *Server {
	srv := &Server{
		engine: e,
		mcp: mcp.NewServer(
			&mcp.Implementation{
				Name:    "arbor",
				Version: Version,
			},
			nil,
		),
	}
	srv.registerTools()
	return srv
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

func (s *Server) registerTools() {
	s.mcp.AddTool(&mcp.Tool{
		Name:        "index_directory",
		Description: "Index every .java file under a directory. Unchanged files are skipped; changed files are rebuilt in place and the files affected by signature changes are reported.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"path": {
					"type": "string",
					"description": "Directory to index"
				}
			},
			"required": ["path"]
		}`),
	}, s.handleIndexDirectory)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "file_summary",
		Description: "Summarize one indexed file: package, imports, line count, anomalies and every type with its methods.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"path": {
					"type": "string",
					"description": "Path of an indexed .java file"
				}
			},
			"required": ["path"]
		}`),
	}, s.handleFileSummary)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "find_type",
		Description: "Find types by simple name (e.g. 'Cart') or by fully qualified name (e.g. 'com.acme.shop.Cart'). Optionally lists methods and direct subtypes.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"name": {
					"type": "string",
					"description": "Simple or qualified type name"
				},
				"include_methods": {
					"type": "boolean",
					"description": "Include the methods of each match"
				},
				"include_subtypes": {
					"type": "boolean",
					"description": "Include the types that directly extend or implement each match"
				}
			},
			"required": ["name"]
		}`),
	}, s.handleFindType)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "find_senders",
		Description: "List the methods that send a message (call a method) by name, with the receiver expression of each send.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"message": {
					"type": "string",
					"description": "Method name, without arguments"
				},
				"limit": {
					"type": "integer",
					"description": "Maximum number of results (default 100)"
				}
			},
			"required": ["message"]
		}`),
	}, s.handleFindSenders)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "package_graph",
		Description: "Return the package dependency graph aggregated from imports, optionally with its import cycles.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"cycles": {
					"type": "boolean",
					"description": "Also report circular package dependencies"
				}
			}
		}`),
	}, s.handlePackageGraph)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "index_summary",
		Description: "Counts over the whole index and the most deeply nested methods.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"top": {
					"type": "integer",
					"description": "Number of deepest methods to list (default 10)"
				}
			}
		}`),
	}, s.handleIndexSummary)
}

// jsonResult marshals data to JSON and returns it as a tool result.
func jsonResult(data any) *mcp.CallToolResult {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return errResult("json marshal err=" + err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(b)},
		},
	}
}

// errResult returns a tool result indicating an error.
func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}

// parseArgs unmarshals the raw JSON arguments into a map.
func parseArgs(req *mcp.CallToolRequest) (map[string]any, error) {
	if req.Params == nil || len(req.Params.Arguments) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &m); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	return m, nil
}

func getStringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// getIntArg extracts an integer argument with a default value.
func getIntArg(args map[string]any, key string, defaultVal int) int {
	f, ok := args[key].(float64) // JSON numbers decode as float64
	if !ok {
		return defaultVal
	}
	return int(f)
}

func getBoolArg(args map[string]any, key string) bool {
	b, _ := args[key].(bool)
	return b
}
