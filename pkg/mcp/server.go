// Package mcp exposes the analyzer over the Model Context Protocol so agent
// tooling can request API-surface diffs without shelling out to the CLI.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/server"
)

const serverVersion = "0.1.0"

// Server wraps the MCP server exposing the analyzer operations as tools.
type Server struct {
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates the MCP server. Logger can be nil.
func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{logger: logger}

	s.mcpServer = server.NewMCPServer("apidiff", serverVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s.mcpServer.AddTools(
		server.ServerTool{Tool: analyzeTool(), Handler: s.handleAnalyze},
		server.ServerTool{Tool: buildSnapshotTool(), Handler: s.handleBuildSnapshot},
		server.ServerTool{Tool: compareSnapshotsTool(), Handler: s.handleCompareSnapshots},
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
