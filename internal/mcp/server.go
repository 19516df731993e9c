package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools registered. It runs on the
// athlete's own machine over stdio, backed by the same session and caches
// the CLI uses.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("WODScan", version,
		server.WithToolCapabilities(false),
		server.WithInstructions("WODScan training data. Query the athlete's profile and workout history, or log a finished workout. History answers may be served from the local offline copy when the backend is unreachable."),
	)

	h := &handlers{ds: ds, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolGetProfile, Handler: h.getProfile},
		server.ServerTool{Tool: toolGetWorkoutHistory, Handler: h.getWorkoutHistory},
		server.ServerTool{Tool: toolLogWorkout, Handler: h.logWorkout},
	)

	return s
}

// handlers holds dependencies for MCP tool handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}
