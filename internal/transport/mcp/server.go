package mcp

import (
	"context"
	"log/slog"
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	promptsvc "github.com/alanyang/promptkit/internal/service/prompt"
)

// Server wraps the mark3labs/mcp-go MCPServer and its StreamableHTTPServer.
// Tools are registered in tools.go, prompts in prompts.go, watches in
// registry.go.
type Server struct {
	httpSrv  *mcpserver.StreamableHTTPServer
	watchers *WatchRegistry
}

func New(watchers *WatchRegistry, promptSvc *promptsvc.Service, version string) *Server {
	s := &Server{watchers: watchers}

	hooks := &mcpserver.Hooks{}
	hooks.AddOnUnregisterSession(s.onSessionClose)

	mcpSrv := mcpserver.NewMCPServer(
		"promptkit",
		version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithPromptCapabilities(true),
		mcpserver.WithLogging(),
		mcpserver.WithHooks(hooks),
	)
	watchers.SetMCPServer(mcpSrv)

	RegisterTools(mcpSrv, watchers, promptSvc)
	RegisterPrompts(mcpSrv, promptSvc)

	s.httpSrv = mcpserver.NewStreamableHTTPServer(mcpSrv)
	return s
}

// Handler returns an http.Handler that serves the MCP endpoint.
func (s *Server) Handler() http.Handler {
	return s.httpSrv
}

func (s *Server) Watchers() *WatchRegistry {
	return s.watchers
}

// Shutdown closes open MCP sessions.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) onSessionClose(ctx context.Context, session mcpserver.ClientSession) {
	if s.watchers.Unwatch(session.SessionID()) {
		slog.InfoContext(ctx, "mcp: session closed, watch removed", "session_id", session.SessionID())
	}
}
