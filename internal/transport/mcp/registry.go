package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/alanyang/promptkit/internal/domain/event"
)

const notificationMethod = "notifications/message"

// watchEntry is one session's subscription. A nil category watches the
// whole catalogue.
type watchEntry struct {
	category *uuid.UUID
}

func (w watchEntry) matches(e event.Event) bool {
	if w.category == nil {
		return true
	}
	return e.CategoryID != nil && *e.CategoryID == *w.category
}

// WatchRegistry is the in-memory set of MCP sessions that asked, through
// the watch_category tool, to be told about catalogue events.
type WatchRegistry struct {
	mu       sync.RWMutex
	sessions map[string]watchEntry

	// mcpSrv is set after the MCP server is constructed.
	mcpMu  sync.RWMutex
	mcpSrv *mcpserver.MCPServer
}

func NewWatchRegistry() *WatchRegistry {
	return &WatchRegistry{
		sessions: make(map[string]watchEntry),
	}
}

func (r *WatchRegistry) SetMCPServer(s *mcpserver.MCPServer) {
	r.mcpMu.Lock()
	r.mcpSrv = s
	r.mcpMu.Unlock()
}

// Watch subscribes a session, replacing any earlier watch it held.
func (r *WatchRegistry) Watch(sessionID string, category *uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = watchEntry{category: category}
}

// Unwatch drops a session. It reports whether the session was watching.
func (r *WatchRegistry) Unwatch(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	return ok
}

func (r *WatchRegistry) Watching(sessionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[sessionID]
	return ok
}

// Notify sends e to every session whose watch matches it. Delivery is
// best-effort; the last send error is returned.
func (r *WatchRegistry) Notify(_ context.Context, e event.Event) error {
	r.mu.RLock()
	targets := make([]string, 0, len(r.sessions))
	for sessionID, w := range r.sessions {
		if w.matches(e) {
			targets = append(targets, sessionID)
		}
	}
	r.mu.RUnlock()

	if len(targets) == 0 {
		return nil
	}

	r.mcpMu.RLock()
	srv := r.mcpSrv
	r.mcpMu.RUnlock()

	if srv == nil {
		return fmt.Errorf("mcp server not initialized")
	}

	data, err := toParams(e)
	if err != nil {
		return fmt.Errorf("serialize notification: %w", err)
	}
	params := map[string]any{"level": "info", "logger": "promptkit", "data": data}

	var lastErr error
	for _, sessionID := range targets {
		if err := srv.SendNotificationToSpecificClient(sessionID, notificationMethod, params); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func toParams(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var params map[string]any
	if err := json.Unmarshal(data, &params); err != nil {
		return map[string]any{"data": v}, nil
	}
	return params, nil
}
