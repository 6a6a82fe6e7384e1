// Package resources implements MCP resource handlers for the
// reasoning engine.
//
// Resources provide read-only data that the host can consume for
// context. They use URI-based addressing (noema://...) following MCP
// conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aletheia-dev/noema/internal/graph"
	"github.com/aletheia-dev/noema/internal/session"
	"github.com/mark3labs/mcp-go/mcp"
)

// Handler manages the engine's resource endpoints.
type Handler struct {
	manager *session.Manager
	graph   *graph.Graph
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(manager *session.Manager, g *graph.Graph) *Handler {
	return &Handler{manager: manager, graph: g}
}

// SessionsResource returns the MCP resource definition for the live
// session registry.
func (h *Handler) SessionsResource() mcp.Resource {
	return mcp.NewResource(
		"noema://sessions",
		"Active Reasoning Sessions",
		mcp.WithResourceDescription("Per-session artifact counts, budgets, and operation usage"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleSessions returns the stats of every active session as JSON,
// ordered by session id.
func (h *Handler) HandleSessions(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	stats := make([]session.Stats, 0)
	for _, id := range h.manager.ActiveIDs() {
		// A session can expire between listing and lookup; skip it.
		s, ok := h.manager.Get(id)
		if !ok {
			continue
		}
		stats = append(stats, s.Stats())
	}

	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// SnapshotResource returns the MCP resource definition for the
// process knowledge graph.
func (h *Handler) SnapshotResource() mcp.Resource {
	return mcp.NewResource(
		"noema://graph/snapshot",
		"Knowledge Graph Snapshot",
		mcp.WithResourceDescription("Complete serialized state of the process knowledge graph"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleSnapshot returns the current graph snapshot as JSON.
func (h *Handler) HandleSnapshot(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(h.graph.Serialize(), "", "  ")
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
