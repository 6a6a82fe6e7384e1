package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aletheia-dev/noema/internal/graph"
	"github.com/mark3labs/mcp-go/mcp"
)

// SnapshotTool handles the graph_snapshot MCP tool.
type SnapshotTool struct {
	graph *graph.Graph
}

// NewSnapshotTool creates a SnapshotTool over the process knowledge graph.
func NewSnapshotTool(g *graph.Graph) *SnapshotTool {
	return &SnapshotTool{graph: g}
}

// Definition returns the MCP tool definition for graph_snapshot.
func (t *SnapshotTool) Definition() mcp.Tool {
	return mcp.NewTool("graph_snapshot",
		mcp.WithDescription(
			"Serialize the knowledge graph to a complete JSON snapshot, suitable for graph_restore.",
		),
	)
}

// Handle processes the graph_snapshot tool call.
func (t *SnapshotTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap := t.graph.Serialize()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode snapshot: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ─── RestoreTool ─────────────────────────────────────────────────────────────

// RestoreTool handles the graph_restore MCP tool.
type RestoreTool struct {
	graph *graph.Graph
}

// NewRestoreTool creates a RestoreTool over the process knowledge graph.
func NewRestoreTool(g *graph.Graph) *RestoreTool {
	return &RestoreTool{graph: g}
}

// Definition returns the MCP tool definition for graph_restore.
func (t *RestoreTool) Definition() mcp.Tool {
	return mcp.NewTool("graph_restore",
		mcp.WithDescription(
			"Replace the knowledge graph's contents from a graph_snapshot JSON payload. On a rejected "+
				"snapshot the current graph is untouched.",
		),
		mcp.WithString("snapshot",
			mcp.Required(),
			mcp.Description("JSON snapshot produced by graph_snapshot"),
		),
	)
}

// Handle processes the graph_restore tool call.
func (t *RestoreTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw := req.GetString("snapshot", "")
	if raw == "" {
		return mcp.NewToolResultError("'snapshot' is required"), nil
	}

	var snap graph.Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("'snapshot' must be valid JSON: %v", err)), nil
	}
	if err := t.graph.LoadSnapshot(&snap); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to restore snapshot: %v", err)), nil
	}

	m := t.graph.Metrics()
	return mcp.NewToolResultText(fmt.Sprintf("Graph restored: %d nodes, %d edges (mode %s).", m.NodeCount, m.EdgeCount, t.graph.Mode())), nil
}
