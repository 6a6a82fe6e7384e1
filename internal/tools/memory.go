package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aletheia-dev/noema/internal/artifact"
	"github.com/aletheia-dev/noema/internal/unified"
	"github.com/mark3labs/mcp-go/mcp"
)

// MemoryAddTool handles the memory_add MCP tool.
type MemoryAddTool struct {
	store *unified.Store
}

// NewMemoryAddTool creates a MemoryAddTool with the given unified store.
func NewMemoryAddTool(store *unified.Store) *MemoryAddTool {
	return &MemoryAddTool{store: store}
}

// Definition returns the MCP tool definition for memory_add.
func (t *MemoryAddTool) Definition() mcp.Tool {
	return mcp.NewTool("memory_add",
		mcp.WithDescription(
			"Append a tagged artifact to the consolidated memory log. The entry is projected into the "+
				"cross-session knowledge graph; a session_id field in the item links it to its session.",
		),
		mcp.WithString("kind",
			mcp.Required(),
			mcp.Description("Artifact kind tag"),
		),
		mcp.WithString("item",
			mcp.Required(),
			mcp.Description("JSON object with the artifact's fields"),
		),
		mcp.WithString("id",
			mcp.Description("Entry id (default: generated); re-adding an id replaces the item"),
		),
	)
}

// Handle processes the memory_add tool call.
func (t *MemoryAddTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kindStr := req.GetString("kind", "")
	raw := req.GetString("item", "")
	if kindStr == "" {
		return mcp.NewToolResultError("'kind' is required"), nil
	}
	if raw == "" {
		return mcp.NewToolResultError("'item' is required"), nil
	}

	var item any
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("'item' must be valid JSON: %v", err)), nil
	}

	id, err := t.store.Add(req.GetString("id", ""), artifact.Kind(kindStr), item)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to add memory entry: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Memory entry %s stored (%s).", id, kindStr)), nil
}

// ─── MemoryQueryTool ─────────────────────────────────────────────────────────

// MemoryQueryTool handles the memory_query MCP tool.
type MemoryQueryTool struct {
	store *unified.Store
}

// NewMemoryQueryTool creates a MemoryQueryTool.
func NewMemoryQueryTool(store *unified.Store) *MemoryQueryTool {
	return &MemoryQueryTool{store: store}
}

// Definition returns the MCP tool definition for memory_query.
func (t *MemoryQueryTool) Definition() mcp.Tool {
	return mcp.NewTool("memory_query",
		mcp.WithDescription(
			"Read the consolidated memory log: one entry by id, entries of one kind, or overall "+
				"statistics including the graph projection size.",
		),
		mcp.WithString("id",
			mcp.Description("Entry id to fetch"),
		),
		mcp.WithString("kind",
			mcp.Description("Artifact kind to list"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum entries to list (default: 20)"),
		),
	)
}

// Handle processes the memory_query tool call.
func (t *MemoryQueryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if id := req.GetString("id", ""); id != "" {
		entry, ok := t.store.Get(id)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("memory entry %s not found", id)), nil
		}
		data, err := json.MarshalIndent(entry, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to encode entry: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}

	if kindStr := req.GetString("kind", ""); kindStr != "" {
		kind := artifact.Kind(kindStr)
		if err := artifact.ValidateKind(kind); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		entries := t.store.ByKind(kind)
		if len(entries) == 0 {
			return mcp.NewToolResultText(fmt.Sprintf("No %s entries in memory.", kind)), nil
		}
		if limit := intArg(req, "limit", 20); len(entries) > limit {
			entries = entries[:limit]
		}
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to encode entries: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}

	stats := t.store.Stats()
	var sb strings.Builder
	sb.WriteString("## Memory Statistics\n\n")
	fmt.Fprintf(&sb, "- **Entries**: %d\n", stats.Total)
	fmt.Fprintf(&sb, "- **Graph projection**: %d nodes, %d edges\n", stats.GraphNodes, stats.GraphEdges)
	if !stats.OldestAt.IsZero() {
		fmt.Fprintf(&sb, "- **Oldest**: %s\n", stats.OldestAt.Format("2006-01-02 15:04:05 MST"))
		fmt.Fprintf(&sb, "- **Newest**: %s\n", stats.NewestAt.Format("2006-01-02 15:04:05 MST"))
	}
	if stats.Total > 0 {
		sb.WriteString("\n### By kind\n\n")
		for _, kind := range artifact.AllKinds() {
			if n := stats.ByKind[kind]; n > 0 {
				fmt.Fprintf(&sb, "- %s: %d\n", kind, n)
			}
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}
