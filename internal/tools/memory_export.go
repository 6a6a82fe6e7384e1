package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aletheia-dev/noema/internal/artifact"
	"github.com/aletheia-dev/noema/internal/unified"
	"github.com/mark3labs/mcp-go/mcp"
)

// MemoryExportTool handles the memory_export MCP tool.
type MemoryExportTool struct {
	store *unified.Store
}

// NewMemoryExportTool creates a MemoryExportTool.
func NewMemoryExportTool(store *unified.Store) *MemoryExportTool {
	return &MemoryExportTool{store: store}
}

// Definition returns the MCP tool definition for memory_export.
func (t *MemoryExportTool) Definition() mcp.Tool {
	return mcp.NewTool("memory_export",
		mcp.WithDescription(
			"Export the consolidated memory log grouped by artifact kind, as JSON suitable for "+
				"memory_import.",
		),
	)
}

// Handle processes the memory_export tool call.
func (t *MemoryExportTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	grouped := t.store.Export()
	data, err := json.MarshalIndent(grouped, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode export: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ─── MemoryImportTool ────────────────────────────────────────────────────────

// MemoryImportTool handles the memory_import MCP tool.
type MemoryImportTool struct {
	store *unified.Store
}

// NewMemoryImportTool creates a MemoryImportTool.
func NewMemoryImportTool(store *unified.Store) *MemoryImportTool {
	return &MemoryImportTool{store: store}
}

// Definition returns the MCP tool definition for memory_import.
func (t *MemoryImportTool) Definition() mcp.Tool {
	return mcp.NewTool("memory_import",
		mcp.WithDescription(
			"Import a memory_export payload into the consolidated log. Entries replay under fresh ids "+
				"and are projected into the knowledge graph.",
		),
		mcp.WithString("data",
			mcp.Required(),
			mcp.Description("JSON payload produced by memory_export"),
		),
	)
}

// Handle processes the memory_import tool call.
func (t *MemoryImportTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw := req.GetString("data", "")
	if raw == "" {
		return mcp.NewToolResultError("'data' is required"), nil
	}

	var payload map[artifact.Kind][]unified.Entry
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("'data' must be valid JSON: %v", err)), nil
	}

	imported, err := t.store.Import(payload)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to import memory: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Imported %d memory entries.", imported)), nil
}
