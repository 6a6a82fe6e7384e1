package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aletheia-dev/noema/internal/notebook"
	"github.com/mark3labs/mcp-go/mcp"
)

// NotebookRunTool handles the notebook_run MCP tool.
type NotebookRunTool struct {
	store *notebook.Store
}

// NewNotebookRunTool creates a NotebookRunTool.
func NewNotebookRunTool(store *notebook.Store) *NotebookRunTool {
	return &NotebookRunTool{store: store}
}

// Definition returns the MCP tool definition for notebook_run.
func (t *NotebookRunTool) Definition() mcp.Tool {
	return mcp.NewTool("notebook_run",
		mcp.WithDescription(
			"Execute a code cell in the sandboxed interpreter. Guest code sees a pure-stdlib "+
				"allowlist; output is captured up to a byte ceiling and runs are killed at the deadline.",
		),
		mcp.WithString("notebook_id",
			mcp.Required(),
			mcp.Description("Notebook holding the cell"),
		),
		mcp.WithString("cell_id",
			mcp.Required(),
			mcp.Description("Code cell to run"),
		),
		mcp.WithNumber("timeout_ms",
			mcp.Description("Wall-clock deadline in milliseconds (clamped to the configured maximum)"),
		),
	)
}

// Handle processes the notebook_run tool call.
func (t *NotebookRunTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notebookID := req.GetString("notebook_id", "")
	cellID := req.GetString("cell_id", "")
	if notebookID == "" {
		return mcp.NewToolResultError("'notebook_id' is required"), nil
	}
	if cellID == "" {
		return mcp.NewToolResultError("'cell_id' is required"), nil
	}

	timeout := time.Duration(intArg(req, "timeout_ms", 0)) * time.Millisecond
	exec, err := t.store.ExecuteCell(ctx, notebookID, cellID, timeout)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to execute cell: %v", err)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Execution %s\n\n", exec.ID)
	fmt.Fprintf(&sb, "- **Status**: %s\n", exec.Status)
	fmt.Fprintf(&sb, "- **Duration**: %s\n", exec.CompletedAt.Sub(exec.StartedAt).Round(time.Millisecond))
	for _, out := range exec.Outputs {
		fmt.Fprintf(&sb, "\n**%s**:\n\n```\n%s\n```\n", out.Type, out.Text)
	}
	if len(exec.Outputs) == 0 {
		sb.WriteString("\nNo output captured.\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// ─── NotebookExportTool ──────────────────────────────────────────────────────

// NotebookExportTool handles the notebook_export MCP tool.
type NotebookExportTool struct {
	store *notebook.Store
}

// NewNotebookExportTool creates a NotebookExportTool.
func NewNotebookExportTool(store *notebook.Store) *NotebookExportTool {
	return &NotebookExportTool{store: store}
}

// Definition returns the MCP tool definition for notebook_export.
func (t *NotebookExportTool) Definition() mcp.Tool {
	return mcp.NewTool("notebook_export",
		mcp.WithDescription(
			"Export a notebook as a linear markdown document, or as JSON with the full execution log.",
		),
		mcp.WithString("notebook_id",
			mcp.Required(),
			mcp.Description("Notebook to export"),
		),
		mcp.WithString("format",
			mcp.Description("markdown (default) or json"),
		),
	)
}

// Handle processes the notebook_export tool call.
func (t *NotebookExportTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notebookID := req.GetString("notebook_id", "")
	if notebookID == "" {
		return mcp.NewToolResultError("'notebook_id' is required"), nil
	}

	switch format := req.GetString("format", "markdown"); format {
	case "markdown":
		doc, err := t.store.ExportMarkdown(notebookID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to export notebook: %v", err)), nil
		}
		return mcp.NewToolResultText(doc), nil
	case "json":
		record, err := t.store.ExportRecord(notebookID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to export notebook: %v", err)), nil
		}
		data, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to encode notebook: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown format %q (valid: markdown, json)", format)), nil
	}
}
