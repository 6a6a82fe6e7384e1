package tools

import (
	"context"
	"fmt"

	"github.com/aletheia-dev/noema/internal/notebook"
	"github.com/mark3labs/mcp-go/mcp"
)

// NotebookCreateTool handles the notebook_create MCP tool.
type NotebookCreateTool struct {
	store *notebook.Store
}

// NewNotebookCreateTool creates a NotebookCreateTool.
func NewNotebookCreateTool(store *notebook.Store) *NotebookCreateTool {
	return &NotebookCreateTool{store: store}
}

// Definition returns the MCP tool definition for notebook_create.
func (t *NotebookCreateTool) Definition() mcp.Tool {
	return mcp.NewTool("notebook_create",
		mcp.WithDescription(
			"Create the session's notebook, or return the existing one. Each session holds at most "+
				"one notebook; idle notebooks are evicted after their time-to-live.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Owning reasoning session"),
		),
	)
}

// Handle processes the notebook_create tool call.
func (t *NotebookCreateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := req.GetString("session_id", "")
	if sessionID == "" {
		return mcp.NewToolResultError("'session_id' is required"), nil
	}
	id, err := t.store.CreateNotebook(sessionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create notebook: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Notebook %s ready for session %s.", id, sessionID)), nil
}

// ─── NotebookCellTool ────────────────────────────────────────────────────────

// NotebookCellTool handles the notebook_cell MCP tool.
type NotebookCellTool struct {
	store *notebook.Store
}

// NewNotebookCellTool creates a NotebookCellTool.
func NewNotebookCellTool(store *notebook.Store) *NotebookCellTool {
	return &NotebookCellTool{store: store}
}

// Definition returns the MCP tool definition for notebook_cell.
func (t *NotebookCellTool) Definition() mcp.Tool {
	return mcp.NewTool("notebook_cell",
		mcp.WithDescription(
			"Add, update, or delete a notebook cell. Updating a cell clears its outputs and returns "+
				"it to idle, since they no longer describe the new source.",
		),
		mcp.WithString("notebook_id",
			mcp.Required(),
			mcp.Description("Notebook to modify"),
		),
		mcp.WithString("action",
			mcp.Description("One of: add (default), update, delete"),
		),
		mcp.WithString("kind",
			mcp.Description("Cell kind for add: markdown or code"),
		),
		mcp.WithString("source",
			mcp.Description("Cell source text (add, update)"),
		),
		mcp.WithString("language",
			mcp.Description("Code cell language (default: go)"),
		),
		mcp.WithNumber("position",
			mcp.Description("Insert position for add (default: append)"),
		),
		mcp.WithString("cell_id",
			mcp.Description("Cell id (update, delete)"),
		),
	)
}

// Handle processes the notebook_cell tool call.
func (t *NotebookCellTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notebookID := req.GetString("notebook_id", "")
	if notebookID == "" {
		return mcp.NewToolResultError("'notebook_id' is required"), nil
	}

	action := req.GetString("action", "add")
	switch action {
	case "add":
		kind := notebook.CellKind(req.GetString("kind", string(notebook.CellCode)))
		source := req.GetString("source", "")
		if source == "" {
			return mcp.NewToolResultError("'source' is required to add a cell"), nil
		}
		id, err := t.store.AddCell(notebookID, kind, source, req.GetString("language", ""), intArg(req, "position", -1))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to add cell: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Cell %s added (%s).", id, kind)), nil
	case "update":
		cellID := req.GetString("cell_id", "")
		if cellID == "" {
			return mcp.NewToolResultError("'cell_id' is required to update a cell"), nil
		}
		if err := t.store.UpdateCell(notebookID, cellID, req.GetString("source", "")); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to update cell: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Cell %s updated; outputs cleared.", cellID)), nil
	case "delete":
		cellID := req.GetString("cell_id", "")
		if cellID == "" {
			return mcp.NewToolResultError("'cell_id' is required to delete a cell"), nil
		}
		if err := t.store.DeleteCell(notebookID, cellID); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to delete cell: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Cell %s deleted.", cellID)), nil
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown action %q (valid: add, update, delete)", action)), nil
	}
}

// ─── NotebookDeleteTool ──────────────────────────────────────────────────────

// NotebookDeleteTool handles the notebook_delete MCP tool.
type NotebookDeleteTool struct {
	store *notebook.Store
}

// NewNotebookDeleteTool creates a NotebookDeleteTool.
func NewNotebookDeleteTool(store *notebook.Store) *NotebookDeleteTool {
	return &NotebookDeleteTool{store: store}
}

// Definition returns the MCP tool definition for notebook_delete.
func (t *NotebookDeleteTool) Definition() mcp.Tool {
	return mcp.NewTool("notebook_delete",
		mcp.WithDescription(
			"Delete a notebook and free its session's slot. The session can create a fresh notebook "+
				"afterwards.",
		),
		mcp.WithString("notebook_id",
			mcp.Required(),
			mcp.Description("Notebook to delete"),
		),
	)
}

// Handle processes the notebook_delete tool call.
func (t *NotebookDeleteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notebookID := req.GetString("notebook_id", "")
	if notebookID == "" {
		return mcp.NewToolResultError("'notebook_id' is required"), nil
	}
	if err := t.store.DeleteNotebook(notebookID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete notebook: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Notebook %s deleted.", notebookID)), nil
}
