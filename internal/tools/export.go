package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aletheia-dev/noema/internal/artifact"
	"github.com/aletheia-dev/noema/internal/session"
	"github.com/mark3labs/mcp-go/mcp"
)

// SessionExportTool handles the session_export MCP tool.
type SessionExportTool struct {
	manager *session.Manager
}

// NewSessionExportTool creates a SessionExportTool.
func NewSessionExportTool(manager *session.Manager) *SessionExportTool {
	return &SessionExportTool{manager: manager}
}

// Definition returns the MCP tool definition for session_export.
func (t *SessionExportTool) Definition() mcp.Tool {
	return mcp.NewTool("session_export",
		mcp.WithDescription(
			"Export a session's artifact stores as a JSON bundle, suitable for session_import into "+
				"another session.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session to export"),
		),
		mcp.WithString("kinds",
			mcp.Description("Comma-separated artifact kinds to include (default: all)"),
		),
	)
}

// Handle processes the session_export tool call.
func (t *SessionExportTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := req.GetString("session_id", "")
	if sessionID == "" {
		return mcp.NewToolResultError("'session_id' is required"), nil
	}
	s, ok := t.manager.Get(sessionID)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("session %q not found", sessionID)), nil
	}

	var kinds []artifact.Kind
	for _, k := range csvArg(req, "kinds") {
		kinds = append(kinds, artifact.Kind(k))
	}

	bundle, err := s.Export(kinds...)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to export session: %v", err)), nil
	}
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode bundle: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ─── SessionImportTool ───────────────────────────────────────────────────────

// SessionImportTool handles the session_import MCP tool.
type SessionImportTool struct {
	manager *session.Manager
}

// NewSessionImportTool creates a SessionImportTool.
func NewSessionImportTool(manager *session.Manager) *SessionImportTool {
	return &SessionImportTool{manager: manager}
}

// Definition returns the MCP tool definition for session_import.
func (t *SessionImportTool) Definition() mcp.Tool {
	return mcp.NewTool("session_import",
		mcp.WithDescription(
			"Import a session_export bundle into a session. Records replay through the regular add "+
				"paths, so ceilings and indices apply as for live artifacts.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Target session (created on first use)"),
		),
		mcp.WithString("bundle",
			mcp.Required(),
			mcp.Description("JSON bundle produced by session_export"),
		),
	)
}

// Handle processes the session_import tool call.
func (t *SessionImportTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := req.GetString("session_id", "")
	raw := req.GetString("bundle", "")
	if sessionID == "" {
		return mcp.NewToolResultError("'session_id' is required"), nil
	}
	if raw == "" {
		return mcp.NewToolResultError("'bundle' is required"), nil
	}

	var bundle session.Bundle
	if err := json.Unmarshal([]byte(raw), &bundle); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("'bundle' must be valid JSON: %v", err)), nil
	}

	s := t.manager.GetOrCreate(sessionID)
	result, err := s.Import(&bundle)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to import bundle: %v", err)), nil
	}

	total := 0
	for _, n := range result.Imported {
		total += n
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Imported %d artifacts into session %s.\n", total, sessionID)
	for _, kind := range artifact.AllKinds() {
		if n := result.Imported[kind]; n > 0 {
			fmt.Fprintf(&sb, "- %s: %d\n", kind, n)
		}
	}
	if result.SkippedThoughts > 0 {
		fmt.Fprintf(&sb, "Skipped %d thoughts over the budget ceiling.\n", result.SkippedThoughts)
	}
	return mcp.NewToolResultText(sb.String()), nil
}
