package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/aletheia-dev/noema/internal/artifact"
	"github.com/aletheia-dev/noema/internal/session"
	"github.com/mark3labs/mcp-go/mcp"
)

// SessionStatsTool handles the session_stats MCP tool.
type SessionStatsTool struct {
	manager *session.Manager
}

// NewSessionStatsTool creates a SessionStatsTool.
func NewSessionStatsTool(manager *session.Manager) *SessionStatsTool {
	return &SessionStatsTool{manager: manager}
}

// Definition returns the MCP tool definition for session_stats.
func (t *SessionStatsTool) Definition() mcp.Tool {
	return mcp.NewTool("session_stats",
		mcp.WithDescription(
			"Show one reasoning session's state: artifact counts per kind, remaining thought budget, "+
				"and which operations have been used.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session to inspect"),
		),
	)
}

// Handle processes the session_stats tool call.
func (t *SessionStatsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := req.GetString("session_id", "")
	if sessionID == "" {
		return mcp.NewToolResultError("'session_id' is required"), nil
	}
	s, ok := t.manager.Get(sessionID)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("session %q not found", sessionID)), nil
	}

	stats := s.Stats()
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Session %s\n\n", stats.SessionID)
	fmt.Fprintf(&sb, "- **Active**: %t\n", stats.Active)
	fmt.Fprintf(&sb, "- **Created**: %s\n", stats.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&sb, "- **Last touched**: %s\n", stats.LastTouched.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&sb, "- **Artifacts**: %d\n", stats.Total)
	if stats.RemainingThoughts >= 0 {
		fmt.Fprintf(&sb, "- **Remaining thoughts**: %d\n", stats.RemainingThoughts)
	} else {
		sb.WriteString("- **Remaining thoughts**: unbounded\n")
	}
	if len(stats.ToolsUsed) > 0 {
		fmt.Fprintf(&sb, "- **Operations used**: %s\n", strings.Join(stats.ToolsUsed, ", "))
	}

	if stats.Total > 0 {
		sb.WriteString("\n### Counts\n\n")
		for _, kind := range artifact.AllKinds() {
			if n := stats.Counts[kind]; n > 0 {
				fmt.Fprintf(&sb, "- %s: %d\n", kind, n)
			}
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// ─── SessionEndTool ──────────────────────────────────────────────────────────

// SessionEndTool handles the session_end MCP tool.
type SessionEndTool struct {
	manager *session.Manager
}

// NewSessionEndTool creates a SessionEndTool.
func NewSessionEndTool(manager *session.Manager) *SessionEndTool {
	return &SessionEndTool{manager: manager}
}

// Definition returns the MCP tool definition for session_end.
func (t *SessionEndTool) Definition() mcp.Tool {
	return mcp.NewTool("session_end",
		mcp.WithDescription(
			"End a reasoning session explicitly. Its stores are cleared and its idle clock cancelled; "+
				"reusing the id afterwards starts a fresh session.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session to end"),
		),
	)
}

// Handle processes the session_end tool call.
func (t *SessionEndTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := req.GetString("session_id", "")
	if sessionID == "" {
		return mcp.NewToolResultError("'session_id' is required"), nil
	}
	if !t.manager.End(sessionID) {
		return mcp.NewToolResultError(fmt.Sprintf("session %q not found", sessionID)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Session %s ended. Artifacts are cleared; reusing the id starts fresh.", sessionID)), nil
}
