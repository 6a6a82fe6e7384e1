package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aletheia-dev/noema/internal/archive"
	"github.com/mark3labs/mcp-go/mcp"
)

// HistoryTool handles the session_history MCP tool. It is registered
// only when the archive opened successfully.
type HistoryTool struct {
	store *archive.Store
}

// NewHistoryTool creates a HistoryTool with the given archive store.
func NewHistoryTool(store *archive.Store) *HistoryTool {
	return &HistoryTool{store: store}
}

// Definition returns the MCP tool definition for session_history.
func (t *HistoryTool) Definition() mcp.Tool {
	return mcp.NewTool("session_history",
		mcp.WithDescription(
			"Read the archive of ended sessions: recent runs across all sessions, or every archived "+
				"run of one session id, newest first.",
		),
		mcp.WithString("session_id",
			mcp.Description("Session id to look up (default: recent runs across all sessions)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum runs to list (default: 10)"),
		),
	)
}

// Handle processes the session_history tool call.
func (t *HistoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if sessionID := req.GetString("session_id", ""); sessionID != "" {
		entries, err := t.store.Get(sessionID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read history: %v", err)), nil
		}
		return renderHistory(fmt.Sprintf("Runs of session %s", sessionID), entries), nil
	}

	entries, err := t.store.Recent(intArg(req, "limit", 10))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read history: %v", err)), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("No archived sessions yet."), nil
	}
	return renderHistory("Recent sessions", entries), nil
}

// renderHistory lists archive entries newest first.
func renderHistory(title string, entries []archive.Entry) *mcp.CallToolResult {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n", title)
	for _, e := range entries {
		duration := e.EndedAt.Sub(e.CreatedAt).Round(time.Second)
		fmt.Fprintf(&sb, "- **%s** ended %s (%s, ran %s) with %d artifacts\n",
			e.SessionID, e.EndedAt.Format("2006-01-02 15:04:05 MST"), e.Reason, duration, e.Artifacts)
	}
	return mcp.NewToolResultText(sb.String())
}
