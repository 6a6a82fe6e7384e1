package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/aletheia-dev/noema/internal/artifact"
	"github.com/aletheia-dev/noema/internal/session"
	"github.com/mark3labs/mcp-go/mcp"
)

// ThinkTool handles the think MCP tool.
type ThinkTool struct {
	manager *session.Manager
}

// NewThinkTool creates a ThinkTool with the given session manager.
func NewThinkTool(manager *session.Manager) *ThinkTool {
	return &ThinkTool{manager: manager}
}

// Definition returns the MCP tool definition for think.
func (t *ThinkTool) Definition() mcp.Tool {
	return mcp.NewTool("think",
		mcp.WithDescription(
			"Record one step in a sequential reasoning chain. Thoughts accumulate in the session under a "+
				"bounded budget; use revisions and branches to rework earlier steps instead of repeating them.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Reasoning session to append to (created on first use)"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The thought text"),
		),
		mcp.WithNumber("number",
			mcp.Description("Step number in the chain (default: next unused)"),
		),
		mcp.WithNumber("total_estimate",
			mcp.Description("Current estimate of how many steps the chain needs"),
		),
		mcp.WithBoolean("next_needed",
			mcp.Description("Whether another step is expected (default: true)"),
		),
		mcp.WithBoolean("is_revision",
			mcp.Description("Marks this thought as revising an earlier one"),
		),
		mcp.WithNumber("revises_thought",
			mcp.Description("Step number being revised"),
		),
		mcp.WithNumber("branch_from",
			mcp.Description("Step number this thought branches from"),
		),
		mcp.WithString("branch_id",
			mcp.Description("Identifier of the branch being explored"),
		),
	)
}

// Handle processes the think tool call.
func (t *ThinkTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := req.GetString("session_id", "")
	content := req.GetString("content", "")
	if sessionID == "" {
		return mcp.NewToolResultError("'session_id' is required"), nil
	}
	if content == "" {
		return mcp.NewToolResultError("'content' is required"), nil
	}

	s := t.manager.GetOrCreate(sessionID)

	number := intArg(req, "number", 0)
	if number <= 0 {
		number = len(s.Thoughts()) + 1
	}

	thought := artifact.Thought{
		Content:        content,
		Number:         number,
		TotalEstimate:  intArg(req, "total_estimate", 0),
		NextNeeded:     boolArg(req, "next_needed", true),
		IsRevision:     boolArg(req, "is_revision", false),
		RevisesThought: intArg(req, "revises_thought", 0),
		BranchFrom:     intArg(req, "branch_from", 0),
		BranchID:       req.GetString("branch_id", ""),
	}
	if !s.AddThought(thought) {
		return mcp.NewToolResultError(fmt.Sprintf("thought limit reached for session %s; no thought stored", sessionID)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Thought %d recorded for session %s.\n", number, sessionID)
	if remaining := s.RemainingThoughts(); remaining >= 0 {
		fmt.Fprintf(&sb, "Remaining budget: %d thoughts.", remaining)
	} else {
		sb.WriteString("Remaining budget: unbounded.")
	}
	if !thought.NextNeeded {
		sb.WriteString("\nChain marked complete.")
	}
	return mcp.NewToolResultText(sb.String()), nil
}
