package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// ReviewPrompt handles the reason-review MCP prompt.
// It instructs the AI to read back a session's accumulated state and
// summarize where the reasoning stands.
type ReviewPrompt struct{}

// NewReviewPrompt creates a ReviewPrompt.
func NewReviewPrompt() *ReviewPrompt {
	return &ReviewPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *ReviewPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("reason-review",
		mcp.WithPromptDescription(
			"Review a reasoning session. "+
				"Shows the thought chain, stored artifacts, and graph shape, "+
				"then summarizes open branches and what to do next.",
		),
		mcp.WithArgument("session_id",
			mcp.ArgumentDescription("Session id to review. Default: main"),
		),
	)
}

// Handle processes the reason-review prompt request.
func (p *ReviewPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	sessionID := "main"
	if args := req.Params.Arguments; args != nil {
		if v, ok := args["session_id"]; ok && v != "" {
			sessionID = v
		}
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Review session %s", sessionID),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"Please review my reasoning session '%s'.\n\n"+
						"Then:\n"+
						"1. Run `session_stats` and `artifact_list` (session_id='%s') and show me what has accumulated\n"+
						"2. Run `graph_metrics` and walk the important nodes with `graph_query` so I can see the concept structure\n"+
						"3. Read back the thought chain: which steps were revised, which branches are still open\n"+
						"4. Tell me what looks settled, what is still contested, and the single next step you would take",
					sessionID, sessionID,
				)),
			},
		},
	}, nil
}
