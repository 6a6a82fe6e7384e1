// Package prompts implements MCP prompt handlers for the reasoning
// engine.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// StartPrompt handles the reason-start MCP prompt.
// It guides the AI to open a reasoning session and work the problem
// through the engine instead of in free text.
type StartPrompt struct{}

// NewStartPrompt creates a StartPrompt.
func NewStartPrompt() *StartPrompt {
	return &StartPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StartPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("reason-start",
		mcp.WithPromptDescription(
			"Start a structured reasoning session. "+
				"Sets up a session, walks the problem as an explicit thought chain, "+
				"and anchors the key concepts in the knowledge graph.",
		),
		mcp.WithArgument("topic",
			mcp.ArgumentDescription("The problem or question to reason about"),
		),
		mcp.WithArgument("session_id",
			mcp.ArgumentDescription("Session id to reason under. Default: main"),
		),
	)
}

// Handle processes the reason-start prompt request.
func (p *StartPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	topic := "the problem at hand"
	if args := req.Params.Arguments; args != nil {
		if v, ok := args["topic"]; ok && v != "" {
			topic = v
		}
	}

	sessionID := "main"
	if args := req.Params.Arguments; args != nil {
		if v, ok := args["session_id"]; ok && v != "" {
			sessionID = v
		}
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Reason about: %s", topic),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I want to reason about '%s' as an explicit, inspectable chain rather than in free text.\n\n"+
						"Please:\n"+
						"1. Record your first step with `think` (session_id='%s'), laying out what the question actually asks\n"+
						"2. Anchor each load-bearing concept as a `graph_node`, and connect them with typed `graph_edge` links (supports, contradicts, relates_to)\n"+
						"3. Keep stepping with `think`; use is_revision to rework earlier steps and branch_from to explore alternatives instead of repeating yourself\n"+
						"4. When a conclusion firms up, store it with `artifact_add` (kind='decision') and drop anything worth keeping across sessions into `memory_add`\n"+
						"5. Finish by marking the chain complete (next_needed=false) and showing me `session_stats` for '%s'",
					topic, sessionID, sessionID,
				)),
			},
		},
	}, nil
}
