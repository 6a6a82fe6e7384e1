package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aletheia-dev/noema/internal/artifact"
	"github.com/aletheia-dev/noema/internal/fault"
	"github.com/aletheia-dev/noema/internal/session"
	"github.com/mark3labs/mcp-go/mcp"
)

// AddArtifactTool handles the artifact_add MCP tool.
type AddArtifactTool struct {
	manager *session.Manager
}

// NewAddArtifactTool creates an AddArtifactTool.
func NewAddArtifactTool(manager *session.Manager) *AddArtifactTool {
	return &AddArtifactTool{manager: manager}
}

// Definition returns the MCP tool definition for artifact_add.
func (t *AddArtifactTool) Definition() mcp.Tool {
	return mcp.NewTool("artifact_add",
		mcp.WithDescription(
			"Store one typed reasoning artifact in a session. The item is a JSON object matching the "+
				"kind's record shape; id and created_at are filled when absent.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session to store into (created on first use)"),
		),
		mcp.WithString("kind",
			mcp.Required(),
			mcp.Description("Artifact kind: thought, mental_model, debugging, collaborative, decision, metacognitive, scientific, creative, systems, visual, argument"),
		),
		mcp.WithString("item",
			mcp.Required(),
			mcp.Description("JSON object with the artifact's fields"),
		),
	)
}

// Handle processes the artifact_add tool call.
func (t *AddArtifactTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := req.GetString("session_id", "")
	kindStr := req.GetString("kind", "")
	item := req.GetString("item", "")
	if sessionID == "" {
		return mcp.NewToolResultError("'session_id' is required"), nil
	}
	if kindStr == "" {
		return mcp.NewToolResultError("'kind' is required"), nil
	}
	if item == "" {
		return mcp.NewToolResultError("'item' is required"), nil
	}

	kind := artifact.Kind(kindStr)
	if err := artifact.ValidateKind(kind); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s := t.manager.GetOrCreate(sessionID)
	id, err := addTyped(s, kind, []byte(item))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to add %s artifact: %v", kind, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Stored %s artifact %s in session %s.", kind, id, sessionID)), nil
}

// addTyped decodes the raw item into the kind's record type and stores
// it through the session's regular add path. The id is assigned up
// front so the response can report it.
func addTyped(s *session.Session, kind artifact.Kind, raw []byte) (string, error) {
	decode := func(v any) error {
		if err := json.Unmarshal(raw, v); err != nil {
			return fault.Validationf("item is not a valid %s record: %v", kind, err)
		}
		return nil
	}

	switch kind {
	case artifact.KindThought:
		var v artifact.Thought
		if err := decode(&v); err != nil {
			return "", err
		}
		fillID(&v.ID)
		if !s.AddThought(v) {
			return "", fault.Capacityf("thought limit reached for session %s", s.ID())
		}
		return v.ID, nil
	case artifact.KindModel:
		var v artifact.ModelApplication
		if err := decode(&v); err != nil {
			return "", err
		}
		fillID(&v.ID)
		return v.ID, s.AddModel(v)
	case artifact.KindDebug:
		var v artifact.DebugSession
		if err := decode(&v); err != nil {
			return "", err
		}
		fillID(&v.ID)
		return v.ID, s.AddDebug(v)
	case artifact.KindCollab:
		var v artifact.CollabSession
		if err := decode(&v); err != nil {
			return "", err
		}
		fillID(&v.ID)
		return v.ID, s.AddCollab(v)
	case artifact.KindDecision:
		var v artifact.Decision
		if err := decode(&v); err != nil {
			return "", err
		}
		fillID(&v.ID)
		return v.ID, s.AddDecision(v)
	case artifact.KindAssessment:
		var v artifact.Assessment
		if err := decode(&v); err != nil {
			return "", err
		}
		fillID(&v.ID)
		return v.ID, s.AddAssessment(v)
	case artifact.KindInquiry:
		var v artifact.Inquiry
		if err := decode(&v); err != nil {
			return "", err
		}
		fillID(&v.ID)
		return v.ID, s.AddInquiry(v)
	case artifact.KindCreative:
		var v artifact.CreativeSession
		if err := decode(&v); err != nil {
			return "", err
		}
		fillID(&v.ID)
		return v.ID, s.AddCreative(v)
	case artifact.KindSystems:
		var v artifact.SystemsAnalysis
		if err := decode(&v); err != nil {
			return "", err
		}
		fillID(&v.ID)
		return v.ID, s.AddSystems(v)
	case artifact.KindVisual:
		var v artifact.VisualOp
		if err := decode(&v); err != nil {
			return "", err
		}
		fillID(&v.ID)
		return v.ID, s.AddVisual(v)
	case artifact.KindArgument:
		var v artifact.Argument
		if err := decode(&v); err != nil {
			return "", err
		}
		fillID(&v.ID)
		return v.ID, s.AddArgument(v)
	}
	return "", fault.Validationf("unhandled artifact kind %q", kind)
}

func fillID(id *string) {
	if *id == "" {
		*id = artifact.NewID()
	}
}

// ─── ListArtifactsTool ───────────────────────────────────────────────────────

// ListArtifactsTool handles the artifact_list MCP tool.
type ListArtifactsTool struct {
	manager *session.Manager
}

// NewListArtifactsTool creates a ListArtifactsTool.
func NewListArtifactsTool(manager *session.Manager) *ListArtifactsTool {
	return &ListArtifactsTool{manager: manager}
}

// Definition returns the MCP tool definition for artifact_list.
func (t *ListArtifactsTool) Definition() mcp.Tool {
	return mcp.NewTool("artifact_list",
		mcp.WithDescription(
			"List a session's artifacts. Without a kind, shows per-kind counts; with a kind, returns "+
				"that store's records as JSON in insertion order.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session to list"),
		),
		mcp.WithString("kind",
			mcp.Description("Artifact kind to return in full (default: counts only)"),
		),
	)
}

// Handle processes the artifact_list tool call.
func (t *ListArtifactsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := req.GetString("session_id", "")
	if sessionID == "" {
		return mcp.NewToolResultError("'session_id' is required"), nil
	}
	s, ok := t.manager.Get(sessionID)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("session %q not found", sessionID)), nil
	}

	kindStr := req.GetString("kind", "")
	if kindStr == "" {
		stats := s.Stats()
		var sb strings.Builder
		fmt.Fprintf(&sb, "## Artifacts in session %s\n\n", sessionID)
		if stats.Total == 0 {
			sb.WriteString("No artifacts stored yet.\n")
			return mcp.NewToolResultText(sb.String()), nil
		}
		for _, kind := range artifact.AllKinds() {
			if n := stats.Counts[kind]; n > 0 {
				fmt.Fprintf(&sb, "- **%s**: %d\n", kind, n)
			}
		}
		fmt.Fprintf(&sb, "\nTotal: %d\n", stats.Total)
		return mcp.NewToolResultText(sb.String()), nil
	}

	kind := artifact.Kind(kindStr)
	if err := artifact.ValidateKind(kind); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	items, count := listOf(s, kind)
	if count == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No %s artifacts in session %s.", kind, sessionID)), nil
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode %s artifacts: %v", kind, err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// listOf fetches one kind's records and their count.
func listOf(s *session.Session, kind artifact.Kind) (any, int) {
	switch kind {
	case artifact.KindThought:
		items := s.Thoughts()
		return items, len(items)
	case artifact.KindModel:
		items := s.Models()
		return items, len(items)
	case artifact.KindDebug:
		items := s.Debugs()
		return items, len(items)
	case artifact.KindCollab:
		items := s.Collabs()
		return items, len(items)
	case artifact.KindDecision:
		items := s.Decisions()
		return items, len(items)
	case artifact.KindAssessment:
		items := s.Assessments()
		return items, len(items)
	case artifact.KindInquiry:
		items := s.Inquiries()
		return items, len(items)
	case artifact.KindCreative:
		items := s.Creatives()
		return items, len(items)
	case artifact.KindSystems:
		items := s.SystemsAnalyses()
		return items, len(items)
	case artifact.KindVisual:
		items := s.Visuals()
		return items, len(items)
	case artifact.KindArgument:
		items := s.Arguments()
		return items, len(items)
	}
	return nil, 0
}
