package tools

import (
	"context"
	"fmt"

	"github.com/aletheia-dev/noema/internal/graph"
	"github.com/mark3labs/mcp-go/mcp"
)

// NodeTool handles the graph_node MCP tool.
type NodeTool struct {
	graph *graph.Graph
}

// NewNodeTool creates a NodeTool over the process knowledge graph.
func NewNodeTool(g *graph.Graph) *NodeTool {
	return &NodeTool{graph: g}
}

// Definition returns the MCP tool definition for graph_node.
func (t *NodeTool) Definition() mcp.Tool {
	return mcp.NewTool("graph_node",
		mcp.WithDescription(
			"Create a node in the knowledge graph. The first node becomes the hierarchy root; a "+
				"parent_id places the node one level below its parent.",
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Node content"),
		),
		mcp.WithString("type",
			mcp.Description("Node type (e.g. concept, hypothesis, evidence)"),
		),
		mcp.WithString("id",
			mcp.Description("Node id (default: generated)"),
		),
		mcp.WithString("parent_id",
			mcp.Description("Parent node id; depth becomes parent depth + 1"),
		),
		mcp.WithNumber("depth",
			mcp.Description("Explicit depth when no parent is given"),
		),
		mcp.WithNumber("confidence",
			mcp.Description("Confidence score"),
		),
		mcp.WithString("tags",
			mcp.Description("Comma-separated tags"),
		),
	)
}

// Handle processes the graph_node tool call.
func (t *NodeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content := req.GetString("content", "")
	if content == "" {
		return mcp.NewToolResultError("'content' is required"), nil
	}

	id, err := t.graph.CreateNode(graph.NodeInput{
		ID:         req.GetString("id", ""),
		Content:    content,
		Type:       req.GetString("type", "concept"),
		ParentID:   req.GetString("parent_id", ""),
		Depth:      intArg(req, "depth", 0),
		Confidence: floatArg(req, "confidence", 0),
		Tags:       csvArg(req, "tags"),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create node: %v", err)), nil
	}

	node, _ := t.graph.Node(id)
	return mcp.NewToolResultText(fmt.Sprintf("Node %s created (type %s, depth %d).", id, node.Type, node.Depth)), nil
}

// ─── EdgeTool ────────────────────────────────────────────────────────────────

// EdgeTool handles the graph_edge MCP tool.
type EdgeTool struct {
	graph *graph.Graph
}

// NewEdgeTool creates an EdgeTool over the process knowledge graph.
func NewEdgeTool(g *graph.Graph) *EdgeTool {
	return &EdgeTool{graph: g}
}

// Definition returns the MCP tool definition for graph_edge.
func (t *EdgeTool) Definition() mcp.Tool {
	return mcp.NewTool("graph_edge",
		mcp.WithDescription(
			"Connect two existing nodes with a typed, weighted edge. Weight must lie in [0,1]; a "+
				"bidirectional edge is traversable from both ends.",
		),
		mcp.WithString("source",
			mcp.Required(),
			mcp.Description("Source node id"),
		),
		mcp.WithString("target",
			mcp.Required(),
			mcp.Description("Target node id"),
		),
		mcp.WithString("type",
			mcp.Description("Relation type (default: relates_to)"),
		),
		mcp.WithNumber("weight",
			mcp.Description("Edge weight in [0,1] (default: 1)"),
		),
		mcp.WithNumber("confidence",
			mcp.Description("Confidence score"),
		),
		mcp.WithBoolean("bidirectional",
			mcp.Description("Register the edge in both directions"),
		),
		mcp.WithString("id",
			mcp.Description("Edge id (default: generated)"),
		),
	)
}

// Handle processes the graph_edge tool call.
func (t *EdgeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source := req.GetString("source", "")
	target := req.GetString("target", "")
	if source == "" {
		return mcp.NewToolResultError("'source' is required"), nil
	}
	if target == "" {
		return mcp.NewToolResultError("'target' is required"), nil
	}

	relation := req.GetString("type", "relates_to")
	bidirectional := boolArg(req, "bidirectional", false)
	id, err := t.graph.AddEdge(graph.EdgeInput{
		ID:            req.GetString("id", ""),
		Source:        source,
		Target:        target,
		Type:          relation,
		Weight:        floatArg(req, "weight", 1.0),
		Confidence:    floatArg(req, "confidence", 0),
		Bidirectional: bidirectional,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to add edge: %v", err)), nil
	}

	response := fmt.Sprintf("Edge %s added: %s -> %s (%s).", id, source, target, relation)
	if bidirectional {
		response = fmt.Sprintf("Edge %s added: %s <-> %s (%s).", id, source, target, relation)
	}
	return mcp.NewToolResultText(response), nil
}
