package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aletheia-dev/noema/internal/graph"
	"github.com/mark3labs/mcp-go/mcp"
)

// QueryTool handles the graph_query MCP tool.
type QueryTool struct {
	graph *graph.Graph
}

// NewQueryTool creates a QueryTool over the process knowledge graph.
func NewQueryTool(g *graph.Graph) *QueryTool {
	return &QueryTool{graph: g}
}

// Definition returns the MCP tool definition for graph_query.
func (t *QueryTool) Definition() mcp.Tool {
	return mcp.NewTool("graph_query",
		mcp.WithDescription(
			"Query the knowledge graph: list nodes or edges, fetch one node, walk a node's outgoing "+
				"or incoming edges, or filter edges by relation type.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("One of: nodes, edges, node, outgoing, incoming, relation"),
		),
		mcp.WithString("node_id",
			mcp.Description("Node id for node, outgoing, and incoming queries"),
		),
		mcp.WithString("relation",
			mcp.Description("Relation type for the relation query"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum entries to list (default: 50)"),
		),
	)
}

// Handle processes the graph_query tool call.
func (t *QueryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}
	limit := intArg(req, "limit", 50)

	switch query {
	case "nodes":
		return renderNodes(t.graph.Nodes(), limit), nil
	case "edges":
		return renderEdges("Edges", t.graph.Edges(), limit), nil
	case "node":
		nodeID := req.GetString("node_id", "")
		if nodeID == "" {
			return mcp.NewToolResultError("'node_id' is required for the node query"), nil
		}
		node, ok := t.graph.Node(nodeID)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("node %s not found", nodeID)), nil
		}
		data, err := json.MarshalIndent(node, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to encode node: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	case "outgoing", "incoming":
		nodeID := req.GetString("node_id", "")
		if nodeID == "" {
			return mcp.NewToolResultError(fmt.Sprintf("'node_id' is required for the %s query", query)), nil
		}
		if _, ok := t.graph.Node(nodeID); !ok {
			return mcp.NewToolResultError(fmt.Sprintf("node %s not found", nodeID)), nil
		}
		edges := t.graph.OutgoingEdges(nodeID)
		title := fmt.Sprintf("Outgoing edges of %s", nodeID)
		if query == "incoming" {
			edges = t.graph.IncomingEdges(nodeID)
			title = fmt.Sprintf("Incoming edges of %s", nodeID)
		}
		return renderEdges(title, edges, limit), nil
	case "relation":
		relation := req.GetString("relation", "")
		if relation == "" {
			return mcp.NewToolResultError("'relation' is required for the relation query"), nil
		}
		return renderEdges(fmt.Sprintf("Edges of type %s", relation), t.graph.EdgesByType(relation), limit), nil
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown query %q (valid: nodes, edges, node, outgoing, incoming, relation)", query)), nil
	}
}

// renderNodes lists nodes as markdown, newest-insertion last.
func renderNodes(nodes []*graph.Node, limit int) *mcp.CallToolResult {
	if len(nodes) == 0 {
		return mcp.NewToolResultText("The graph has no nodes.")
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Nodes (%d)\n\n", len(nodes))
	for i, n := range nodes {
		if i >= limit {
			fmt.Fprintf(&sb, "... and %d more\n", len(nodes)-limit)
			break
		}
		fmt.Fprintf(&sb, "- %s [%s, depth %d]: %s\n", n.ID, n.Type, n.Depth, clip(n.Content, 80))
	}
	return mcp.NewToolResultText(sb.String())
}

// renderEdges lists edges as markdown.
func renderEdges(title string, edges []graph.Edge, limit int) *mcp.CallToolResult {
	if len(edges) == 0 {
		return mcp.NewToolResultText("No matching edges.")
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s (%d)\n\n", title, len(edges))
	for i, e := range edges {
		if i >= limit {
			fmt.Fprintf(&sb, "... and %d more\n", len(edges)-limit)
			break
		}
		arrow := "->"
		if e.Bidirectional {
			arrow = "<->"
		}
		fmt.Fprintf(&sb, "- %s: %s %s %s (%s, weight %.2f)\n", e.ID, e.Source, arrow, e.Target, e.Type, e.Weight)
	}
	return mcp.NewToolResultText(sb.String())
}

// ─── MetricsTool ─────────────────────────────────────────────────────────────

// MetricsTool handles the graph_metrics MCP tool.
type MetricsTool struct {
	graph *graph.Graph
}

// NewMetricsTool creates a MetricsTool over the process knowledge graph.
func NewMetricsTool(g *graph.Graph) *MetricsTool {
	return &MetricsTool{graph: g}
}

// Definition returns the MCP tool definition for graph_metrics.
func (t *MetricsTool) Definition() mcp.Tool {
	return mcp.NewTool("graph_metrics",
		mcp.WithDescription(
			"Show the knowledge graph's aggregate measures and the ceilings of its deployment mode.",
		),
	)
}

// Handle processes the graph_metrics tool call.
func (t *MetricsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	m := t.graph.Metrics()
	limits := t.graph.Limits()

	var sb strings.Builder
	sb.WriteString("## Graph Metrics\n\n")
	fmt.Fprintf(&sb, "- **Mode**: %s\n", t.graph.Mode())
	fmt.Fprintf(&sb, "- **Nodes**: %d / %d\n", m.NodeCount, limits.Nodes)
	fmt.Fprintf(&sb, "- **Edges**: %d / %d\n", m.EdgeCount, limits.Edges)
	fmt.Fprintf(&sb, "- **Max depth**: %d / %d\n", m.MaxDepth, limits.Depth)
	fmt.Fprintf(&sb, "- **Avg degree**: %.2f\n", m.AvgDegree)
	fmt.Fprintf(&sb, "- **Updated**: %s\n", m.UpdatedAt.Format("2006-01-02 15:04:05 MST"))
	return mcp.NewToolResultText(sb.String()), nil
}
