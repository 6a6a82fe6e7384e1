package tools

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aletheia-dev/noema/internal/archive"
	"github.com/aletheia-dev/noema/internal/artifact"
	"github.com/aletheia-dev/noema/internal/graph"
	"github.com/aletheia-dev/noema/internal/notebook"
	"github.com/aletheia-dev/noema/internal/session"
	"github.com/aletheia-dev/noema/internal/unified"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

// ─── Test helpers ────────────────────────────────────────────────────────────

// newTestManager creates a session manager with no eviction hook.
func newTestManager(t *testing.T, cfg session.Config) *session.Manager {
	t.Helper()
	m := session.NewManager(cfg, zap.NewNop(), nil)
	t.Cleanup(m.Close)
	return m
}

// newTestGraph creates a development-mode knowledge graph.
func newTestGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g, err := graph.New(graph.ModeDevelopment)
	if err != nil {
		t.Fatalf("failed to create graph: %v", err)
	}
	return g
}

// newTestMemory creates an in-memory unified store (no persistence).
func newTestMemory(t *testing.T) *unified.Store {
	t.Helper()
	return unified.New(unified.Config{}, zap.NewNop())
}

// newTestNotebooks creates a notebook store and stops its sweep on cleanup.
func newTestNotebooks(t *testing.T) *notebook.Store {
	t.Helper()
	s := notebook.New(notebook.Config{}, zap.NewNop())
	t.Cleanup(s.Close)
	return s
}

// newTestArchive creates an archive backed by a temp directory.
func newTestArchive(t *testing.T) *archive.Store {
	t.Helper()
	s, err := archive.New(archive.Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to create archive: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedNode inserts a node directly, failing the test on rejection.
func seedNode(t *testing.T, g *graph.Graph, id, parent string) {
	t.Helper()
	if _, err := g.CreateNode(graph.NodeInput{ID: id, Content: "node " + id, Type: "concept", ParentID: parent}); err != nil {
		t.Fatalf("seed node %s: %v", id, err)
	}
}

// seedQueryGraph builds a small graph: root a with children b and c,
// plus one supports edge and one relates_to edge out of a.
func seedQueryGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := newTestGraph(t)
	seedNode(t, g, "a", "")
	seedNode(t, g, "b", "a")
	seedNode(t, g, "c", "a")
	if _, err := g.AddEdge(graph.EdgeInput{ID: "e1", Source: "a", Target: "b", Type: "supports", Weight: 0.9}); err != nil {
		t.Fatalf("seed edge e1: %v", err)
	}
	if _, err := g.AddEdge(graph.EdgeInput{ID: "e2", Source: "a", Target: "c", Type: "relates_to", Weight: 1.0}); err != nil {
		t.Fatalf("seed edge e2: %v", err)
	}
	return g
}

// archRecord builds an ended-session record for archive seeding.
func archRecord(id string, ended time.Time, total int) session.Record {
	return session.Record{
		ID:        id,
		CreatedAt: ended.Add(-10 * time.Minute),
		EndedAt:   ended,
		Reason:    session.ReasonExplicit,
		Stats: session.Stats{
			SessionID: id,
			Total:     total,
			Counts:    map[artifact.Kind]int{artifact.KindThought: total},
			ToolsUsed: []string{"think"},
		},
	}
}

var baseEnd = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// makeReq builds a mcp.CallToolRequest with the given arguments.
func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text content from a tool result.
func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// mustNotError asserts the Handle call returns no Go error and no tool error.
func mustNotError(t *testing.T, r *mcp.CallToolResult, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected Go error: %v", err)
	}
	if r.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(r))
	}
}

// mustBeToolError asserts the Handle call returns a tool error (not a Go error).
func mustBeToolError(t *testing.T, r *mcp.CallToolResult, err error, wantSubstr string) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected Go error: %v", err)
	}
	if !r.IsError {
		t.Fatalf("expected tool error containing %q, got success: %s", wantSubstr, resultText(r))
	}
	if wantSubstr != "" && !strings.Contains(resultText(r), wantSubstr) {
		t.Errorf("error text %q does not contain %q", resultText(r), wantSubstr)
	}
}

var ctx = context.Background()

// ─── ThinkTool ───────────────────────────────────────────────────────────────

func TestThinkTool_Definition(t *testing.T) {
	tool := NewThinkTool(newTestManager(t, session.Config{}))
	def := tool.Definition()

	if def.Name != "think" {
		t.Errorf("tool name = %q, want %q", def.Name, "think")
	}
	props := def.InputSchema.Properties
	for _, p := range []string{"session_id", "content", "number", "next_needed", "branch_id"} {
		if _, ok := props[p]; !ok {
			t.Errorf("missing %q parameter", p)
		}
	}
	var hasContent bool
	for _, r := range def.InputSchema.Required {
		if r == "content" {
			hasContent = true
		}
	}
	if !hasContent {
		t.Error("'content' should be required")
	}
}

func TestThinkTool_RecordsThought(t *testing.T) {
	m := newTestManager(t, session.Config{})
	tool := NewThinkTool(m)

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"session_id": "s1",
		"content":    "outline the approach",
	}))
	mustNotError(t, r, err)

	text := resultText(r)
	if !strings.Contains(text, "Thought 1 recorded for session s1.") {
		t.Errorf("expected recorded message, got: %s", text)
	}
	if !strings.Contains(text, "Remaining budget: 99 thoughts.") {
		t.Errorf("expected budget line, got: %s", text)
	}

	s, ok := m.Get("s1")
	if !ok {
		t.Fatal("session s1 should exist after think")
	}
	if got := len(s.Thoughts()); got != 1 {
		t.Errorf("stored thoughts = %d, want 1", got)
	}
}

func TestThinkTool_AutoNumbers(t *testing.T) {
	m := newTestManager(t, session.Config{})
	tool := NewThinkTool(m)

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"session_id": "s1",
		"content":    "first",
	}))
	mustNotError(t, r, err)

	r, err = tool.Handle(ctx, makeReq(map[string]interface{}{
		"session_id": "s1",
		"content":    "second",
	}))
	mustNotError(t, r, err)

	if !strings.Contains(resultText(r), "Thought 2 recorded") {
		t.Errorf("expected auto-numbered step 2, got: %s", resultText(r))
	}
}

func TestThinkTool_ChainComplete(t *testing.T) {
	tool := NewThinkTool(newTestManager(t, session.Config{}))

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"session_id":  "s1",
		"content":     "done",
		"next_needed": false,
	}))
	mustNotError(t, r, err)

	if !strings.Contains(resultText(r), "Chain marked complete.") {
		t.Errorf("expected completion marker, got: %s", resultText(r))
	}
}

func TestThinkTool_MissingContent(t *testing.T) {
	tool := NewThinkTool(newTestManager(t, session.Config{}))

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"session_id": "s1",
	}))
	mustBeToolError(t, r, err, "'content' is required")
}

func TestThinkTool_BudgetExhausted(t *testing.T) {
	m := newTestManager(t, session.Config{
		Capacity: session.CapacityPolicy{artifact.KindThought: 1},
	})
	tool := NewThinkTool(m)

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"session_id": "s1",
		"content":    "only one fits",
	}))
	mustNotError(t, r, err)
	if !strings.Contains(resultText(r), "Remaining budget: 0 thoughts.") {
		t.Errorf("expected zero budget, got: %s", resultText(r))
	}

	r, err = tool.Handle(ctx, makeReq(map[string]interface{}{
		"session_id": "s1",
		"content":    "over the line",
	}))
	mustBeToolError(t, r, err, "thought limit reached")
}

// ─── SessionStatsTool ────────────────────────────────────────────────────────

func TestSessionStatsTool_NotFound(t *testing.T) {
	tool := NewSessionStatsTool(newTestManager(t, session.Config{}))

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"session_id": "ghost",
	}))
	mustBeToolError(t, r, err, "not found")
}

func TestSessionStatsTool_ReportsCounts(t *testing.T) {
	m := newTestManager(t, session.Config{})
	s := m.GetOrCreate("s1")
	if !s.AddThought(artifact.Thought{Content: "first", Number: 1, NextNeeded: true}) {
		t.Fatal("seed thought rejected")
	}
	if err := s.AddDecision(artifact.Decision{Statement: "adopt the plan"}); err != nil {
		t.Fatalf("seed decision: %v", err)
	}
	tool := NewSessionStatsTool(m)

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"session_id": "s1",
	}))
	mustNotError(t, r, err)

	text := resultText(r)
	if !strings.Contains(text, "## Session s1") {
		t.Errorf("expected session header, got: %s", text)
	}
	if !strings.Contains(text, "- **Artifacts**: 2") {
		t.Errorf("expected artifact total, got: %s", text)
	}
	if !strings.Contains(text, "- **Remaining thoughts**: 99") {
		t.Errorf("expected remaining budget, got: %s", text)
	}
	if !strings.Contains(text, "thought: 1") || !strings.Contains(text, "decision: 1") {
		t.Errorf("expected per-kind counts, got: %s", text)
	}
}

// ─── SessionEndTool ──────────────────────────────────────────────────────────

func TestSessionEndTool_EndsSession(t *testing.T) {
	m := newTestManager(t, session.Config{})
	m.GetOrCreate("s1")
	tool := NewSessionEndTool(m)

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"session_id": "s1",
	}))
	mustNotError(t, r, err)

	if !strings.Contains(resultText(r), "Session s1 ended.") {
		t.Errorf("expected end confirmation, got: %s", resultText(r))
	}
	if _, ok := m.Get("s1"); ok {
		t.Error("session should be gone after session_end")
	}
}

func TestSessionEndTool_NotFound(t *testing.T) {
	tool := NewSessionEndTool(newTestManager(t, session.Config{}))

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"session_id": "ghost",
	}))
	mustBeToolError(t, r, err, "not found")
}

// ─── Session export / import ─────────────────────────────────────────────────

func TestSessionExportImport_RoundTrip(t *testing.T) {
	m := newTestManager(t, session.Config{})
	s := m.GetOrCreate("src")
	if !s.AddThought(artifact.Thought{Content: "carry me over", Number: 1, NextNeeded: true}) {
		t.Fatal("seed thought rejected")
	}
	if err := s.AddDecision(artifact.Decision{Statement: "keep the name"}); err != nil {
		t.Fatalf("seed decision: %v", err)
	}

	exp := NewSessionExportTool(m)
	r, err := exp.Handle(ctx, makeReq(map[string]interface{}{
		"session_id": "src",
	}))
	mustNotError(t, r, err)
	bundle := resultText(r)

	imp := NewSessionImportTool(m)
	r, err = imp.Handle(ctx, makeReq(map[string]interface{}{
		"session_id": "dst",
		"bundle":     bundle,
	}))
	mustNotError(t, r, err)

	text := resultText(r)
	if !strings.Contains(text, "Imported 2 artifacts into session dst.") {
		t.Errorf("expected import summary, got: %s", text)
	}

	dst, ok := m.Get("dst")
	if !ok {
		t.Fatal("target session should exist after import")
	}
	if got := dst.Stats().Total; got != 2 {
		t.Errorf("imported artifacts = %d, want 2", got)
	}
	if got := dst.Thoughts(); len(got) != 1 || got[0].Content != "carry me over" {
		t.Errorf("thought did not survive the round trip: %+v", got)
	}
}

func TestSessionImportTool_BadJSON(t *testing.T) {
	tool := NewSessionImportTool(newTestManager(t, session.Config{}))

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"session_id": "dst",
		"bundle":     "this is not JSON {{{",
	}))
	mustBeToolError(t, r, err, "valid JSON")
}

// ─── AddArtifactTool ─────────────────────────────────────────────────────────

func TestAddArtifactTool_StoresDecision(t *testing.T) {
	m := newTestManager(t, session.Config{})
	tool := NewAddArtifactTool(m)

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"session_id": "s1",
		"kind":       "decision",
		"item":       `{"statement":"adopt sqlite for the archive"}`,
	}))
	mustNotError(t, r, err)

	if !strings.Contains(resultText(r), "Stored decision artifact") {
		t.Errorf("expected stored confirmation, got: %s", resultText(r))
	}

	s, ok := m.Get("s1")
	if !ok {
		t.Fatal("session s1 should exist")
	}
	ds := s.Decisions()
	if len(ds) != 1 || ds[0].Statement != "adopt sqlite for the archive" {
		t.Errorf("decision not stored as sent: %+v", ds)
	}
}

func TestAddArtifactTool_InvalidKind(t *testing.T) {
	tool := NewAddArtifactTool(newTestManager(t, session.Config{}))

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"session_id": "s1",
		"kind":       "poem",
		"item":       `{}`,
	}))
	mustBeToolError(t, r, err, "invalid artifact kind")
}

func TestAddArtifactTool_MalformedItem(t *testing.T) {
	tool := NewAddArtifactTool(newTestManager(t, session.Config{}))

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"session_id": "s1",
		"kind":       "decision",
		"item":       "not an object",
	}))
	mustBeToolError(t, r, err, "not a valid decision record")
}

// ─── ListArtifactsTool ───────────────────────────────────────────────────────

func TestListArtifactsTool_Counts(t *testing.T) {
	m := newTestManager(t, session.Config{})
	s := m.GetOrCreate("s1")
	s.AddThought(artifact.Thought{Content: "alpha beta", Number: 1, NextNeeded: true})
	if err := s.AddDecision(artifact.Decision{Statement: "ship"}); err != nil {
		t.Fatalf("seed decision: %v", err)
	}
	tool := NewListArtifactsTool(m)

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"session_id": "s1",
	}))
	mustNotError(t, r, err)

	text := resultText(r)
	if !strings.Contains(text, "## Artifacts in session s1") {
		t.Errorf("expected listing header, got: %s", text)
	}
	if !strings.Contains(text, "- **thought**: 1") || !strings.Contains(text, "- **decision**: 1") {
		t.Errorf("expected per-kind counts, got: %s", text)
	}
	if !strings.Contains(text, "Total: 2") {
		t.Errorf("expected total, got: %s", text)
	}
}

func TestListArtifactsTool_KindJSON(t *testing.T) {
	m := newTestManager(t, session.Config{})
	s := m.GetOrCreate("s1")
	s.AddThought(artifact.Thought{Content: "alpha beta", Number: 1, NextNeeded: true})
	tool := NewListArtifactsTool(m)

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"session_id": "s1",
		"kind":       "thought",
	}))
	mustNotError(t, r, err)

	if !strings.Contains(resultText(r), "alpha beta") {
		t.Errorf("expected thought content in JSON, got: %s", resultText(r))
	}
}

func TestListArtifactsTool_EmptyKind(t *testing.T) {
	m := newTestManager(t, session.Config{})
	m.GetOrCreate("s1")
	tool := NewListArtifactsTool(m)

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"session_id": "s1",
		"kind":       "argument",
	}))
	mustNotError(t, r, err)

	if !strings.Contains(resultText(r), "No argument artifacts in session s1.") {
		t.Errorf("expected empty-kind message, got: %s", resultText(r))
	}
}

func TestListArtifactsTool_SessionNotFound(t *testing.T) {
	tool := NewListArtifactsTool(newTestManager(t, session.Config{}))

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"session_id": "ghost",
	}))
	mustBeToolError(t, r, err, "not found")
}

// ─── NodeTool ────────────────────────────────────────────────────────────────

func TestNodeTool_Definition(t *testing.T) {
	tool := NewNodeTool(newTestGraph(t))
	def := tool.Definition()

	if def.Name != "graph_node" {
		t.Errorf("tool name = %q, want %q", def.Name, "graph_node")
	}
	if _, ok := def.InputSchema.Properties["parent_id"]; !ok {
		t.Error("missing 'parent_id' parameter")
	}
	var hasContent bool
	for _, r := range def.InputSchema.Required {
		if r == "content" {
			hasContent = true
		}
	}
	if !hasContent {
		t.Error("'content' should be required")
	}
}

func TestNodeTool_CreatesRoot(t *testing.T) {
	g := newTestGraph(t)
	tool := NewNodeTool(g)

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"content": "central question",
		"id":      "root",
	}))
	mustNotError(t, r, err)

	if !strings.Contains(resultText(r), "Node root created (type concept, depth 0).") {
		t.Errorf("expected creation message, got: %s", resultText(r))
	}
	if got := g.Metrics().NodeCount; got != 1 {
		t.Errorf("node count = %d, want 1", got)
	}
}

func TestNodeTool_ChildDepth(t *testing.T) {
	g := newTestGraph(t)
	tool := NewNodeTool(g)

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"content": "central question",
		"id":      "root",
	}))
	mustNotError(t, r, err)

	r, err = tool.Handle(ctx, makeReq(map[string]interface{}{
		"content":   "supporting detail",
		"id":        "child",
		"parent_id": "root",
	}))
	mustNotError(t, r, err)

	if !strings.Contains(resultText(r), "depth 1") {
		t.Errorf("child should sit one level below root, got: %s", resultText(r))
	}
}

func TestNodeTool_MissingContent(t *testing.T) {
	tool := NewNodeTool(newTestGraph(t))

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{}))
	mustBeToolError(t, r, err, "'content' is required")
}

// ─── EdgeTool ────────────────────────────────────────────────────────────────

func TestEdgeTool_ConnectsNodes(t *testing.T) {
	g := newTestGraph(t)
	seedNode(t, g, "a", "")
	seedNode(t, g, "b", "a")
	tool := NewEdgeTool(g)

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"source": "a",
		"target": "b",
		"type":   "supports",
		"weight": float64(0.8),
	}))
	mustNotError(t, r, err)

	if !strings.Contains(resultText(r), "a -> b (supports)") {
		t.Errorf("expected edge summary, got: %s", resultText(r))
	}
	if !g.HasEdgeBetween("a", "b") {
		t.Error("edge should exist in the graph")
	}
}

func TestEdgeTool_Bidirectional(t *testing.T) {
	g := newTestGraph(t)
	seedNode(t, g, "a", "")
	seedNode(t, g, "b", "a")
	tool := NewEdgeTool(g)

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"source":        "a",
		"target":        "b",
		"bidirectional": true,
	}))
	mustNotError(t, r, err)

	if !strings.Contains(resultText(r), "a <-> b") {
		t.Errorf("expected bidirectional arrow, got: %s", resultText(r))
	}
}

func TestEdgeTool_RejectsBadWeight(t *testing.T) {
	g := newTestGraph(t)
	seedNode(t, g, "a", "")
	seedNode(t, g, "b", "a")
	tool := NewEdgeTool(g)

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"source": "a",
		"target": "b",
		"weight": float64(2),
	}))
	mustBeToolError(t, r, err, "outside [0,1]")
}

func TestEdgeTool_MissingTarget(t *testing.T) {
	tool := NewEdgeTool(newTestGraph(t))

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"source": "a",
	}))
	mustBeToolError(t, r, err, "'target' is required")
}

// ─── QueryTool ───────────────────────────────────────────────────────────────

func TestQueryTool_ListsNodes(t *testing.T) {
	tool := NewQueryTool(seedQueryGraph(t))

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"query": "nodes",
	}))
	mustNotError(t, r, err)

	text := resultText(r)
	if !strings.Contains(text, "## Nodes (3)") {
		t.Errorf("expected node count header, got: %s", text)
	}
	if !strings.Contains(text, "- a [concept, depth 0]") {
		t.Errorf("expected root listing, got: %s", text)
	}
}

func TestQueryTool_NodeJSON(t *testing.T) {
	tool := NewQueryTool(seedQueryGraph(t))

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"query":   "node",
		"node_id": "b",
	}))
	mustNotError(t, r, err)

	text := resultText(r)
	if !strings.Contains(text, `"id": "b"`) || !strings.Contains(text, `"parent_id": "a"`) {
		t.Errorf("expected node JSON, got: %s", text)
	}
}

func TestQueryTool_Outgoing(t *testing.T) {
	tool := NewQueryTool(seedQueryGraph(t))

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"query":   "outgoing",
		"node_id": "a",
	}))
	mustNotError(t, r, err)

	text := resultText(r)
	if !strings.Contains(text, "Outgoing edges of a (2)") {
		t.Errorf("expected outgoing header, got: %s", text)
	}
}

func TestQueryTool_OutgoingRequiresNodeID(t *testing.T) {
	tool := NewQueryTool(seedQueryGraph(t))

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"query": "outgoing",
	}))
	mustBeToolError(t, r, err, "'node_id' is required")
}

func TestQueryTool_NodeNotFound(t *testing.T) {
	tool := NewQueryTool(seedQueryGraph(t))

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"query":   "node",
		"node_id": "zzz",
	}))
	mustBeToolError(t, r, err, "node zzz not found")
}

func TestQueryTool_Relation(t *testing.T) {
	tool := NewQueryTool(seedQueryGraph(t))

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"query":    "relation",
		"relation": "supports",
	}))
	mustNotError(t, r, err)

	text := resultText(r)
	if !strings.Contains(text, "## Edges of type supports (1)") {
		t.Errorf("expected relation header, got: %s", text)
	}
	if !strings.Contains(text, "- e1: a -> b") {
		t.Errorf("expected supports edge, got: %s", text)
	}
}

func TestQueryTool_UnknownQuery(t *testing.T) {
	tool := NewQueryTool(newTestGraph(t))

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"query": "paths",
	}))
	mustBeToolError(t, r, err, `unknown query "paths"`)
}

func TestQueryTool_EmptyGraph(t *testing.T) {
	tool := NewQueryTool(newTestGraph(t))

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"query": "nodes",
	}))
	mustNotError(t, r, err)

	if !strings.Contains(resultText(r), "The graph has no nodes.") {
		t.Errorf("expected empty-graph message, got: %s", resultText(r))
	}
}

// ─── MetricsTool ─────────────────────────────────────────────────────────────

func TestMetricsTool_ReportsCeilings(t *testing.T) {
	g := newTestGraph(t)
	seedNode(t, g, "a", "")
	tool := NewMetricsTool(g)

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{}))
	mustNotError(t, r, err)

	text := resultText(r)
	if !strings.Contains(text, "- **Mode**: development") {
		t.Errorf("expected mode line, got: %s", text)
	}
	if !strings.Contains(text, "- **Nodes**: 1 / 500") {
		t.Errorf("expected node ceiling, got: %s", text)
	}
	if !strings.Contains(text, "- **Edges**: 0 / 1500") {
		t.Errorf("expected edge ceiling, got: %s", text)
	}
}

// ─── SnapshotTool / RestoreTool ──────────────────────────────────────────────

func TestSnapshotRestore_RoundTrip(t *testing.T) {
	src := newTestGraph(t)
	seedNode(t, src, "a", "")
	seedNode(t, src, "b", "a")
	if _, err := src.AddEdge(graph.EdgeInput{ID: "e1", Source: "a", Target: "b", Type: "supports", Weight: 0.9}); err != nil {
		t.Fatalf("seed edge: %v", err)
	}

	r, err := NewSnapshotTool(src).Handle(ctx, makeReq(map[string]interface{}{}))
	mustNotError(t, r, err)
	snapshot := resultText(r)

	dst, err := graph.New(graph.ModeMinimal)
	if err != nil {
		t.Fatalf("failed to create graph: %v", err)
	}
	r, err = NewRestoreTool(dst).Handle(ctx, makeReq(map[string]interface{}{
		"snapshot": snapshot,
	}))
	mustNotError(t, r, err)

	if !strings.Contains(resultText(r), "Graph restored: 2 nodes, 1 edges (mode development).") {
		t.Errorf("expected restore summary, got: %s", resultText(r))
	}
	if dst.Mode() != graph.ModeDevelopment {
		t.Errorf("mode = %s, want development", dst.Mode())
	}
	if !dst.HasEdgeBetween("a", "b") {
		t.Error("edge should survive the round trip")
	}
}

func TestRestoreTool_BadJSON(t *testing.T) {
	tool := NewRestoreTool(newTestGraph(t))

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"snapshot": "this is not JSON {{{",
	}))
	mustBeToolError(t, r, err, "valid JSON")
}

func TestRestoreTool_RejectedSnapshotLeavesGraph(t *testing.T) {
	g := newTestGraph(t)
	seedNode(t, g, "keep", "")
	tool := NewRestoreTool(g)

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"snapshot": `{"version":99,"mode":"minimal","nodes":[],"edges":[]}`,
	}))
	mustBeToolError(t, r, err, "failed to restore snapshot")

	if got := g.Metrics().NodeCount; got != 1 {
		t.Errorf("rejected restore should leave the graph untouched, node count = %d", got)
	}
}

// ─── MemoryAddTool ───────────────────────────────────────────────────────────

func TestMemoryAddTool_StoresEntry(t *testing.T) {
	store := newTestMemory(t)
	tool := NewMemoryAddTool(store)

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"kind": "thought",
		"item": `{"content":"the cache is the bottleneck","session_id":"s9"}`,
	}))
	mustNotError(t, r, err)

	if !strings.Contains(resultText(r), "stored (thought)") {
		t.Errorf("expected stored confirmation, got: %s", resultText(r))
	}
	if store.Len() != 1 {
		t.Errorf("store length = %d, want 1", store.Len())
	}

	// Projection: one artifact node, one session node, one belongs_to edge.
	m := store.KnowledgeGraph().Metrics()
	if m.NodeCount != 2 || m.EdgeCount != 1 {
		t.Errorf("projection = %d nodes / %d edges, want 2 / 1", m.NodeCount, m.EdgeCount)
	}
}

func TestMemoryAddTool_BadJSON(t *testing.T) {
	tool := NewMemoryAddTool(newTestMemory(t))

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"kind": "thought",
		"item": "{{{",
	}))
	mustBeToolError(t, r, err, "valid JSON")
}

func TestMemoryAddTool_UnknownKind(t *testing.T) {
	tool := NewMemoryAddTool(newTestMemory(t))

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"kind": "poem",
		"item": `{"content":"x"}`,
	}))
	mustBeToolError(t, r, err, "failed to add memory entry")
}

// ─── MemoryQueryTool ─────────────────────────────────────────────────────────

func TestMemoryQueryTool_ByID(t *testing.T) {
	store := newTestMemory(t)
	if _, err := store.Add("note-1", artifact.KindThought, artifact.Thought{Content: "recall this"}); err != nil {
		t.Fatalf("seed entry: %v", err)
	}
	tool := NewMemoryQueryTool(store)

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"id": "note-1",
	}))
	mustNotError(t, r, err)

	text := resultText(r)
	if !strings.Contains(text, `"note-1"`) || !strings.Contains(text, "recall this") {
		t.Errorf("expected entry JSON, got: %s", text)
	}
}

func TestMemoryQueryTool_ByKindEmpty(t *testing.T) {
	tool := NewMemoryQueryTool(newTestMemory(t))

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"kind": "decision",
	}))
	mustNotError(t, r, err)

	if !strings.Contains(resultText(r), "No decision entries in memory.") {
		t.Errorf("expected empty-kind message, got: %s", resultText(r))
	}
}

func TestMemoryQueryTool_Stats(t *testing.T) {
	store := newTestMemory(t)
	if _, err := store.Add("", artifact.KindThought, artifact.Thought{Content: "one"}); err != nil {
		t.Fatalf("seed entry: %v", err)
	}
	if _, err := store.Add("", artifact.KindDecision, artifact.Decision{Statement: "two"}); err != nil {
		t.Fatalf("seed entry: %v", err)
	}
	tool := NewMemoryQueryTool(store)

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{}))
	mustNotError(t, r, err)

	text := resultText(r)
	if !strings.Contains(text, "## Memory Statistics") {
		t.Errorf("expected stats header, got: %s", text)
	}
	if !strings.Contains(text, "- **Entries**: 2") {
		t.Errorf("expected entry total, got: %s", text)
	}
	if !strings.Contains(text, "### By kind") {
		t.Errorf("expected kind breakdown, got: %s", text)
	}
}

func TestMemoryQueryTool_NotFound(t *testing.T) {
	tool := NewMemoryQueryTool(newTestMemory(t))

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"id": "ghost",
	}))
	mustBeToolError(t, r, err, "memory entry ghost not found")
}

// ─── Memory export / import ──────────────────────────────────────────────────

func TestMemoryExportImport_RoundTrip(t *testing.T) {
	src := newTestMemory(t)
	if _, err := src.Add("m1", artifact.KindThought, artifact.Thought{Content: "alpha"}); err != nil {
		t.Fatalf("seed entry: %v", err)
	}
	if _, err := src.Add("m2", artifact.KindDecision, artifact.Decision{Statement: "beta"}); err != nil {
		t.Fatalf("seed entry: %v", err)
	}

	r, err := NewMemoryExportTool(src).Handle(ctx, makeReq(map[string]interface{}{}))
	mustNotError(t, r, err)
	payload := resultText(r)

	dst := newTestMemory(t)
	r, err = NewMemoryImportTool(dst).Handle(ctx, makeReq(map[string]interface{}{
		"data": payload,
	}))
	mustNotError(t, r, err)

	if !strings.Contains(resultText(r), "Imported 2 memory entries.") {
		t.Errorf("expected import summary, got: %s", resultText(r))
	}
	if dst.Len() != 2 {
		t.Errorf("imported entries = %d, want 2", dst.Len())
	}
}

func TestMemoryImportTool_BadJSON(t *testing.T) {
	tool := NewMemoryImportTool(newTestMemory(t))

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"data": "{{{",
	}))
	mustBeToolError(t, r, err, "valid JSON")
}

// ─── Notebook tools ──────────────────────────────────────────────────────────

func TestNotebookCreateTool_Idempotent(t *testing.T) {
	store := newTestNotebooks(t)
	tool := NewNotebookCreateTool(store)

	r1, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"session_id": "s1",
	}))
	mustNotError(t, r1, err)

	r2, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"session_id": "s1",
	}))
	mustNotError(t, r2, err)

	if resultText(r1) != resultText(r2) {
		t.Errorf("repeat create should return the same notebook: %q vs %q", resultText(r1), resultText(r2))
	}
	if store.Len() != 1 {
		t.Errorf("notebook count = %d, want 1", store.Len())
	}
}

func TestNotebookCellTool_AddAndDelete(t *testing.T) {
	store := newTestNotebooks(t)
	nbID, err := store.CreateNotebook("s1")
	if err != nil {
		t.Fatalf("seed notebook: %v", err)
	}
	tool := NewNotebookCellTool(store)

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"notebook_id": nbID,
		"kind":        "markdown",
		"source":      "# Findings",
	}))
	mustNotError(t, r, err)
	if !strings.Contains(resultText(r), "added (markdown)") {
		t.Errorf("expected add confirmation, got: %s", resultText(r))
	}

	nb, err := store.Notebook(nbID)
	if err != nil {
		t.Fatalf("fetch notebook: %v", err)
	}
	if len(nb.Cells) != 1 {
		t.Fatalf("cell count = %d, want 1", len(nb.Cells))
	}
	cellID := nb.Cells[0].ID

	r, err = tool.Handle(ctx, makeReq(map[string]interface{}{
		"notebook_id": nbID,
		"action":      "delete",
		"cell_id":     cellID,
	}))
	mustNotError(t, r, err)

	nb, err = store.Notebook(nbID)
	if err != nil {
		t.Fatalf("fetch notebook: %v", err)
	}
	if len(nb.Cells) != 0 {
		t.Errorf("cell count after delete = %d, want 0", len(nb.Cells))
	}
}

func TestNotebookCellTool_RequiresSource(t *testing.T) {
	store := newTestNotebooks(t)
	nbID, err := store.CreateNotebook("s1")
	if err != nil {
		t.Fatalf("seed notebook: %v", err)
	}
	tool := NewNotebookCellTool(store)

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"notebook_id": nbID,
	}))
	mustBeToolError(t, r, err, "'source' is required")
}

func TestNotebookCellTool_UnknownAction(t *testing.T) {
	store := newTestNotebooks(t)
	nbID, err := store.CreateNotebook("s1")
	if err != nil {
		t.Fatalf("seed notebook: %v", err)
	}
	tool := NewNotebookCellTool(store)

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"notebook_id": nbID,
		"action":      "rename",
	}))
	mustBeToolError(t, r, err, `unknown action "rename"`)
}

func TestNotebookRunTool_ExecutesCell(t *testing.T) {
	store := newTestNotebooks(t)
	nbID, err := store.CreateNotebook("s1")
	if err != nil {
		t.Fatalf("seed notebook: %v", err)
	}
	cellID, err := store.AddCell(nbID, notebook.CellCode, "6 * 7", "", -1)
	if err != nil {
		t.Fatalf("seed cell: %v", err)
	}
	tool := NewNotebookRunTool(store)

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"notebook_id": nbID,
		"cell_id":     cellID,
	}))
	mustNotError(t, r, err)

	text := resultText(r)
	if !strings.Contains(text, "- **Status**: complete") {
		t.Errorf("expected complete status, got: %s", text)
	}
	if !strings.Contains(text, "42") {
		t.Errorf("expected result value, got: %s", text)
	}
}

func TestNotebookRunTool_GuestErrorKeepsToolSuccess(t *testing.T) {
	store := newTestNotebooks(t)
	nbID, err := store.CreateNotebook("s1")
	if err != nil {
		t.Fatalf("seed notebook: %v", err)
	}
	cellID, err := store.AddCell(nbID, notebook.CellCode, "definitelyNotDefined()", "", -1)
	if err != nil {
		t.Fatalf("seed cell: %v", err)
	}
	tool := NewNotebookRunTool(store)

	// A guest failure is a failed execution record, not a tool error.
	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"notebook_id": nbID,
		"cell_id":     cellID,
	}))
	mustNotError(t, r, err)

	if !strings.Contains(resultText(r), "- **Status**: failed") {
		t.Errorf("expected failed status, got: %s", resultText(r))
	}
}

func TestNotebookExportTool_Markdown(t *testing.T) {
	store := newTestNotebooks(t)
	nbID, err := store.CreateNotebook("s1")
	if err != nil {
		t.Fatalf("seed notebook: %v", err)
	}
	if _, err := store.AddCell(nbID, notebook.CellMarkdown, "# Findings", "", -1); err != nil {
		t.Fatalf("seed cell: %v", err)
	}
	tool := NewNotebookExportTool(store)

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"notebook_id": nbID,
	}))
	mustNotError(t, r, err)

	if !strings.Contains(resultText(r), "# Findings") {
		t.Errorf("expected cell source in markdown export, got: %s", resultText(r))
	}
}

func TestNotebookExportTool_UnknownFormat(t *testing.T) {
	store := newTestNotebooks(t)
	nbID, err := store.CreateNotebook("s1")
	if err != nil {
		t.Fatalf("seed notebook: %v", err)
	}
	tool := NewNotebookExportTool(store)

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"notebook_id": nbID,
		"format":      "pdf",
	}))
	mustBeToolError(t, r, err, `unknown format "pdf"`)
}

func TestNotebookDeleteTool_RemovesNotebook(t *testing.T) {
	store := newTestNotebooks(t)
	nbID, err := store.CreateNotebook("s1")
	if err != nil {
		t.Fatalf("seed notebook: %v", err)
	}
	tool := NewNotebookDeleteTool(store)

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"notebook_id": nbID,
	}))
	mustNotError(t, r, err)

	if store.Len() != 0 {
		t.Errorf("notebook count after delete = %d, want 0", store.Len())
	}
}

// ─── HistoryTool ─────────────────────────────────────────────────────────────

func TestHistoryTool_Empty(t *testing.T) {
	tool := NewHistoryTool(newTestArchive(t))

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{}))
	mustNotError(t, r, err)

	if !strings.Contains(resultText(r), "No archived sessions yet.") {
		t.Errorf("expected empty-archive message, got: %s", resultText(r))
	}
}

func TestHistoryTool_RecentNewestFirst(t *testing.T) {
	arch := newTestArchive(t)
	if err := arch.Save(archRecord("s-old", baseEnd, 2)); err != nil {
		t.Fatalf("seed record: %v", err)
	}
	if err := arch.Save(archRecord("s-new", baseEnd.Add(time.Hour), 5)); err != nil {
		t.Fatalf("seed record: %v", err)
	}
	tool := NewHistoryTool(arch)

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{}))
	mustNotError(t, r, err)

	text := resultText(r)
	if !strings.Contains(text, "## Recent sessions") {
		t.Errorf("expected recent header, got: %s", text)
	}
	newIdx := strings.Index(text, "s-new")
	oldIdx := strings.Index(text, "s-old")
	if newIdx < 0 || oldIdx < 0 || newIdx > oldIdx {
		t.Errorf("newest run should list first, got: %s", text)
	}
}

func TestHistoryTool_BySession(t *testing.T) {
	arch := newTestArchive(t)
	if err := arch.Save(archRecord("s1", baseEnd, 3)); err != nil {
		t.Fatalf("seed record: %v", err)
	}
	tool := NewHistoryTool(arch)

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"session_id": "s1",
	}))
	mustNotError(t, r, err)

	text := resultText(r)
	if !strings.Contains(text, "## Runs of session s1") {
		t.Errorf("expected per-session header, got: %s", text)
	}
	if !strings.Contains(text, "with 3 artifacts") {
		t.Errorf("expected artifact count, got: %s", text)
	}
}

func TestHistoryTool_UnknownSession(t *testing.T) {
	tool := NewHistoryTool(newTestArchive(t))

	r, err := tool.Handle(ctx, makeReq(map[string]interface{}{
		"session_id": "ghost",
	}))
	mustBeToolError(t, r, err, "failed to read history")
}
