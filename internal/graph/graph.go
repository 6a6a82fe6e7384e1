package graph

import (
	"sync"
	"time"

	"github.com/aletheia-dev/noema/internal/fault"
	"github.com/google/uuid"
)

// timeNow is stubbed in tests.
var timeNow = time.Now

// Node is one vertex: a hierarchy member (parent/children/depth) and a
// network endpoint (incoming/outgoing edge-id sets).
type Node struct {
	ID         string          `json:"id"`
	Content    string          `json:"content"`
	Type       string          `json:"type"`
	Depth      int             `json:"depth"`
	ParentID   string          `json:"parent_id,omitempty"`
	Children   []string        `json:"children,omitempty"`
	Incoming   map[string]bool `json:"-"`
	Outgoing   map[string]bool `json:"-"`
	Confidence float64         `json:"confidence,omitempty"`
	Centrality float64         `json:"centrality,omitempty"`
	Tags       []string        `json:"tags,omitempty"`
	Selected   bool            `json:"selected,omitempty"`
	Artifacts  map[string]any  `json:"artifacts,omitempty"`
}

// Edge is one typed, weighted connection. Weight must lie in [0,1].
// A bidirectional edge appears in both endpoints' incoming and
// outgoing sets.
type Edge struct {
	ID            string  `json:"id"`
	Source        string  `json:"source"`
	Target        string  `json:"target"`
	Type          string  `json:"type"`
	Weight        float64 `json:"weight"`
	Confidence    float64 `json:"confidence,omitempty"`
	Bidirectional bool    `json:"bidirectional,omitempty"`
}

// Gap is an externally identified blind spot in the graph's coverage.
type Gap struct {
	Topic       string `json:"topic"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty"`
}

// Metrics are the graph's running aggregate measures.
type Metrics struct {
	NodeCount int       `json:"node_count"`
	EdgeCount int       `json:"edge_count"`
	MaxDepth  int       `json:"max_depth"`
	AvgDegree float64   `json:"avg_degree"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NodeInput carries the caller-supplied fields for CreateNode. When ID
// is empty one is generated. Depth is taken from the parent (+1) when
// ParentID is set; otherwise Depth is used as given.
type NodeInput struct {
	ID         string
	Content    string
	Type       string
	ParentID   string
	Depth      int
	Confidence float64
	Tags       []string
	Artifacts  map[string]any
}

// EdgeInput carries the caller-supplied fields for AddEdge.
type EdgeInput struct {
	ID            string
	Source        string
	Target        string
	Type          string
	Weight        float64
	Confidence    float64
	Bidirectional bool
}

// NodeUpdate lists the mutable node fields. Nil pointers leave the
// field untouched; structural fields (depth, parent) cannot change
// after creation.
type NodeUpdate struct {
	Content    *string
	Type       *string
	Confidence *float64
	Tags       []string
	Artifacts  map[string]any
}

// Graph is the mutable store. All exported methods are safe for
// concurrent use; reads return copies.
type Graph struct {
	mu     sync.RWMutex
	mode   Mode
	limits Limits

	nodes     map[string]*Node
	nodeOrder []string
	edges     map[string]*Edge
	edgeOrder []string

	bySource map[string][]string // source node id → edge ids
	levels   map[int][]string    // depth → node ids
	rootID   string

	clusters map[string][]string
	gaps     []Gap
	metrics  Metrics
}

// New returns an empty graph bounded by the given mode's ceilings.
func New(mode Mode) (*Graph, error) {
	if _, ok := modeLimits[mode]; !ok {
		return nil, fault.Validationf("unknown deployment mode %q", mode)
	}
	return &Graph{
		mode:     mode,
		limits:   modeLimits[mode],
		nodes:    make(map[string]*Node),
		edges:    make(map[string]*Edge),
		bySource: make(map[string][]string),
		levels:   make(map[int][]string),
		clusters: make(map[string][]string),
		metrics:  Metrics{UpdatedAt: timeNow().UTC()},
	}, nil
}

// Mode returns the deployment mode fixed at construction.
func (g *Graph) Mode() Mode {
	return g.mode
}

// Limits returns the active ceiling profile.
func (g *Graph) Limits() Limits {
	return g.limits
}

// ─── Mutations ───────────────────────────────────────────────────────────────

// CreateNode inserts a node and links it into the hierarchy. The first
// node ever inserted becomes the hierarchy root. All ceiling and
// reference checks run before any state changes.
func (g *Graph) CreateNode(in NodeInput) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.nodes) >= g.limits.Nodes {
		return "", fault.Capacityf("node limit %d reached for mode %s", g.limits.Nodes, g.mode)
	}

	id := in.ID
	if id == "" {
		id = uuid.NewString()
	} else if _, exists := g.nodes[id]; exists {
		return "", fault.Validationf("node %s already exists", id)
	}

	depth := in.Depth
	var parent *Node
	if in.ParentID != "" {
		var ok bool
		parent, ok = g.nodes[in.ParentID]
		if !ok {
			return "", fault.Referencef("parent node %s not found", in.ParentID)
		}
		depth = parent.Depth + 1
	}
	if depth < 0 {
		return "", fault.Validationf("depth %d is negative", depth)
	}
	if depth > g.limits.Depth {
		return "", fault.Validationf("depth %d exceeds limit %d for mode %s", depth, g.limits.Depth, g.mode)
	}

	node := &Node{
		ID:         id,
		Content:    in.Content,
		Type:       in.Type,
		Depth:      depth,
		ParentID:   in.ParentID,
		Incoming:   make(map[string]bool),
		Outgoing:   make(map[string]bool),
		Confidence: in.Confidence,
		Tags:       append([]string(nil), in.Tags...),
		Artifacts:  copyArtifacts(in.Artifacts),
	}

	if len(g.nodes) == 0 {
		g.rootID = id
	}
	g.nodes[id] = node
	g.nodeOrder = append(g.nodeOrder, id)
	g.levels[depth] = append(g.levels[depth], id)
	if parent != nil {
		parent.Children = append(parent.Children, id)
	}

	g.metrics.NodeCount = len(g.nodes)
	if depth > g.metrics.MaxDepth {
		g.metrics.MaxDepth = depth
	}
	g.recomputeDegree()
	g.metrics.UpdatedAt = timeNow().UTC()
	return id, nil
}

// AddEdge inserts an edge between two existing nodes and updates both
// endpoints' adjacency sets. Bidirectional edges are registered in
// both directions.
func (g *Graph) AddEdge(in EdgeInput) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.edges) >= g.limits.Edges {
		return "", fault.Capacityf("edge limit %d reached for mode %s", g.limits.Edges, g.mode)
	}
	src, ok := g.nodes[in.Source]
	if !ok {
		return "", fault.Referencef("source node %s not found", in.Source)
	}
	dst, ok := g.nodes[in.Target]
	if !ok {
		return "", fault.Referencef("target node %s not found", in.Target)
	}
	if in.Source == in.Target {
		return "", fault.Validationf("self-referencing edge on node %s", in.Source)
	}
	if in.Weight < 0 || in.Weight > 1 {
		return "", fault.Validationf("edge weight %v outside [0,1]", in.Weight)
	}

	id := in.ID
	if id == "" {
		id = uuid.NewString()
	} else if _, exists := g.edges[id]; exists {
		return "", fault.Validationf("edge %s already exists", id)
	}

	edge := &Edge{
		ID:            id,
		Source:        in.Source,
		Target:        in.Target,
		Type:          in.Type,
		Weight:        in.Weight,
		Confidence:    in.Confidence,
		Bidirectional: in.Bidirectional,
	}

	g.edges[id] = edge
	g.edgeOrder = append(g.edgeOrder, id)
	g.bySource[in.Source] = append(g.bySource[in.Source], id)
	src.Outgoing[id] = true
	dst.Incoming[id] = true
	if in.Bidirectional {
		dst.Outgoing[id] = true
		src.Incoming[id] = true
	}

	g.metrics.EdgeCount = len(g.edges)
	g.recomputeDegree()
	g.metrics.UpdatedAt = timeNow().UTC()
	return id, nil
}

// UpdateNode applies a partial update to a node's content fields.
func (g *Graph) UpdateNode(id string, up NodeUpdate) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	node, ok := g.nodes[id]
	if !ok {
		return fault.Referencef("node %s not found", id)
	}
	if up.Content != nil {
		node.Content = *up.Content
	}
	if up.Type != nil {
		node.Type = *up.Type
	}
	if up.Confidence != nil {
		node.Confidence = *up.Confidence
	}
	if up.Tags != nil {
		node.Tags = append([]string(nil), up.Tags...)
	}
	if up.Artifacts != nil {
		node.Artifacts = copyArtifacts(up.Artifacts)
	}
	g.metrics.UpdatedAt = timeNow().UTC()
	return nil
}

// RemoveNode deletes a node. Every edge touching it is removed first,
// then the node is detached from its parent's child set and from the
// depth-level index. Children of the removed node stay in the graph
// with their parent reference cleared.
func (g *Graph) RemoveNode(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	node, ok := g.nodes[id]
	if !ok {
		return fault.Referencef("node %s not found", id)
	}

	for edgeID := range node.Incoming {
		g.removeEdgeLocked(edgeID)
	}
	for edgeID := range node.Outgoing {
		g.removeEdgeLocked(edgeID)
	}

	if node.ParentID != "" {
		if parent, ok := g.nodes[node.ParentID]; ok {
			parent.Children = removeString(parent.Children, id)
		}
	}
	for _, childID := range node.Children {
		if child, ok := g.nodes[childID]; ok {
			child.ParentID = ""
		}
	}

	g.levels[node.Depth] = removeString(g.levels[node.Depth], id)
	if len(g.levels[node.Depth]) == 0 {
		delete(g.levels, node.Depth)
	}
	delete(g.nodes, id)
	g.nodeOrder = removeString(g.nodeOrder, id)
	if g.rootID == id {
		g.rootID = ""
	}

	g.metrics.NodeCount = len(g.nodes)
	g.metrics.MaxDepth = g.maxDepthLocked()
	g.recomputeDegree()
	g.metrics.UpdatedAt = timeNow().UTC()
	return nil
}

// RemoveEdge deletes a single edge and unregisters it from both
// endpoints.
func (g *Graph) RemoveEdge(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.edges[id]; !ok {
		return fault.Referencef("edge %s not found", id)
	}
	g.removeEdgeLocked(id)
	g.metrics.EdgeCount = len(g.edges)
	g.recomputeDegree()
	g.metrics.UpdatedAt = timeNow().UTC()
	return nil
}

// removeEdgeLocked deletes an edge without touching metrics. Caller
// holds g.mu and recomputes metrics afterwards.
func (g *Graph) removeEdgeLocked(id string) {
	edge, ok := g.edges[id]
	if !ok {
		return
	}
	if src, ok := g.nodes[edge.Source]; ok {
		delete(src.Outgoing, id)
		delete(src.Incoming, id)
	}
	if dst, ok := g.nodes[edge.Target]; ok {
		delete(dst.Incoming, id)
		delete(dst.Outgoing, id)
	}
	g.bySource[edge.Source] = removeString(g.bySource[edge.Source], id)
	if len(g.bySource[edge.Source]) == 0 {
		delete(g.bySource, edge.Source)
	}
	delete(g.edges, id)
	g.edgeOrder = removeString(g.edgeOrder, id)
	g.metrics.EdgeCount = len(g.edges)
}

// ─── Queries ─────────────────────────────────────────────────────────────────

// Node returns a copy of the node with the given id.
func (g *Graph) Node(id string) (*Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	node, ok := g.nodes[id]
	if !ok {
		return nil, false
	}
	return cloneNode(node), true
}

// Edge returns the edge with the given id.
func (g *Graph) Edge(id string) (Edge, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	edge, ok := g.edges[id]
	if !ok {
		return Edge{}, false
	}
	return *edge, true
}

// Nodes returns copies of all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Node, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		out = append(out, cloneNode(g.nodes[id]))
	}
	return out
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Edge, 0, len(g.edgeOrder))
	for _, id := range g.edgeOrder {
		out = append(out, *g.edges[id])
	}
	return out
}

// OutgoingEdges returns every edge leaving the node (including
// bidirectional edges arriving at it).
func (g *Graph) OutgoingEdges(nodeID string) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	node, ok := g.nodes[nodeID]
	if !ok {
		return nil
	}
	return g.edgeSetLocked(node.Outgoing)
}

// IncomingEdges returns every edge arriving at the node (including
// bidirectional edges leaving it).
func (g *Graph) IncomingEdges(nodeID string) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	node, ok := g.nodes[nodeID]
	if !ok {
		return nil
	}
	return g.edgeSetLocked(node.Incoming)
}

// edgeSetLocked resolves an edge-id set to edges in insertion order.
func (g *Graph) edgeSetLocked(set map[string]bool) []Edge {
	out := make([]Edge, 0, len(set))
	for _, id := range g.edgeOrder {
		if set[id] {
			out = append(out, *g.edges[id])
		}
	}
	return out
}

// EdgesByType returns all edges of the given relation type in
// insertion order.
func (g *Graph) EdgesByType(relation string) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []Edge
	for _, id := range g.edgeOrder {
		if e := g.edges[id]; e.Type == relation {
			out = append(out, *e)
		}
	}
	return out
}

// HasEdgeBetween reports whether any edge connects a to b: a directed
// edge a→b, or a bidirectional edge in either orientation.
func (g *Graph) HasEdgeBetween(a, b string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, id := range g.bySource[a] {
		if g.edges[id].Target == b {
			return true
		}
	}
	for _, id := range g.bySource[b] {
		if e := g.edges[id]; e.Bidirectional && e.Target == a {
			return true
		}
	}
	return false
}

// Root returns the hierarchy root node id, or "" when the graph is
// empty or the root was removed.
func (g *Graph) Root() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.rootID
}

// Level returns the node ids stored at the given depth, in insertion
// order.
func (g *Graph) Level(depth int) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.levels[depth]...)
}

// ─── Selection and external analytics ────────────────────────────────────────

// MarkSelected flags or unflags a node for downstream attention.
func (g *Graph) MarkSelected(id string, selected bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	node, ok := g.nodes[id]
	if !ok {
		return fault.Referencef("node %s not found", id)
	}
	node.Selected = selected
	return nil
}

// SelectedNodes returns copies of all flagged nodes in insertion
// order.
func (g *Graph) SelectedNodes() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []*Node
	for _, id := range g.nodeOrder {
		if node := g.nodes[id]; node.Selected {
			out = append(out, cloneNode(node))
		}
	}
	return out
}

// SetClusters replaces the cluster assignment. Clusters are computed
// externally; the graph only stores them.
func (g *Graph) SetClusters(clusters map[string][]string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clusters = make(map[string][]string, len(clusters))
	for name, ids := range clusters {
		g.clusters[name] = append([]string(nil), ids...)
	}
	g.metrics.UpdatedAt = timeNow().UTC()
}

// Clusters returns a copy of the cluster assignment.
func (g *Graph) Clusters() map[string][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[string][]string, len(g.clusters))
	for name, ids := range g.clusters {
		out[name] = append([]string(nil), ids...)
	}
	return out
}

// UpdateCentrality applies externally computed centrality scores.
// Scores for unknown node ids are ignored; the computation may lag
// graph mutations.
func (g *Graph) UpdateCentrality(scores map[string]float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for id, score := range scores {
		if node, ok := g.nodes[id]; ok {
			node.Centrality = score
		}
	}
	g.metrics.UpdatedAt = timeNow().UTC()
}

// SetGaps replaces the externally identified knowledge-gap list.
func (g *Graph) SetGaps(gaps []Gap) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gaps = append([]Gap(nil), gaps...)
	g.metrics.UpdatedAt = timeNow().UTC()
}

// Gaps returns a copy of the knowledge-gap list.
func (g *Graph) Gaps() []Gap {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]Gap(nil), g.gaps...)
}

// Metrics returns the current aggregate measures.
func (g *Graph) Metrics() Metrics {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.metrics
}

// ─── Internals ───────────────────────────────────────────────────────────────

// recomputeDegree refreshes the average degree (2E/N). Caller holds
// g.mu.
func (g *Graph) recomputeDegree() {
	if len(g.nodes) == 0 {
		g.metrics.AvgDegree = 0
		return
	}
	g.metrics.AvgDegree = 2 * float64(len(g.edges)) / float64(len(g.nodes))
}

// maxDepthLocked rescans the level index for the deepest occupied
// level. Caller holds g.mu.
func (g *Graph) maxDepthLocked() int {
	max := 0
	for depth, ids := range g.levels {
		if len(ids) > 0 && depth > max {
			max = depth
		}
	}
	return max
}

func cloneNode(n *Node) *Node {
	out := *n
	out.Children = append([]string(nil), n.Children...)
	out.Tags = append([]string(nil), n.Tags...)
	out.Incoming = make(map[string]bool, len(n.Incoming))
	for id := range n.Incoming {
		out.Incoming[id] = true
	}
	out.Outgoing = make(map[string]bool, len(n.Outgoing))
	for id := range n.Outgoing {
		out.Outgoing[id] = true
	}
	out.Artifacts = copyArtifacts(n.Artifacts)
	return &out
}

func copyArtifacts(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func removeString(s []string, v string) []string {
	for i, existing := range s {
		if existing == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
