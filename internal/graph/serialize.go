package graph

import (
	"sort"
	"time"

	"github.com/aletheia-dev/noema/internal/fault"
)

// SnapshotVersion identifies the snapshot wire format.
const SnapshotVersion = 1

// SnapshotNode is a node with its set-valued fields flattened to
// sorted lists, suitable for JSON persistence and hand inspection.
type SnapshotNode struct {
	ID         string         `json:"id"`
	Content    string         `json:"content"`
	Type       string         `json:"type"`
	Depth      int            `json:"depth"`
	ParentID   string         `json:"parent_id,omitempty"`
	Children   []string       `json:"children,omitempty"`
	Incoming   []string       `json:"incoming,omitempty"`
	Outgoing   []string       `json:"outgoing,omitempty"`
	Confidence float64        `json:"confidence,omitempty"`
	Centrality float64        `json:"centrality,omitempty"`
	Tags       []string       `json:"tags,omitempty"`
	Selected   bool           `json:"selected,omitempty"`
	Artifacts  map[string]any `json:"artifacts,omitempty"`
}

// Snapshot is a complete structural copy of a graph. Restore rebuilds
// a behaviorally identical graph from it.
type Snapshot struct {
	Version   int                 `json:"version"`
	Mode      Mode                `json:"mode"`
	Root      string              `json:"root,omitempty"`
	Nodes     []SnapshotNode      `json:"nodes"`
	Edges     []Edge              `json:"edges"`
	Levels    map[int][]string    `json:"levels,omitempty"`
	Clusters  map[string][]string `json:"clusters,omitempty"`
	Gaps      []Gap               `json:"gaps,omitempty"`
	Metrics   Metrics             `json:"metrics"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Serialize produces a full structural snapshot in insertion order.
func (g *Graph) Serialize() *Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	snap := &Snapshot{
		Version:   SnapshotVersion,
		Mode:      g.mode,
		Root:      g.rootID,
		Nodes:     make([]SnapshotNode, 0, len(g.nodeOrder)),
		Edges:     make([]Edge, 0, len(g.edgeOrder)),
		Levels:    make(map[int][]string, len(g.levels)),
		Clusters:  make(map[string][]string, len(g.clusters)),
		Gaps:      append([]Gap(nil), g.gaps...),
		Metrics:   g.metrics,
		UpdatedAt: g.metrics.UpdatedAt,
	}

	for _, id := range g.nodeOrder {
		n := g.nodes[id]
		snap.Nodes = append(snap.Nodes, SnapshotNode{
			ID:         n.ID,
			Content:    n.Content,
			Type:       n.Type,
			Depth:      n.Depth,
			ParentID:   n.ParentID,
			Children:   append([]string(nil), n.Children...),
			Incoming:   sortedKeys(n.Incoming),
			Outgoing:   sortedKeys(n.Outgoing),
			Confidence: n.Confidence,
			Centrality: n.Centrality,
			Tags:       append([]string(nil), n.Tags...),
			Selected:   n.Selected,
			Artifacts:  copyArtifacts(n.Artifacts),
		})
	}
	for _, id := range g.edgeOrder {
		snap.Edges = append(snap.Edges, *g.edges[id])
	}
	for depth, ids := range g.levels {
		snap.Levels[depth] = append([]string(nil), ids...)
	}
	for name, ids := range g.clusters {
		snap.Clusters[name] = append([]string(nil), ids...)
	}
	return snap
}

// Restore builds a graph from a snapshot. Every derived index
// (adjacency sets, depth levels, parent/child lists, the by-source
// edge index) is reconstructed from the raw nodes and edges rather
// than trusted from the snapshot, so queries behave identically to
// the graph that produced it even if auxiliary snapshot fields have
// been hand-edited out of sync.
func Restore(snap *Snapshot) (*Graph, error) {
	if snap == nil {
		return nil, fault.Validationf("nil snapshot")
	}
	if snap.Version != SnapshotVersion {
		return nil, fault.Validationf("unsupported snapshot version %d (want %d)", snap.Version, SnapshotVersion)
	}

	g, err := New(snap.Mode)
	if err != nil {
		return nil, err
	}
	if len(snap.Nodes) > g.limits.Nodes {
		return nil, fault.Capacityf("snapshot has %d nodes, mode %s allows %d", len(snap.Nodes), snap.Mode, g.limits.Nodes)
	}
	if len(snap.Edges) > g.limits.Edges {
		return nil, fault.Capacityf("snapshot has %d edges, mode %s allows %d", len(snap.Edges), snap.Mode, g.limits.Edges)
	}

	for _, sn := range snap.Nodes {
		if sn.ID == "" {
			return nil, fault.Validationf("snapshot node with empty id")
		}
		if _, exists := g.nodes[sn.ID]; exists {
			return nil, fault.Validationf("duplicate node %s in snapshot", sn.ID)
		}
		if sn.Depth < 0 || sn.Depth > g.limits.Depth {
			return nil, fault.Validationf("node %s depth %d outside [0,%d]", sn.ID, sn.Depth, g.limits.Depth)
		}
		g.nodes[sn.ID] = &Node{
			ID:         sn.ID,
			Content:    sn.Content,
			Type:       sn.Type,
			Depth:      sn.Depth,
			ParentID:   sn.ParentID,
			Incoming:   make(map[string]bool),
			Outgoing:   make(map[string]bool),
			Confidence: sn.Confidence,
			Centrality: sn.Centrality,
			Tags:       append([]string(nil), sn.Tags...),
			Selected:   sn.Selected,
			Artifacts:  copyArtifacts(sn.Artifacts),
		}
		g.nodeOrder = append(g.nodeOrder, sn.ID)
		g.levels[sn.Depth] = append(g.levels[sn.Depth], sn.ID)
	}

	// Parent/child lists rebuilt by scanning nodes in insertion order,
	// which is the order children were originally appended.
	for _, id := range g.nodeOrder {
		node := g.nodes[id]
		if node.ParentID == "" {
			continue
		}
		parent, ok := g.nodes[node.ParentID]
		if !ok {
			return nil, fault.Referencef("node %s references missing parent %s", id, node.ParentID)
		}
		parent.Children = append(parent.Children, id)
	}

	for _, e := range snap.Edges {
		src, ok := g.nodes[e.Source]
		if !ok {
			return nil, fault.Referencef("edge %s references missing source %s", e.ID, e.Source)
		}
		dst, ok := g.nodes[e.Target]
		if !ok {
			return nil, fault.Referencef("edge %s references missing target %s", e.ID, e.Target)
		}
		if e.Weight < 0 || e.Weight > 1 {
			return nil, fault.Validationf("edge %s weight %v outside [0,1]", e.ID, e.Weight)
		}
		if _, exists := g.edges[e.ID]; exists {
			return nil, fault.Validationf("duplicate edge %s in snapshot", e.ID)
		}
		edge := e
		g.edges[e.ID] = &edge
		g.edgeOrder = append(g.edgeOrder, e.ID)
		g.bySource[e.Source] = append(g.bySource[e.Source], e.ID)
		src.Outgoing[e.ID] = true
		dst.Incoming[e.ID] = true
		if e.Bidirectional {
			dst.Outgoing[e.ID] = true
			src.Incoming[e.ID] = true
		}
	}

	if snap.Root != "" {
		if _, ok := g.nodes[snap.Root]; !ok {
			return nil, fault.Referencef("snapshot root %s not among nodes", snap.Root)
		}
	}
	g.rootID = snap.Root

	for name, ids := range snap.Clusters {
		g.clusters[name] = append([]string(nil), ids...)
	}
	g.gaps = append([]Gap(nil), snap.Gaps...)

	g.metrics.NodeCount = len(g.nodes)
	g.metrics.EdgeCount = len(g.edges)
	g.metrics.MaxDepth = g.maxDepthLocked()
	g.recomputeDegree()
	g.metrics.UpdatedAt = snap.Metrics.UpdatedAt
	return g, nil
}

// LoadSnapshot replaces the receiver's entire contents with the
// snapshot's, adopting the snapshot's mode and limits. The receiver
// keeps its identity, so long-lived references observe the restored
// state. Validation runs on a scratch graph first; on error the
// receiver is untouched.
func (g *Graph) LoadSnapshot(snap *Snapshot) error {
	restored, err := Restore(snap)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.mode = restored.mode
	g.limits = restored.limits
	g.nodes = restored.nodes
	g.nodeOrder = restored.nodeOrder
	g.edges = restored.edges
	g.edgeOrder = restored.edgeOrder
	g.bySource = restored.bySource
	g.levels = restored.levels
	g.rootID = restored.rootID
	g.clusters = restored.clusters
	g.gaps = restored.gaps
	g.metrics = restored.metrics
	return nil
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
