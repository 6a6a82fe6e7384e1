// Package unified provides a consolidated append-log over every
// artifact kind. Each insertion is projected into an auxiliary
// knowledge graph so cross-session structure (which artifacts belong
// to which session, how kinds cluster) stays queryable without
// touching the per-session stores. The log is authoritative; the
// graph is an index derived from it.
package unified

import (
	"sync"
	"time"

	"github.com/aletheia-dev/noema/internal/artifact"
	"github.com/aletheia-dev/noema/internal/fault"
	"github.com/aletheia-dev/noema/internal/graph"
	"go.uber.org/zap"
)

var timeNow = time.Now

// Entry is one tagged record in the append-log.
type Entry struct {
	ID      string        `json:"id"`
	Kind    artifact.Kind `json:"kind"`
	Item    any           `json:"item"`
	AddedAt time.Time     `json:"added_at"`
}

// Config controls persistence and the auxiliary graph profile.
type Config struct {
	// Dir is the persistence directory. Empty disables persistence.
	Dir string
	// Debounce is the quiet period coalescing writes. Zero means
	// DefaultDebounce.
	Debounce time.Duration
	// Mode sizes the auxiliary graph. Zero value means research,
	// the largest profile, so projection rarely hits a ceiling.
	Mode graph.Mode
}

// DefaultDebounce is the write-coalescing quiet period.
const DefaultDebounce = 500 * time.Millisecond

// Store is the consolidated artifact log plus its graph projection.
type Store struct {
	log *zap.Logger

	mu      sync.RWMutex
	order   []string
	entries map[string]Entry
	kg      *graph.Graph

	dir      string
	debounce time.Duration
	pmu      sync.Mutex
	ptimer   *time.Timer
	closed   bool
}

// New builds a store, reloading any persisted state from cfg.Dir.
// Reload is best effort: a missing, unreadable, or malformed file
// means that piece starts empty, never a construction failure.
func New(cfg Config, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Mode == "" {
		cfg.Mode = graph.ModeResearch
	}

	s := &Store{
		log:      log,
		entries:  make(map[string]Entry),
		dir:      cfg.Dir,
		debounce: cfg.Debounce,
	}
	s.kg = mustGraph(cfg.Mode)

	if cfg.Dir != "" {
		s.load()
	}
	return s
}

// mustGraph builds the auxiliary graph. Modes are validated at config
// load, so a failure here is a programming error.
func mustGraph(mode graph.Mode) *graph.Graph {
	g, err := graph.New(mode)
	if err != nil {
		panic(err)
	}
	return g
}

// Add appends a tagged artifact under id (generated when empty) and
// projects it into the auxiliary graph. Re-adding an id replaces the
// stored item and keeps its position.
func (s *Store) Add(id string, kind artifact.Kind, item any) (string, error) {
	if err := artifact.ValidateKind(kind); err != nil {
		return "", fault.Validationf("unified add: %v", err)
	}
	if item == nil {
		return "", fault.Validationf("unified add requires a non-nil item")
	}
	if id == "" {
		id = artifact.NewID()
	}

	entry := Entry{ID: id, Kind: kind, Item: item, AddedAt: timeNow().UTC()}

	s.mu.Lock()
	if _, exists := s.entries[id]; !exists {
		s.order = append(s.order, id)
	}
	s.entries[id] = entry
	s.project(entry)
	s.mu.Unlock()

	s.scheduleSave()
	return id, nil
}

// Get returns the entry stored under id.
func (s *Store) Get(id string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	return e, ok
}

// All returns every entry in insertion order.
func (s *Store) All() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.entries[id])
	}
	return out
}

// ByKind returns entries of one kind in insertion order.
func (s *Store) ByKind(kind artifact.Kind) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, id := range s.order {
		if e := s.entries[id]; e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Clear empties the log and its graph projection.
func (s *Store) Clear() {
	s.mu.Lock()
	s.order = nil
	s.entries = make(map[string]Entry)
	mode := s.kg.Mode()
	s.kg = mustGraph(mode)
	s.mu.Unlock()

	s.scheduleSave()
}

// KnowledgeGraph exposes the auxiliary graph for read-side consumers.
// The graph guards itself; callers should treat it as an index and
// mutate only through Add.
func (s *Store) KnowledgeGraph() *graph.Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.kg
}

// Stats summarizes the log and its projection.
type Stats struct {
	Total      int                   `json:"total"`
	ByKind     map[artifact.Kind]int `json:"by_kind"`
	GraphNodes int                   `json:"graph_nodes"`
	GraphEdges int                   `json:"graph_edges"`
	OldestAt   time.Time             `json:"oldest_at,omitempty"`
	NewestAt   time.Time             `json:"newest_at,omitempty"`
}

// Stats computes counts over the flat log plus projection sizes.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{ByKind: make(map[artifact.Kind]int)}
	for _, id := range s.order {
		e := s.entries[id]
		st.Total++
		st.ByKind[e.Kind]++
		if st.OldestAt.IsZero() || e.AddedAt.Before(st.OldestAt) {
			st.OldestAt = e.AddedAt
		}
		if e.AddedAt.After(st.NewestAt) {
			st.NewestAt = e.AddedAt
		}
	}
	m := s.kg.Metrics()
	st.GraphNodes = m.NodeCount
	st.GraphEdges = m.EdgeCount
	return st
}

// Export regroups the log by kind, preserving insertion order within
// each kind.
func (s *Store) Export() map[artifact.Kind][]Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[artifact.Kind][]Entry)
	for _, id := range s.order {
		e := s.entries[id]
		out[e.Kind] = append(out[e.Kind], e)
	}
	return out
}

// Import replays regrouped entries through Add under fresh synthetic
// ids, so an export/import round trip is not id-stable. Returns how
// many entries were stored.
func (s *Store) Import(data map[artifact.Kind][]Entry) (int, error) {
	if data == nil {
		return 0, fault.Validationf("unified import requires a payload")
	}
	imported := 0
	for _, kind := range artifact.AllKinds() {
		for _, e := range data[kind] {
			if e.Item == nil {
				continue
			}
			if _, err := s.Add(artifact.NewID(), kind, e.Item); err != nil {
				return imported, err
			}
			imported++
		}
	}
	return imported, nil
}

// ─── Graph projection ────────────────────────────────────────────────────────

// project mirrors one entry into the auxiliary graph: a node per
// artifact, a concept node per owning session, and a belongs_to edge
// between them. Ceiling rejections downgrade to a warning because the
// log, not the index, is authoritative. Caller holds s.mu.
func (s *Store) project(e Entry) {
	artNode := "art:" + e.ID
	if _, ok := s.kg.Node(artNode); !ok {
		_, err := s.kg.CreateNode(graph.NodeInput{
			ID:      artNode,
			Content: summarize(e.Kind, e.Item),
			Type:    string(e.Kind),
			Tags:    []string{string(e.Kind)},
		})
		if err != nil {
			s.log.Warn("graph projection skipped", zap.String("entry_id", e.ID), zap.Error(err))
			return
		}
	}

	owner := sessionOf(e.Item)
	if owner == "" {
		return
	}
	sessNode := "session:" + owner
	if _, ok := s.kg.Node(sessNode); !ok {
		_, err := s.kg.CreateNode(graph.NodeInput{
			ID:      sessNode,
			Content: owner,
			Type:    "session",
			Tags:    []string{"session"},
		})
		if err != nil {
			s.log.Warn("graph projection skipped", zap.String("session_id", owner), zap.Error(err))
			return
		}
	}
	if !s.kg.HasEdgeBetween(artNode, sessNode) {
		_, err := s.kg.AddEdge(graph.EdgeInput{
			Source: artNode,
			Target: sessNode,
			Type:   "belongs_to",
			Weight: 1.0,
		})
		if err != nil {
			s.log.Warn("graph projection skipped", zap.String("entry_id", e.ID), zap.Error(err))
		}
	}
}

// reproject rebuilds the graph index from the log, in log order.
// Used when the persisted snapshot is missing or unreadable but the
// log itself loaded. Caller holds s.mu.
func (s *Store) reproject() {
	for _, id := range s.order {
		s.project(s.entries[id])
	}
}

// sessionOf extracts the owning session id, when the item carries one.
// Items reloaded from disk arrive as generic maps, so both shapes are
// checked.
func sessionOf(item any) string {
	if sc, ok := item.(artifact.SessionScoped); ok {
		return sc.OwnerSession()
	}
	if m, ok := item.(map[string]any); ok {
		if v, ok := m["session_id"].(string); ok {
			return v
		}
	}
	return ""
}

// summarize picks a short human-readable label for the projected
// node, falling back to the kind name when the item has no usable
// text.
func summarize(kind artifact.Kind, item any) string {
	var label string
	switch v := item.(type) {
	case artifact.Thought:
		label = v.Content
	case artifact.ModelApplication:
		label = v.Problem
	case artifact.DebugSession:
		label = v.Issue
	case artifact.CollabSession:
		label = v.Topic
	case artifact.Decision:
		label = v.Statement
	case artifact.Assessment:
		label = v.Task
	case artifact.Inquiry:
		label = v.Topic
	case artifact.CreativeSession:
		label = v.Prompt
	case artifact.SystemsAnalysis:
		label = v.System
	case artifact.VisualOp:
		label = v.DiagramID
	case artifact.Argument:
		label = v.Claim
	case map[string]any:
		for _, key := range []string{"content", "topic", "issue", "statement", "claim", "problem"} {
			if sv, ok := v[key].(string); ok && sv != "" {
				label = sv
				break
			}
		}
	}
	if label == "" {
		return string(kind)
	}
	return clip(label)
}

// clip bounds node labels so the projection stays light.
func clip(s string) string {
	const max = 120
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
