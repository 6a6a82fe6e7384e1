package artifact

import (
	"sync"
)

// IndexedStore decorates a Store with one secondary index derived from
// each item by keyFn. The index is maintained inside Add/Delete/Clear/
// Import/Update so it can never drift from the primary map.
type IndexedStore[T any] struct {
	*Store[T]
	keyFn func(T) string

	mu    sync.RWMutex
	byKey map[string][]string // index key → ids, insertion order
	keyOf map[string]string   // id → its current index key
}

// NewIndexedStore returns an empty indexed store using keyFn to derive
// the secondary key of each item.
func NewIndexedStore[T any](keyFn func(T) string) *IndexedStore[T] {
	return &IndexedStore[T]{
		Store: NewStore[T](),
		keyFn: keyFn,
		byKey: make(map[string][]string),
		keyOf: make(map[string]string),
	}
}

// Add upserts the item and moves it between index buckets when its
// derived key changed.
func (s *IndexedStore[T]) Add(id string, item T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Store.Add(id, item)
	s.reindex(id, s.keyFn(item))
}

// Delete removes the item and its index entry.
func (s *IndexedStore[T]) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.Store.Delete(id) {
		return false
	}
	s.dropFromIndex(id)
	return true
}

// Update applies fn and reindexes if the derived key changed.
func (s *IndexedStore[T]) Update(id string, fn func(T) T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.Store.Update(id, fn) {
		return false
	}
	if item, ok := s.Store.Get(id); ok {
		s.reindex(id, s.keyFn(item))
	}
	return true
}

// Clear empties the store and the index.
func (s *IndexedStore[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Store.Clear()
	s.byKey = make(map[string][]string)
	s.keyOf = make(map[string]string)
}

// Import replaces the contents and rebuilds the index.
func (s *IndexedStore[T]) Import(data map[string]T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Store.Import(data)
	s.byKey = make(map[string][]string)
	s.keyOf = make(map[string]string)
	for _, id := range s.Store.Keys() {
		if item, ok := s.Store.Get(id); ok {
			s.reindex(id, s.keyFn(item))
		}
	}
}

// ByKey returns every item whose derived key equals key, in the order
// the items entered that bucket.
func (s *IndexedStore[T]) ByKey(key string) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byKey[key]
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if item, ok := s.Store.Get(id); ok {
			out = append(out, item)
		}
	}
	return out
}

// IndexKeys returns the distinct index keys currently present.
func (s *IndexedStore[T]) IndexKeys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.byKey))
	for k := range s.byKey {
		keys = append(keys, k)
	}
	return keys
}

// reindex records id under key, removing it from a previous bucket
// first. Caller holds s.mu.
func (s *IndexedStore[T]) reindex(id, key string) {
	if old, ok := s.keyOf[id]; ok {
		if old == key {
			return
		}
		s.removeFromBucket(old, id)
	}
	s.keyOf[id] = key
	s.byKey[key] = append(s.byKey[key], id)
}

// dropFromIndex removes id from the index entirely. Caller holds s.mu.
func (s *IndexedStore[T]) dropFromIndex(id string) {
	key, ok := s.keyOf[id]
	if !ok {
		return
	}
	delete(s.keyOf, id)
	s.removeFromBucket(key, id)
}

func (s *IndexedStore[T]) removeFromBucket(key, id string) {
	ids := s.byKey[key]
	for i, existing := range ids {
		if existing == id {
			s.byKey[key] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(s.byKey[key]) == 0 {
		delete(s.byKey, key)
	}
}

// ─── InquiryStore ────────────────────────────────────────────────────────────

// InquiryStore holds scientific inquiries indexed by topic.
type InquiryStore struct {
	*IndexedStore[Inquiry]
}

// NewInquiryStore returns an empty inquiry store.
func NewInquiryStore() *InquiryStore {
	return &InquiryStore{NewIndexedStore(func(i Inquiry) string { return i.Topic })}
}

// ByTopic returns every inquiry on the given topic.
func (s *InquiryStore) ByTopic(topic string) []Inquiry {
	return s.ByKey(topic)
}

// InquiryStats summarizes the store contents.
type InquiryStats struct {
	Total      int            `json:"total"`
	Topics     int            `json:"topics"`
	ByStage    map[string]int `json:"by_stage,omitempty"`
	Hypotheses int            `json:"hypotheses"`
}

// Stats computes inquiry statistics on demand.
func (s *InquiryStore) Stats() InquiryStats {
	stats := InquiryStats{ByStage: make(map[string]int)}
	for _, inq := range s.All() {
		stats.Total++
		stats.ByStage[inq.Stage]++
		stats.Hypotheses += len(inq.Hypotheses)
	}
	stats.Topics = len(s.IndexKeys())
	return stats
}

// ─── DebugStore ──────────────────────────────────────────────────────────────

// DebugStore holds debugging sessions indexed by approach name.
type DebugStore struct {
	*IndexedStore[DebugSession]
}

// NewDebugStore returns an empty debug store.
func NewDebugStore() *DebugStore {
	return &DebugStore{NewIndexedStore(func(d DebugSession) string { return d.Approach })}
}

// ByApproach returns every debugging session using the given approach.
func (s *DebugStore) ByApproach(approach string) []DebugSession {
	return s.ByKey(approach)
}

// DebugStats summarizes the store contents.
type DebugStats struct {
	Total          int            `json:"total"`
	ByApproach     map[string]int `json:"by_approach,omitempty"`
	Resolved       int            `json:"resolved"`
	ResolutionRate float64        `json:"resolution_rate"`
}

// Stats computes debugging statistics on demand.
func (s *DebugStore) Stats() DebugStats {
	stats := DebugStats{ByApproach: make(map[string]int)}
	for _, d := range s.All() {
		stats.Total++
		stats.ByApproach[d.Approach]++
		if d.Resolved {
			stats.Resolved++
		}
	}
	if stats.Total > 0 {
		stats.ResolutionRate = float64(stats.Resolved) / float64(stats.Total)
	}
	return stats
}

// ─── CollabStore ─────────────────────────────────────────────────────────────

// CollabStore holds collaborative sessions indexed by stage.
type CollabStore struct {
	*IndexedStore[CollabSession]
}

// NewCollabStore returns an empty collaborative-session store.
func NewCollabStore() *CollabStore {
	return &CollabStore{NewIndexedStore(func(c CollabSession) string { return c.Stage })}
}

// ByStage returns every collaborative session currently in the given
// stage.
func (s *CollabStore) ByStage(stage string) []CollabSession {
	return s.ByKey(stage)
}

// CollabStats summarizes the store contents.
type CollabStats struct {
	Total    int            `json:"total"`
	ByStage  map[string]int `json:"by_stage,omitempty"`
	Personas int            `json:"personas"`
}

// Stats computes collaborative-session statistics on demand.
func (s *CollabStore) Stats() CollabStats {
	stats := CollabStats{ByStage: make(map[string]int)}
	seen := make(map[string]bool)
	for _, c := range s.All() {
		stats.Total++
		stats.ByStage[c.Stage]++
		for _, p := range c.Personas {
			if !seen[p.ID] {
				seen[p.ID] = true
				stats.Personas++
			}
		}
	}
	return stats
}

// ─── VisualStore ─────────────────────────────────────────────────────────────

// VisualStore holds visual operations indexed by diagram id.
type VisualStore struct {
	*IndexedStore[VisualOp]
}

// NewVisualStore returns an empty visual-operation store.
func NewVisualStore() *VisualStore {
	return &VisualStore{NewIndexedStore(func(v VisualOp) string { return v.DiagramID })}
}

// ByDiagram returns every operation applied to the given diagram, in
// application order.
func (s *VisualStore) ByDiagram(diagramID string) []VisualOp {
	return s.ByKey(diagramID)
}

// VisualStats summarizes the store contents.
type VisualStats struct {
	Total       int            `json:"total"`
	Diagrams    int            `json:"diagrams"`
	ByOperation map[string]int `json:"by_operation,omitempty"`
}

// Stats computes visual-operation statistics on demand.
func (s *VisualStore) Stats() VisualStats {
	stats := VisualStats{ByOperation: make(map[string]int)}
	for _, v := range s.All() {
		stats.Total++
		stats.ByOperation[v.Operation]++
	}
	stats.Diagrams = len(s.IndexKeys())
	return stats
}
