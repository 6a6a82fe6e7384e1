package artifact

import (
	"sort"
	"sync"
)

// Store is a keyed container preserving insertion order. All reads
// return snapshots, so a concurrent Clear (session cleanup runs off a
// timer) can never corrupt an in-progress iteration by the caller.
//
// Add is an idempotent upsert: re-adding an existing id replaces the
// value but keeps the original insertion position.
type Store[T any] struct {
	mu    sync.RWMutex
	order []string
	items map[string]T
}

// NewStore returns an empty store.
func NewStore[T any]() *Store[T] {
	return &Store[T]{items: make(map[string]T)}
}

// Add inserts or replaces the item under id.
func (s *Store[T]) Add(id string, item T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[id]; !exists {
		s.order = append(s.order, id)
	}
	s.items[id] = item
}

// Get returns the item under id.
func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	return item, ok
}

// Has reports whether id is present.
func (s *Store[T]) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[id]
	return ok
}

// Delete removes the item under id, reporting whether it was present.
func (s *Store[T]) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of stored items.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// All returns every item in insertion order.
func (s *Store[T]) All() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out
}

// Keys returns every id in insertion order.
func (s *Store[T]) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Values is an alias for All, mirroring the map-like surface.
func (s *Store[T]) Values() []T {
	return s.All()
}

// ForEach calls fn for every (id, item) pair in insertion order. fn
// runs on a snapshot; mutating the store from fn is safe.
func (s *Store[T]) ForEach(fn func(id string, item T)) {
	s.mu.RLock()
	ids := make([]string, len(s.order))
	copy(ids, s.order)
	items := make([]T, 0, len(ids))
	for _, id := range ids {
		items = append(items, s.items[id])
	}
	s.mu.RUnlock()

	for i, id := range ids {
		fn(id, items[i])
	}
}

// Filter returns every item matching pred, in insertion order.
func (s *Store[T]) Filter(pred func(T) bool) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []T
	for _, id := range s.order {
		if item := s.items[id]; pred(item) {
			out = append(out, item)
		}
	}
	return out
}

// Find returns the first item matching pred, in insertion order.
func (s *Store[T]) Find(pred func(T) bool) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		if item := s.items[id]; pred(item) {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Update applies fn to the item under id in place. Returns false if
// the id is absent; this is the one surface where a missing key is an
// explicit signal rather than a silent no-op.
func (s *Store[T]) Update(id string, fn func(T) T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return false
	}
	s.items[id] = fn(item)
	return true
}

// Clear removes everything.
func (s *Store[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = s.order[:0]
	s.items = make(map[string]T)
}

// Export returns a copy of the full id → item map.
func (s *Store[T]) Export() map[string]T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]T, len(s.items))
	for id, item := range s.items {
		out[id] = item
	}
	return out
}

// Import replaces the store contents with data. Entries are inserted
// in sorted-id order so repeated imports produce the same iteration
// order.
func (s *Store[T]) Import(data map[string]T) {
	ids := make([]string, 0, len(data))
	for id := range data {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = s.order[:0]
	s.items = make(map[string]T, len(data))
	for _, id := range ids {
		s.order = append(s.order, id)
		s.items[id] = data[id]
	}
}
