package unified

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/aletheia-dev/noema/internal/graph"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Persisted layout: two sibling JSON files in the configured
// directory, both indented so they stay inspectable and hand-editable
// between runs.
const (
	logFile   = "unified_store.json"
	graphFile = "knowledge_graph.json"
)

// storedPair is one [id, entry] element of the persisted log. The
// pair form keeps insertion order explicit in the file.
type storedPair [2]json.RawMessage

// scheduleSave arms (or re-arms) the debounce timer. Bursts of
// mutations inside one quiet period collapse into a single write.
func (s *Store) scheduleSave() {
	if s.dir == "" {
		return
	}
	s.pmu.Lock()
	defer s.pmu.Unlock()
	if s.closed {
		return
	}
	if s.ptimer == nil {
		s.ptimer = time.AfterFunc(s.debounce, s.save)
		return
	}
	s.ptimer.Reset(s.debounce)
}

// Flush writes pending state immediately, bypassing the debounce.
func (s *Store) Flush() {
	if s.dir == "" {
		return
	}
	s.pmu.Lock()
	if s.ptimer != nil {
		s.ptimer.Stop()
	}
	s.pmu.Unlock()
	s.save()
}

// Close flushes pending state and stops the debounce timer. The store
// remains readable afterwards; further mutations are no longer
// persisted.
func (s *Store) Close() {
	s.pmu.Lock()
	if s.closed {
		s.pmu.Unlock()
		return
	}
	s.closed = true
	if s.ptimer != nil {
		s.ptimer.Stop()
		s.ptimer = nil
	}
	s.pmu.Unlock()

	if s.dir != "" {
		s.save()
	}
}

// save writes the log and the graph snapshot. Failures are logged and
// swallowed: in-memory state stays authoritative and only durability
// across restarts is affected.
func (s *Store) save() {
	s.mu.RLock()
	pairs := make([]storedPair, 0, len(s.order))
	for _, id := range s.order {
		idRaw, err := json.Marshal(id)
		if err != nil {
			continue
		}
		entryRaw, err := json.Marshal(s.entries[id])
		if err != nil {
			s.log.Warn("entry not serializable, skipped", zap.String("entry_id", id), zap.Error(err))
			continue
		}
		pairs = append(pairs, storedPair{idRaw, entryRaw})
	}
	snap := s.kg.Serialize()
	s.mu.RUnlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.log.Warn("persistence directory unavailable", zap.String("dir", s.dir), zap.Error(err))
		return
	}
	s.writeJSON(logFile, pairs)
	s.writeJSON(graphFile, snap)
}

// writeJSON marshals v indented and writes it under s.dir.
func (s *Store) writeJSON(name string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		s.log.Warn("persistence encode failed", zap.String("file", name), zap.Error(err))
		return
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.log.Warn("persistence write failed", zap.String("file", name), zap.Error(err))
	}
}

// load reads both persisted files concurrently and installs whatever
// parsed. Any missing or malformed piece starts empty; if the log
// loaded but the snapshot did not, the projection is rebuilt from the
// log.
func (s *Store) load() {
	var (
		pairs []storedPair
		snap  *graph.Snapshot
	)

	var eg errgroup.Group
	eg.Go(func() error {
		data, err := os.ReadFile(filepath.Join(s.dir, logFile))
		if err != nil {
			if !os.IsNotExist(err) {
				s.log.Warn("unified log unreadable, starting empty", zap.Error(err))
			}
			return nil
		}
		if err := json.Unmarshal(data, &pairs); err != nil {
			s.log.Warn("unified log malformed, starting empty", zap.Error(err))
			pairs = nil
		}
		return nil
	})
	eg.Go(func() error {
		data, err := os.ReadFile(filepath.Join(s.dir, graphFile))
		if err != nil {
			if !os.IsNotExist(err) {
				s.log.Warn("graph snapshot unreadable, starting empty", zap.Error(err))
			}
			return nil
		}
		var loaded graph.Snapshot
		if err := json.Unmarshal(data, &loaded); err != nil {
			s.log.Warn("graph snapshot malformed, starting empty", zap.Error(err))
			return nil
		}
		snap = &loaded
		return nil
	})
	_ = eg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range pairs {
		var id string
		var e Entry
		if err := json.Unmarshal(p[0], &id); err != nil || id == "" {
			continue
		}
		if err := json.Unmarshal(p[1], &e); err != nil {
			s.log.Warn("persisted entry malformed, skipped", zap.String("entry_id", id), zap.Error(err))
			continue
		}
		if _, exists := s.entries[id]; exists {
			continue
		}
		s.order = append(s.order, id)
		s.entries[id] = e
	}

	if snap != nil {
		restored, err := graph.Restore(snap)
		if err != nil {
			s.log.Warn("graph snapshot rejected, reprojecting from log", zap.Error(err))
		} else {
			s.kg = restored
		}
	}
	if len(s.order) > 0 && s.kg.Metrics().NodeCount == 0 {
		s.reproject()
	}
	if n := len(s.order); n > 0 {
		s.log.Debug("unified store reloaded", zap.Int("entries", n), zap.Int("graph_nodes", s.kg.Metrics().NodeCount))
	}
}
