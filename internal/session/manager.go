package session

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Eviction reasons reported to the OnEvict hook.
const (
	ReasonIdle     = "idle"
	ReasonExplicit = "explicit"
	ReasonShutdown = "shutdown"
)

// Record describes a session at the moment it ended. Built before the
// stores are cleared so the counts are still meaningful.
type Record struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	EndedAt   time.Time `json:"ended_at"`
	Reason    string    `json:"reason"`
	Stats     Stats     `json:"stats"`
}

// Manager is the process-wide session registry. Sessions are created
// on first use of an id and removed when their idle clock fires, when
// ended explicitly, or when the manager shuts down.
type Manager struct {
	cfg     Config
	log     *zap.Logger
	onEvict func(Record)

	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool
}

// NewManager builds a registry. onEvict, when non-nil, runs once per
// ended session (idle, explicit, or shutdown) before its stores are
// cleared; it must not call back into the manager.
func NewManager(cfg Config, log *zap.Logger, onEvict func(Record)) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		cfg:      cfg.withDefaults(),
		log:      log,
		onEvict:  onEvict,
		sessions: make(map[string]*Session),
	}
}

// GetOrCreate returns the active session for id, creating it on first
// use. An existing session is touched.
func (m *Manager) GetOrCreate(id string) *Session {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		s.Touch()
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.Touch()
		return s
	}
	s = newSession(id, m.cfg, m.handleExpiry)
	m.sessions[id] = s
	m.log.Debug("session created", zap.String("session_id", id))
	return s
}

// Get returns the active session for id without creating one.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// End explicitly terminates a session, reporting whether it existed.
func (m *Manager) End(id string) bool {
	return m.evict(id, ReasonExplicit)
}

// Len returns the number of active sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ActiveIDs returns the ids of all active sessions, sorted.
func (m *Manager) ActiveIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close terminates every session and stops accepting new ones via
// expiry; idempotent.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	sort.Strings(ids)
	for _, id := range ids {
		m.evict(id, ReasonShutdown)
	}
}

// handleExpiry runs in the idle timer's goroutine. A Touch can race
// the firing timer; when the session turns out to have been touched
// inside the window, the Reset already re-armed the clock and the
// eviction is skipped.
func (m *Manager) handleExpiry(id string) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	closed := m.closed
	m.mu.RUnlock()
	if !ok || closed {
		return
	}
	if !s.idleElapsed() {
		return
	}
	m.evict(id, ReasonIdle)
}

// evict removes a session: snapshot for the hook, hook, cleanup,
// deregister. Safe to call concurrently for the same id; only the
// caller that wins the map delete proceeds.
func (m *Manager) evict(id, reason string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return false
	}

	record := Record{
		ID:        id,
		CreatedAt: s.CreatedAt(),
		EndedAt:   timeNow().UTC(),
		Reason:    reason,
		Stats:     s.snapshotStats(),
	}
	if m.onEvict != nil {
		m.onEvict(record)
	}
	s.Cleanup()
	m.log.Info("session ended",
		zap.String("session_id", id),
		zap.String("reason", reason),
		zap.Int("artifacts", record.Stats.Total),
	)
	return true
}
