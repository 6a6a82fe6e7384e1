// Package session manages the lifetime and typed artifact stores of
// one reasoning session, and the process-wide registry of sessions.
//
// A session is created on first use of its id, touched by every read
// and write, and destroyed when its idle clock fires or cleanup is
// requested. Destruction is terminal: the stores are emptied and the
// clock cancelled; resuming a session id allocates a fresh session.
package session

import (
	"sort"
	"sync"
	"time"

	"github.com/aletheia-dev/noema/internal/artifact"
	"github.com/aletheia-dev/noema/internal/fault"
)

// CapacityPolicy maps an artifact kind to its per-session storage
// ceiling. A zero (or absent) entry means unbounded.
type CapacityPolicy map[artifact.Kind]int

// DefaultThoughtLimit bounds the thought store when no policy is
// configured.
const DefaultThoughtLimit = 100

// DefaultCapacity bounds only thoughts. All other kinds stay
// unbounded within a session unless configured otherwise.
func DefaultCapacity() CapacityPolicy {
	return CapacityPolicy{artifact.KindThought: DefaultThoughtLimit}
}

// Config controls session lifetime and storage ceilings.
type Config struct {
	// IdleTimeout is how long a session survives without a touch.
	IdleTimeout time.Duration
	// Capacity is the per-kind storage policy. Nil means
	// DefaultCapacity.
	Capacity CapacityPolicy
}

// DefaultIdleTimeout matches one working hour.
const DefaultIdleTimeout = time.Hour

// withDefaults fills zero fields.
func (c Config) withDefaults() Config {
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.Capacity == nil {
		c.Capacity = DefaultCapacity()
	}
	return c
}

// Session owns one reasoning interaction's accumulated artifacts: one
// typed store per artifact kind, an idle clock, and a record of which
// operations have been used.
type Session struct {
	id        string
	cfg       Config
	createdAt time.Time

	thoughts    *artifact.Store[artifact.Thought]
	models      *artifact.Store[artifact.ModelApplication]
	debug       *artifact.DebugStore
	collab      *artifact.CollabStore
	decisions   *artifact.Store[artifact.Decision]
	assessments *artifact.Store[artifact.Assessment]
	inquiries   *artifact.InquiryStore
	creative    *artifact.Store[artifact.CreativeSession]
	systems     *artifact.Store[artifact.SystemsAnalysis]
	visual      *artifact.VisualStore
	arguments   *artifact.Store[artifact.Argument]

	mu          sync.RWMutex
	lastTouched time.Time
	active      bool
	timer       *time.Timer
	toolsUsed   map[string]bool
}

// newSession builds an active session. onExpire runs in the timer's
// goroutine when the idle clock fires; the manager supplies it.
func newSession(id string, cfg Config, onExpire func(id string)) *Session {
	cfg = cfg.withDefaults()
	now := timeNow().UTC()
	s := &Session{
		id:          id,
		cfg:         cfg,
		createdAt:   now,
		lastTouched: now,
		active:      true,
		toolsUsed:   make(map[string]bool),
		thoughts:    artifact.NewStore[artifact.Thought](),
		models:      artifact.NewStore[artifact.ModelApplication](),
		debug:       artifact.NewDebugStore(),
		collab:      artifact.NewCollabStore(),
		decisions:   artifact.NewStore[artifact.Decision](),
		assessments: artifact.NewStore[artifact.Assessment](),
		inquiries:   artifact.NewInquiryStore(),
		creative:    artifact.NewStore[artifact.CreativeSession](),
		systems:     artifact.NewStore[artifact.SystemsAnalysis](),
		visual:      artifact.NewVisualStore(),
		arguments:   artifact.NewStore[artifact.Argument](),
	}
	if onExpire != nil {
		s.timer = time.AfterFunc(cfg.IdleTimeout, func() { onExpire(id) })
	}
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// CreatedAt returns the creation time.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Touch re-arms the idle clock. Every accessor and mutator calls it;
// touching a cleaned-up session is a no-op.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.lastTouched = timeNow().UTC()
	if s.timer != nil {
		s.timer.Reset(s.cfg.IdleTimeout)
	}
}

// Active reports whether the idle clock is currently armed.
func (s *Session) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// LastTouched returns the time of the most recent read or write.
func (s *Session) LastTouched() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastTouched
}

// idleElapsed reports whether the idle window has fully passed. The
// expiry callback rechecks this because a Touch can race the firing
// timer; when it has raced, the Reset already re-armed the clock and
// eviction must be skipped.
func (s *Session) idleElapsed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return timeNow().UTC().Sub(s.lastTouched) >= s.cfg.IdleTimeout
}

// Cleanup cancels the idle clock and empties every store. Idempotent;
// the session is terminal afterwards.
func (s *Session) Cleanup() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()

	s.thoughts.Clear()
	s.models.Clear()
	s.debug.Clear()
	s.collab.Clear()
	s.decisions.Clear()
	s.assessments.Clear()
	s.inquiries.Clear()
	s.creative.Clear()
	s.systems.Clear()
	s.visual.Clear()
	s.arguments.Clear()
}

// recordUse marks an operation kind as used and touches the session.
func (s *Session) recordUse(kind artifact.Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toolsUsed[string(kind)] = true
	if !s.active {
		return
	}
	s.lastTouched = timeNow().UTC()
	if s.timer != nil {
		s.timer.Reset(s.cfg.IdleTimeout)
	}
}

// limitFor returns the configured ceiling for a kind (0 = unbounded).
func (s *Session) limitFor(kind artifact.Kind) int {
	return s.cfg.Capacity[kind]
}

// checkCapacity enforces the configured ceiling for kinds whose add
// returns an error.
func (s *Session) checkCapacity(kind artifact.Kind, current int) error {
	if limit := s.limitFor(kind); limit > 0 && current >= limit {
		return fault.Capacityf("%s limit %d reached for session %s", kind, limit, s.id)
	}
	return nil
}

// ─── Thoughts ────────────────────────────────────────────────────────────────

// AddThought stores a thought. It fails closed: once the stored count
// has reached the configured ceiling it returns false and stores
// nothing.
func (s *Session) AddThought(t artifact.Thought) bool {
	s.recordUse(artifact.KindThought)
	if limit := s.limitFor(artifact.KindThought); limit > 0 && s.thoughts.Len() >= limit {
		return false
	}
	fillDefaults(&t.ID, &t.CreatedAt)
	s.thoughts.Add(t.ID, t)
	return true
}

// Thoughts returns all stored thoughts in insertion order.
func (s *Session) Thoughts() []artifact.Thought {
	s.Touch()
	return s.thoughts.All()
}

// RemainingThoughts returns how many more thoughts fit under the
// ceiling, or -1 when thoughts are unbounded.
func (s *Session) RemainingThoughts() int {
	s.Touch()
	limit := s.limitFor(artifact.KindThought)
	if limit <= 0 {
		return -1
	}
	remaining := limit - s.thoughts.Len()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ─── Other artifact kinds ────────────────────────────────────────────────────

// AddModel stores a mental-model application.
func (s *Session) AddModel(m artifact.ModelApplication) error {
	s.recordUse(artifact.KindModel)
	if err := s.checkCapacity(artifact.KindModel, s.models.Len()); err != nil {
		return err
	}
	fillDefaults(&m.ID, &m.CreatedAt)
	s.models.Add(m.ID, m)
	return nil
}

// Models returns all mental-model applications.
func (s *Session) Models() []artifact.ModelApplication {
	s.Touch()
	return s.models.All()
}

// AddDebug stores a debugging session record.
func (s *Session) AddDebug(d artifact.DebugSession) error {
	s.recordUse(artifact.KindDebug)
	if err := s.checkCapacity(artifact.KindDebug, s.debug.Len()); err != nil {
		return err
	}
	fillDefaults(&d.ID, &d.CreatedAt)
	if d.SessionID == "" {
		d.SessionID = s.id
	}
	s.debug.Add(d.ID, d)
	return nil
}

// Debugs returns all debugging records.
func (s *Session) Debugs() []artifact.DebugSession {
	s.Touch()
	return s.debug.All()
}

// DebugsByApproach returns debugging records using the named approach.
func (s *Session) DebugsByApproach(approach string) []artifact.DebugSession {
	s.Touch()
	return s.debug.ByApproach(approach)
}

// DebugStats summarizes debugging activity.
func (s *Session) DebugStats() artifact.DebugStats {
	s.Touch()
	return s.debug.Stats()
}

// AddCollab stores a collaborative-session record.
func (s *Session) AddCollab(c artifact.CollabSession) error {
	s.recordUse(artifact.KindCollab)
	if err := s.checkCapacity(artifact.KindCollab, s.collab.Len()); err != nil {
		return err
	}
	fillDefaults(&c.ID, &c.CreatedAt)
	if c.SessionID == "" {
		c.SessionID = s.id
	}
	s.collab.Add(c.ID, c)
	return nil
}

// Collabs returns all collaborative-session records.
func (s *Session) Collabs() []artifact.CollabSession {
	s.Touch()
	return s.collab.All()
}

// CollabsByStage returns collaborative sessions currently in a stage.
func (s *Session) CollabsByStage(stage string) []artifact.CollabSession {
	s.Touch()
	return s.collab.ByStage(stage)
}

// CollabStats summarizes collaborative activity.
func (s *Session) CollabStats() artifact.CollabStats {
	s.Touch()
	return s.collab.Stats()
}

// AddDecision stores a decision analysis.
func (s *Session) AddDecision(d artifact.Decision) error {
	s.recordUse(artifact.KindDecision)
	if err := s.checkCapacity(artifact.KindDecision, s.decisions.Len()); err != nil {
		return err
	}
	fillDefaults(&d.ID, &d.CreatedAt)
	s.decisions.Add(d.ID, d)
	return nil
}

// Decisions returns all decision analyses.
func (s *Session) Decisions() []artifact.Decision {
	s.Touch()
	return s.decisions.All()
}

// AddAssessment stores a metacognitive assessment.
func (s *Session) AddAssessment(a artifact.Assessment) error {
	s.recordUse(artifact.KindAssessment)
	if err := s.checkCapacity(artifact.KindAssessment, s.assessments.Len()); err != nil {
		return err
	}
	fillDefaults(&a.ID, &a.CreatedAt)
	s.assessments.Add(a.ID, a)
	return nil
}

// Assessments returns all metacognitive assessments.
func (s *Session) Assessments() []artifact.Assessment {
	s.Touch()
	return s.assessments.All()
}

// AddInquiry stores a scientific-inquiry record.
func (s *Session) AddInquiry(i artifact.Inquiry) error {
	s.recordUse(artifact.KindInquiry)
	if err := s.checkCapacity(artifact.KindInquiry, s.inquiries.Len()); err != nil {
		return err
	}
	fillDefaults(&i.ID, &i.CreatedAt)
	s.inquiries.Add(i.ID, i)
	return nil
}

// Inquiries returns all scientific-inquiry records.
func (s *Session) Inquiries() []artifact.Inquiry {
	s.Touch()
	return s.inquiries.All()
}

// InquiriesByTopic returns inquiries on a topic.
func (s *Session) InquiriesByTopic(topic string) []artifact.Inquiry {
	s.Touch()
	return s.inquiries.ByTopic(topic)
}

// InquiryStats summarizes inquiry activity.
func (s *Session) InquiryStats() artifact.InquiryStats {
	s.Touch()
	return s.inquiries.Stats()
}

// AddCreative stores a creative-session record.
func (s *Session) AddCreative(c artifact.CreativeSession) error {
	s.recordUse(artifact.KindCreative)
	if err := s.checkCapacity(artifact.KindCreative, s.creative.Len()); err != nil {
		return err
	}
	fillDefaults(&c.ID, &c.CreatedAt)
	if c.SessionID == "" {
		c.SessionID = s.id
	}
	s.creative.Add(c.ID, c)
	return nil
}

// Creatives returns all creative-session records.
func (s *Session) Creatives() []artifact.CreativeSession {
	s.Touch()
	return s.creative.All()
}

// AddSystems stores a systems-analysis record.
func (s *Session) AddSystems(a artifact.SystemsAnalysis) error {
	s.recordUse(artifact.KindSystems)
	if err := s.checkCapacity(artifact.KindSystems, s.systems.Len()); err != nil {
		return err
	}
	fillDefaults(&a.ID, &a.CreatedAt)
	s.systems.Add(a.ID, a)
	return nil
}

// SystemsAnalyses returns all systems-analysis records.
func (s *Session) SystemsAnalyses() []artifact.SystemsAnalysis {
	s.Touch()
	return s.systems.All()
}

// AddVisual stores a visual operation.
func (s *Session) AddVisual(v artifact.VisualOp) error {
	s.recordUse(artifact.KindVisual)
	if err := s.checkCapacity(artifact.KindVisual, s.visual.Len()); err != nil {
		return err
	}
	fillDefaults(&v.ID, &v.CreatedAt)
	s.visual.Add(v.ID, v)
	return nil
}

// Visuals returns all visual operations.
func (s *Session) Visuals() []artifact.VisualOp {
	s.Touch()
	return s.visual.All()
}

// VisualsByDiagram returns operations applied to a diagram.
func (s *Session) VisualsByDiagram(diagramID string) []artifact.VisualOp {
	s.Touch()
	return s.visual.ByDiagram(diagramID)
}

// VisualStats summarizes visual activity.
func (s *Session) VisualStats() artifact.VisualStats {
	s.Touch()
	return s.visual.Stats()
}

// AddArgument stores a structured-argument record.
func (s *Session) AddArgument(a artifact.Argument) error {
	s.recordUse(artifact.KindArgument)
	if err := s.checkCapacity(artifact.KindArgument, s.arguments.Len()); err != nil {
		return err
	}
	fillDefaults(&a.ID, &a.CreatedAt)
	s.arguments.Add(a.ID, a)
	return nil
}

// Arguments returns all structured-argument records.
func (s *Session) Arguments() []artifact.Argument {
	s.Touch()
	return s.arguments.All()
}

// ─── Stats ───────────────────────────────────────────────────────────────────

// Stats is the aggregate view of one session.
type Stats struct {
	SessionID         string                `json:"session_id"`
	CreatedAt         time.Time             `json:"created_at"`
	LastTouched       time.Time             `json:"last_touched"`
	Active            bool                  `json:"active"`
	RemainingThoughts int                   `json:"remaining_thoughts"`
	Counts            map[artifact.Kind]int `json:"counts"`
	Total             int                   `json:"total"`
	ToolsUsed         []string              `json:"tools_used,omitempty"`
}

// Stats aggregates per-store counts, the active flag, the remaining
// thought budget, and the set of operations used.
func (s *Session) Stats() Stats {
	s.Touch()
	return s.snapshotStats()
}

// snapshotStats computes Stats without touching. Eviction uses it so
// building the final record does not re-arm the clock it is tearing
// down.
func (s *Session) snapshotStats() Stats {
	counts := map[artifact.Kind]int{
		artifact.KindThought:    s.thoughts.Len(),
		artifact.KindModel:      s.models.Len(),
		artifact.KindDebug:      s.debug.Len(),
		artifact.KindCollab:     s.collab.Len(),
		artifact.KindDecision:   s.decisions.Len(),
		artifact.KindAssessment: s.assessments.Len(),
		artifact.KindInquiry:    s.inquiries.Len(),
		artifact.KindCreative:   s.creative.Len(),
		artifact.KindSystems:    s.systems.Len(),
		artifact.KindVisual:     s.visual.Len(),
		artifact.KindArgument:   s.arguments.Len(),
	}
	total := 0
	for _, n := range counts {
		total += n
	}

	s.mu.RLock()
	tools := make([]string, 0, len(s.toolsUsed))
	for name := range s.toolsUsed {
		tools = append(tools, name)
	}
	active := s.active
	lastTouched := s.lastTouched
	s.mu.RUnlock()
	sort.Strings(tools)

	remaining := -1
	if limit := s.limitFor(artifact.KindThought); limit > 0 {
		remaining = limit - counts[artifact.KindThought]
		if remaining < 0 {
			remaining = 0
		}
	}

	return Stats{
		SessionID:         s.id,
		CreatedAt:         s.createdAt,
		LastTouched:       lastTouched,
		Active:            active,
		RemainingThoughts: remaining,
		Counts:            counts,
		Total:             total,
		ToolsUsed:         tools,
	}
}

// fillDefaults generates an id and timestamp for records that arrive
// without them.
func fillDefaults(id *string, createdAt *time.Time) {
	if *id == "" {
		*id = artifact.NewID()
	}
	if createdAt.IsZero() {
		*createdAt = timeNow().UTC()
	}
}
