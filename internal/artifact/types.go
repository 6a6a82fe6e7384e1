// Package artifact defines the typed reasoning records a session
// accumulates and the keyed stores that hold them.
//
// Eleven kinds cover the reasoning operations the server exposes. Each
// kind is a plain JSON-taggable struct: artifacts carry no behavior,
// only data produced by the operation handlers.
package artifact

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind tags an artifact with the reasoning operation that produced it.
type Kind string

const (
	KindThought    Kind = "thought"
	KindModel      Kind = "mental_model"
	KindDebug      Kind = "debugging"
	KindCollab     Kind = "collaborative"
	KindDecision   Kind = "decision"
	KindAssessment Kind = "metacognitive"
	KindInquiry    Kind = "scientific"
	KindCreative   Kind = "creative"
	KindSystems    Kind = "systems"
	KindVisual     Kind = "visual"
	KindArgument   Kind = "argument"
)

// validKinds is the set of accepted artifact kinds.
var validKinds = map[Kind]bool{
	KindThought:    true,
	KindModel:      true,
	KindDebug:      true,
	KindCollab:     true,
	KindDecision:   true,
	KindAssessment: true,
	KindInquiry:    true,
	KindCreative:   true,
	KindSystems:    true,
	KindVisual:     true,
	KindArgument:   true,
}

// AllKinds returns every artifact kind in canonical order.
func AllKinds() []Kind {
	return []Kind{
		KindThought, KindModel, KindDebug, KindCollab, KindDecision,
		KindAssessment, KindInquiry, KindCreative, KindSystems,
		KindVisual, KindArgument,
	}
}

// ValidateKind checks that k is a known artifact kind.
func ValidateKind(k Kind) error {
	if !validKinds[k] {
		return fmt.Errorf("invalid artifact kind %q (valid: thought, mental_model, debugging, collaborative, decision, metacognitive, scientific, creative, systems, visual, argument)", k)
	}
	return nil
}

// NewID returns a fresh artifact id.
func NewID() string {
	return uuid.NewString()
}

// SessionScoped is implemented by artifact types that carry the id of
// the reasoning session they belong to. The unified store uses it to
// link artifacts to session concept nodes.
type SessionScoped interface {
	OwnerSession() string
}

// ─── Thought ─────────────────────────────────────────────────────────────────

// Thought is one step in a sequential reasoning chain. Thoughts may
// revise earlier thoughts or branch off them.
type Thought struct {
	ID             string    `json:"id"`
	Content        string    `json:"content"`
	Number         int       `json:"number"`
	TotalEstimate  int       `json:"total_estimate,omitempty"`
	NextNeeded     bool      `json:"next_needed"`
	IsRevision     bool      `json:"is_revision,omitempty"`
	RevisesThought int       `json:"revises_thought,omitempty"`
	BranchFrom     int       `json:"branch_from,omitempty"`
	BranchID       string    `json:"branch_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ─── Mental model ────────────────────────────────────────────────────────────

// ModelApplication records one application of a named mental model
// (first principles, inversion, Occam's razor, ...) to a problem.
type ModelApplication struct {
	ID         string    `json:"id"`
	Model      string    `json:"model"`
	Problem    string    `json:"problem"`
	Steps      []string  `json:"steps,omitempty"`
	Reasoning  string    `json:"reasoning,omitempty"`
	Conclusion string    `json:"conclusion,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ─── Debugging ───────────────────────────────────────────────────────────────

// DebugSession records a structured debugging effort using a named
// approach (binary search, divide and conquer, cause elimination, ...).
type DebugSession struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id,omitempty"`
	Approach  string    `json:"approach"`
	Issue     string    `json:"issue"`
	Steps     []string  `json:"steps,omitempty"`
	Findings  string    `json:"findings,omitempty"`
	Resolved  bool      `json:"resolved"`
	CreatedAt time.Time `json:"created_at"`
}

// OwnerSession implements SessionScoped.
func (d DebugSession) OwnerSession() string { return d.SessionID }

// ─── Collaborative reasoning ─────────────────────────────────────────────────

// Persona is one simulated expert voice in a collaborative session.
type Persona struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Expertise string `json:"expertise,omitempty"`
}

// Contribution is one persona's input to a collaborative session.
type Contribution struct {
	PersonaID  string  `json:"persona_id"`
	Content    string  `json:"content"`
	Type       string  `json:"type,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// CollabSession records multi-persona collaborative reasoning over a
// topic, advancing through stages (problem-definition, ideation,
// critique, integration, decision).
type CollabSession struct {
	ID            string         `json:"id"`
	SessionID     string         `json:"session_id,omitempty"`
	Topic         string         `json:"topic"`
	Stage         string         `json:"stage"`
	Personas      []Persona      `json:"personas,omitempty"`
	Contributions []Contribution `json:"contributions,omitempty"`
	ActivePersona string         `json:"active_persona,omitempty"`
	NextNeeded    bool           `json:"next_needed"`
	CreatedAt     time.Time      `json:"created_at"`
}

// OwnerSession implements SessionScoped.
func (c CollabSession) OwnerSession() string { return c.SessionID }

// ─── Decision framework ──────────────────────────────────────────────────────

// DecisionOption is one candidate in a decision analysis.
type DecisionOption struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Scores      map[string]float64 `json:"scores,omitempty"`
}

// Decision records a structured decision analysis: a statement, the
// options considered, weighted criteria, and the recommendation.
type Decision struct {
	ID          string             `json:"id"`
	Statement   string             `json:"statement"`
	Framework   string             `json:"framework,omitempty"`
	Options     []DecisionOption   `json:"options,omitempty"`
	Criteria    map[string]float64 `json:"criteria,omitempty"`
	Stage       string             `json:"stage,omitempty"`
	Recommended string             `json:"recommended,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

// ─── Metacognitive monitoring ────────────────────────────────────────────────

// Assessment records a metacognitive self-check: how well is the
// current task understood, where is the uncertainty, which biases
// might be at play.
type Assessment struct {
	ID          string    `json:"id"`
	Task        string    `json:"task"`
	Stage       string    `json:"stage,omitempty"`
	Confidence  float64   `json:"confidence"`
	Uncertainty []string  `json:"uncertainty,omitempty"`
	Biases      []string  `json:"biases,omitempty"`
	Recommended string    `json:"recommended,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ─── Scientific inquiry ──────────────────────────────────────────────────────

// Hypothesis is one testable statement inside an inquiry.
type Hypothesis struct {
	ID         string  `json:"id"`
	Statement  string  `json:"statement"`
	Confidence float64 `json:"confidence,omitempty"`
	Status     string  `json:"status,omitempty"` // proposed | supported | refuted
}

// Inquiry records a scientific-method cycle on a topic: question,
// hypotheses, experiment, conclusion, iterated.
type Inquiry struct {
	ID         string       `json:"id"`
	Topic      string       `json:"topic"`
	Stage      string       `json:"stage"`
	Question   string       `json:"question,omitempty"`
	Hypotheses []Hypothesis `json:"hypotheses,omitempty"`
	Experiment string       `json:"experiment,omitempty"`
	Conclusion string       `json:"conclusion,omitempty"`
	Iteration  int          `json:"iteration,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// ─── Creative thinking ───────────────────────────────────────────────────────

// CreativeSession records a divergent-thinking exercise: prompt,
// generated ideas, cross-connections, distilled insights.
type CreativeSession struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id,omitempty"`
	Prompt      string    `json:"prompt"`
	Ideas       []string  `json:"ideas,omitempty"`
	Connections []string  `json:"connections,omitempty"`
	Insights    []string  `json:"insights,omitempty"`
	Iteration   int       `json:"iteration,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// OwnerSession implements SessionScoped.
func (c CreativeSession) OwnerSession() string { return c.SessionID }

// ─── Systems thinking ────────────────────────────────────────────────────────

// SystemRelation is one directed relationship between two components
// of an analyzed system.
type SystemRelation struct {
	From string `json:"from"`
	To   string `json:"to"`
	Type string `json:"type,omitempty"`
}

// SystemsAnalysis records a systems-thinking pass over a named system:
// components, their relationships, feedback loops, emergent behavior.
type SystemsAnalysis struct {
	ID            string           `json:"id"`
	System        string           `json:"system"`
	Components    []string         `json:"components,omitempty"`
	Relationships []SystemRelation `json:"relationships,omitempty"`
	Feedback      []string         `json:"feedback,omitempty"`
	Emergent      []string         `json:"emergent,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// ─── Visual reasoning ────────────────────────────────────────────────────────

// VisualElement is one element of a diagram (node, edge, container,
// annotation).
type VisualElement struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Label  string `json:"label,omitempty"`
	Source string `json:"source,omitempty"`
	Target string `json:"target,omitempty"`
}

// VisualOp records one operation on a diagram: create, update, delete,
// transform, or observe.
type VisualOp struct {
	ID          string          `json:"id"`
	DiagramID   string          `json:"diagram_id"`
	DiagramType string          `json:"diagram_type,omitempty"`
	Operation   string          `json:"operation"`
	Elements    []VisualElement `json:"elements,omitempty"`
	Observation string          `json:"observation,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ─── Structured argumentation ────────────────────────────────────────────────

// Argument records one move in a structured argument: a claim with
// premises, typed by its dialectical role.
type Argument struct {
	ID         string    `json:"id"`
	Claim      string    `json:"claim"`
	Premises   []string  `json:"premises,omitempty"`
	Conclusion string    `json:"conclusion,omitempty"`
	Type       string    `json:"type"` // thesis | antithesis | synthesis | objection | rebuttal
	Confidence float64   `json:"confidence,omitempty"`
	RespondsTo string    `json:"responds_to,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
