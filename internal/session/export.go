package session

import (
	"encoding/json"
	"time"

	"github.com/aletheia-dev/noema/internal/artifact"
	"github.com/aletheia-dev/noema/internal/fault"
)

// Bundle is the serialized form of one or more of a session's stores,
// tagged by artifact kind. Each entry is a JSON array of that kind's
// records in insertion order.
type Bundle struct {
	SessionID  string                            `json:"session_id"`
	ExportedAt time.Time                         `json:"exported_at"`
	Stores     map[artifact.Kind]json.RawMessage `json:"stores"`
}

// ImportResult reports what an Import replayed.
type ImportResult struct {
	Imported map[artifact.Kind]int `json:"imported"`
	// SkippedThoughts counts thoughts dropped by the fail-closed
	// ceiling during replay.
	SkippedThoughts int `json:"skipped_thoughts,omitempty"`
}

// Export serializes the named stores (all of them when kinds is
// empty), tagged by artifact kind.
func (s *Session) Export(kinds ...artifact.Kind) (*Bundle, error) {
	s.Touch()
	if len(kinds) == 0 {
		kinds = artifact.AllKinds()
	}

	bundle := &Bundle{
		SessionID:  s.id,
		ExportedAt: timeNow().UTC(),
		Stores:     make(map[artifact.Kind]json.RawMessage, len(kinds)),
	}
	for _, kind := range kinds {
		if err := artifact.ValidateKind(kind); err != nil {
			return nil, fault.Validationf("export: %v", err)
		}
		var (
			data []byte
			err  error
		)
		switch kind {
		case artifact.KindThought:
			data, err = json.Marshal(s.thoughts.All())
		case artifact.KindModel:
			data, err = json.Marshal(s.models.All())
		case artifact.KindDebug:
			data, err = json.Marshal(s.debug.All())
		case artifact.KindCollab:
			data, err = json.Marshal(s.collab.All())
		case artifact.KindDecision:
			data, err = json.Marshal(s.decisions.All())
		case artifact.KindAssessment:
			data, err = json.Marshal(s.assessments.All())
		case artifact.KindInquiry:
			data, err = json.Marshal(s.inquiries.All())
		case artifact.KindCreative:
			data, err = json.Marshal(s.creative.All())
		case artifact.KindSystems:
			data, err = json.Marshal(s.systems.All())
		case artifact.KindVisual:
			data, err = json.Marshal(s.visual.All())
		case artifact.KindArgument:
			data, err = json.Marshal(s.arguments.All())
		}
		if err != nil {
			return nil, fault.Persistencef("export %s store", kind).Wrap(err)
		}
		bundle.Stores[kind] = data
	}
	return bundle, nil
}

// Import replays a bundle through the regular add paths, so ceilings
// and secondary indices apply exactly as they would for live records.
func (s *Session) Import(bundle *Bundle) (*ImportResult, error) {
	if bundle == nil {
		return nil, fault.Validationf("import: nil bundle")
	}
	s.Touch()

	result := &ImportResult{Imported: make(map[artifact.Kind]int)}
	for kind, raw := range bundle.Stores {
		if err := artifact.ValidateKind(kind); err != nil {
			return nil, fault.Validationf("import: %v", err)
		}
		n, skipped, err := s.importKind(kind, raw)
		if err != nil {
			return nil, err
		}
		result.Imported[kind] += n
		result.SkippedThoughts += skipped
	}
	return result, nil
}

// importKind replays one store's records. Returns how many were
// stored and, for thoughts, how many the ceiling rejected.
func (s *Session) importKind(kind artifact.Kind, raw json.RawMessage) (stored, skipped int, err error) {
	decode := func(v any) error {
		if err := json.Unmarshal(raw, v); err != nil {
			return fault.Validationf("import %s store: malformed records", kind).Wrap(err)
		}
		return nil
	}

	switch kind {
	case artifact.KindThought:
		var items []artifact.Thought
		if err := decode(&items); err != nil {
			return 0, 0, err
		}
		for _, item := range items {
			if s.AddThought(item) {
				stored++
			} else {
				skipped++
			}
		}
	case artifact.KindModel:
		var items []artifact.ModelApplication
		if err := decode(&items); err != nil {
			return 0, 0, err
		}
		for _, item := range items {
			if err := s.AddModel(item); err != nil {
				return stored, 0, err
			}
			stored++
		}
	case artifact.KindDebug:
		var items []artifact.DebugSession
		if err := decode(&items); err != nil {
			return 0, 0, err
		}
		for _, item := range items {
			if err := s.AddDebug(item); err != nil {
				return stored, 0, err
			}
			stored++
		}
	case artifact.KindCollab:
		var items []artifact.CollabSession
		if err := decode(&items); err != nil {
			return 0, 0, err
		}
		for _, item := range items {
			if err := s.AddCollab(item); err != nil {
				return stored, 0, err
			}
			stored++
		}
	case artifact.KindDecision:
		var items []artifact.Decision
		if err := decode(&items); err != nil {
			return 0, 0, err
		}
		for _, item := range items {
			if err := s.AddDecision(item); err != nil {
				return stored, 0, err
			}
			stored++
		}
	case artifact.KindAssessment:
		var items []artifact.Assessment
		if err := decode(&items); err != nil {
			return 0, 0, err
		}
		for _, item := range items {
			if err := s.AddAssessment(item); err != nil {
				return stored, 0, err
			}
			stored++
		}
	case artifact.KindInquiry:
		var items []artifact.Inquiry
		if err := decode(&items); err != nil {
			return 0, 0, err
		}
		for _, item := range items {
			if err := s.AddInquiry(item); err != nil {
				return stored, 0, err
			}
			stored++
		}
	case artifact.KindCreative:
		var items []artifact.CreativeSession
		if err := decode(&items); err != nil {
			return 0, 0, err
		}
		for _, item := range items {
			if err := s.AddCreative(item); err != nil {
				return stored, 0, err
			}
			stored++
		}
	case artifact.KindSystems:
		var items []artifact.SystemsAnalysis
		if err := decode(&items); err != nil {
			return 0, 0, err
		}
		for _, item := range items {
			if err := s.AddSystems(item); err != nil {
				return stored, 0, err
			}
			stored++
		}
	case artifact.KindVisual:
		var items []artifact.VisualOp
		if err := decode(&items); err != nil {
			return 0, 0, err
		}
		for _, item := range items {
			if err := s.AddVisual(item); err != nil {
				return stored, 0, err
			}
			stored++
		}
	case artifact.KindArgument:
		var items []artifact.Argument
		if err := decode(&items); err != nil {
			return 0, 0, err
		}
		for _, item := range items {
			if err := s.AddArgument(item); err != nil {
				return stored, 0, err
			}
			stored++
		}
	}
	return stored, skipped, nil
}
