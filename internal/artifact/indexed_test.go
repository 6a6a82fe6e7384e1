package artifact

import (
	"testing"
)

func TestIndexedAddAndByKey(t *testing.T) {
	s := NewDebugStore()
	s.Add("d1", DebugSession{ID: "d1", Approach: "binary_search", Issue: "flaky test"})
	s.Add("d2", DebugSession{ID: "d2", Approach: "binary_search", Issue: "slow query"})
	s.Add("d3", DebugSession{ID: "d3", Approach: "cause_elimination", Issue: "crash"})

	got := s.ByApproach("binary_search")
	if len(got) != 2 {
		t.Fatalf("ByApproach(binary_search) len = %d, want 2", len(got))
	}
	if got[0].ID != "d1" || got[1].ID != "d2" {
		t.Errorf("bucket order = [%s %s], want [d1 d2]", got[0].ID, got[1].ID)
	}
	if n := len(s.ByApproach("rubber_duck")); n != 0 {
		t.Errorf("ByApproach(rubber_duck) len = %d, want 0", n)
	}
}

func TestIndexedUpsertMovesBuckets(t *testing.T) {
	s := NewCollabStore()
	s.Add("c1", CollabSession{ID: "c1", Topic: "api design", Stage: "ideation"})
	s.Add("c1", CollabSession{ID: "c1", Topic: "api design", Stage: "critique"})

	if n := len(s.ByStage("ideation")); n != 0 {
		t.Errorf("old bucket still holds %d entries, want 0", n)
	}
	if n := len(s.ByStage("critique")); n != 1 {
		t.Errorf("new bucket holds %d entries, want 1", n)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestIndexedUpdateReindexes(t *testing.T) {
	s := NewCollabStore()
	s.Add("c1", CollabSession{ID: "c1", Stage: "ideation"})

	ok := s.Update("c1", func(c CollabSession) CollabSession {
		c.Stage = "decision"
		return c
	})
	if !ok {
		t.Fatal("Update = false, want true")
	}
	if n := len(s.ByStage("ideation")); n != 0 {
		t.Errorf("stale bucket len = %d, want 0", n)
	}
	if n := len(s.ByStage("decision")); n != 1 {
		t.Errorf("new bucket len = %d, want 1", n)
	}
}

func TestIndexedDeleteDropsFromBucket(t *testing.T) {
	s := NewVisualStore()
	s.Add("v1", VisualOp{ID: "v1", DiagramID: "diag-1", Operation: "create"})
	s.Add("v2", VisualOp{ID: "v2", DiagramID: "diag-1", Operation: "update"})

	if !s.Delete("v1") {
		t.Fatal("Delete(v1) = false, want true")
	}
	ops := s.ByDiagram("diag-1")
	if len(ops) != 1 || ops[0].ID != "v2" {
		t.Errorf("ByDiagram after delete = %v, want just v2", ops)
	}
}

func TestIndexedClearResetsIndex(t *testing.T) {
	s := NewInquiryStore()
	s.Add("i1", Inquiry{ID: "i1", Topic: "caching", Stage: "hypothesis"})
	s.Clear()

	if s.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", s.Len())
	}
	if n := len(s.ByTopic("caching")); n != 0 {
		t.Errorf("ByTopic after Clear len = %d, want 0", n)
	}
	if n := len(s.IndexKeys()); n != 0 {
		t.Errorf("IndexKeys after Clear len = %d, want 0", n)
	}
}

func TestIndexedImportRebuildsIndex(t *testing.T) {
	s := NewInquiryStore()
	s.Add("stale", Inquiry{ID: "stale", Topic: "old"})

	s.Import(map[string]Inquiry{
		"i1": {ID: "i1", Topic: "gc tuning", Stage: "question"},
		"i2": {ID: "i2", Topic: "gc tuning", Stage: "experiment"},
	})

	if n := len(s.ByTopic("old")); n != 0 {
		t.Errorf("stale index entry survived Import")
	}
	if n := len(s.ByTopic("gc tuning")); n != 2 {
		t.Errorf("ByTopic(gc tuning) len = %d, want 2", n)
	}
}

func TestDebugStats(t *testing.T) {
	s := NewDebugStore()
	s.Add("d1", DebugSession{Approach: "binary_search", Resolved: true})
	s.Add("d2", DebugSession{Approach: "binary_search", Resolved: false})
	s.Add("d3", DebugSession{Approach: "backtracking", Resolved: true})

	stats := s.Stats()
	if stats.Total != 3 {
		t.Errorf("Total = %d, want 3", stats.Total)
	}
	if stats.Resolved != 2 {
		t.Errorf("Resolved = %d, want 2", stats.Resolved)
	}
	if want := 2.0 / 3.0; stats.ResolutionRate != want {
		t.Errorf("ResolutionRate = %v, want %v", stats.ResolutionRate, want)
	}
	if stats.ByApproach["binary_search"] != 2 {
		t.Errorf("ByApproach[binary_search] = %d, want 2", stats.ByApproach["binary_search"])
	}
}

func TestDebugStatsEmpty(t *testing.T) {
	stats := NewDebugStore().Stats()
	if stats.Total != 0 || stats.ResolutionRate != 0 {
		t.Errorf("empty stats = %+v, want zeros", stats)
	}
}

func TestInquiryStats(t *testing.T) {
	s := NewInquiryStore()
	s.Add("i1", Inquiry{Topic: "latency", Stage: "hypothesis", Hypotheses: []Hypothesis{{ID: "h1"}, {ID: "h2"}}})
	s.Add("i2", Inquiry{Topic: "latency", Stage: "experiment", Hypotheses: []Hypothesis{{ID: "h3"}}})
	s.Add("i3", Inquiry{Topic: "memory", Stage: "hypothesis"})

	stats := s.Stats()
	if stats.Total != 3 {
		t.Errorf("Total = %d, want 3", stats.Total)
	}
	if stats.Topics != 2 {
		t.Errorf("Topics = %d, want 2", stats.Topics)
	}
	if stats.Hypotheses != 3 {
		t.Errorf("Hypotheses = %d, want 3", stats.Hypotheses)
	}
	if stats.ByStage["hypothesis"] != 2 {
		t.Errorf("ByStage[hypothesis] = %d, want 2", stats.ByStage["hypothesis"])
	}
}

func TestCollabStatsCountsDistinctPersonas(t *testing.T) {
	s := NewCollabStore()
	alice := Persona{ID: "p1", Name: "Alice"}
	bob := Persona{ID: "p2", Name: "Bob"}
	s.Add("c1", CollabSession{Stage: "ideation", Personas: []Persona{alice, bob}})
	s.Add("c2", CollabSession{Stage: "critique", Personas: []Persona{alice}})

	stats := s.Stats()
	if stats.Personas != 2 {
		t.Errorf("Personas = %d, want 2 (distinct)", stats.Personas)
	}
}

func TestVisualStats(t *testing.T) {
	s := NewVisualStore()
	s.Add("v1", VisualOp{DiagramID: "d1", Operation: "create"})
	s.Add("v2", VisualOp{DiagramID: "d1", Operation: "update"})
	s.Add("v3", VisualOp{DiagramID: "d2", Operation: "create"})

	stats := s.Stats()
	if stats.Diagrams != 2 {
		t.Errorf("Diagrams = %d, want 2", stats.Diagrams)
	}
	if stats.ByOperation["create"] != 2 {
		t.Errorf("ByOperation[create] = %d, want 2", stats.ByOperation["create"])
	}
}
