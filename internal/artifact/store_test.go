package artifact

import (
	"strings"
	"testing"
)

func TestAddAndGet(t *testing.T) {
	s := NewStore[Thought]()
	s.Add("t1", Thought{ID: "t1", Content: "first"})

	got, ok := s.Get("t1")
	if !ok {
		t.Fatal("Get(t1) not found after Add")
	}
	if got.Content != "first" {
		t.Errorf("Content = %q, want %q", got.Content, "first")
	}
	if !s.Has("t1") {
		t.Error("Has(t1) = false, want true")
	}
	if s.Has("t2") {
		t.Error("Has(t2) = true, want false")
	}
}

func TestAddUpsertKeepsPosition(t *testing.T) {
	s := NewStore[Thought]()
	s.Add("a", Thought{Content: "one"})
	s.Add("b", Thought{Content: "two"})
	s.Add("a", Thought{Content: "one revised"})

	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2 after upsert", s.Len())
	}
	all := s.All()
	if all[0].Content != "one revised" || all[1].Content != "two" {
		t.Errorf("All order after upsert = [%q, %q], want original position kept",
			all[0].Content, all[1].Content)
	}
}

func TestAllInsertionOrder(t *testing.T) {
	s := NewStore[Thought]()
	for _, id := range []string{"c", "a", "b"} {
		s.Add(id, Thought{ID: id})
	}

	got := s.Keys()
	want := []string{"c", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Keys = %v, want %v", got, want)
		}
	}
}

func TestDelete(t *testing.T) {
	s := NewStore[Thought]()
	s.Add("a", Thought{})
	s.Add("b", Thought{})

	if !s.Delete("a") {
		t.Error("Delete(a) = false, want true")
	}
	if s.Delete("a") {
		t.Error("second Delete(a) = true, want false")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
	if keys := s.Keys(); len(keys) != 1 || keys[0] != "b" {
		t.Errorf("Keys = %v, want [b]", keys)
	}
}

func TestUpdate(t *testing.T) {
	s := NewStore[Thought]()
	s.Add("a", Thought{Content: "draft"})

	ok := s.Update("a", func(th Thought) Thought {
		th.Content = "final"
		return th
	})
	if !ok {
		t.Fatal("Update(a) = false, want true")
	}
	got, _ := s.Get("a")
	if got.Content != "final" {
		t.Errorf("Content = %q, want %q", got.Content, "final")
	}

	if s.Update("missing", func(th Thought) Thought { return th }) {
		t.Error("Update(missing) = true, want false")
	}
}

func TestFilterAndFind(t *testing.T) {
	s := NewStore[Thought]()
	s.Add("a", Thought{Content: "alpha", Number: 1})
	s.Add("b", Thought{Content: "beta", Number: 2})
	s.Add("c", Thought{Content: "alpha again", Number: 3})

	matches := s.Filter(func(th Thought) bool {
		return strings.HasPrefix(th.Content, "alpha")
	})
	if len(matches) != 2 {
		t.Fatalf("Filter matched %d, want 2", len(matches))
	}
	if matches[0].Number != 1 || matches[1].Number != 3 {
		t.Error("Filter results not in insertion order")
	}

	first, ok := s.Find(func(th Thought) bool { return th.Number > 1 })
	if !ok || first.Number != 2 {
		t.Errorf("Find = (%d, %v), want (2, true)", first.Number, ok)
	}

	_, ok = s.Find(func(th Thought) bool { return th.Number > 99 })
	if ok {
		t.Error("Find with no match reported ok = true")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	s := NewStore[Decision]()
	s.Add("d1", Decision{ID: "d1", Statement: "pick a database"})
	s.Add("d2", Decision{ID: "d2", Statement: "pick a queue"})

	exported := s.Export()
	if len(exported) != 2 {
		t.Fatalf("Export len = %d, want 2", len(exported))
	}

	restored := NewStore[Decision]()
	restored.Import(exported)

	if restored.Len() != 2 {
		t.Fatalf("Len after Import = %d, want 2", restored.Len())
	}
	for _, id := range []string{"d1", "d2"} {
		got, ok := restored.Get(id)
		if !ok {
			t.Fatalf("imported store missing %s", id)
		}
		want, _ := s.Get(id)
		if got.Statement != want.Statement {
			t.Errorf("imported %s = %q, want %q", id, got.Statement, want.Statement)
		}
	}
}

func TestImportReplacesContents(t *testing.T) {
	s := NewStore[Thought]()
	s.Add("old", Thought{Content: "stale"})
	s.Import(map[string]Thought{"new": {Content: "fresh"}})

	if s.Has("old") {
		t.Error("Import kept pre-existing entry")
	}
	if !s.Has("new") {
		t.Error("Import dropped imported entry")
	}
}

func TestSnapshotSurvivesClear(t *testing.T) {
	s := NewStore[Thought]()
	for i := 0; i < 5; i++ {
		s.Add(NewID(), Thought{Number: i})
	}

	snapshot := s.All()
	s.Clear()

	if s.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", s.Len())
	}
	if len(snapshot) != 5 {
		t.Errorf("snapshot len = %d after Clear, want 5", len(snapshot))
	}
}

func TestForEachVisitsInOrder(t *testing.T) {
	s := NewStore[Thought]()
	s.Add("a", Thought{Number: 1})
	s.Add("b", Thought{Number: 2})

	var visited []string
	s.ForEach(func(id string, th Thought) {
		visited = append(visited, id)
		// Mutating mid-iteration must not deadlock or skip entries.
		s.Add("c", Thought{Number: 3})
	})

	if len(visited) != 2 || visited[0] != "a" || visited[1] != "b" {
		t.Errorf("visited = %v, want [a b]", visited)
	}
}
