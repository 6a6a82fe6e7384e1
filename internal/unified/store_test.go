package unified

import (
	"testing"

	"github.com/aletheia-dev/noema/internal/artifact"
	"github.com/aletheia-dev/noema/internal/fault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(Config{}, zap.NewNop())
}

func TestAddAndQuery(t *testing.T) {
	s := newTestStore(t)

	id1, err := s.Add("", artifact.KindThought, artifact.Thought{Content: "first"})
	require.NoError(t, err)
	require.NotEmpty(t, id1)

	id2, err := s.Add("fixed-id", artifact.KindDecision, artifact.Decision{Statement: "ship it"})
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", id2)

	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, id1, all[0].ID, "insertion order preserved")
	assert.Equal(t, artifact.KindThought, all[0].Kind)
	assert.False(t, all[0].AddedAt.IsZero())

	thoughts := s.ByKind(artifact.KindThought)
	require.Len(t, thoughts, 1)
	assert.Equal(t, id1, thoughts[0].ID)

	got, ok := s.Get(id2)
	require.True(t, ok)
	assert.Equal(t, artifact.KindDecision, got.Kind)

	_, ok = s.Get("absent")
	assert.False(t, ok)
}

func TestAddUpsertKeepsPosition(t *testing.T) {
	s := newTestStore(t)

	s.Add("a", artifact.KindThought, artifact.Thought{Content: "one"})
	s.Add("b", artifact.KindThought, artifact.Thought{Content: "two"})
	s.Add("a", artifact.KindThought, artifact.Thought{Content: "revised"})

	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "revised", all[0].Item.(artifact.Thought).Content)
}

func TestAddRejectsBadInput(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Add("", artifact.Kind("bogus"), artifact.Thought{})
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.KindValidation))

	_, err = s.Add("", artifact.KindThought, nil)
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.KindValidation))

	assert.Zero(t, s.Len())
}

func TestProjectionCreatesArtifactNode(t *testing.T) {
	s := newTestStore(t)

	id, err := s.Add("", artifact.KindInquiry, artifact.Inquiry{Topic: "cache misses", Stage: "question"})
	require.NoError(t, err)

	node, ok := s.KnowledgeGraph().Node("art:" + id)
	require.True(t, ok)
	assert.Equal(t, "scientific", node.Type)
	assert.Equal(t, "cache misses", node.Content)
}

func TestProjectionLinksSessionScopedArtifacts(t *testing.T) {
	s := newTestStore(t)

	id1, err := s.Add("", artifact.KindDebug, artifact.DebugSession{SessionID: "sess-9", Issue: "leak"})
	require.NoError(t, err)
	id2, err := s.Add("", artifact.KindCollab, artifact.CollabSession{SessionID: "sess-9", Topic: "design"})
	require.NoError(t, err)

	kg := s.KnowledgeGraph()
	_, ok := kg.Node("session:sess-9")
	require.True(t, ok, "one concept node per session")
	assert.True(t, kg.HasEdgeBetween("art:"+id1, "session:sess-9"))
	assert.True(t, kg.HasEdgeBetween("art:"+id2, "session:sess-9"))

	edges := kg.EdgesByType("belongs_to")
	assert.Len(t, edges, 2)

	// Three nodes total: two artifacts, one session concept.
	assert.Equal(t, 3, kg.Metrics().NodeCount)
}

func TestProjectionSkipsUnscopedArtifacts(t *testing.T) {
	s := newTestStore(t)

	id, err := s.Add("", artifact.KindThought, artifact.Thought{Content: "free-floating"})
	require.NoError(t, err)

	kg := s.KnowledgeGraph()
	_, ok := kg.Node("art:" + id)
	require.True(t, ok)
	assert.Empty(t, kg.EdgesByType("belongs_to"))
	assert.Equal(t, 1, kg.Metrics().NodeCount)
}

func TestProjectionReadsReloadedMaps(t *testing.T) {
	s := newTestStore(t)

	// Items that went through a disk round trip arrive as generic maps.
	_, err := s.Add("", artifact.KindDebug, map[string]any{
		"session_id": "sess-3",
		"issue":      "flaky test",
	})
	require.NoError(t, err)

	kg := s.KnowledgeGraph()
	_, ok := kg.Node("session:sess-3")
	assert.True(t, ok)
	assert.Len(t, kg.EdgesByType("belongs_to"), 1)
}

func TestStats(t *testing.T) {
	s := newTestStore(t)

	s.Add("", artifact.KindThought, artifact.Thought{Content: "a"})
	s.Add("", artifact.KindThought, artifact.Thought{Content: "b"})
	s.Add("", artifact.KindDebug, artifact.DebugSession{SessionID: "s1", Issue: "x"})

	st := s.Stats()
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, 2, st.ByKind[artifact.KindThought])
	assert.Equal(t, 1, st.ByKind[artifact.KindDebug])
	assert.Equal(t, 4, st.GraphNodes, "three artifact nodes plus one session concept")
	assert.Equal(t, 1, st.GraphEdges)
	assert.False(t, st.NewestAt.IsZero())
	assert.False(t, st.NewestAt.Before(st.OldestAt))
}

func TestExportImportAssignsFreshIDs(t *testing.T) {
	src := newTestStore(t)
	origID, err := src.Add("", artifact.KindDecision, artifact.Decision{Statement: "keep"})
	require.NoError(t, err)
	src.Add("", artifact.KindThought, artifact.Thought{Content: "t"})

	exported := src.Export()
	require.Len(t, exported[artifact.KindDecision], 1)
	require.Len(t, exported[artifact.KindThought], 1)

	dst := newTestStore(t)
	n, err := dst.Import(exported)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, dst.Len())

	_, ok := dst.Get(origID)
	assert.False(t, ok, "round trip is not id-stable")
	require.Len(t, dst.ByKind(artifact.KindDecision), 1)
	assert.NotEqual(t, origID, dst.ByKind(artifact.KindDecision)[0].ID)
}

func TestImportNil(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Import(nil)
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.KindValidation))
}

func TestClearEmptiesLogAndProjection(t *testing.T) {
	s := newTestStore(t)
	s.Add("", artifact.KindDebug, artifact.DebugSession{SessionID: "s1", Issue: "x"})
	require.NotZero(t, s.Len())

	s.Clear()
	assert.Zero(t, s.Len())
	assert.Empty(t, s.All())
	assert.Equal(t, 0, s.KnowledgeGraph().Metrics().NodeCount)
}
