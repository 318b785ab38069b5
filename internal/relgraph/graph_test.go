package relgraph

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// record replays a call sequence into g, one second apart, in one session.
func record(g *Graph, sessionID string, tools ...string) {
	for i, tool := range tools {
		g.RecordToolCallAt(tool, "", sessionID, 5, t0.Add(time.Duration(i)*time.Second))
	}
}

func TestPredecessorEdgeAccumulates(t *testing.T) {
	g := New(Options{})

	record(g, "s1", "A", "B")
	preds := g.Predecessors("B", 10)
	require.Len(t, preds, 1)
	assert.Equal(t, Neighbor{ToolName: "A", Count: 1}, preds[0])

	record(g, "s1", "A", "B")
	preds = g.Predecessors("B", 10)
	require.Len(t, preds, 1)
	assert.Equal(t, Neighbor{ToolName: "A", Count: 2}, preds[0])
}

func TestSuccessorsRankedByCount(t *testing.T) {
	g := New(Options{})
	record(g, "s1", "list_items", "get_item")
	record(g, "s2", "list_items", "get_item")
	record(g, "s3", "list_items", "delete_item")

	succ := g.Successors("list_items", 10)
	require.Len(t, succ, 2)
	assert.Equal(t, Neighbor{ToolName: "get_item", Count: 2}, succ[0])
	assert.Equal(t, Neighbor{ToolName: "delete_item", Count: 1}, succ[1])
}

func TestPredecessorWindowIsDistinctTools(t *testing.T) {
	g := New(Options{})
	record(g, "s1", "a", "b", "c", "d", "e")

	// Window 3: only the three most recent distinct tools precede "e".
	preds := g.Predecessors("e", 10)
	names := make([]string, len(preds))
	for i, p := range preds {
		names[i] = p.ToolName
	}
	assert.ElementsMatch(t, []string{"b", "c", "d"}, names)
	for _, s := range g.Successors("a", 10) {
		assert.NotEqual(t, "e", s.ToolName, "a fell outside the window before e")
	}
}

func TestNoSelfLoops(t *testing.T) {
	g := New(Options{})
	record(g, "s1", "retry_me", "retry_me", "retry_me")

	assert.Empty(t, g.Predecessors("retry_me", 10))
	assert.Empty(t, g.Successors("retry_me", 10))
	assert.Equal(t, int64(3), g.NodeInfo("retry_me").CallCount)
}

func TestEdgesAreSessionScoped(t *testing.T) {
	g := New(Options{})
	record(g, "s1", "A")
	record(g, "s2", "B")

	assert.Empty(t, g.Predecessors("B", 10), "calls in different sessions never co-occur")
	assert.Zero(t, g.Stats().Edges)
}

func TestSessionHistoryTrimmed(t *testing.T) {
	g := New(Options{SessionHistoryCap: 4})
	record(g, "s1", "a", "b", "c", "d", "e", "f")

	g.mu.Lock()
	n := len(g.sessions["s1"])
	g.mu.Unlock()
	assert.Equal(t, 4, n)
}

func TestClearSession(t *testing.T) {
	g := New(Options{})
	record(g, "s1", "A", "B")
	before := g.Stats()
	require.Equal(t, 1, before.SessionsTracked)

	g.ClearSession("s1")
	after := g.Stats()
	assert.Zero(t, after.SessionsTracked)
	assert.Equal(t, before.Edges, after.Edges, "accumulated statistics survive the session")

	// A fresh call in the cleared session starts with no predecessors.
	record(g, "s1", "C")
	assert.Empty(t, g.Predecessors("C", 10))
}

func TestTypicalChainStopsOnCycle(t *testing.T) {
	g := New(Options{})
	record(g, "s1", "a", "b")
	record(g, "s2", "b", "a")
	record(g, "s3", "b", "a") // a->b(1), b->a(2)

	chain := g.TypicalChain("a", 10)
	assert.Equal(t, []string{"a", "b"}, chain, "revisiting a stops the walk")

	seen := map[string]bool{}
	for _, tool := range chain {
		require.False(t, seen[tool], "chain must not repeat tools")
		seen[tool] = true
	}
}

func TestTypicalChainHonorsLength(t *testing.T) {
	g := New(Options{})
	record(g, "s1", "a", "b", "c", "d", "e")

	assert.Equal(t, []string{"a", "b", "c"}, g.TypicalChain("a", 3))
	assert.Nil(t, g.TypicalChain("missing", 3))
}

func TestMetricsStaleness(t *testing.T) {
	g := New(Options{})
	record(g, "s1", "a", "b")
	assert.True(t, g.Stats().MetricsStale)

	g.RecomputeMetrics()
	assert.False(t, g.Stats().MetricsStale)

	record(g, "s1", "c")
	assert.True(t, g.Stats().MetricsStale, "any mutation re-dirties the metrics")
}

func TestBetweennessOnPath(t *testing.T) {
	// Window 1 yields the pure path a -> b -> c; b lies on the only
	// shortest path from a to c.
	g := New(Options{PredecessorWindow: 1})
	record(g, "s1", "a", "b", "c")
	g.RecomputeMetrics()

	assert.InDelta(t, 1.0, g.NodeInfo("b").Betweenness, 1e-9)
	assert.Zero(t, g.NodeInfo("a").Betweenness)
	assert.Zero(t, g.NodeInfo("c").Betweenness)
}

func TestKCoreOnTriangle(t *testing.T) {
	g := New(Options{PredecessorWindow: 1})
	record(g, "s1", "a", "b")
	record(g, "s2", "b", "c")
	record(g, "s3", "c", "a")
	record(g, "s4", "d", "a") // pendant node
	g.RecomputeMetrics()

	assert.Equal(t, 2, g.NodeInfo("a").KCore)
	assert.Equal(t, 2, g.NodeInfo("b").KCore)
	assert.Equal(t, 2, g.NodeInfo("c").KCore)
	assert.Equal(t, 1, g.NodeInfo("d").KCore)
}

func TestTryRecomputeMetrics(t *testing.T) {
	g := New(Options{})
	record(g, "s1", "a", "b")
	assert.True(t, g.TryRecomputeMetrics())
	assert.False(t, g.Stats().MetricsStale)
}

func TestNodeInfoUnknownTool(t *testing.T) {
	g := New(Options{})
	assert.Nil(t, g.NodeInfo("never_called"))
}

func TestRelationshipText(t *testing.T) {
	g := New(Options{})
	g.RecordToolCallAt("X", "tasks", "s1", 5, t0)
	g.RecordToolCallAt("Y", "tasks", "s1", 5, t0.Add(time.Second))
	g.RecordToolCallAt("X", "tasks", "s2", 5, t0)
	g.RecordToolCallAt("Y", "tasks", "s2", 5, t0.Add(time.Second))

	text := g.RelationshipText("Y", "", "")
	assert.True(t, strings.HasPrefix(text, "Y belongs to tasks service."), text)
	assert.Contains(t, text, "Predecessors: X(2).")
	assert.Contains(t, text, "Successors: none.")
	assert.Contains(t, text, "Core: ")
	assert.Contains(t, text, "Centrality: ")
	assert.Contains(t, text, "Workflow: [Y].")
	assert.NotContains(t, text, "User:")
	assert.NotContains(t, text, "Session:")
	assert.False(t, g.Stats().MetricsStale, "rendering recomputes stale metrics")
}

func TestRelationshipTextOptionalContext(t *testing.T) {
	g := New(Options{})
	record(g, "s1", "solo")

	text := g.RelationshipText("solo", "user@example.com", "s1")
	assert.Contains(t, text, "solo belongs to unknown service.")
	assert.Contains(t, text, "Predecessors: none.")
	assert.Contains(t, text, "User: user@example.com.")
	assert.Contains(t, text, "Session: s1.")

	assert.Empty(t, g.RelationshipText("missing", "", ""))
}

func TestNeighborTieBreakIsDiscoveryOrder(t *testing.T) {
	g := New(Options{})
	record(g, "s1", "first", "hub")
	record(g, "s2", "second", "hub")

	preds := g.Predecessors("hub", 10)
	require.Len(t, preds, 2)
	assert.Equal(t, "first", preds[0].ToolName, "equal counts fall back to discovery order")
	assert.Equal(t, "second", preds[1].ToolName)
}
