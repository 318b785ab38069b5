package relgraph

import (
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Defaults for the temporal co-occurrence window and the per-session history
// bound. Both are configurable through Options as a non-breaking extension.
const (
	DefaultPredecessorWindow = 3
	DefaultSessionHistoryCap = 50
)

// Options configure a Graph. Zero values select the defaults.
type Options struct {
	// PredecessorWindow is how many distinct prior tools within one session
	// get an edge to a newly recorded call.
	PredecessorWindow int

	// SessionHistoryCap bounds each session's call history ring.
	SessionHistoryCap int

	Logger *slog.Logger
}

func (o Options) window() int {
	if o.PredecessorWindow <= 0 {
		return DefaultPredecessorWindow
	}
	return o.PredecessorWindow
}

func (o Options) historyCap() int {
	if o.SessionHistoryCap <= 0 {
		return DefaultSessionHistoryCap
	}
	return o.SessionHistoryCap
}

// Node is one tool ever recorded. Nodes are append-only: call statistics
// grow monotonically and nodes are never individually removed.
type Node struct {
	ToolName         string
	Service          string
	FirstSeen        time.Time
	CallCount        int64
	TotalExecutionMS float64
}

// AvgExecutionMS is the mean execution time across all recorded calls.
func (n *Node) AvgExecutionMS() float64 {
	if n.CallCount == 0 {
		return 0
	}
	return n.TotalExecutionMS / float64(n.CallCount)
}

// Edge is the directed co-occurrence record "From was called, then To was
// called soon after, within the same session". At most one edge exists per
// ordered pair; repeated observations increment its counters.
type Edge struct {
	From             string
	To               string
	CoOccurrenceCount int64
	TotalTimeDeltaMS float64
	Sessions         map[string]struct{}

	// seq is the edge's discovery order, used as the stable tie-break when
	// neighbours share a co-occurrence count.
	seq int
}

// AvgTimeDeltaMS is the mean gap between the two calls.
func (e *Edge) AvgTimeDeltaMS() float64 {
	if e.CoOccurrenceCount == 0 {
		return 0
	}
	return e.TotalTimeDeltaMS / float64(e.CoOccurrenceCount)
}

// Neighbor is one (tool, count) entry returned by Predecessors/Successors.
type Neighbor struct {
	ToolName string
	Count    int64
}

// Stats is a cheap snapshot of graph size and metric freshness.
type Stats struct {
	Nodes           int  `json:"nodes"`
	Edges           int  `json:"edges"`
	SessionsTracked int  `json:"sessions_tracked"`
	MetricsStale    bool `json:"metrics_stale"`
}

// NodeInfo is the per-tool summary exposed to introspection callers.
// Betweenness and KCore reflect the last recomputation and may be stale.
type NodeInfo struct {
	ToolName       string  `json:"tool_name"`
	Service        string  `json:"service"`
	CallCount      int64   `json:"call_count"`
	AvgExecutionMS float64 `json:"avg_execution_ms"`
	InDegree       int     `json:"in_degree"`
	OutDegree      int     `json:"out_degree"`
	Betweenness    float64 `json:"betweenness"`
	KCore          int     `json:"k_core"`
}

type sessionCall struct {
	tool string
	at   time.Time
}

// Graph is a live, directed, weighted graph of tool co-occurrence.
//
// All methods are safe for concurrent use; one coarse mutex guards the
// node/edge/session tables so multi-field statistics are never torn.
// RecordToolCall is in-memory only and never triggers metric recomputation;
// the expensive centrality/k-core pass runs only through RecomputeMetrics
// (or lazily from RelationshipText when the cache is stale).
type Graph struct {
	mu       sync.Mutex
	opts     Options
	logger   *slog.Logger
	nodes    map[string]*Node
	nodeSeq  []string
	out      map[string]map[string]*Edge
	in       map[string]map[string]*Edge
	edgeN    int
	sessions map[string][]sessionCall

	metrics      metricSet
	metricsStale bool
	version      uint64 // bumped on every mutation, guards metric publication

	recomputing atomic.Bool
}

// New creates an empty graph.
func New(opts Options) *Graph {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Graph{
		opts:     opts,
		logger:   logger,
		nodes:    make(map[string]*Node),
		out:      make(map[string]map[string]*Edge),
		in:       make(map[string]map[string]*Edge),
		sessions: make(map[string][]sessionCall),
	}
}

// RecordToolCall records one tool invocation at the current time.
func (g *Graph) RecordToolCall(tool, service, sessionID string, executionMS float64) {
	g.RecordToolCallAt(tool, service, sessionID, executionMS, time.Now())
}

// RecordToolCallAt is RecordToolCall with an explicit timestamp, used by
// replay/backfill callers and tests.
//
// It creates the tool's node if absent and updates its call statistics. When
// sessionID is given it also draws or updates an edge from each of the last
// PredecessorWindow distinct prior tools in that session to this tool,
// skipping self-loops. The call is then appended to the session history,
// which is trimmed to SessionHistoryCap entries.
func (g *Graph) RecordToolCallAt(tool, service, sessionID string, executionMS float64, at time.Time) {
	if tool == "" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	node := g.nodes[tool]
	if node == nil {
		node = &Node{ToolName: tool, Service: service, FirstSeen: at}
		g.nodes[tool] = node
		g.nodeSeq = append(g.nodeSeq, tool)
	}
	if node.Service == "" && service != "" {
		node.Service = service
	}
	node.CallCount++
	node.TotalExecutionMS += executionMS

	if sessionID != "" {
		history := g.sessions[sessionID]

		// Walk the history backwards collecting the most recent distinct
		// predecessors; the same tool never produces a self-loop.
		seen := map[string]bool{tool: true}
		window := g.opts.window()
		for i := len(history) - 1; i >= 0 && len(seen)-1 < window; i-- {
			prev := history[i]
			if seen[prev.tool] {
				continue
			}
			seen[prev.tool] = true
			g.touchEdge(prev.tool, tool, sessionID, at.Sub(prev.at))
		}

		history = append(history, sessionCall{tool: tool, at: at})
		if cap := g.opts.historyCap(); len(history) > cap {
			history = history[len(history)-cap:]
		}
		g.sessions[sessionID] = history
	}

	g.markDirty()
}

// touchEdge creates or updates the edge from->to. Caller holds the lock.
func (g *Graph) touchEdge(from, to, sessionID string, delta time.Duration) {
	if from == to {
		return
	}
	edge := g.out[from][to]
	if edge == nil {
		edge = &Edge{From: from, To: to, Sessions: make(map[string]struct{}), seq: g.edgeN}
		g.edgeN++
		if g.out[from] == nil {
			g.out[from] = make(map[string]*Edge)
		}
		if g.in[to] == nil {
			g.in[to] = make(map[string]*Edge)
		}
		g.out[from][to] = edge
		g.in[to][from] = edge
	}
	edge.CoOccurrenceCount++
	edge.TotalTimeDeltaMS += float64(delta) / float64(time.Millisecond)
	edge.Sessions[sessionID] = struct{}{}
}

func (g *Graph) markDirty() {
	g.metricsStale = true
	g.version++
}

// Predecessors returns up to topN tools that preceded the given tool, sorted
// descending by co-occurrence count with discovery-order tie-breaking.
// An unknown tool yields an empty list, not an error.
func (g *Graph) Predecessors(tool string, topN int) []Neighbor {
	g.mu.Lock()
	defer g.mu.Unlock()
	return neighbors(g.in[tool], topN)
}

// Successors is the outgoing counterpart of Predecessors.
func (g *Graph) Successors(tool string, topN int) []Neighbor {
	g.mu.Lock()
	defer g.mu.Unlock()
	return neighbors(g.out[tool], topN)
}

// neighbors ranks an adjacency map (neighbour name -> edge) by co-occurrence
// count, breaking ties by edge discovery order.
func neighbors(edges map[string]*Edge, topN int) []Neighbor {
	if len(edges) == 0 || topN <= 0 {
		return nil
	}
	type entry struct {
		name string
		edge *Edge
	}
	ordered := make([]entry, 0, len(edges))
	for name, e := range edges {
		ordered = append(ordered, entry{name: name, edge: e})
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].edge.CoOccurrenceCount != ordered[j].edge.CoOccurrenceCount {
			return ordered[i].edge.CoOccurrenceCount > ordered[j].edge.CoOccurrenceCount
		}
		return ordered[i].edge.seq < ordered[j].edge.seq
	})
	if len(ordered) > topN {
		ordered = ordered[:topN]
	}
	out := make([]Neighbor, len(ordered))
	for i, e := range ordered {
		out[i] = Neighbor{ToolName: e.name, Count: e.edge.CoOccurrenceCount}
	}
	return out
}

// TypicalChain greedily follows the highest-co-occurrence outgoing edge from
// tool, up to length nodes total, stopping early on a cycle or a dead end.
func (g *Graph) TypicalChain(tool string, length int) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if length <= 0 || g.nodes[tool] == nil {
		return nil
	}
	return g.chainLocked(tool, length)
}

// ClearSession drops a session's history. Node and edge statistics already
// recorded from that session are untouched.
func (g *Graph) ClearSession(sessionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.sessions, sessionID)
}

// Stats returns graph size counters and whether metrics are stale.
func (g *Graph) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Stats{
		Nodes:           len(g.nodes),
		Edges:           g.countEdges(),
		SessionsTracked: len(g.sessions),
		MetricsStale:    g.metricsStale,
	}
}

func (g *Graph) countEdges() int {
	n := 0
	for _, m := range g.out {
		n += len(m)
	}
	return n
}

// NodeInfo returns the summary for one tool, or nil when the tool is
// unknown. Centrality fields reflect the last recomputation.
func (g *Graph) NodeInfo(tool string) *NodeInfo {
	g.mu.Lock()
	defer g.mu.Unlock()

	node := g.nodes[tool]
	if node == nil {
		return nil
	}
	return &NodeInfo{
		ToolName:       node.ToolName,
		Service:        node.Service,
		CallCount:      node.CallCount,
		AvgExecutionMS: node.AvgExecutionMS(),
		InDegree:       len(g.in[tool]),
		OutDegree:      len(g.out[tool]),
		Betweenness:    g.metrics.betweenness[tool],
		KCore:          g.metrics.kcore[tool],
	}
}
