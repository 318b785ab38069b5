package relgraph

import (
	"fmt"
	"strings"
)

// How much context the relationship sentence carries. Three neighbours per
// direction and a four-step workflow keep the text within one embedding's
// useful span.
const (
	textNeighborLimit  = 3
	textWorkflowLength = 4
)

// RelationshipText renders the natural-language co-occurrence summary for a
// tool, the sentence the embedding index stores alongside each component.
// Stale centrality metrics are recomputed synchronously first, so the text
// always reflects the current topology. Unknown tools yield "".
//
// Example output:
//
//	"create_event belongs to calendar service. Predecessors: list_events(2).
//	 Successors: none. Core: 1. Centrality: 0.00. Workflow: [create_event]."
func (g *Graph) RelationshipText(tool, userEmail, sessionID string) string {
	g.mu.Lock()
	known := g.nodes[tool] != nil
	stale := g.metricsStale
	g.mu.Unlock()
	if !known {
		return ""
	}
	if stale {
		g.RecomputeMetrics()
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	node := g.nodes[tool]
	if node == nil {
		return ""
	}
	service := node.Service
	if service == "" {
		service = "unknown"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s belongs to %s service.", tool, service)
	fmt.Fprintf(&b, " Predecessors: %s.", neighborPhrase(neighbors(g.in[tool], textNeighborLimit)))
	fmt.Fprintf(&b, " Successors: %s.", neighborPhrase(neighbors(g.out[tool], textNeighborLimit)))
	if userEmail != "" {
		fmt.Fprintf(&b, " User: %s.", userEmail)
	}
	if sessionID != "" {
		fmt.Fprintf(&b, " Session: %s.", sessionID)
	}
	fmt.Fprintf(&b, " Core: %d.", g.metrics.kcore[tool])
	fmt.Fprintf(&b, " Centrality: %.2f.", g.metrics.betweenness[tool])
	fmt.Fprintf(&b, " Workflow: [%s].", strings.Join(g.chainLocked(tool, textWorkflowLength), " -> "))
	return b.String()
}

// chainLocked is TypicalChain for callers already holding the lock.
func (g *Graph) chainLocked(tool string, length int) []string {
	chain := []string{tool}
	visited := map[string]bool{tool: true}
	current := tool
	for len(chain) < length {
		next := neighbors(g.out[current], 1)
		if len(next) == 0 || visited[next[0].ToolName] {
			break
		}
		current = next[0].ToolName
		visited[current] = true
		chain = append(chain, current)
	}
	return chain
}

func neighborPhrase(ns []Neighbor) string {
	if len(ns) == 0 {
		return "none"
	}
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprintf("%s(%d)", n.ToolName, n.Count)
	}
	return strings.Join(parts, ", ")
}
