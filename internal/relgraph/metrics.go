package relgraph

import (
	"sort"
	"time"
)

// metricSet holds one recomputation's worth of centrality results.
type metricSet struct {
	betweenness map[string]float64
	closeness   map[string]float64
	kcore       map[string]int
}

// snapshot is an immutable copy of the graph topology, taken under the lock
// so the expensive metric pass can run without blocking writers.
type snapshot struct {
	nodes      []string
	out        map[string][]string
	undirected map[string][]string
	version    uint64
}

func (g *Graph) takeSnapshot() snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	snap := snapshot{
		nodes:      append([]string(nil), g.nodeSeq...),
		out:        make(map[string][]string, len(g.out)),
		undirected: make(map[string][]string, len(g.nodes)),
		version:    g.version,
	}
	undirected := make(map[string]map[string]bool, len(g.nodes))
	for from, targets := range g.out {
		succ := make([]string, 0, len(targets))
		for to := range targets {
			succ = append(succ, to)
			if undirected[from] == nil {
				undirected[from] = make(map[string]bool)
			}
			if undirected[to] == nil {
				undirected[to] = make(map[string]bool)
			}
			undirected[from][to] = true
			undirected[to][from] = true
		}
		sort.Strings(succ)
		snap.out[from] = succ
	}
	for node, set := range undirected {
		adj := make([]string, 0, len(set))
		for n := range set {
			adj = append(adj, n)
		}
		sort.Strings(adj)
		snap.undirected[node] = adj
	}
	return snap
}

// RecomputeMetrics runs the full centrality and k-core pass and publishes
// the results. The topology is snapshotted first so mutations proceed while
// the pass runs; if anything mutated in the meantime the results are still
// published (best available) but the graph stays marked stale.
func (g *Graph) RecomputeMetrics() {
	start := time.Now()
	snap := g.takeSnapshot()

	metrics := metricSet{
		betweenness: brandesBetweenness(snap.nodes, snap.out),
		closeness:   closenessCentrality(snap.nodes, snap.out),
		kcore:       kCoreDecomposition(snap.nodes, snap.undirected),
	}

	g.mu.Lock()
	g.metrics = metrics
	if g.version == snap.version {
		g.metricsStale = false
	}
	g.mu.Unlock()

	g.logger.Debug("graph metrics recomputed",
		"nodes", len(snap.nodes),
		"duration", time.Since(start))
}

// TryRecomputeMetrics runs RecomputeMetrics unless a pass is already in
// flight, in which case it reports false and does nothing. Background
// tickers use this so a slow pass never stacks up behind itself.
func (g *Graph) TryRecomputeMetrics() bool {
	if !g.recomputing.CompareAndSwap(false, true) {
		return false
	}
	defer g.recomputing.Store(false)
	g.RecomputeMetrics()
	return true
}

// brandesBetweenness computes unnormalized betweenness centrality over the
// directed, unweighted graph (Brandes 2001: one BFS plus a dependency
// accumulation pass per source).
func brandesBetweenness(nodes []string, out map[string][]string) map[string]float64 {
	bc := make(map[string]float64, len(nodes))
	for _, n := range nodes {
		bc[n] = 0
	}

	for _, source := range nodes {
		stack := make([]string, 0, len(nodes))
		preds := make(map[string][]string, len(nodes))
		sigma := map[string]float64{source: 1}
		dist := map[string]int{source: 0}

		queue := []string{source}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			stack = append(stack, v)
			for _, w := range out[v] {
				if _, seen := dist[w]; !seen {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					preds[w] = append(preds[w], v)
				}
			}
		}

		delta := make(map[string]float64, len(stack))
		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range preds[w] {
				delta[v] += sigma[v] / sigma[w] * (1 + delta[w])
			}
			if w != source {
				bc[w] += delta[w]
			}
		}
	}
	return bc
}

// closenessCentrality computes closeness over outgoing edges with the
// Wasserman-Faust correction for disconnected graphs: the raw inverse mean
// distance is scaled by the fraction of nodes actually reachable.
func closenessCentrality(nodes []string, out map[string][]string) map[string]float64 {
	cc := make(map[string]float64, len(nodes))
	for _, source := range nodes {
		dist := map[string]int{source: 0}
		total := 0
		queue := []string{source}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			for _, w := range out[v] {
				if _, seen := dist[w]; seen {
					continue
				}
				dist[w] = dist[v] + 1
				total += dist[w]
				queue = append(queue, w)
			}
		}
		reached := len(dist) - 1
		if reached == 0 || total == 0 {
			cc[source] = 0
			continue
		}
		cc[source] = float64(reached) / float64(total) *
			float64(reached) / float64(len(nodes)-1)
	}
	return cc
}

// kCoreDecomposition assigns each node its core number on the undirected
// projection of the graph: the largest k such that the node survives in a
// subgraph where every node has degree >= k. Iterative peeling.
func kCoreDecomposition(nodes []string, undirected map[string][]string) map[string]int {
	degree := make(map[string]int, len(nodes))
	for _, n := range nodes {
		degree[n] = len(undirected[n])
	}
	core := make(map[string]int, len(nodes))
	alive := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		alive[n] = true
	}

	remaining := len(nodes)
	k := 0
	for remaining > 0 {
		peeled := true
		for peeled {
			peeled = false
			for _, n := range nodes {
				if !alive[n] || degree[n] > k {
					continue
				}
				core[n] = k
				alive[n] = false
				remaining--
				peeled = true
				for _, m := range undirected[n] {
					if alive[m] {
						degree[m]--
					}
				}
			}
		}
		k++
	}
	return core
}
