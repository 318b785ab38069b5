// Package relgraph maintains a live directed graph of which tools get called
// after which, per session. Each recorded call draws weighted edges from the
// few distinct tools invoked just before it, giving a temporal co-occurrence
// graph over the server's tool surface.
//
// On top of the raw topology the package computes betweenness and closeness
// centrality plus k-core decomposition, and renders a natural-language
// summary per tool (RelationshipText) that the semantic index embeds as one
// of its vector channels. Recording is cheap and lock-bound; the metric pass
// is explicit and snapshot-based so it never blocks writers.
package relgraph
