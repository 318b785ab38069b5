// Package graph_tools implements MCP tools for inspecting the tool
// relationship graph: size statistics, per-node centrality, frequent
// neighbors, typical workflow chains, relationship text rendering and
// session cleanup.
package graph_tools
