// Package search_tools implements MCP tools for module indexing and
// semantic component search: building an index over a registered root or a
// Go package, querying it by embedding channel, and inspecting individual
// components by path.
package search_tools
