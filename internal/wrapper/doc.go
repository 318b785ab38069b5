// Package wrapper ties the introspection pipeline together: extract a root's
// component table, assign symbols, build per-channel embedding texts, embed
// them and store the points, then serve semantic search whose hits re-resolve
// against the live root. It is the engine behind the server's index and
// search tools.
package wrapper
