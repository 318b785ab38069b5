// Package resources provides MCP resources for exposing server state.
// Resources are read-only data sources that MCP clients can fetch, such as
// the list of known modules and relationship graph statistics.
package resources
