// Package common provides shared utilities for MCP tool implementations:
// the instrumentation middleware that wraps every tool handler with tracing,
// metrics and relationship-graph recording, and session resolution helpers.
package common
