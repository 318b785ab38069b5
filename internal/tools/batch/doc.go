// Package batch provides common utilities for multi-item MCP tool calls.
//
// This package includes helpers for:
//   - Parsing parameters that accept a single component path, an array of
//     paths, or a JSON-encoded array serialized into a string
//   - Formatting per-item results in a consistent structure
//   - Handling partial failures, so one bad path does not fail the batch
package batch
