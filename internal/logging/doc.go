// Package logging provides structured logging helpers built on log/slog.
//
// It defines the canonical attribute keys used across the codebase so that
// log entries from the extractor, the wrapper, the relationship graph and the
// MCP tool handlers can be filtered with one vocabulary. Session identifiers
// are always anonymized before logging since they derive from bearer tokens.
package logging
