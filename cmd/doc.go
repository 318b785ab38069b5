// Package cmd implements the command-line interface for modscope.
//
// This package provides the following commands:
//   - serve: Start the MCP server exposing indexing, search and graph tools
//   - index: One-shot indexing (and optional search) of a Go package
//   - version: Display version information
package cmd
