// Package server provides the MCP server context, session management,
// health checks and the metrics server for the modscope application.
//
// # Key Components
//
// ServerContext holds the state shared by every MCP tool: the registry of
// live roots, one module wrapper per indexed module, the tool relationship
// graph, and the embedding and vector index backends. Wrappers are created
// lazily on first use and cached for the lifetime of the server.
//
// SessionIDManager handles session tracking for HTTP transport. It maps
// Bearer tokens to stable session IDs, which scope the relationship graph's
// co-occurrence tracking so that concurrent users do not pollute each
// other's workflow edges.
//
// HealthChecker exposes Kubernetes-style probes:
//   - /healthz: liveness
//   - /readyz: readiness, gated on shutdown state
//   - /healthz/detailed: uptime, indexed module count and graph statistics
//
// MetricsServer serves Prometheus metrics on a dedicated port, isolating
// operational metrics from the MCP traffic itself.
package server
