// Package instrumentation provides comprehensive OpenTelemetry instrumentation
// for the modscope MCP server.
//
// This package enables production-grade observability through:
//   - OpenTelemetry metrics for HTTP requests, index builds, searches and the
//     relationship graph
//   - Distributed tracing for request flows and index operations
//   - Prometheus metrics export via /metrics endpoint on dedicated port
//   - OTLP export support for modern observability platforms
//
// # Metrics
//
// The package exposes the following metric categories:
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//   - active_sessions: Gauge of active user sessions
//
// Index Metrics:
//   - index_builds_total: Counter of module index builds by status
//   - index_build_duration_seconds: Histogram of index build durations
//   - indexed_components: Gauge of components in the last completed build
//
// Search Metrics:
//   - search_requests_total: Counter of semantic searches by channel and status
//   - search_duration_seconds: Histogram of search durations
//
// Relationship Graph Metrics:
//   - graph_recomputes_total: Counter of centrality/k-core recomputations
//   - graph_recompute_duration_seconds: Histogram of recomputation durations
//   - graph_nodes, graph_edges: Gauges of graph size
//
// MCP Tool Metrics:
//   - mcp_tool_invocations_total: Counter of MCP tool invocations by tool name and status
//   - mcp_tool_duration_seconds: Histogram of MCP tool execution durations
//
// # Tracing
//
// Distributed tracing spans are created for:
//   - HTTP request handling
//   - MCP tool invocations (tool.<name>)
//   - Index operations (index.<operation>)
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: modscope)
//
// # Example Usage
//
//	// Initialize instrumentation
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.Config{
//		ServiceName:    "modscope",
//		ServiceVersion: "0.1.0",
//		Enabled:        true,
//	})
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	// Get metrics recorder
//	recorder := provider.Metrics()
//
//	// Record an HTTP request
//	recorder.RecordHTTPRequest(ctx, "POST", "/mcp", 200, time.Since(start))
//
//	// Record an index build
//	recorder.RecordIndexBuild(ctx, "mod_app", "success", 42, time.Since(start))
//
//	// Record an MCP tool invocation
//	recorder.RecordToolInvocation(ctx, "modscope_search_components", "success", time.Since(start))
package instrumentation
