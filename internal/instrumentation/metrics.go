package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys - using constants for consistency and DRY
const (
	// Common attributes (reused across metrics)
	attrMethod     = "method"
	attrPath       = "path"
	attrStatus     = "status"
	attrCollection = "collection"
	attrChannel    = "channel"
	attrTool       = "tool"
)

// Metrics provides methods for recording observability metrics.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram
	activeSessions      metric.Int64UpDownCounter

	// Index build metrics
	indexBuildsTotal   metric.Int64Counter
	indexBuildDuration metric.Float64Histogram
	indexedComponents  metric.Int64Gauge

	// Search metrics
	searchRequestsTotal metric.Int64Counter
	searchDuration      metric.Float64Histogram

	// Relationship graph metrics
	graphRecomputesTotal   metric.Int64Counter
	graphRecomputeDuration metric.Float64Histogram
	graphNodes             metric.Int64Gauge
	graphEdges             metric.Int64Gauge

	// MCP Tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// Configuration
	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The detailedLabels parameter controls whether high-cardinality labels are included.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	// HTTP Metrics
	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.activeSessions, err = meter.Int64UpDownCounter(
		"active_sessions",
		metric.WithDescription("Number of active user sessions"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create active_sessions gauge: %w", err)
	}

	// Index build metrics
	m.indexBuildsTotal, err = meter.Int64Counter(
		"index_builds_total",
		metric.WithDescription("Total number of module index builds"),
		metric.WithUnit("{build}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create index_builds_total counter: %w", err)
	}

	m.indexBuildDuration, err = meter.Float64Histogram(
		"index_build_duration_seconds",
		metric.WithDescription("Module index build duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 15.0, 60.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create index_build_duration_seconds histogram: %w", err)
	}

	m.indexedComponents, err = meter.Int64Gauge(
		"indexed_components",
		metric.WithDescription("Number of components in the last completed index build"),
		metric.WithUnit("{component}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create indexed_components gauge: %w", err)
	}

	// Search metrics
	m.searchRequestsTotal, err = meter.Int64Counter(
		"search_requests_total",
		metric.WithDescription("Total number of semantic search requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create search_requests_total counter: %w", err)
	}

	m.searchDuration, err = meter.Float64Histogram(
		"search_duration_seconds",
		metric.WithDescription("Semantic search duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create search_duration_seconds histogram: %w", err)
	}

	// Relationship graph metrics
	m.graphRecomputesTotal, err = meter.Int64Counter(
		"graph_recomputes_total",
		metric.WithDescription("Total number of relationship graph metric recomputations"),
		metric.WithUnit("{recompute}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create graph_recomputes_total counter: %w", err)
	}

	m.graphRecomputeDuration, err = meter.Float64Histogram(
		"graph_recompute_duration_seconds",
		metric.WithDescription("Relationship graph metric recomputation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 5.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create graph_recompute_duration_seconds histogram: %w", err)
	}

	m.graphNodes, err = meter.Int64Gauge(
		"graph_nodes",
		metric.WithDescription("Number of tools in the relationship graph"),
		metric.WithUnit("{node}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create graph_nodes gauge: %w", err)
	}

	m.graphEdges, err = meter.Int64Gauge(
		"graph_edges",
		metric.WithDescription("Number of co-occurrence edges in the relationship graph"),
		metric.WithUnit("{edge}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create graph_edges gauge: %w", err)
	}

	// MCP Tool Metrics
	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordIndexBuild records one module index build.
//
// Parameters:
//   - collection: the vector index collection (only labelled when detailedLabels is on)
//   - status: "success" or "error"
//   - components: number of components in the completed build (ignored on error)
//   - duration: wall time of the build
func (m *Metrics) RecordIndexBuild(ctx context.Context, collection, status string, components int, duration time.Duration) {
	if m.indexBuildsTotal == nil || m.indexBuildDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && collection != "" {
		attrs = append(attrs, attribute.String(attrCollection, collection))
	}

	m.indexBuildsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.indexBuildDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	if status == StatusSuccess && m.indexedComponents != nil {
		m.indexedComponents.Record(ctx, int64(components), metric.WithAttributes(attrs...))
	}
}

// RecordSearch records one semantic search request.
//
// Parameters:
//   - collection: the vector index collection searched
//   - channel: the embedding channel queried (identity, inputs, relationships)
//   - status: "success", "error" or "timeout"
//   - duration: time taken for the search round trip
func (m *Metrics) RecordSearch(ctx context.Context, collection, channel, status string, duration time.Duration) {
	if m.searchRequestsTotal == nil || m.searchDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrChannel, channel),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && collection != "" {
		attrs = append(attrs, attribute.String(attrCollection, collection))
	}

	m.searchRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.searchDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordGraphRecompute records one relationship graph metric recomputation
// and refreshes the graph size gauges.
func (m *Metrics) RecordGraphRecompute(ctx context.Context, nodes, edges int, duration time.Duration) {
	if m.graphRecomputesTotal == nil || m.graphRecomputeDuration == nil {
		return // Instrumentation not initialized
	}

	m.graphRecomputesTotal.Add(ctx, 1)
	m.graphRecomputeDuration.Record(ctx, duration.Seconds())
	if m.graphNodes != nil {
		m.graphNodes.Record(ctx, int64(nodes))
	}
	if m.graphEdges != nil {
		m.graphEdges.Record(ctx, int64(edges))
	}
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
//
// Parameters:
//   - toolName: Name of the MCP tool (e.g., "modscope_search_components")
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the tool execution
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// IncrementActiveSessions increments the active sessions counter.
func (m *Metrics) IncrementActiveSessions(ctx context.Context) {
	if m.activeSessions == nil {
		return // Instrumentation not initialized
	}

	m.activeSessions.Add(ctx, 1)
}

// DecrementActiveSessions decrements the active sessions counter.
func (m *Metrics) DecrementActiveSessions(ctx context.Context) {
	if m.activeSessions == nil {
		return // Instrumentation not initialized
	}

	m.activeSessions.Add(ctx, -1)
}
