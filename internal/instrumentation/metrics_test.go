package instrumentation

import (
	"context"
	"testing"
	"time"
)

func testProvider(t *testing.T, detailedLabels bool) *Metrics {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: "prometheus",
		TracingExporter: "none",
		DetailedLabels:  detailedLabels,
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	t.Cleanup(func() { _ = provider.Shutdown(ctx) })

	metrics := provider.Metrics()
	if metrics == nil {
		t.Fatal("expected metrics to be non-nil")
	}
	return metrics
}

func TestMetrics_RecordHTTPRequest(t *testing.T) {
	ctx := context.Background()
	metrics := testProvider(t, false)

	// Should not panic
	metrics.RecordHTTPRequest(ctx, "GET", "/mcp", 200, 100*time.Millisecond)
	metrics.RecordHTTPRequest(ctx, "POST", "/mcp", 500, 50*time.Millisecond)
}

func TestMetrics_RecordIndexBuild(t *testing.T) {
	ctx := context.Background()
	metrics := testProvider(t, false)

	// Should not panic
	metrics.RecordIndexBuild(ctx, "mod_app", StatusSuccess, 42, 200*time.Millisecond)
	metrics.RecordIndexBuild(ctx, "mod_app", StatusError, 0, 50*time.Millisecond)
}

func TestMetrics_RecordIndexBuild_DetailedLabels(t *testing.T) {
	ctx := context.Background()
	metrics := testProvider(t, true)

	// Should not panic - collection label should be included
	metrics.RecordIndexBuild(ctx, "mod_app", StatusSuccess, 42, 200*time.Millisecond)
}

func TestMetrics_RecordSearch(t *testing.T) {
	ctx := context.Background()
	metrics := testProvider(t, false)

	// Should not panic
	metrics.RecordSearch(ctx, "mod_app", "identity", StatusSuccess, 20*time.Millisecond)
	metrics.RecordSearch(ctx, "mod_app", "inputs", StatusTimeout, 5*time.Second)
	metrics.RecordSearch(ctx, "mod_app", "relationships", StatusError, 10*time.Millisecond)
}

func TestMetrics_RecordGraphRecompute(t *testing.T) {
	ctx := context.Background()
	metrics := testProvider(t, false)

	// Should not panic
	metrics.RecordGraphRecompute(ctx, 12, 30, 5*time.Millisecond)
}

func TestMetrics_RecordToolInvocation(t *testing.T) {
	ctx := context.Background()
	metrics := testProvider(t, false)

	// Should not panic
	metrics.RecordToolInvocation(ctx, "modscope_search_components", StatusSuccess, 100*time.Millisecond)
	metrics.RecordToolInvocation(ctx, "modscope_index_module", StatusError, 500*time.Millisecond)
}

func TestMetrics_ActiveSessions(t *testing.T) {
	ctx := context.Background()
	metrics := testProvider(t, false)

	// Should not panic
	metrics.IncrementActiveSessions(ctx)
	metrics.IncrementActiveSessions(ctx)
	metrics.DecrementActiveSessions(ctx)
}

func TestMetrics_NoOp_WhenDisabled(t *testing.T) {
	ctx := context.Background()

	provider, err := NewProvider(ctx, Config{
		ServiceName:    "test-service",
		ServiceVersion: "1.0.0",
		Enabled:        false,
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}

	metrics := provider.Metrics()
	if metrics == nil {
		t.Fatal("expected metrics to be non-nil even when disabled")
	}

	// All these should not panic even with nil underlying metrics
	metrics.RecordHTTPRequest(ctx, "GET", "/mcp", 200, 100*time.Millisecond)
	metrics.RecordIndexBuild(ctx, "mod_app", StatusSuccess, 1, 100*time.Millisecond)
	metrics.RecordSearch(ctx, "mod_app", "identity", StatusSuccess, 10*time.Millisecond)
	metrics.RecordGraphRecompute(ctx, 0, 0, time.Millisecond)
	metrics.RecordToolInvocation(ctx, "test_tool", StatusSuccess, 100*time.Millisecond)
	metrics.IncrementActiveSessions(ctx)
	metrics.DecrementActiveSessions(ctx)
}
