package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the default tracer name for the modscope package.
const TracerName = "github.com/modscope/modscope"

// Span attribute keys for operations.
const (
	// SpanAttrTool is the MCP tool name attribute.
	SpanAttrTool = "mcp.tool"

	// SpanAttrCollection is the vector index collection attribute.
	SpanAttrCollection = "modscope.collection"

	// SpanAttrChannel is the embedding channel attribute.
	SpanAttrChannel = "modscope.channel"

	// SpanAttrOperation is the operation type attribute.
	SpanAttrOperation = "modscope.operation"

	// SpanAttrComponent is the component path attribute.
	SpanAttrComponent = "modscope.component"

	// SpanAttrStatus is the operation status attribute.
	SpanAttrStatus = "mcp.status"
)

// SpanAttributeBuilder helps construct OpenTelemetry span attributes
// with consistent naming.
type SpanAttributeBuilder struct {
	attrs []attribute.KeyValue
}

// NewSpanAttributeBuilder creates a new SpanAttributeBuilder.
func NewSpanAttributeBuilder() *SpanAttributeBuilder {
	return &SpanAttributeBuilder{
		attrs: make([]attribute.KeyValue, 0, 8),
	}
}

// WithTool adds the MCP tool name attribute.
func (b *SpanAttributeBuilder) WithTool(tool string) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.String(SpanAttrTool, tool))
	return b
}

// WithCollection adds the vector index collection attribute.
func (b *SpanAttributeBuilder) WithCollection(collection string) *SpanAttributeBuilder {
	if collection != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrCollection, collection))
	}
	return b
}

// WithChannel adds the embedding channel attribute.
func (b *SpanAttributeBuilder) WithChannel(channel string) *SpanAttributeBuilder {
	if channel != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrChannel, channel))
	}
	return b
}

// WithOperation adds the operation type attribute.
func (b *SpanAttributeBuilder) WithOperation(operation string) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.String(SpanAttrOperation, operation))
	return b
}

// WithComponent adds the component path attribute.
func (b *SpanAttributeBuilder) WithComponent(path string) *SpanAttributeBuilder {
	if path != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrComponent, path))
	}
	return b
}

// Build returns the constructed attributes.
func (b *SpanAttributeBuilder) Build() []attribute.KeyValue {
	return b.attrs
}

// StartSpan starts a new span with the given name and attributes.
// Returns the context with the span and the span itself.
// The caller is responsible for ending the span with defer span.End().
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartToolSpan starts a span for an MCP tool invocation.
// Automatically adds tool name and sets appropriate span kind.
func StartToolSpan(ctx context.Context, toolName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+1)
	allAttrs = append(allAttrs, attribute.String(SpanAttrTool, toolName))
	allAttrs = append(allAttrs, attrs...)

	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "tool."+toolName,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// StartIndexSpan starts a span for index operations against a collection.
// Includes collection and operation attributes.
func StartIndexSpan(ctx context.Context, collection, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+2)
	allAttrs = append(allAttrs,
		attribute.String(SpanAttrCollection, collection),
		attribute.String(SpanAttrOperation, operation),
	)
	allAttrs = append(allAttrs, attrs...)

	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "index."+operation,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// SetSpanError records an error on the span and sets the status to error.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess sets the span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// AddSpanEvent adds an event to the span with optional attributes.
func AddSpanEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// GetTraceID returns the trace ID from the current span in context.
// Returns empty string if no valid span is present.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}

// GetSpanID returns the span ID from the current span in context.
// Returns empty string if no valid span is present.
func GetSpanID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().SpanID().String()
	}
	return ""
}

// SpanContextString returns a human-readable trace context string.
// Format: "trace_id=X span_id=Y" or empty string if no valid context.
func SpanContextString(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return ""
	}
	return "trace_id=" + span.SpanContext().TraceID().String() +
		" span_id=" + span.SpanContext().SpanID().String()
}
