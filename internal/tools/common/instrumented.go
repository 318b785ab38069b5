package common

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/modscope/modscope/internal/instrumentation"
	"github.com/modscope/modscope/internal/server"
)

// InstrumentedToolHandler wraps a tool handler with tracing and metrics.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(
	toolName string,
	sc *server.ServerContext,
	handler func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error),
) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		ctx, span := instrumentation.StartToolSpan(ctx, toolName)
		defer span.End()

		result, err := handler(ctx, request)
		duration := time.Since(start)

		status := instrumentation.StatusSuccess
		if err != nil || (result != nil && result.IsError) {
			status = instrumentation.StatusError
			if err != nil {
				instrumentation.SetSpanError(span, err)
			}
		} else {
			instrumentation.SetSpanSuccess(span)
		}

		if metrics := sc.Metrics(); metrics != nil {
			metrics.RecordToolInvocation(ctx, toolName, status, duration)
		}

		return result, err
	}
}

// InstrumentedToolHandlerWithService is like InstrumentedToolHandler but also
// feeds the invocation into the tool relationship graph, under the caller's
// session. The service name groups tools in relationship text ("search",
// "graph", "index").
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandlerWithService("my_tool", instrumentation.ServiceSearch, sc, handler))
func InstrumentedToolHandlerWithService(
	toolName string,
	serviceName string,
	sc *server.ServerContext,
	handler func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error),
) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instrumented := InstrumentedToolHandler(toolName, sc, handler)
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		result, err := instrumented(ctx, request)

		sessionID := GetSessionFromArgs(ctx, request.GetArguments())
		executionMS := float64(time.Since(start)) / float64(time.Millisecond)
		sc.Graph().RecordToolCall(toolName, serviceName, sessionID, executionMS)

		return result, err
	}
}
