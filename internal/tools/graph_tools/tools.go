package graph_tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/modscope/modscope/internal/instrumentation"
	"github.com/modscope/modscope/internal/relgraph"
	"github.com/modscope/modscope/internal/server"
	"github.com/modscope/modscope/internal/tools/common"
)

// getToolFromArgs extracts the tool name argument.
func getToolFromArgs(args map[string]interface{}) string {
	if toolVal, ok := args["tool"].(string); ok {
		return toolVal
	}
	return ""
}

// RegisterGraphTools registers the tool relationship graph tools with the MCP server
func RegisterGraphTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	graphStatsTool := mcp.NewTool("modscope_graph_stats",
		mcp.WithDescription("Get size and staleness statistics for the tool relationship graph"),
	)

	s.AddTool(graphStatsTool, common.InstrumentedToolHandlerWithService("modscope_graph_stats", instrumentation.ServiceGraph, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			stats := sc.Graph().Stats()
			result, _ := json.MarshalIndent(stats, "", "  ")
			return mcp.NewToolResultText(string(result)), nil
		}))

	nodeInfoTool := mcp.NewTool("modscope_node_info",
		mcp.WithDescription("Get degree, centrality and k-core information for one tool in the relationship graph"),
		mcp.WithString("tool",
			mcp.Required(),
			mcp.Description("Tool name to look up"),
		),
	)

	s.AddTool(nodeInfoTool, common.InstrumentedToolHandlerWithService("modscope_node_info", instrumentation.ServiceGraph, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := request.Params.Arguments.(map[string]interface{})

			tool := getToolFromArgs(args)
			if tool == "" {
				return mcp.NewToolResultError("tool is required"), nil
			}

			info := sc.Graph().NodeInfo(tool)
			if info == nil {
				return mcp.NewToolResultError(fmt.Sprintf("tool %q not found in relationship graph", tool)), nil
			}

			result, _ := json.MarshalIndent(info, "", "  ")
			return mcp.NewToolResultText(string(result)), nil
		}))

	neighborsTool := mcp.NewTool("modscope_tool_neighbors",
		mcp.WithDescription("List the most frequent predecessors or successors of a tool"),
		mcp.WithString("tool",
			mcp.Required(),
			mcp.Description("Tool name to look up"),
		),
		mcp.WithString("direction",
			mcp.Description("'successors' (default) or 'predecessors'"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of neighbors to return (default: 5)"),
		),
	)

	s.AddTool(neighborsTool, common.InstrumentedToolHandlerWithService("modscope_tool_neighbors", instrumentation.ServiceGraph, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := request.Params.Arguments.(map[string]interface{})

			tool := getToolFromArgs(args)
			if tool == "" {
				return mcp.NewToolResultError("tool is required"), nil
			}

			limit := 5
			if limitVal, ok := args["limit"].(float64); ok && limitVal > 0 {
				limit = int(limitVal)
			}

			direction := "successors"
			if directionVal, ok := args["direction"].(string); ok && directionVal != "" {
				direction = directionVal
			}

			var neighbors []relgraph.Neighbor
			switch direction {
			case "successors":
				neighbors = sc.Graph().Successors(tool, limit)
			case "predecessors":
				neighbors = sc.Graph().Predecessors(tool, limit)
			default:
				return mcp.NewToolResultError(fmt.Sprintf("invalid direction %q, must be 'successors' or 'predecessors'", direction)), nil
			}

			result, _ := json.MarshalIndent(neighbors, "", "  ")
			return mcp.NewToolResultText(string(result)), nil
		}))

	typicalChainTool := mcp.NewTool("modscope_typical_chain",
		mcp.WithDescription("Get the typical workflow chain starting from a tool, following the most frequent successor at each step"),
		mcp.WithString("tool",
			mcp.Required(),
			mcp.Description("Tool name the chain starts from"),
		),
		mcp.WithNumber("length",
			mcp.Description("Maximum chain length including the starting tool (default: 4)"),
		),
	)

	s.AddTool(typicalChainTool, common.InstrumentedToolHandlerWithService("modscope_typical_chain", instrumentation.ServiceGraph, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := request.Params.Arguments.(map[string]interface{})

			tool := getToolFromArgs(args)
			if tool == "" {
				return mcp.NewToolResultError("tool is required"), nil
			}

			length := 4
			if lengthVal, ok := args["length"].(float64); ok && lengthVal > 0 {
				length = int(lengthVal)
			}

			chain := sc.Graph().TypicalChain(tool, length)
			result, _ := json.MarshalIndent(chain, "", "  ")
			return mcp.NewToolResultText(string(result)), nil
		}))

	relationshipTextTool := mcp.NewTool("modscope_relationship_text",
		mcp.WithDescription("Render the natural-language relationship summary for a tool, as used on the 'relationships' embedding channel"),
		mcp.WithString("tool",
			mcp.Required(),
			mcp.Description("Tool name to summarize"),
		),
		mcp.WithString("user_email",
			mcp.Description("User email to include as context"),
		),
		mcp.WithString("session_id",
			mcp.Description("Session ID to include as context"),
		),
	)

	s.AddTool(relationshipTextTool, common.InstrumentedToolHandlerWithService("modscope_relationship_text", instrumentation.ServiceGraph, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := request.Params.Arguments.(map[string]interface{})

			tool := getToolFromArgs(args)
			if tool == "" {
				return mcp.NewToolResultError("tool is required"), nil
			}

			userEmail := ""
			if emailVal, ok := args["user_email"].(string); ok {
				userEmail = emailVal
			}
			sessionID := ""
			if sessionVal, ok := args["session_id"].(string); ok {
				sessionID = sessionVal
			}

			text := sc.Graph().RelationshipText(tool, userEmail, sessionID)
			if text == "" {
				return mcp.NewToolResultError(fmt.Sprintf("tool %q not found in relationship graph", tool)), nil
			}

			return mcp.NewToolResultText(text), nil
		}))

	clearSessionTool := mcp.NewTool("modscope_clear_session",
		mcp.WithDescription("Drop a session's call history. Accumulated graph edges are kept."),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session ID to clear"),
		),
	)

	s.AddTool(clearSessionTool, common.InstrumentedToolHandlerWithService("modscope_clear_session", instrumentation.ServiceGraph, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := request.Params.Arguments.(map[string]interface{})

			sessionID, ok := args["session_id"].(string)
			if !ok || sessionID == "" {
				return mcp.NewToolResultError("session_id is required"), nil
			}

			sc.Graph().ClearSession(sessionID)
			return mcp.NewToolResultText(fmt.Sprintf("Session %s cleared", sessionID)), nil
		}))

	return nil
}
