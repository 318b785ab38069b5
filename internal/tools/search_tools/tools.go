package search_tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/modscope/modscope/internal/component"
	"github.com/modscope/modscope/internal/instrumentation"
	"github.com/modscope/modscope/internal/server"
	"github.com/modscope/modscope/internal/tools/batch"
	"github.com/modscope/modscope/internal/tools/common"
	"github.com/modscope/modscope/internal/wrapper"
)

// getModuleFromArgs extracts the module name from request arguments.
func getModuleFromArgs(args map[string]interface{}) string {
	if moduleVal, ok := args["module"].(string); ok {
		return moduleVal
	}
	return ""
}

// RegisterSearchTools registers the index and search tools with the MCP server
func RegisterSearchTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if err := registerIndexTools(s, sc); err != nil {
		return fmt.Errorf("failed to register index tools: %w", err)
	}
	if err := registerQueryTools(s, sc); err != nil {
		return fmt.Errorf("failed to register query tools: %w", err)
	}
	return nil
}

// registerIndexTools registers module indexing tools
func registerIndexTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	indexModuleTool := mcp.NewTool("modscope_index_module",
		mcp.WithDescription("Introspect a module and build its semantic index. The module is either a name registered at startup or a Go package import path."),
		mcp.WithString("module",
			mcp.Required(),
			mcp.Description("Module name or package import path to index"),
		),
		mcp.WithString("collection",
			mcp.Description("Vector index collection to write to (default: derived from the module name)"),
		),
		mcp.WithBoolean("include_private",
			mcp.Description("Also index unexported components (default: false)"),
		),
		mcp.WithNumber("max_depth",
			mcp.Description("Maximum traversal depth when walking the module"),
		),
	)

	s.AddTool(indexModuleTool, common.InstrumentedToolHandlerWithService("modscope_index_module", instrumentation.ServiceIndex, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := request.Params.Arguments.(map[string]interface{})

			module := getModuleFromArgs(args)
			if module == "" {
				return mcp.NewToolResultError("module is required"), nil
			}

			collection, hasCollection := args["collection"].(string)
			includePrivate, hasPrivate := args["include_private"].(bool)
			maxDepth, hasDepth := args["max_depth"].(float64)

			var w *wrapper.Wrapper
			if hasCollection || hasPrivate || hasDepth {
				extraction := component.Options{IncludePrivate: includePrivate}
				if hasDepth {
					if maxDepth < 1 {
						return mcp.NewToolResultError("max_depth must be at least 1"), nil
					}
					extraction.MaxDepth = int(maxDepth)
				}
				w = sc.ConfigureWrapper(module, collection, extraction)
			} else {
				w = sc.WrapperFor(module)
			}

			start := time.Now()
			summary, err := w.Index(ctx)
			if metrics := sc.Metrics(); metrics != nil {
				status := instrumentation.StatusSuccess
				components := 0
				if err != nil {
					status = instrumentation.StatusError
				} else {
					components = summary.ComponentCount
				}
				metrics.RecordIndexBuild(ctx, w.Collection(), status, components, time.Since(start))
			}
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to index module: %v", err)), nil
			}

			result, _ := json.MarshalIndent(summary, "", "  ")
			return mcp.NewToolResultText(string(result)), nil
		}))

	return nil
}

// registerQueryTools registers search and component lookup tools
func registerQueryTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	searchTool := mcp.NewTool("modscope_search_components",
		mcp.WithDescription("Semantic search over an indexed module's components"),
		mcp.WithString("module",
			mcp.Required(),
			mcp.Description("Module name or package import path"),
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural-language search query"),
		),
		mcp.WithString("channel",
			mcp.Description("Embedding channel to search: 'identity' (default), 'inputs' or 'relationships'"),
		),
		mcp.WithString("kind",
			mcp.Description("Restrict results to a component kind: function, class, method, constant or module"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of hits to return (default: 5)"),
		),
		mcp.WithNumber("score_threshold",
			mcp.Description("Drop hits scoring below this similarity"),
		),
	)

	s.AddTool(searchTool, common.InstrumentedToolHandlerWithService("modscope_search_components", instrumentation.ServiceSearch, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := request.Params.Arguments.(map[string]interface{})

			module := getModuleFromArgs(args)
			if module == "" {
				return mcp.NewToolResultError("module is required"), nil
			}

			query, ok := args["query"].(string)
			if !ok || query == "" {
				return mcp.NewToolResultError("query is required"), nil
			}

			opts := wrapper.SearchOptions{}
			if channel, ok := args["channel"].(string); ok {
				opts.Channel = channel
			}
			if limit, ok := args["limit"].(float64); ok {
				opts.Limit = int(limit)
			}
			if threshold, ok := args["score_threshold"].(float64); ok {
				opts.ScoreThreshold = float32(threshold)
			}
			if kindStr, ok := args["kind"].(string); ok && kindStr != "" {
				kind := component.Kind(kindStr)
				if !kind.Valid() {
					return mcp.NewToolResultError(fmt.Sprintf("invalid kind %q", kindStr)), nil
				}
				opts.Kind = kind
			}

			w := sc.Wrapper(module)
			if w == nil {
				return mcp.NewToolResultError(fmt.Sprintf("module %q has not been indexed; call modscope_index_module first", module)), nil
			}

			start := time.Now()
			hits, err := w.Search(ctx, query, opts)
			if metrics := sc.Metrics(); metrics != nil {
				status := instrumentation.StatusSuccess
				if errors.Is(err, wrapper.ErrSearchTimeout) {
					status = instrumentation.StatusTimeout
				} else if err != nil {
					status = instrumentation.StatusError
				}
				metrics.RecordSearch(ctx, w.Collection(), opts.Channel, status, time.Since(start))
			}
			if err != nil {
				switch {
				case errors.Is(err, wrapper.ErrNotIndexed):
					return mcp.NewToolResultError(fmt.Sprintf("module %q has not been indexed; call modscope_index_module first", module)), nil
				case errors.Is(err, wrapper.ErrEmptyIndex):
					return mcp.NewToolResultError(fmt.Sprintf("module %q indexed no components; nothing to search", module)), nil
				case errors.Is(err, wrapper.ErrSearchTimeout):
					return mcp.NewToolResultError("search timed out"), nil
				default:
					return mcp.NewToolResultError(fmt.Sprintf("Search failed: %v", err)), nil
				}
			}

			result, _ := json.MarshalIndent(hits, "", "  ")
			return mcp.NewToolResultText(string(result)), nil
		}))

	getComponentTool := mcp.NewTool("modscope_get_component",
		mcp.WithDescription("Get one or more indexed components by dotted path"),
		mcp.WithString("module",
			mcp.Required(),
			mcp.Description("Module name or package import path"),
		),
		mcp.WithString("paths",
			mcp.Required(),
			mcp.Description("Component path (string) or array of paths, e.g. 'app.Button.Render'"),
		),
	)

	s.AddTool(getComponentTool, common.InstrumentedToolHandlerWithService("modscope_get_component", instrumentation.ServiceSearch, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := request.Params.Arguments.(map[string]interface{})

			module := getModuleFromArgs(args)
			if module == "" {
				return mcp.NewToolResultError("module is required"), nil
			}

			paths, err := batch.ParseStringOrArray(args["paths"], "paths")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			w := sc.Wrapper(module)
			if w == nil || !w.Indexed() {
				return mcp.NewToolResultError(fmt.Sprintf("module %q has not been indexed; call modscope_index_module first", module)), nil
			}

			results := batch.ProcessBatch(paths, func(path string) (string, error) {
				comp, live, found := w.ComponentByPath(path)
				if !found {
					return "", fmt.Errorf("component %q not found in module %q", path, module)
				}
				response := struct {
					Component *component.Component `json:"component"`
					Live      bool                 `json:"live"`
				}{Component: comp, Live: live != nil}
				jsonBytes, _ := json.Marshal(response)
				return string(jsonBytes), nil
			})

			return mcp.NewToolResultText(batch.FormatResults(results)), nil
		}))

	listComponentsTool := mcp.NewTool("modscope_list_components",
		mcp.WithDescription("List the indexed components of a module, optionally filtered by kind"),
		mcp.WithString("module",
			mcp.Required(),
			mcp.Description("Module name or package import path"),
		),
		mcp.WithString("kind",
			mcp.Description("Only list components of this kind: function, class, method, constant or module"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of components to return (default: all)"),
		),
	)

	s.AddTool(listComponentsTool, common.InstrumentedToolHandlerWithService("modscope_list_components", instrumentation.ServiceSearch, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := request.Params.Arguments.(map[string]interface{})

			module := getModuleFromArgs(args)
			if module == "" {
				return mcp.NewToolResultError("module is required"), nil
			}

			var kind component.Kind
			if kindStr, ok := args["kind"].(string); ok && kindStr != "" {
				kind = component.Kind(kindStr)
				if !kind.Valid() {
					return mcp.NewToolResultError(fmt.Sprintf("invalid kind %q", kindStr)), nil
				}
			}

			w := sc.Wrapper(module)
			if w == nil || !w.Indexed() {
				return mcp.NewToolResultError(fmt.Sprintf("module %q has not been indexed; call modscope_index_module first", module)), nil
			}

			components := w.ListComponents(kind)
			if limit, ok := args["limit"].(float64); ok && limit > 0 && int(limit) < len(components) {
				components = components[:int(limit)]
			}
			result, _ := json.MarshalIndent(components, "", "  ")
			return mcp.NewToolResultText(string(result)), nil
		}))

	return nil
}
