package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/modscope/modscope/internal/server"
)

// RegisterServerResources registers read-only MCP resources describing the
// server's state: the known modules and the relationship graph.
func RegisterServerResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	// Register module list resource
	modulesResource := mcp.NewResource(
		"modscope://modules",
		"Indexed Modules",
		mcp.WithResourceDescription("Modules known to this server and their index state"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(modulesResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleModules(ctx, request, sc)
	})

	// Register graph statistics resource
	graphResource := mcp.NewResource(
		"modscope://graph/stats",
		"Tool Relationship Graph",
		mcp.WithResourceDescription("Size and staleness statistics of the tool relationship graph"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(graphResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleGraphStats(ctx, request, sc)
	})

	return nil
}

// handleModules returns every module with a wrapper and its index state
func handleModules(_ context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	type moduleEntry struct {
		Name       string `json:"name"`
		Collection string `json:"collection"`
		Indexed    bool   `json:"indexed"`
	}

	names := sc.WrapperNames()
	modules := make([]moduleEntry, 0, len(names))
	for _, name := range names {
		w := sc.Wrapper(name)
		if w == nil {
			continue
		}
		modules = append(modules, moduleEntry{
			Name:       name,
			Collection: w.Collection(),
			Indexed:    w.Indexed(),
		})
	}

	jsonData, err := json.MarshalIndent(map[string]interface{}{
		"modules": modules,
		"indexed": sc.IndexedModuleCount(),
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal module data: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}

// handleGraphStats returns the relationship graph statistics
func handleGraphStats(_ context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(sc.Graph().Stats(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal graph stats: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
