package graph_tools

import (
	"context"
	"testing"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/modscope/modscope/internal/config"
	"github.com/modscope/modscope/internal/embedder"
	"github.com/modscope/modscope/internal/server"
	"github.com/modscope/modscope/internal/vecindex"
)

func TestGetToolFromArgs(t *testing.T) {
	// Test with no tool specified
	args := map[string]interface{}{}
	tool := getToolFromArgs(args)
	if tool != "" {
		t.Errorf("Expected empty tool, got %s", tool)
	}

	// Test with specific tool
	args = map[string]interface{}{
		"tool": "modscope_search_components",
	}
	tool = getToolFromArgs(args)
	if tool != "modscope_search_components" {
		t.Errorf("Expected 'modscope_search_components', got %s", tool)
	}

	// Test with non-string tool value
	args = map[string]interface{}{
		"tool": 42,
	}
	tool = getToolFromArgs(args)
	if tool != "" {
		t.Errorf("Expected empty tool for non-string value, got %s", tool)
	}
}

func TestRegisterGraphTools(t *testing.T) {
	sc, err := server.NewServerContext(context.Background(), server.ContextOptions{
		Config:   config.Default(),
		Index:    vecindex.NewMemory(),
		Embedder: embedder.NewHashing(32),
	})
	if err != nil {
		t.Fatalf("failed to create server context: %v", err)
	}
	defer func() { _ = sc.Shutdown() }()

	s := mcpserver.NewMCPServer("test", "0.0.1")
	if err := RegisterGraphTools(s, sc); err != nil {
		t.Fatalf("RegisterGraphTools() error = %v", err)
	}
}
