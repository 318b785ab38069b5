package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/modscope/modscope/internal/config"
	"github.com/modscope/modscope/internal/embedder"
	"github.com/modscope/modscope/internal/instrumentation"
	"github.com/modscope/modscope/internal/resources"
	"github.com/modscope/modscope/internal/server"
	"github.com/modscope/modscope/internal/tools/common"
	"github.com/modscope/modscope/internal/tools/graph_tools"
	"github.com/modscope/modscope/internal/tools/search_tools"
	"github.com/modscope/modscope/internal/vecindex"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		debugMode  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server providing semantic module
indexing, component search and tool relationship graph tools for AI
assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - http: Streamable HTTP transport with health and metrics endpoints

Configuration is loaded from modscope.yaml (or --config), then overridden
by MODSCOPE_* environment variables and the flags below.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			// Flags override both file and environment.
			if cmd.Flags().Changed("transport") {
				cfg.Server.Transport, _ = cmd.Flags().GetString("transport")
			}
			if cmd.Flags().Changed("http-addr") {
				cfg.Server.Addr, _ = cmd.Flags().GetString("http-addr")
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.Server.MetricsAddr, _ = cmd.Flags().GetString("metrics-addr")
			}
			if cmd.Flags().Changed("index-backend") {
				cfg.Index.Backend, _ = cmd.Flags().GetString("index-backend")
			}
			if cmd.Flags().Changed("embedder") {
				cfg.Embedder.Provider, _ = cmd.Flags().GetString("embedder")
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			return runServe(cfg, debugMode)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to the configuration file (default: ./modscope.yaml)")
	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().String("transport", "", "Transport type: stdio or http")
	cmd.Flags().String("http-addr", "", "HTTP server address (for http transport)")
	cmd.Flags().String("metrics-addr", "", "Metrics server address (for http transport)")
	cmd.Flags().String("index-backend", "", "Vector index backend: memory or sqlite")
	cmd.Flags().String("embedder", "", "Embedding provider: hashing or gemini")

	return cmd
}

func runServe(cfg *config.Config, debugMode bool) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := newLogger(debugMode)
	slog.SetDefault(logger)

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("error during instrumentation shutdown", "error", err)
		}
	}()

	// Start metrics server if enabled and not in stdio mode
	var metricsServer *server.MetricsServer
	if cfg.Server.Transport != "stdio" && cfg.Server.MetricsAddr != "" && provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.Server.MetricsAddr,
			Enabled:                 true,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		// Use ready channel to confirm metrics server started successfully
		metricsReady := make(chan struct{})
		metricsErr := make(chan error, 1)
		go func() {
			if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && err != http.ErrServerClosed {
				metricsErr <- err
			}
			close(metricsErr)
		}()

		select {
		case <-metricsReady:
			log.Printf("Metrics server started on %s", metricsServer.Addr())
		case err := <-metricsErr:
			return fmt.Errorf("metrics server failed to start: %w", err)
		case <-time.After(5 * time.Second):
			return fmt.Errorf("metrics server startup timed out")
		}

		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("error during metrics server shutdown", "error", err)
			}
		}()
	}

	emb, err := buildEmbedder(shutdownCtx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	index, closeIndex, err := buildIndex(cfg)
	if err != nil {
		return fmt.Errorf("failed to open vector index: %w", err)
	}
	defer closeIndex()

	ctxOpts := server.ContextOptions{
		Config:   cfg,
		Index:    index,
		Embedder: emb,
		Logger:   logger,
	}
	if provider.Enabled() {
		ctxOpts.Metrics = provider.Metrics()
	}

	serverContext, err := server.NewServerContext(shutdownCtx, ctxOpts)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("error during server context shutdown", "error", err)
		}
	}()

	// The server inspects itself: indexing "server" answers "what can this
	// instance do" through the same tools as any other module.
	if err := serverContext.Registry().Register("server", serverContext); err != nil {
		return fmt.Errorf("failed to register server root: %w", err)
	}

	// Create MCP server
	mcpSrv := mcpserver.NewMCPServer("modscope", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false),
	)

	// Register all tools
	if err := registerAllTools(mcpSrv, serverContext); err != nil {
		return err
	}

	serverContext.StartGraphRecomputeLoop(cfg.Graph.RecomputeInterval)

	// Start the appropriate server based on transport type
	switch cfg.Server.Transport {
	case "stdio":
		return runStdioServer(mcpSrv)
	case "http":
		return runHTTPServer(shutdownCtx, mcpSrv, serverContext, cfg, provider, logger)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, http)", cfg.Server.Transport)
	}
}

// newLogger builds the process logger. Logs always go to stderr so that the
// stdio transport keeps stdout clean for the MCP protocol.
func newLogger(debugMode bool) *slog.Logger {
	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// buildEmbedder creates the configured embedding provider, wrapped in an LRU
// cache unless caching is disabled.
func buildEmbedder(ctx context.Context, cfg *config.Config) (embedder.Embedder, error) {
	var inner embedder.Embedder
	switch cfg.Embedder.Provider {
	case "hashing":
		inner = embedder.NewHashing(cfg.Embedder.Dim)
	case "gemini":
		gemini, err := embedder.NewGemini(ctx, cfg.Embedder.Model, cfg.Embedder.Dim)
		if err != nil {
			return nil, err
		}
		inner = gemini
	default:
		return nil, fmt.Errorf("unknown embedder provider %q", cfg.Embedder.Provider)
	}

	if cfg.Embedder.CacheSize < 0 {
		return inner, nil
	}
	return embedder.NewCached(inner, cfg.Embedder.CacheSize)
}

// buildIndex opens the configured vector index backend. The returned closer
// is a no-op for the memory backend.
func buildIndex(cfg *config.Config) (vecindex.Index, func(), error) {
	switch cfg.Index.Backend {
	case "memory":
		return vecindex.NewMemory(), func() {}, nil
	case "sqlite":
		db, err := vecindex.OpenSQLite(cfg.Index.Dir)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { _ = db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown index backend %q", cfg.Index.Backend)
	}
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// registerAllTools registers all MCP tools
func registerAllTools(mcpSrv *mcpserver.MCPServer, ctx *server.ServerContext) error {
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "Search",
			register: func() error {
				return search_tools.RegisterSearchTools(mcpSrv, ctx)
			},
		},
		{
			name: "Graph",
			register: func() error {
				return graph_tools.RegisterGraphTools(mcpSrv, ctx)
			},
		},
		{
			name: "Server Resources",
			register: func() error {
				return resources.RegisterServerResources(mcpSrv, ctx)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}

	return nil
}

func runHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, serverContext *server.ServerContext, cfg *config.Config, provider *instrumentation.Provider, logger *slog.Logger) error {
	sessionManager := server.NewSessionIDManagerWithLogger(24*time.Hour, logger)
	defer sessionManager.Stop()

	// Each HTTP request carries its session into the tool handlers, scoping
	// relationship-graph recording per caller.
	streamable := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			sessionID, err := sessionManager.ResolveSessionID(r)
			if err != nil {
				return ctx
			}
			return common.WithSession(ctx, sessionID)
		}),
	)

	mux := http.NewServeMux()
	mux.Handle("/mcp", streamable)

	healthChecker := server.NewHealthChecker(serverContext)
	healthChecker.RegisterHealthEndpoints(mux)

	var handler http.Handler = mux
	if provider.Enabled() {
		handler = httpMetricsMiddleware(provider.Metrics(), handler)
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	fmt.Printf("Streamable HTTP server starting on %s\n", cfg.Server.Addr)
	fmt.Printf("  MCP endpoint: /mcp\n")
	fmt.Printf("  Health endpoints: /healthz, /readyz, /healthz/detailed\n")
	if cfg.Server.MetricsAddr != "" {
		fmt.Printf("  Metrics endpoint: %s/metrics\n", cfg.Server.MetricsAddr)
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		fmt.Println("Shutdown signal received, stopping HTTP server...")
		healthChecker.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	fmt.Println("HTTP server gracefully stopped")
	return nil
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func httpMetricsMiddleware(metrics *instrumentation.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}
