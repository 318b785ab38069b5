package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/modscope/modscope/internal/component"
	"github.com/modscope/modscope/internal/config"
	"github.com/modscope/modscope/internal/embedder"
	"github.com/modscope/modscope/internal/instrumentation"
	"github.com/modscope/modscope/internal/logging"
	"github.com/modscope/modscope/internal/registry"
	"github.com/modscope/modscope/internal/relgraph"
	"github.com/modscope/modscope/internal/vecindex"
	"github.com/modscope/modscope/internal/wrapper"
)

// ServerContext holds the shared state behind the MCP tool surface: the
// registry of introspectable roots, one wrapper per indexed module, the tool
// relationship graph, and the embedding/index backends they all share.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
	cfg    *config.Config

	registry *registry.Registry
	index    vecindex.Index
	embedder embedder.Embedder
	graph    *relgraph.Graph

	metrics *instrumentation.Metrics

	mu       sync.RWMutex
	wrappers map[string]*wrapper.Wrapper
	shutdown bool

	recomputeDone chan struct{}
}

// ContextOptions configure a ServerContext.
type ContextOptions struct {
	Config   *config.Config
	Index    vecindex.Index
	Embedder embedder.Embedder
	Metrics  *instrumentation.Metrics
	Logger   *slog.Logger
}

// NewServerContext creates the shared server state. Index and Embedder are
// required; Metrics may be nil when instrumentation is disabled.
func NewServerContext(ctx context.Context, opts ContextOptions) (*ServerContext, error) {
	if opts.Index == nil {
		return nil, fmt.Errorf("vector index is required")
	}
	if opts.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	shutdownCtx, cancel := context.WithCancel(ctx)

	sc := &ServerContext{
		ctx:      shutdownCtx,
		cancel:   cancel,
		logger:   logger,
		cfg:      opts.Config,
		registry: registry.New(),
		index:    opts.Index,
		embedder: opts.Embedder,
		metrics:  opts.Metrics,
		wrappers: make(map[string]*wrapper.Wrapper),
		graph: relgraph.New(relgraph.Options{
			PredecessorWindow: opts.Config.Graph.PredecessorWindow,
			SessionHistoryCap: opts.Config.Graph.SessionHistoryCap,
			Logger:            logger,
		}),
	}
	return sc, nil
}

// Context returns the server context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Config returns the loaded configuration.
func (sc *ServerContext) Config() *config.Config {
	return sc.cfg
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// Registry returns the live-root registry. Roots registered here become
// indexable by name through the modscope_index_module tool.
func (sc *ServerContext) Registry() *registry.Registry {
	return sc.registry
}

// Graph returns the tool relationship graph.
func (sc *ServerContext) Graph() *relgraph.Graph {
	return sc.graph
}

// Metrics returns the metrics recorder, which may be nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// Index returns the shared vector index backend.
func (sc *ServerContext) Index() vecindex.Index {
	return sc.index
}

// WrapperFor returns the wrapper for a module name, creating one on first
// use. A name registered in the registry gets a live-value wrapper; any
// other name is treated as a Go package import path and wrapped from source.
func (sc *ServerContext) WrapperFor(name string) *wrapper.Wrapper {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if w, ok := sc.wrappers[name]; ok {
		return w
	}

	opts := wrapper.Options{
		Embedder:      sc.embedder,
		Index:         sc.index,
		Graph:         sc.graph,
		SearchTimeout: sc.cfg.Search.Timeout,
		Logger:        sc.logger,
	}

	var w *wrapper.Wrapper
	if root, ok := sc.registry.Lookup(name); ok {
		w = wrapper.ForValue(name, root, opts)
	} else {
		w = wrapper.ForPackage(name, opts)
	}
	sc.wrappers[name] = w
	return w
}

// ConfigureWrapper builds a wrapper for a module name with explicit
// collection and extraction settings, replacing any cached wrapper for that
// name. The replacement starts unindexed.
func (sc *ServerContext) ConfigureWrapper(name, collection string, extraction component.Options) *wrapper.Wrapper {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	opts := wrapper.Options{
		Collection:    collection,
		Extraction:    extraction,
		Embedder:      sc.embedder,
		Index:         sc.index,
		Graph:         sc.graph,
		SearchTimeout: sc.cfg.Search.Timeout,
		Logger:        sc.logger,
	}

	var w *wrapper.Wrapper
	if root, ok := sc.registry.Lookup(name); ok {
		w = wrapper.ForValue(name, root, opts)
	} else {
		w = wrapper.ForPackage(name, opts)
	}
	sc.wrappers[name] = w
	return w
}

// Wrapper returns the existing wrapper for a module name, or nil when the
// module was never touched.
func (sc *ServerContext) Wrapper(name string) *wrapper.Wrapper {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.wrappers[name]
}

// WrapperNames lists the module names with wrappers, indexed or not.
func (sc *ServerContext) WrapperNames() []string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	names := make([]string, 0, len(sc.wrappers))
	for name := range sc.wrappers {
		names = append(names, name)
	}
	return names
}

// IndexedModuleCount reports how many wrappers completed an index build.
func (sc *ServerContext) IndexedModuleCount() int {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	n := 0
	for _, w := range sc.wrappers {
		if w.Indexed() {
			n++
		}
	}
	return n
}

// StartGraphRecomputeLoop refreshes the relationship graph's centrality
// metrics in the background. A tick that finds a recomputation still running
// is skipped rather than queued. Interval <= 0 disables the loop.
func (sc *ServerContext) StartGraphRecomputeLoop(interval time.Duration) {
	if interval <= 0 {
		return
	}
	sc.mu.Lock()
	if sc.recomputeDone != nil || sc.shutdown {
		sc.mu.Unlock()
		return
	}
	done := make(chan struct{})
	sc.recomputeDone = done
	sc.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if sc.graph.Stats().MetricsStale {
					start := time.Now()
					if sc.graph.TryRecomputeMetrics() && sc.metrics != nil {
						stats := sc.graph.Stats()
						sc.metrics.RecordGraphRecompute(sc.ctx, stats.Nodes, stats.Edges, time.Since(start))
					}
				}
			case <-done:
				return
			case <-sc.ctx.Done():
				return
			}
		}
	}()
}

// IsShutdown returns whether the server has been shutdown.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown stops the background loops and cancels the server context.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}
	sc.shutdown = true
	if sc.recomputeDone != nil {
		close(sc.recomputeDone)
		sc.recomputeDone = nil
	}
	sc.cancel()
	sc.logger.Info("server context shut down", logging.Status(logging.StatusSuccess))
	return nil
}
