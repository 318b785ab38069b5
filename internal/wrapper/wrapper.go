package wrapper

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/modscope/modscope/internal/component"
	"github.com/modscope/modscope/internal/embedder"
	"github.com/modscope/modscope/internal/embedtext"
	"github.com/modscope/modscope/internal/logging"
	"github.com/modscope/modscope/internal/relgraph"
	"github.com/modscope/modscope/internal/vecindex"
)

// DefaultSearchTimeout bounds one search round trip against the backend.
const DefaultSearchTimeout = 5 * time.Second

// Options configure a Wrapper.
type Options struct {
	// Collection is the vector index collection the wrapper writes to.
	// Empty derives "mod_<rootName>".
	Collection string

	// Extraction is forwarded to the extractor on every Index call.
	Extraction component.Options

	// Embedder produces the per-channel vectors. Required.
	Embedder embedder.Embedder

	// Index is the vector store. Required.
	Index vecindex.Index

	// Graph, when set, contributes runtime co-occurrence text to the
	// relationships channel of components that are also tools.
	Graph *relgraph.Graph

	// SearchTimeout bounds Search; zero selects DefaultSearchTimeout.
	SearchTimeout time.Duration

	Logger *slog.Logger
}

// Wrapper binds one introspectable root to a vector index: it extracts the
// root's component table, embeds each component over named channels, and
// serves semantic search whose hits re-resolve against the live root.
//
// Safe for concurrent use. Index replaces the component table atomically;
// searches running concurrently see either the old or the new generation.
type Wrapper struct {
	rootName  string
	root      any // nil when extraction is source-based
	extractor component.Extractor
	opts      Options
	logger    *slog.Logger

	mu            sync.RWMutex
	components    map[string]*component.Component
	order         []string
	relationships []component.Relationship
	indexed       bool
}

// ForValue wraps a live Go value. rootName becomes the first segment of every
// component path and the name search results resolve under.
func ForValue(rootName string, root any, opts Options) *Wrapper {
	w := newWrapper(rootName, opts)
	w.root = root
	w.extractor = component.NewReflectExtractor(root, rootName, w.logger)
	return w
}

// ForPackage wraps a Go package by import path, extracting components from
// source so documentation survives into the index. There is no live root;
// hits resolve against the stored component table only.
func ForPackage(pattern string, opts Options) *Wrapper {
	w := newWrapper(pattern, opts)
	w.extractor = component.NewSourceExtractor(pattern, w.logger)
	return w
}

// ForExtractor wraps a custom extractor, for callers that assemble their own
// component source. root may be nil.
func ForExtractor(rootName string, root any, ex component.Extractor, opts Options) *Wrapper {
	w := newWrapper(rootName, opts)
	w.root = root
	w.extractor = ex
	return w
}

func newWrapper(rootName string, opts Options) *Wrapper {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Collection == "" {
		opts.Collection = "mod_" + sanitizeCollection(rootName)
	}
	if opts.SearchTimeout <= 0 {
		opts.SearchTimeout = DefaultSearchTimeout
	}
	return &Wrapper{
		rootName: rootName,
		opts:     opts,
		logger:   logger,
	}
}

// Collection returns the vector index collection this wrapper writes to.
func (w *Wrapper) Collection() string { return w.opts.Collection }

// RootName returns the name components are pathed under.
func (w *Wrapper) RootName() string { return w.rootName }

// Indexed reports whether Index has completed at least once.
func (w *Wrapper) Indexed() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.indexed
}

// IndexSummary describes one completed Index run.
type IndexSummary struct {
	Collection     string        `json:"collection"`
	ComponentCount int           `json:"component_count"`
	Elapsed        time.Duration `json:"elapsed"`
}

// Index extracts the root, assigns symbols, embeds every component over its
// text channels and upserts the points. Point IDs derive from collection and
// path, so re-indexing overwrites in place instead of duplicating. The whole
// run is one generation: the in-memory component table flips only after the
// backend upsert succeeds.
func (w *Wrapper) Index(ctx context.Context) (*IndexSummary, error) {
	start := time.Now()

	ext, err := w.extractor.Extract(w.opts.Extraction)
	if err != nil {
		return nil, fmt.Errorf("indexing %s: %w", w.rootName, err)
	}
	component.AssignSymbols(ext.Components)

	points, err := w.embedComponents(ctx, ext)
	if err != nil {
		return nil, err
	}
	if err := w.opts.Index.Upsert(ctx, w.opts.Collection, points); err != nil {
		return nil, &BackendError{Op: "upsert", Err: err}
	}

	w.mu.Lock()
	w.components = make(map[string]*component.Component, len(ext.Components))
	w.order = w.order[:0]
	for _, c := range ext.Components {
		w.components[c.Path] = c
		w.order = append(w.order, c.Path)
	}
	w.relationships = ext.Relationships
	w.indexed = true
	w.mu.Unlock()

	summary := &IndexSummary{
		Collection:     w.opts.Collection,
		ComponentCount: len(ext.Components),
		Elapsed:        time.Since(start),
	}
	w.logger.Info("module indexed",
		logging.Collection(w.opts.Collection),
		slog.Int("components", summary.ComponentCount),
		slog.Duration(logging.KeyDuration, summary.Elapsed),
	)
	return summary, nil
}

// embedComponents builds the per-channel texts for every component and embeds
// them in one batch per channel.
func (w *Wrapper) embedComponents(ctx context.Context, ext *component.Extraction) ([]vecindex.Point, error) {
	points := make([]vecindex.Point, len(ext.Components))
	type slot struct {
		point int
		text  string
	}
	batches := make(map[string][]slot)

	for i, c := range ext.Components {
		var relText string
		if w.opts.Graph != nil {
			relText = w.opts.Graph.RelationshipText(c.Name, "", "")
		}
		points[i] = vecindex.Point{
			ID:      PointID(w.opts.Collection, c.Path),
			Vectors: make(map[string][]float32),
			Payload: pointPayload(c),
		}
		for channel, text := range embedtext.Channels(c, ext.Relationships, relText) {
			batches[channel] = append(batches[channel], slot{point: i, text: text})
		}
	}

	channels := make([]string, 0, len(batches))
	for channel := range batches {
		channels = append(channels, channel)
	}
	sort.Strings(channels)

	for _, channel := range channels {
		slots := batches[channel]
		texts := make([]string, len(slots))
		for i, s := range slots {
			texts[i] = s.text
		}
		vectors, err := w.opts.Embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embedding channel %q: %w", channel, err)
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("embedding channel %q: got %d vectors for %d texts", channel, len(vectors), len(texts))
		}
		for i, s := range slots {
			points[s.point].Vectors[channel] = vectors[i]
		}
	}
	return points, nil
}

// ComponentByPath returns the stored component record and, when the wrapper
// holds a live root, the resolved live value behind the path.
func (w *Wrapper) ComponentByPath(path string) (*component.Component, any, bool) {
	w.mu.RLock()
	c := w.components[path]
	w.mu.RUnlock()
	if c == nil {
		return nil, nil, false
	}
	if w.root == nil {
		return c, nil, true
	}
	value, ok := component.Resolve(w.root, w.rootName, path)
	if !ok {
		return c, nil, true
	}
	return c, value, true
}

// ListComponents returns the indexed components in discovery order,
// optionally filtered by kind ("" keeps everything).
func (w *Wrapper) ListComponents(kind component.Kind) []*component.Component {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]*component.Component, 0, len(w.order))
	for _, path := range w.order {
		c := w.components[path]
		if kind != "" && c.Kind != kind {
			continue
		}
		out = append(out, c)
	}
	return out
}

// PointID derives the stable vector point ID for a component path within a
// collection: the truncated SHA-256 of both, so re-indexing the same path
// always lands on the same point.
func PointID(collection, path string) string {
	sum := sha256.Sum256([]byte(collection + "\x00" + path))
	return hex.EncodeToString(sum[:8])
}

func pointPayload(c *component.Component) map[string]string {
	payload := map[string]string{
		"path":   c.Path,
		"name":   c.Name,
		"kind":   string(c.Kind),
		"module": c.OwningModule,
	}
	if c.Symbol != "" {
		payload["symbol"] = c.Symbol
	}
	return payload
}

func sanitizeCollection(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
