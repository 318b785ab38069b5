package wrapper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modscope/modscope/internal/component"
	"github.com/modscope/modscope/internal/embedtext"
	"github.com/modscope/modscope/internal/logging"
	"github.com/modscope/modscope/internal/vecindex"
)

var (
	// ErrNotIndexed means Search was called before any Index run completed.
	ErrNotIndexed = errors.New("module has not been indexed")

	// ErrEmptyIndex means the last Index run discovered no components, so
	// there is nothing to search.
	ErrEmptyIndex = errors.New("index contains no components")

	// ErrSearchTimeout means the search deadline elapsed before the backend
	// answered.
	ErrSearchTimeout = errors.New("search timed out")
)

// BackendError wraps a vector index failure so callers can separate
// "backend down" from "no matches" and from input errors.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string { return fmt.Sprintf("index backend %s: %v", e.Op, e.Err) }
func (e *BackendError) Unwrap() error { return e.Err }

// SearchOptions tune one search call. Zero values select the defaults:
// identity channel, limit 5, no threshold, no kind filter.
type SearchOptions struct {
	Channel        string
	Limit          int
	ScoreThreshold float32
	Kind           component.Kind
}

func (o SearchOptions) channel() string {
	if o.Channel == "" {
		return embedtext.ChannelIdentity
	}
	return o.Channel
}

func (o SearchOptions) limit() int {
	if o.Limit <= 0 {
		return 5
	}
	return o.Limit
}

// Hit is one search result. Component is the stored record for the matched
// path; ComponentFound reports whether the path still resolves against the
// live root (or, without one, whether the record is in the current table).
// A hit with ComponentFound false is degraded, not discarded: the index knew
// the path, but the live structure has drifted since indexing.
type Hit struct {
	Path           string               `json:"path"`
	Score          float32              `json:"score"`
	Component      *component.Component `json:"component,omitempty"`
	ComponentFound bool                 `json:"component_found"`
}

// Result pairs a search outcome with its error for asynchronous delivery.
type Result struct {
	Hits []Hit
	Err  error
}

// Search embeds the query and returns the nearest components on the chosen
// channel. Fails with ErrNotIndexed before the first Index run, with
// ErrSearchTimeout when the configured deadline elapses, and with a
// BackendError when the vector store is unreachable.
func (w *Wrapper) Search(ctx context.Context, query string, opts SearchOptions) ([]Hit, error) {
	if !w.Indexed() {
		return nil, ErrNotIndexed
	}
	w.mu.RLock()
	empty := len(w.components) == 0
	w.mu.RUnlock()
	if empty {
		return nil, ErrEmptyIndex
	}

	ctx, cancel := context.WithTimeout(ctx, w.opts.SearchTimeout)
	defer cancel()

	vectors, err := w.opts.Embedder.Embed(ctx, []string{query})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrSearchTimeout
		}
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	queryOpts := vecindex.QueryOptions{
		Limit:          opts.limit(),
		ScoreThreshold: opts.ScoreThreshold,
	}
	if opts.Kind != "" {
		queryOpts.Filter = map[string]string{"kind": string(opts.Kind)}
	}

	scored, err := w.opts.Index.Query(ctx, w.opts.Collection, opts.channel(), vectors[0], queryOpts)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrSearchTimeout
		}
		return nil, &BackendError{Op: "query", Err: err}
	}

	hits := make([]Hit, 0, len(scored))
	for _, s := range scored {
		path := s.Payload["path"]
		hit := Hit{Path: path, Score: s.Score}

		w.mu.RLock()
		hit.Component = w.components[path]
		w.mu.RUnlock()

		if w.root != nil {
			_, hit.ComponentFound = component.Resolve(w.root, w.rootName, path)
		} else {
			hit.ComponentFound = hit.Component != nil
		}
		if !hit.ComponentFound {
			w.logger.Warn("search hit no longer resolvable",
				logging.Collection(w.opts.Collection),
				slog.String(logging.KeyPath, path),
			)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// SearchAsync runs Search on its own goroutine and delivers the outcome on
// the returned channel, which is buffered so an abandoned receiver never
// leaks the worker.
func (w *Wrapper) SearchAsync(ctx context.Context, query string, opts SearchOptions) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		hits, err := w.Search(ctx, query, opts)
		out <- Result{Hits: hits, Err: err}
		close(out)
	}()
	return out
}
