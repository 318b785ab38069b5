package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the embedding cache when no size is configured.
const DefaultCacheSize = 4096

// Cached decorates an Embedder with an LRU cache keyed by text hash, so
// re-indexing an unchanged root does not re-embed unchanged components.
// Cache keys include the inner embedder's name: switching models never
// serves vectors produced by a different model.
type Cached struct {
	inner Embedder
	cache *lru.Cache[string, []float32]
}

// NewCached wraps inner with an LRU of the given size (<= 0 selects
// DefaultCacheSize).
func NewCached(inner Embedder, size int) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return &Cached{inner: inner, cache: cache}, nil
}

func (c *Cached) Dim() int     { return c.inner.Dim() }
func (c *Cached) Name() string { return c.inner.Name() }

// Embed serves hits from the cache and embeds only the misses, preserving
// input order. A batch with a failing miss fails whole; nothing partial is
// cached from a failed inner call.
func (c *Cached) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))

	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		keys[i] = c.key(text)
		if vec, ok := c.cache.Get(keys[i]); ok {
			out[i] = vec
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
		c.cache.Add(keys[i], vecs[j])
	}
	return out, nil
}

// Len returns the number of cached vectors.
func (c *Cached) Len() int {
	return c.cache.Len()
}

func (c *Cached) key(text string) string {
	sum := sha256.Sum256([]byte(c.inner.Name() + "\x00" + text))
	return hex.EncodeToString(sum[:])
}
