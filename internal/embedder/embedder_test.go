package embedder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashingDeterministic(t *testing.T) {
	h := NewHashing(0)
	first, err := h.Embed(context.Background(), []string{"ordered dictionary lookup"})
	require.NoError(t, err)
	second, err := h.Embed(context.Background(), []string{"ordered dictionary lookup"})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestHashingDimensions(t *testing.T) {
	h := NewHashing(64)
	assert.Equal(t, 64, h.Dim())

	vecs, err := h.Embed(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for _, v := range vecs {
		assert.Len(t, v, 64)
	}
}

func TestHashingNormalized(t *testing.T) {
	h := NewHashing(0)
	vecs, err := h.Embed(context.Background(), []string{"encode json stream writer"})
	require.NoError(t, err)

	var sum float64
	for _, v := range vecs[0] {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, sum, 1e-5)
}

func TestHashingSimilarTextCloserThanUnrelated(t *testing.T) {
	h := NewHashing(0)
	vecs, err := h.Embed(context.Background(), []string{
		"ordered dictionary that remembers insertion order",
		"dictionary with ordered keys",
		"tcp socket connection pool",
	})
	require.NoError(t, err)

	related := dot(vecs[0], vecs[1])
	unrelated := dot(vecs[0], vecs[2])
	assert.Greater(t, related, unrelated,
		"shared vocabulary should score higher than disjoint vocabulary")
}

func TestHashingEmptyText(t *testing.T) {
	h := NewHashing(0)
	vecs, err := h.Embed(context.Background(), []string{""})
	require.NoError(t, err)
	require.Len(t, vecs, 1)
	assert.Len(t, vecs[0], h.Dim())
}

func dot(a, b []float32) float32 {
	var s float32
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// countingEmbedder records how many texts reached the inner embedder.
type countingEmbedder struct {
	inner Embedder
	calls int
	fail  bool
}

func (c *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if c.fail {
		return nil, errors.New("embedder unavailable")
	}
	c.calls += len(texts)
	return c.inner.Embed(ctx, texts)
}

func (c *countingEmbedder) Dim() int     { return c.inner.Dim() }
func (c *countingEmbedder) Name() string { return "counting" }

func TestCachedAvoidsReembedding(t *testing.T) {
	counting := &countingEmbedder{inner: NewHashing(32)}
	cached, err := NewCached(counting, 16)
	require.NoError(t, err)

	ctx := context.Background()
	first, err := cached.Embed(ctx, []string{"alpha", "beta"})
	require.NoError(t, err)
	assert.Equal(t, 2, counting.calls)

	second, err := cached.Embed(ctx, []string{"alpha", "beta"})
	require.NoError(t, err)
	assert.Equal(t, 2, counting.calls, "second call should be served from cache")
	assert.Equal(t, first, second)
	assert.Equal(t, 2, cached.Len())
}

func TestCachedPartialMiss(t *testing.T) {
	counting := &countingEmbedder{inner: NewHashing(32)}
	cached, err := NewCached(counting, 16)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = cached.Embed(ctx, []string{"alpha"})
	require.NoError(t, err)

	vecs, err := cached.Embed(ctx, []string{"alpha", "gamma"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, 2, counting.calls, "only the miss should reach the inner embedder")
}

func TestCachedPropagatesErrors(t *testing.T) {
	counting := &countingEmbedder{inner: NewHashing(32), fail: true}
	cached, err := NewCached(counting, 16)
	require.NoError(t, err)

	_, err = cached.Embed(context.Background(), []string{"alpha"})
	require.Error(t, err)
	assert.Equal(t, 0, cached.Len(), "nothing should be cached on failure")
}
