package wrapper

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modscope/modscope/internal/component"
	"github.com/modscope/modscope/internal/embedder"
	"github.com/modscope/modscope/internal/vecindex"
)

type demoButton struct {
	Label string
}

func (b demoButton) Render() string { return "[" + b.Label + "]" }

type demoApp struct {
	Title  string
	Button demoButton
}

func (a *demoApp) Version() string { return "1.0" }

func demoWrapper(t *testing.T) (*Wrapper, *vecindex.Memory) {
	t.Helper()
	idx := vecindex.NewMemory()
	w := ForValue("app", &demoApp{Title: "demo", Button: demoButton{Label: "ok"}}, Options{
		Embedder: embedder.NewHashing(embedder.DefaultHashingDim),
		Index:    idx,
	})
	return w, idx
}

func TestIndexAssignsSymbolsAndStoresPoints(t *testing.T) {
	w, idx := demoWrapper(t)
	ctx := context.Background()

	summary, err := w.Index(ctx)
	require.NoError(t, err)
	assert.Equal(t, "mod_app", summary.Collection)
	assert.Greater(t, summary.ComponentCount, 3)

	n, err := idx.Count(ctx, w.Collection())
	require.NoError(t, err)
	assert.Equal(t, summary.ComponentCount, n)

	seen := map[string]bool{}
	for _, c := range w.ListComponents("") {
		require.NotEmpty(t, c.Symbol, "every component gets a symbol: %s", c.Path)
		require.False(t, seen[c.Symbol], "symbol %q assigned twice", c.Symbol)
		seen[c.Symbol] = true
	}
}

func TestReindexDoesNotDuplicate(t *testing.T) {
	w, idx := demoWrapper(t)
	ctx := context.Background()

	first, err := w.Index(ctx)
	require.NoError(t, err)
	_, err = w.Index(ctx)
	require.NoError(t, err)

	n, err := idx.Count(ctx, w.Collection())
	require.NoError(t, err)
	assert.Equal(t, first.ComponentCount, n, "stable point IDs overwrite in place")
}

func TestSearchBeforeIndex(t *testing.T) {
	w, _ := demoWrapper(t)
	_, err := w.Search(context.Background(), "anything", SearchOptions{})
	assert.ErrorIs(t, err, ErrNotIndexed)
}

// emptyExtractor finds nothing, like a package pattern matching no files.
type emptyExtractor struct{}

func (emptyExtractor) Extract(component.Options) (*component.Extraction, error) {
	return &component.Extraction{}, nil
}

func TestSearchEmptyIndex(t *testing.T) {
	w := ForExtractor("app", nil, emptyExtractor{}, Options{
		Embedder: embedder.NewHashing(embedder.DefaultHashingDim),
		Index:    vecindex.NewMemory(),
	})
	ctx := context.Background()
	_, err := w.Index(ctx)
	require.NoError(t, err)

	_, err = w.Search(ctx, "anything", SearchOptions{})
	assert.ErrorIs(t, err, ErrEmptyIndex)
}

func TestSearchResolvesLiveComponents(t *testing.T) {
	w, _ := demoWrapper(t)
	ctx := context.Background()
	_, err := w.Index(ctx)
	require.NoError(t, err)

	hits, err := w.Search(ctx, "button", SearchOptions{Limit: 3})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Contains(t, hits[0].Path, "Button")
	for _, h := range hits {
		assert.True(t, h.ComponentFound, "live paths must resolve: %s", h.Path)
		require.NotNil(t, h.Component)
	}
}

func TestSearchKindFilter(t *testing.T) {
	w, _ := demoWrapper(t)
	ctx := context.Background()
	_, err := w.Index(ctx)
	require.NoError(t, err)

	hits, err := w.Search(ctx, "render version", SearchOptions{Limit: 10, Kind: component.KindMethod})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	for _, h := range hits {
		assert.Equal(t, component.KindMethod, h.Component.Kind)
	}
}

// ghostExtractor emits one component whose path does not exist on the live
// root, simulating an index generation older than the current structure.
type ghostExtractor struct{}

func (ghostExtractor) Extract(component.Options) (*component.Extraction, error) {
	return &component.Extraction{
		Components: []*component.Component{
			{Path: "app", Name: "app", Kind: component.KindModule, OwningModule: "app"},
			{Path: "app.Vanished", Name: "Vanished", Kind: component.KindClass, OwningModule: "app"},
		},
	}, nil
}

func TestSearchDegradedHitWhenPathDrifted(t *testing.T) {
	w := ForExtractor("app", &demoApp{}, ghostExtractor{}, Options{
		Embedder: embedder.NewHashing(embedder.DefaultHashingDim),
		Index:    vecindex.NewMemory(),
	})
	ctx := context.Background()
	_, err := w.Index(ctx)
	require.NoError(t, err)

	hits, err := w.Search(ctx, "Vanished", SearchOptions{Limit: 1})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "app.Vanished", hits[0].Path)
	assert.False(t, hits[0].ComponentFound, "drifted path is reported, not dropped")
	assert.NotNil(t, hits[0].Component, "stored metadata still accompanies the hit")
}

func TestSearchBackendLoss(t *testing.T) {
	w, idx := demoWrapper(t)
	ctx := context.Background()
	_, err := w.Index(ctx)
	require.NoError(t, err)

	idx.Close()
	_, err = w.Search(ctx, "button", SearchOptions{})
	require.Error(t, err)

	var backendErr *BackendError
	assert.ErrorAs(t, err, &backendErr)
	assert.ErrorIs(t, err, vecindex.ErrUnavailable)
}

// stallingEmbedder blocks until the context is cancelled.
type stallingEmbedder struct{}

func (stallingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
func (stallingEmbedder) Dim() int     { return 4 }
func (stallingEmbedder) Name() string { return "stalling" }

func TestSearchTimeout(t *testing.T) {
	idx := vecindex.NewMemory()
	w := ForValue("app", &demoApp{}, Options{
		Embedder:      embedder.NewHashing(embedder.DefaultHashingDim),
		Index:         idx,
		SearchTimeout: 20 * time.Millisecond,
	})
	ctx := context.Background()
	_, err := w.Index(ctx)
	require.NoError(t, err)

	w.opts.Embedder = stallingEmbedder{}
	_, err = w.Search(ctx, "button", SearchOptions{})
	assert.ErrorIs(t, err, ErrSearchTimeout)
}

func TestSearchAsyncDelivers(t *testing.T) {
	w, _ := demoWrapper(t)
	ctx := context.Background()
	_, err := w.Index(ctx)
	require.NoError(t, err)

	select {
	case res := <-w.SearchAsync(ctx, "button", SearchOptions{Limit: 1}):
		require.NoError(t, res.Err)
		require.NotEmpty(t, res.Hits)
	case <-time.After(5 * time.Second):
		t.Fatal("async search never delivered")
	}
}

func TestComponentByPath(t *testing.T) {
	w, _ := demoWrapper(t)
	ctx := context.Background()
	_, err := w.Index(ctx)
	require.NoError(t, err)

	c, value, ok := w.ComponentByPath("app.Button.Render")
	require.True(t, ok)
	assert.Equal(t, component.KindMethod, c.Kind)
	render, isFunc := value.(func() string)
	require.True(t, isFunc, "resolved method should be callable")
	assert.Equal(t, "[ok]", render())

	_, _, ok = w.ComponentByPath("app.NoSuch")
	assert.False(t, ok)
}

func TestListComponentsFilter(t *testing.T) {
	w, _ := demoWrapper(t)
	_, err := w.Index(context.Background())
	require.NoError(t, err)

	methods := w.ListComponents(component.KindMethod)
	require.NotEmpty(t, methods)
	for _, c := range methods {
		assert.Equal(t, component.KindMethod, c.Kind)
	}
	assert.Less(t, len(methods), len(w.ListComponents("")))
}

func TestPointIDStableAndScoped(t *testing.T) {
	a := PointID("mod_app", "app.Button")
	assert.Equal(t, a, PointID("mod_app", "app.Button"))
	assert.NotEqual(t, a, PointID("mod_other", "app.Button"))
	assert.NotEqual(t, a, PointID("mod_app", "app.Title"))
	assert.Len(t, a, 16)
	assert.False(t, strings.ContainsAny(a, "GHIJKLMNOPQRSTUVWXYZ"))
}
