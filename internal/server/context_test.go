package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modscope/modscope/internal/component"
	"github.com/modscope/modscope/internal/config"
	"github.com/modscope/modscope/internal/embedder"
	"github.com/modscope/modscope/internal/vecindex"
)

type demoRoot struct {
	Name string
}

func (d *demoRoot) Describe() string { return d.Name }

func testServerContext(t *testing.T) *ServerContext {
	t.Helper()
	sc, err := NewServerContext(context.Background(), ContextOptions{
		Config:   config.Default(),
		Index:    vecindex.NewMemory(),
		Embedder: embedder.NewHashing(32),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func TestNewServerContextRequiresBackends(t *testing.T) {
	_, err := NewServerContext(context.Background(), ContextOptions{
		Embedder: embedder.NewHashing(32),
	})
	require.Error(t, err)

	_, err = NewServerContext(context.Background(), ContextOptions{
		Index: vecindex.NewMemory(),
	})
	require.Error(t, err)
}

func TestWrapperForCachesPerModule(t *testing.T) {
	sc := testServerContext(t)
	require.NoError(t, sc.Registry().Register("demo", &demoRoot{Name: "demo"}))

	w1 := sc.WrapperFor("demo")
	w2 := sc.WrapperFor("demo")
	assert.Same(t, w1, w2)

	other := sc.WrapperFor("example.com/pkg")
	assert.NotSame(t, w1, other)
	assert.ElementsMatch(t, []string{"demo", "example.com/pkg"}, sc.WrapperNames())
}

func TestConfigureWrapperReplacesCached(t *testing.T) {
	sc := testServerContext(t)
	require.NoError(t, sc.Registry().Register("demo", &demoRoot{Name: "demo"}))

	w1 := sc.WrapperFor("demo")
	_, err := w1.Index(context.Background())
	require.NoError(t, err)

	w2 := sc.ConfigureWrapper("demo", "custom_coll", component.Options{IncludePrivate: true})
	assert.NotSame(t, w1, w2)
	assert.Equal(t, "custom_coll", w2.Collection())
	assert.False(t, w2.Indexed(), "replacement starts unindexed")
	assert.Same(t, w2, sc.Wrapper("demo"))
}

func TestIndexedModuleCount(t *testing.T) {
	sc := testServerContext(t)
	require.NoError(t, sc.Registry().Register("demo", &demoRoot{Name: "demo"}))

	w := sc.WrapperFor("demo")
	assert.Equal(t, 0, sc.IndexedModuleCount())

	_, err := w.Index(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sc.IndexedModuleCount())
}

func TestShutdownIsIdempotent(t *testing.T) {
	sc := testServerContext(t)
	assert.False(t, sc.IsShutdown())

	require.NoError(t, sc.Shutdown())
	assert.True(t, sc.IsShutdown())
	require.NoError(t, sc.Shutdown())

	select {
	case <-sc.Context().Done():
	default:
		t.Fatal("server context should be cancelled after shutdown")
	}
}

func TestGraphRecomputeLoopRefreshesMetrics(t *testing.T) {
	sc := testServerContext(t)
	sc.Graph().RecordToolCall("a", "svc", "s1", 1)
	sc.Graph().RecordToolCall("b", "svc", "s1", 1)
	require.True(t, sc.Graph().Stats().MetricsStale)

	sc.StartGraphRecomputeLoop(10 * time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for sc.Graph().Stats().MetricsStale {
		if time.Now().After(deadline) {
			t.Fatal("metrics never refreshed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDetailedHealthIncludesIndexState(t *testing.T) {
	sc := testServerContext(t)
	require.NoError(t, sc.Registry().Register("demo", &demoRoot{Name: "demo"}))
	_, err := sc.WrapperFor("demo").Index(context.Background())
	require.NoError(t, err)

	h := NewHealthChecker(sc)
	rec := httptest.NewRecorder()
	h.DetailedHealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/detailed", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp DetailedHealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, healthStatusOK, resp.Status)
	assert.Equal(t, 1, resp.IndexedModules)
	require.NotNil(t, resp.Graph)
}

func TestSessionIDManagerStableIDs(t *testing.T) {
	m := NewSessionIDManagerWithTimeout(time.Hour)
	defer m.Stop()

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer token-a")
	id1, err := m.ResolveSessionID(req)
	require.NoError(t, err)
	id2, err := m.ResolveSessionID(req)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	req.Header.Set("Authorization", "Bearer token-b")
	id3, err := m.ResolveSessionID(req)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id3)

	req.Header.Del("Authorization")
	_, err = m.ResolveSessionID(req)
	assert.ErrorIs(t, err, ErrNoAuthorizationHeader)
}

func TestSessionUserAssociation(t *testing.T) {
	m := NewSessionIDManagerWithTimeout(time.Hour)
	defer m.Stop()

	assert.Empty(t, m.UserForSession("missing"))

	m.SetUserForSession("s1", "dev@example.com")
	assert.Equal(t, "dev@example.com", m.UserForSession("s1"))
	assert.Contains(t, m.ListSessions(), "s1")

	m.RemoveSession("s1")
	assert.Empty(t, m.UserForSession("s1"))
}
