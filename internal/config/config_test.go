package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "stdio", cfg.Server.Transport)
	assert.Equal(t, "memory", cfg.Index.Backend)
	assert.Equal(t, "hashing", cfg.Embedder.Provider)
	assert.Equal(t, 5*time.Second, cfg.Search.Timeout)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Server.Transport, cfg.Server.Transport)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modscope.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  transport: http
  addr: ":9000"
index:
  backend: sqlite
  dir: /tmp/modscope-test
embedder:
  provider: gemini
  dim: 768
search:
  timeout: 2s
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http", cfg.Server.Transport)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "sqlite", cfg.Index.Backend)
	assert.Equal(t, "gemini", cfg.Embedder.Provider)
	assert.Equal(t, 768, cfg.Embedder.Dim)
	assert.Equal(t, 2*time.Second, cfg.Search.Timeout)
	// Untouched fields keep their defaults.
	assert.Equal(t, ":9090", cfg.Server.MetricsAddr)
	assert.Equal(t, 5, cfg.Search.DefaultLimit)
	require.NoError(t, cfg.Validate())
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modscope.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("MODSCOPE_TRANSPORT", "http")
	t.Setenv("MODSCOPE_INDEX_BACKEND", "sqlite")
	t.Setenv("MODSCOPE_INDEX_DIR", t.TempDir())
	t.Setenv("MODSCOPE_EMBEDDER_DIM", "128")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "http", cfg.Server.Transport)
	assert.Equal(t, "sqlite", cfg.Index.Backend)
	assert.Equal(t, 128, cfg.Embedder.Dim)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad transport", func(c *Config) { c.Server.Transport = "grpc" }, "invalid transport"},
		{"bad backend", func(c *Config) { c.Index.Backend = "qdrant" }, "invalid index backend"},
		{"bad embedder", func(c *Config) { c.Embedder.Provider = "openai" }, "invalid embedder provider"},
		{"sqlite without dir", func(c *Config) { c.Index.Backend = "sqlite"; c.Index.Dir = "" }, "index dir is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
