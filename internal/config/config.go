// Package config loads the modscope configuration: defaults, an optional
// YAML file, and a small set of environment overrides, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file looked up when no path is given.
const DefaultFileName = "modscope.yaml"

// Config represents the modscope configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Index    IndexConfig    `yaml:"index"`
	Embedder EmbedderConfig `yaml:"embedder"`
	Graph    GraphConfig    `yaml:"graph"`
	Search   SearchConfig   `yaml:"search"`
}

// ServerConfig controls the MCP transport and observability endpoints.
type ServerConfig struct {
	// Transport is "stdio" or "http".
	Transport string `yaml:"transport"`

	// Addr is the HTTP listen address when Transport is "http".
	Addr string `yaml:"addr"`

	// MetricsAddr is the dedicated Prometheus/health listen address.
	// Empty disables the metrics server.
	MetricsAddr string `yaml:"metrics_addr"`
}

// IndexConfig selects and locates the vector index backend.
type IndexConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `yaml:"backend"`

	// Dir is where the sqlite backend keeps its database.
	Dir string `yaml:"dir"`
}

// EmbedderConfig selects the embedding provider.
type EmbedderConfig struct {
	// Provider is "hashing" or "gemini". The gemini provider reads its API
	// key from the GEMINI_API_KEY environment variable.
	Provider string `yaml:"provider"`

	// Model is the remote model name, for providers that have one.
	Model string `yaml:"model"`

	// Dim is the embedding dimensionality. 0 selects the provider default.
	Dim int `yaml:"dim"`

	// CacheSize bounds the embedding LRU cache. 0 selects the default,
	// negative disables caching.
	CacheSize int `yaml:"cache_size"`
}

// GraphConfig tunes the tool relationship graph.
type GraphConfig struct {
	// PredecessorWindow is how many distinct prior tools co-occur with a
	// new call. 0 selects the default.
	PredecessorWindow int `yaml:"predecessor_window"`

	// SessionHistoryCap bounds per-session call history. 0 selects the default.
	SessionHistoryCap int `yaml:"session_history_cap"`

	// RecomputeInterval is how often centrality metrics are refreshed in
	// the background. 0 selects the default, negative disables the loop.
	RecomputeInterval time.Duration `yaml:"recompute_interval"`
}

// SearchConfig tunes semantic search behaviour.
type SearchConfig struct {
	// Timeout bounds one search round trip. 0 selects the default.
	Timeout time.Duration `yaml:"timeout"`

	// DefaultLimit is the hit count when a caller does not ask for one.
	DefaultLimit int `yaml:"default_limit"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Transport:   "stdio",
			Addr:        ":8080",
			MetricsAddr: ":9090",
		},
		Index: IndexConfig{
			Backend: "memory",
			Dir:     defaultIndexDir(),
		},
		Embedder: EmbedderConfig{
			Provider:  "hashing",
			CacheSize: 4096,
		},
		Graph: GraphConfig{
			RecomputeInterval: 30 * time.Second,
		},
		Search: SearchConfig{
			Timeout:      5 * time.Second,
			DefaultLimit: 5,
		},
	}
}

func defaultIndexDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".modscope")
	}
	return ".modscope"
}

// Load reads configuration from file, falling back to defaults, then applies
// environment overrides. If configPath is empty, it looks for modscope.yaml
// in the current directory; a missing file is not an error.
func Load(configPath string) (*Config, error) {
	defaults := Default()

	if configPath == "" {
		configPath = DefaultFileName
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			defaults.applyEnv()
			return defaults, nil
		}
		return nil, err
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", configPath, err)
	}

	defaults.Merge(&fileCfg)
	defaults.applyEnv()
	return defaults, nil
}

// Merge combines another config into this one, with other taking precedence.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}
	if other.Server.MetricsAddr != "" {
		c.Server.MetricsAddr = other.Server.MetricsAddr
	}
	if other.Index.Backend != "" {
		c.Index.Backend = other.Index.Backend
	}
	if other.Index.Dir != "" {
		c.Index.Dir = other.Index.Dir
	}
	if other.Embedder.Provider != "" {
		c.Embedder.Provider = other.Embedder.Provider
	}
	if other.Embedder.Model != "" {
		c.Embedder.Model = other.Embedder.Model
	}
	if other.Embedder.Dim != 0 {
		c.Embedder.Dim = other.Embedder.Dim
	}
	if other.Embedder.CacheSize != 0 {
		c.Embedder.CacheSize = other.Embedder.CacheSize
	}
	if other.Graph.PredecessorWindow != 0 {
		c.Graph.PredecessorWindow = other.Graph.PredecessorWindow
	}
	if other.Graph.SessionHistoryCap != 0 {
		c.Graph.SessionHistoryCap = other.Graph.SessionHistoryCap
	}
	if other.Graph.RecomputeInterval != 0 {
		c.Graph.RecomputeInterval = other.Graph.RecomputeInterval
	}
	if other.Search.Timeout != 0 {
		c.Search.Timeout = other.Search.Timeout
	}
	if other.Search.DefaultLimit != 0 {
		c.Search.DefaultLimit = other.Search.DefaultLimit
	}
}

// applyEnv overlays MODSCOPE_* environment variables over the config.
// The set is deliberately small: deployment-level switches only.
func (c *Config) applyEnv() {
	if v := os.Getenv("MODSCOPE_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
	if v := os.Getenv("MODSCOPE_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("MODSCOPE_METRICS_ADDR"); v != "" {
		c.Server.MetricsAddr = v
	}
	if v := os.Getenv("MODSCOPE_INDEX_BACKEND"); v != "" {
		c.Index.Backend = v
	}
	if v := os.Getenv("MODSCOPE_INDEX_DIR"); v != "" {
		c.Index.Dir = v
	}
	if v := os.Getenv("MODSCOPE_EMBEDDER"); v != "" {
		c.Embedder.Provider = v
	}
	if v := os.Getenv("MODSCOPE_EMBEDDER_MODEL"); v != "" {
		c.Embedder.Model = v
	}
	if v := os.Getenv("MODSCOPE_EMBEDDER_DIM"); v != "" {
		if dim, err := strconv.Atoi(v); err == nil {
			c.Embedder.Dim = dim
		}
	}
}

// Validate checks the configuration for values no component can act on.
func (c *Config) Validate() error {
	switch c.Server.Transport {
	case "stdio", "http":
	default:
		return fmt.Errorf("invalid transport %q, must be stdio or http", c.Server.Transport)
	}
	switch c.Index.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("invalid index backend %q, must be memory or sqlite", c.Index.Backend)
	}
	switch c.Embedder.Provider {
	case "hashing", "gemini":
	default:
		return fmt.Errorf("invalid embedder provider %q, must be hashing or gemini", c.Embedder.Provider)
	}
	if c.Index.Backend == "sqlite" && c.Index.Dir == "" {
		return fmt.Errorf("index dir is required for the sqlite backend")
	}
	return nil
}
