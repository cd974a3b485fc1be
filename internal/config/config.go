// Package config loads and validates the ragmcp configuration.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config mirrors the TOML schema: [ragmcp], [embeddings], [search],
// [performance], [http_server].
type Config struct {
	RAGMCP      RAGMCPConfig      `toml:"ragmcp"`
	Embeddings  EmbeddingsConfig  `toml:"embeddings"`
	Search      SearchConfig      `toml:"search"`
	Performance PerformanceConfig `toml:"performance"`
	HTTPServer  HTTPServerConfig  `toml:"http_server"`
}

// RAGMCPConfig holds top-level process configuration.
type RAGMCPConfig struct {
	RAGFolder         string   `toml:"rag_folder"`
	DBPath            string   `toml:"db_path"`
	LogLevel          string   `toml:"log_level"`
	AllowedExtensions []string `toml:"allowed_extensions"`
}

// EmbeddingsConfig configures the embedding provider client.
type EmbeddingsConfig struct {
	Provider   string `toml:"provider"`
	Model      string `toml:"model"`
	APIKeyEnv  string `toml:"api_key_env"`
	BatchSize  int    `toml:"batch_size"`
	Dimensions int    `toml:"dimensions"`
}

// SearchConfig configures hybrid search parameters.
type SearchConfig struct {
	DefaultK           int     `toml:"default_k"`
	MinScore           float64 `toml:"min_score"`
	HybridBM25Weight   float64 `toml:"hybrid_bm25_weight"`
	HybridVectorWeight float64 `toml:"hybrid_vector_weight"`
}

// PerformanceConfig configures chunking and latency budgets.
type PerformanceConfig struct {
	MaxLatencyMs       int `toml:"max_latency_ms"`
	ChunkSizeTokens    int `toml:"chunk_size_tokens"`
	ChunkOverlapTokens int `toml:"chunk_overlap_tokens"`
}

// HTTPServerConfig configures the HTTP/SSE transport.
type HTTPServerConfig struct {
	Authless bool `toml:"authless"`
	Port     int  `toml:"port"`
}

// Default returns a Config populated with compiled-in defaults, the first
// layer of the precedence chain in §10.2.
func Default() *Config {
	return &Config{
		RAGMCP: RAGMCPConfig{
			RAGFolder:         ".",
			DBPath:            ".ragmcp/index.db",
			LogLevel:          "info",
			AllowedExtensions: []string{".md", ".markdown", ".mdx", ".xml", ".yaml", ".yml", ".json", ".txt"},
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "openai",
			Model:      "text-embedding-3-small",
			APIKeyEnv:  "OPENAI_API_KEY",
			BatchSize:  32,
			Dimensions: 768,
		},
		Search: SearchConfig{
			DefaultK:           10,
			MinScore:           0.1,
			HybridBM25Weight:   0.5,
			HybridVectorWeight: 0.5,
		},
		Performance: PerformanceConfig{
			MaxLatencyMs:       2000,
			ChunkSizeTokens:    512,
			ChunkOverlapTokens: 64,
		},
		HTTPServer: HTTPServerConfig{
			Authless: false,
			Port:     8081,
		},
	}
}

// DefaultConfigFileName is the project config file looked for in the
// corpus root, absent an explicit RAGMCP_CONFIG override.
const DefaultConfigFileName = ".ragmcp.toml"

// Load resolves configuration in the order mandated by §10.2: compiled-in
// defaults, then a project file (.ragmcp.toml in dir, or the path named by
// RAGMCP_CONFIG), then environment variable overrides, then validation.
func Load(dir string) (*Config, error) {
	cfg := Default()

	path := os.Getenv("RAGMCP_CONFIG")
	if path == "" {
		path = filepath.Join(dir, DefaultConfigFileName)
	}

	if _, err := os.Stat(path); err == nil {
		if err := cfg.mergeFile(path); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// mergeFile decodes a TOML file into a scratch Config and merges non-zero
// fields over cfg, so an unset field in the project file keeps the default.
func (c *Config) mergeFile(path string) error {
	var parsed Config
	if _, err := toml.DecodeFile(path, &parsed); err != nil {
		return err
	}
	c.mergeWith(&parsed)
	return nil
}

func (c *Config) mergeWith(other *Config) {
	if other.RAGMCP.RAGFolder != "" {
		c.RAGMCP.RAGFolder = other.RAGMCP.RAGFolder
	}
	if other.RAGMCP.DBPath != "" {
		c.RAGMCP.DBPath = other.RAGMCP.DBPath
	}
	if other.RAGMCP.LogLevel != "" {
		c.RAGMCP.LogLevel = other.RAGMCP.LogLevel
	}
	if len(other.RAGMCP.AllowedExtensions) > 0 {
		c.RAGMCP.AllowedExtensions = other.RAGMCP.AllowedExtensions
	}

	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.APIKeyEnv != "" {
		c.Embeddings.APIKeyEnv = other.Embeddings.APIKeyEnv
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}

	if other.Search.DefaultK != 0 {
		c.Search.DefaultK = other.Search.DefaultK
	}
	if other.Search.MinScore != 0 {
		c.Search.MinScore = other.Search.MinScore
	}
	if other.Search.HybridBM25Weight != 0 {
		c.Search.HybridBM25Weight = other.Search.HybridBM25Weight
	}
	if other.Search.HybridVectorWeight != 0 {
		c.Search.HybridVectorWeight = other.Search.HybridVectorWeight
	}

	if other.Performance.MaxLatencyMs != 0 {
		c.Performance.MaxLatencyMs = other.Performance.MaxLatencyMs
	}
	if other.Performance.ChunkSizeTokens != 0 {
		c.Performance.ChunkSizeTokens = other.Performance.ChunkSizeTokens
	}
	if other.Performance.ChunkOverlapTokens != 0 {
		c.Performance.ChunkOverlapTokens = other.Performance.ChunkOverlapTokens
	}

	if other.HTTPServer.Authless {
		c.HTTPServer.Authless = other.HTTPServer.Authless
	}
	if other.HTTPServer.Port != 0 {
		c.HTTPServer.Port = other.HTTPServer.Port
	}
}

// applyEnvOverrides applies RAGMCP_* environment variable overrides, the
// highest-precedence layer in §10.2.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("RAGMCP_LOG_LEVEL"); v != "" {
		c.RAGMCP.LogLevel = v
	}
	if v := os.Getenv("RAGMCP_RAG_FOLDER"); v != "" {
		c.RAGMCP.RAGFolder = v
	}
	if v := os.Getenv("RAGMCP_DB_PATH"); v != "" {
		c.RAGMCP.DBPath = v
	}
	if v := os.Getenv("RAGMCP_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("RAGMCP_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("RAGMCP_BM25_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(v, 64); err == nil {
			c.Search.HybridBM25Weight = w
		}
	}
	if v := os.Getenv("RAGMCP_VECTOR_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(v, 64); err == nil {
			c.Search.HybridVectorWeight = w
		}
	}
	if v := os.Getenv("RAGMCP_HTTP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.HTTPServer.Port = p
		}
	}
	if v := os.Getenv("RAGMCP_AUTHLESS"); v != "" {
		c.HTTPServer.Authless = strings.EqualFold(v, "true") || v == "1"
	}
}

// Validate rejects configurations §10.2 names as invalid: weight pairs that
// don't sum to 1 (within epsilon), an unknown log_level, non-positive
// dimensions/batch_size/chunk_size_tokens, and an overlap that is not
// strictly smaller than the chunk size. The embeddings provider name is not
// checked against a fixed list.
func (c *Config) Validate() error {
	sum := c.Search.HybridBM25Weight + c.Search.HybridVectorWeight
	if math.Abs(sum-1.0) > 0.01 {
		return fmt.Errorf("hybrid_bm25_weight + hybrid_vector_weight must equal 1.0, got %.3f", sum)
	}
	if c.Search.HybridBM25Weight < 0 || c.Search.HybridVectorWeight < 0 {
		return fmt.Errorf("hybrid weights must be non-negative")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.RAGMCP.LogLevel)] {
		return fmt.Errorf("ragmcp.log_level must be one of debug/info/warn/error, got %q", c.RAGMCP.LogLevel)
	}

	if c.Embeddings.Dimensions <= 0 {
		return fmt.Errorf("embeddings.dimensions must be positive, got %d", c.Embeddings.Dimensions)
	}
	if c.Embeddings.BatchSize <= 0 {
		return fmt.Errorf("embeddings.batch_size must be positive, got %d", c.Embeddings.BatchSize)
	}

	if c.Performance.ChunkSizeTokens <= 0 {
		return fmt.Errorf("performance.chunk_size_tokens must be positive, got %d", c.Performance.ChunkSizeTokens)
	}
	if c.Performance.ChunkOverlapTokens >= c.Performance.ChunkSizeTokens {
		return fmt.Errorf("performance.chunk_overlap_tokens (%d) must be less than chunk_size_tokens (%d)",
			c.Performance.ChunkOverlapTokens, c.Performance.ChunkSizeTokens)
	}
	if c.Performance.ChunkOverlapTokens < 0 {
		return fmt.Errorf("performance.chunk_overlap_tokens must be non-negative, got %d", c.Performance.ChunkOverlapTokens)
	}

	if c.Search.DefaultK < 0 {
		return fmt.Errorf("search.default_k must be non-negative, got %d", c.Search.DefaultK)
	}

	return nil
}

// WriteDefaults materialises a fresh .ragmcp.toml at path with compiled-in
// defaults, the counterpart to Load used by first-run setup.
func WriteDefaults(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config file %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	enc := toml.NewEncoder(f)
	if err := enc.Encode(Default()); err != nil {
		return fmt.Errorf("encode default config: %w", err)
	}
	return nil
}

// APIKey resolves the embedding provider's API key from the environment
// variable named by Embeddings.APIKeyEnv.
func (c *Config) APIKey() string {
	if c.Embeddings.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.Embeddings.APIKeyEnv)
}
