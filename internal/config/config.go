// Package config loads inkdex configuration: built-in defaults, then
// the vault's .inkdex.yaml, then INKDEX_* environment overrides, each
// layer overriding the previous.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config file names probed in the vault root, in order.
var configFileNames = []string{".inkdex.yaml", ".inkdex.yml"}

// Config is the complete inkdex configuration.
type Config struct {
	Version    int              `yaml:"version"`
	Vault      VaultConfig      `yaml:"vault"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Search     SearchConfig     `yaml:"search"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// VaultConfig selects which documents are indexed.
type VaultConfig struct {
	// Exclude patterns beyond the always-excluded dot-directories.
	Exclude []string `yaml:"exclude"`
}

// ChunkingConfig shapes the word windows. Changing any value
// invalidates persisted snapshots.
type ChunkingConfig struct {
	// HeadingLevel is h1, h2, h3, or none.
	HeadingLevel string `yaml:"heading_level"`
	TargetWords  int    `yaml:"target_words"`
	OverlapWords int    `yaml:"overlap_words"`
}

// EmbeddingsConfig selects the embedding backend.
type EmbeddingsConfig struct {
	// Backend is "hash" or "model".
	Backend    string `yaml:"backend"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	// BaseURL points the model backend at a self-hosted or compatible
	// endpoint. The API key comes only from INKDEX_API_KEY, never the
	// config file.
	BaseURL   string `yaml:"base_url"`
	CacheSize int    `yaml:"cache_size"`
}

// SearchConfig tunes the query surface.
type SearchConfig struct {
	// Limit is the default result count per query.
	Limit int `yaml:"limit"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// APIKey is read from the environment at access time so it never lands
// in a config file or snapshot.
func (c *Config) APIKey() string {
	return os.Getenv("INKDEX_API_KEY")
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: 1,
		Chunking: ChunkingConfig{
			HeadingLevel: "none",
			TargetWords:  500,
			OverlapWords: 100,
		},
		Embeddings: EmbeddingsConfig{
			Backend:    "hash",
			Dimensions: 256,
		},
		Search: SearchConfig{
			Limit: 10,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration for a vault: defaults, overlaid with
// the vault's config file if present, overlaid with environment
// overrides.
func Load(vaultRoot string) (*Config, error) {
	cfg := Default()

	for _, name := range configFileNames {
		path := filepath.Join(vaultRoot, name)
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		break
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies INKDEX_* variables, the highest-priority
// layer.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("INKDEX_EMBED_BACKEND"); v != "" {
		c.Embeddings.Backend = v
	}
	if v := os.Getenv("INKDEX_EMBED_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("INKDEX_EMBED_BASE_URL"); v != "" {
		c.Embeddings.BaseURL = v
	}
	if v := os.Getenv("INKDEX_EMBED_DIMENSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Embeddings.Dimensions = n
		}
	}
	if v := os.Getenv("INKDEX_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate rejects configurations that cannot work at all. Range
// clamping of chunking values happens downstream; validation only
// catches category errors.
func (c *Config) Validate() error {
	switch c.Embeddings.Backend {
	case "hash", "model", "":
	default:
		return fmt.Errorf("embeddings.backend must be hash or model, got %q", c.Embeddings.Backend)
	}
	switch c.Chunking.HeadingLevel {
	case "none", "h1", "h2", "h3", "":
	default:
		return fmt.Errorf("chunking.heading_level must be none, h1, h2, or h3, got %q", c.Chunking.HeadingLevel)
	}
	// Zero means "use the default"; only negative values are rejected.
	if c.Embeddings.Dimensions < 0 {
		return fmt.Errorf("embeddings.dimensions must not be negative, got %d", c.Embeddings.Dimensions)
	}
	if c.Search.Limit < 0 {
		return fmt.Errorf("search.limit must not be negative, got %d", c.Search.Limit)
	}
	return nil
}

// WriteYAML writes the configuration to path, used by `inkdex init`.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
