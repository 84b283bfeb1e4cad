// Package config provides configuration for the Mira binary.
// Loads from: env vars > DATA_DIR/mira.toml > built-in defaults.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Known embedding model dimensions, used when EMBED_DIM is not set.
var knownModelDims = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Config holds all runtime-tunable settings for Mira.
type Config struct {
	DatabaseURL string `toml:"database_url"`
	VectorURL   string `toml:"vector_url"`
	DataDir     string `toml:"data_dir"`

	EmbedProvider string `toml:"embed_provider"`
	EmbedAPIKey   string `toml:"embed_api_key"`
	EmbedModel    string `toml:"embed_model"`
	EmbedDim      int    `toml:"embed_dim"`
	EmbedBaseURL  string `toml:"embed_base_url"`

	BatchMax      int `toml:"batch_max"`
	BatchWindowMS int `toml:"batch_window_ms"`
	CacheBytes    int64 `toml:"cache_bytes"`

	MaxConcurrentTools int `toml:"max_concurrent_tools"`
	DefaultDeadline    time.Duration
	MaintenanceTick    time.Duration
	OrphanSweepEvery   time.Duration
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		DataDir:            "./mira-data",
		EmbedProvider:      "none",
		EmbedModel:         "text-embedding-3-small",
		EmbedDim:           1536,
		BatchMax:           32,
		BatchWindowMS:      50,
		CacheBytes:         64 * 1024 * 1024,
		MaxConcurrentTools: 16,
		DefaultDeadline:    60 * time.Second,
		MaintenanceTick:    5 * time.Second,
		OrphanSweepEvery:   10 * time.Minute,
	}
}

// Load builds a Config from env vars, an optional TOML file under DATA_DIR,
// and built-in defaults, in that precedence order (env wins).
func Load() (*Config, error) {
	cfg := Defaults()

	if dd := os.Getenv("DATA_DIR"); dd != "" {
		cfg.DataDir = dd
	}

	// Merge a TOML file if present, before applying env overrides so env
	// always has the final word.
	dimFromFile := false
	tomlPath := filepath.Join(cfg.DataDir, "mira.toml")
	if _, err := os.Stat(tomlPath); err == nil {
		var fileCfg Config
		if _, err := toml.DecodeFile(tomlPath, &fileCfg); err != nil {
			return nil, err
		}
		mergeNonZero(cfg, &fileCfg)
		dimFromFile = fileCfg.EmbedDim != 0
	}

	if dd := os.Getenv("DATA_DIR"); dd != "" {
		cfg.DataDir = dd
	}

	cfg.DatabaseURL = firstNonEmpty(os.Getenv("DATABASE_URL"), cfg.DatabaseURL)
	cfg.VectorURL = firstNonEmpty(os.Getenv("VECTOR_URL"), cfg.VectorURL)
	cfg.EmbedAPIKey = firstNonEmpty(os.Getenv("EMBED_API_KEY"), cfg.EmbedAPIKey)
	cfg.EmbedModel = firstNonEmpty(os.Getenv("EMBED_MODEL"), cfg.EmbedModel)

	if v := os.Getenv("EMBED_DIM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EmbedDim = n
		}
	} else if !dimFromFile {
		cfg.EmbedDim = dimForModel(cfg.EmbedModel)
	}

	if cfg.EmbedAPIKey != "" && cfg.EmbedProvider == "none" {
		cfg.EmbedProvider = "openai"
	}

	if v := os.Getenv("MIRA_BATCH_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BatchMax = n
		}
	}
	if v := os.Getenv("MIRA_BATCH_WINDOW_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BatchWindowMS = n
		}
	}
	if v := os.Getenv("MIRA_CACHE_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.CacheBytes = n
		}
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = filepath.Join(cfg.DataDir, "mira.db")
	}

	return cfg, nil
}

func dimForModel(model string) int {
	if d, ok := knownModelDims[model]; ok {
		return d
	}
	return 1536
}

func mergeNonZero(dst, src *Config) {
	if src.DatabaseURL != "" {
		dst.DatabaseURL = src.DatabaseURL
	}
	if src.VectorURL != "" {
		dst.VectorURL = src.VectorURL
	}
	if src.DataDir != "" {
		dst.DataDir = src.DataDir
	}
	if src.EmbedProvider != "" {
		dst.EmbedProvider = src.EmbedProvider
	}
	if src.EmbedAPIKey != "" {
		dst.EmbedAPIKey = src.EmbedAPIKey
	}
	if src.EmbedModel != "" {
		dst.EmbedModel = src.EmbedModel
	}
	if src.EmbedDim != 0 {
		dst.EmbedDim = src.EmbedDim
	}
	if src.EmbedBaseURL != "" {
		dst.EmbedBaseURL = src.EmbedBaseURL
	}
	if src.BatchMax != 0 {
		dst.BatchMax = src.BatchMax
	}
	if src.BatchWindowMS != 0 {
		dst.BatchWindowMS = src.BatchWindowMS
	}
	if src.CacheBytes != 0 {
		dst.CacheBytes = src.CacheBytes
	}
	if src.MaxConcurrentTools != 0 {
		dst.MaxConcurrentTools = src.MaxConcurrentTools
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// CacheDir returns the directory for the embedding cache file.
func (c *Config) CacheDir() string {
	return filepath.Join(c.DataDir, "cache")
}
