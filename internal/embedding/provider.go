// Package embedding implements the embedding service (spec §4.C): a
// Provider abstraction over remote embedding APIs, a persistent LRU cache
// keyed by content hash, request batching, and a circuit breaker that lets
// retrieval degrade to lexical-only ranking when the provider is down.
package embedding

import (
	"context"
	"fmt"
	"math"
)

// Provider generates embedding vectors from text. Implementations must
// produce vectors of a fixed dimensionality for their lifetime; switching
// models means reindexing (spec §4.C).
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
	Model() string
	Dimensions() int
}

// Config holds embedding provider settings, sourced from internal/config.
type Config struct {
	Provider   string // "openai", "openai-compatible", "none"
	Model      string
	APIKey     string
	BaseURL    string
	Dimensions int
}

// NewProvider constructs a Provider from cfg. "none" yields ErrNoProvider so
// callers can fall back to lexical-only operation rather than failing
// startup, per spec §4.C's graceful-degradation requirement.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "openai", "openai-compatible", "":
		return newOpenAIProvider(cfg)
	case "none":
		return nil, ErrNoProvider
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q (supported: openai, openai-compatible, none)", cfg.Provider)
	}
}

// ErrNoProvider indicates embeddings are disabled; retrieval must fall back
// to lexical scoring only.
var ErrNoProvider = fmt.Errorf("embedding: no provider configured (keyword-only mode)")

// validateEmbedding rejects dimension mismatches and all-zero vectors,
// either of which indicates the provider returned garbage.
func validateEmbedding(vec []float32, expectedDims int) error {
	if expectedDims > 0 && len(vec) != expectedDims {
		return fmt.Errorf("embedding dimension mismatch: expected %d, got %d", expectedDims, len(vec))
	}
	allZero := true
	for _, v := range vec {
		if math.Float32bits(v) != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return fmt.Errorf("embedding is all zeros (provider returned invalid vector)")
	}
	return nil
}
