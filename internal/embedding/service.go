package embedding

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Service is the embedding pipeline's public entry point: cache lookup,
// then batched/breaker-guarded provider call, then cache fill.
type Service struct {
	provider Provider
	cache    *Cache
	breaker  *CircuitBreaker
	batcher  *Batcher
	model    string
}

// NewService builds a Service. provider may be nil (lexical-only mode); in
// that case Embed always returns ErrNoProvider immediately.
func NewService(provider Provider, conn *sql.DB, cacheBytes int64, batchMax int, batchWindow time.Duration) (*Service, error) {
	var model string
	if provider != nil {
		model = provider.Model()
	}

	cache, err := NewCache(conn, 4096, cacheBytes)
	if err != nil {
		return nil, err
	}

	var batcher *Batcher
	if provider != nil {
		batcher = NewBatcher(provider, batchMax, batchWindow)
	}

	return &Service{
		provider: provider,
		cache:    cache,
		breaker:  NewCircuitBreaker(3, 60*time.Second),
		batcher:  batcher,
		model:    model,
	}, nil
}

// Available reports whether a live provider is configured and the breaker
// is not currently open, i.e. whether retrieval should attempt semantic
// scoring at all.
func (s *Service) Available() bool {
	return s.provider != nil && s.breaker.Allow()
}

// Dimensions returns the provider's vector width, or 0 if unavailable.
func (s *Service) Dimensions() int {
	if s.provider == nil {
		return 0
	}
	return s.provider.Dimensions()
}

// Embed returns a vector for text, consulting the cache first and falling
// back to the batched provider call. Returns ErrNoProvider if embeddings
// are disabled, or the breaker's open-circuit error if the provider is
// currently considered down.
func (s *Service) Embed(ctx context.Context, text string, nowUnix int64) ([]float32, error) {
	if s.provider == nil {
		return nil, ErrNoProvider
	}

	key := CacheKey(s.model, text)
	if vec, ok := s.cache.Get(key, nowUnix); ok {
		return vec, nil
	}

	if !s.breaker.Allow() {
		return nil, fmt.Errorf("embedding: circuit breaker open, provider unavailable")
	}

	vec, err := s.batcher.Embed(ctx, text)
	if err != nil {
		s.breaker.RecordFailure()
		return nil, err
	}
	s.breaker.RecordSuccess()

	if err := s.cache.Put(key, s.model, vec, nowUnix); err != nil {
		return vec, nil // cache write failure is non-fatal to the caller
	}
	return vec, nil
}
