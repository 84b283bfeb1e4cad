package embedding

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestServiceWithNilProviderAlwaysReturnsErrNoProvider(t *testing.T) {
	conn := openCacheDB(t)
	svc, err := NewService(nil, conn, 1<<20, 10, 10*time.Millisecond)
	require.NoError(t, err)
	require.False(t, svc.Available())
	require.Equal(t, 0, svc.Dimensions())

	_, err = svc.Embed(context.Background(), "hello", 1000)
	require.ErrorIs(t, err, ErrNoProvider)
}

func TestServiceEmbedCachesResult(t *testing.T) {
	conn := openCacheDB(t)
	provider := newFakeProvider(4)
	svc, err := NewService(provider, conn, 1<<20, 1, time.Hour)
	require.NoError(t, err)
	require.True(t, svc.Available())

	vec1, err := svc.Embed(context.Background(), "hello world", 1000)
	require.NoError(t, err)

	vec2, err := svc.Embed(context.Background(), "hello world", 1001)
	require.NoError(t, err)
	require.Equal(t, vec1, vec2)

	// A single provider call covers the first embed; the second is a cache hit.
	require.EqualValues(t, 1, provider.calls.Load())
}

func TestServiceEmbedOpensBreakerAfterRepeatedFailures(t *testing.T) {
	conn := openCacheDB(t)
	provider := newFakeProvider(4)
	svc, err := NewService(provider, conn, 1<<20, 1, time.Hour)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		provider.failNext.Store(true)
		_, err := svc.Embed(context.Background(), "distinct text that always misses cache "+string(rune('a'+i)), 1000)
		require.Error(t, err)
	}

	require.False(t, svc.Available(), "breaker should open after the failure threshold is reached")
}
