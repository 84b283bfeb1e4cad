package embedding

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBatcherFlushesOnMaxPending(t *testing.T) {
	provider := newFakeProvider(4)
	b := NewBatcher(provider, 3, time.Hour) // window long enough that only max-pending can trigger this

	var wg sync.WaitGroup
	results := make([][]float32, 3)
	for i, text := range []string{"a", "bb", "ccc"} {
		wg.Add(1)
		go func(i int, text string) {
			defer wg.Done()
			vec, err := b.Embed(context.Background(), text)
			require.NoError(t, err)
			results[i] = vec
		}(i, text)
	}
	wg.Wait()

	require.EqualValues(t, 3, provider.batchSize.Load(), "all three requests should have coalesced into one EmbedBatch call")
	require.Equal(t, float32(2), results[0][0])
	require.Equal(t, float32(3), results[1][0])
	require.Equal(t, float32(4), results[2][0])
}

func TestBatcherFlushesOnWindowElapse(t *testing.T) {
	provider := newFakeProvider(4)
	b := NewBatcher(provider, 32, 10*time.Millisecond)

	vec, err := b.Embed(context.Background(), "solo")
	require.NoError(t, err)
	require.Equal(t, float32(5), vec[0])
}

func TestBatcherPropagatesProviderError(t *testing.T) {
	provider := newFakeProvider(4)
	provider.failNext.Store(true)
	b := NewBatcher(provider, 1, time.Hour)

	_, err := b.Embed(context.Background(), "x")
	require.Error(t, err)
}

func TestBatcherDefaultsInvalidMaxAndWindow(t *testing.T) {
	provider := newFakeProvider(4)
	b := NewBatcher(provider, 0, 0)
	require.Equal(t, 32, b.max)
	require.Equal(t, 50*time.Millisecond, b.window)
}
