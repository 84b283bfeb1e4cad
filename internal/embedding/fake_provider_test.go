package embedding

import (
	"context"
	"fmt"
	"sync/atomic"
)

// fakeProvider is a deterministic, in-process Provider for tests that never
// makes a network call. Embed/EmbedBatch derive a vector from text length so
// distinct inputs produce distinct vectors.
type fakeProvider struct {
	dims      int
	calls     atomic.Int32
	failNext  atomic.Bool
	batchSize atomic.Int32 // records the size of the last EmbedBatch call
}

func newFakeProvider(dims int) *fakeProvider {
	return &fakeProvider{dims: dims}
}

func (f *fakeProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls.Add(1)
	f.batchSize.Store(int32(len(texts)))
	if f.failNext.Swap(false) {
		return nil, fmt.Errorf("fake provider: injected failure")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, f.dims)
		v[0] = float32(len(t)) + 1 // +1 keeps it non-zero even for empty text
		out[i] = v
	}
	return out, nil
}

func (f *fakeProvider) Name() string       { return "fake" }
func (f *fakeProvider) Model() string      { return "fake-model" }
func (f *fakeProvider) Dimensions() int    { return f.dims }
