package embedding

import (
	"context"
	"sync"
	"time"
)

type batchRequest struct {
	text   string
	result chan batchResult
}

type batchResult struct {
	vec []float32
	err error
}

// Batcher coalesces individual Embed calls into provider-level EmbedBatch
// requests, flushing after window elapses or max pending requests
// accumulate, whichever comes first, per spec §4.C's batching requirement.
type Batcher struct {
	provider Provider
	max      int
	window   time.Duration

	mu      sync.Mutex
	pending []batchRequest
	timer   *time.Timer
}

// NewBatcher wraps provider with coalescing behavior bounded by max pending
// requests and window latency.
func NewBatcher(provider Provider, max int, window time.Duration) *Batcher {
	if max <= 0 {
		max = 32
	}
	if window <= 0 {
		window = 50 * time.Millisecond
	}
	return &Batcher{provider: provider, max: max, window: window}
}

// Embed enqueues text and blocks until its batch is flushed and resolved.
func (b *Batcher) Embed(ctx context.Context, text string) ([]float32, error) {
	req := batchRequest{text: text, result: make(chan batchResult, 1)}

	b.mu.Lock()
	b.pending = append(b.pending, req)
	shouldFlush := len(b.pending) >= b.max
	if shouldFlush {
		if b.timer != nil {
			b.timer.Stop()
			b.timer = nil
		}
	} else if b.timer == nil {
		b.timer = time.AfterFunc(b.window, func() { b.flush(context.Background()) })
	}
	b.mu.Unlock()

	if shouldFlush {
		b.flush(ctx)
	}

	select {
	case res := <-req.result:
		return res.vec, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *Batcher) flush(ctx context.Context) {
	b.mu.Lock()
	batch := b.pending
	b.pending = nil
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	texts := make([]string, len(batch))
	for i, r := range batch {
		texts[i] = r.text
	}

	vecs, err := b.provider.EmbedBatch(ctx, texts)
	for i, r := range batch {
		if err != nil {
			r.result <- batchResult{err: err}
			continue
		}
		r.result <- batchResult{vec: vecs[i]}
	}
}
