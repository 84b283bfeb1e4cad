package maintenance

import (
	"context"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mira-dev/mira/internal/embedding"
	"github.com/mira-dev/mira/internal/store"
	"github.com/mira-dev/mira/internal/vectorstore"
)

// fakeProvider is a deterministic in-memory embedding.Provider: each call
// returns a fixed-width vector derived from the text length, with no
// network I/O, so the drain-pending-embeddings path can be exercised
// without a live embedding API.
type fakeProvider struct {
	dims int
	fail bool
}

func (f *fakeProvider) Name() string  { return "fake" }
func (f *fakeProvider) Model() string { return "fake-model" }
func (f *fakeProvider) Dimensions() int { return f.dims }
func (f *fakeProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.fail {
		return nil, context.DeadlineExceeded
	}
	vec := make([]float32, f.dims)
	for i := range vec {
		vec[i] = float32(len(text)+i) / 10
	}
	return vec, nil
}
func (f *fakeProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func testScheduler(t *testing.T, provider embedding.Provider) (*Scheduler, *store.DB, *vectorstore.Store) {
	t.Helper()
	db, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	vec := vectorstore.Open(db.Conn())

	var emb *embedding.Service
	if provider != nil {
		emb, err = embedding.NewService(provider, db.Conn(), 1<<20, 10, 10*time.Millisecond)
		require.NoError(t, err)
	} else {
		emb, err = embedding.NewService(nil, db.Conn(), 1<<20, 10, 10*time.Millisecond)
		require.NoError(t, err)
	}

	now := func() int64 { return 1000 }
	sched := NewScheduler(db, vec, emb, minTickInterval, time.Hour, now, log.New(nil_writer{}, "", 0))
	return sched, db, vec
}

type nil_writer struct{}

func (nil_writer) Write(p []byte) (int, error) { return len(p), nil }

func TestNewSchedulerClampsTickAndDefaultsOrphanSweep(t *testing.T) {
	sched, _, _ := testScheduler(t, nil)
	require.Equal(t, minTickInterval, sched.tick)

	s2 := NewScheduler(nil, nil, nil, 1*time.Second, 0, nil, nil)
	require.Equal(t, minTickInterval, s2.tick)
	require.Equal(t, defaultOrphanSweepEvery, s2.orphanSweepEvery)
	require.NotNil(t, s2.now)
	require.NotNil(t, s2.log)
}

func TestDrainPendingEmbeddingsSkippedWithoutProvider(t *testing.T) {
	sched, db, _ := testScheduler(t, nil)
	require.NoError(t, db.EnqueuePendingEmbedding(store.PendingEmbedding{
		RecordKind: "memory_fact", RecordID: "m1", Collection: "memory", Text: "hello", EnqueuedAt: 1,
	}))

	sched.drainPendingEmbeddings(context.Background())

	batch, err := db.DrainPendingEmbeddings(10)
	require.NoError(t, err)
	require.Len(t, batch, 1, "without an available provider, the queue is left untouched")
}

func TestDrainPendingEmbeddingsResolvesOnSuccess(t *testing.T) {
	sched, db, vec := testScheduler(t, &fakeProvider{dims: 3})
	require.NoError(t, db.EnqueuePendingEmbedding(store.PendingEmbedding{
		RecordKind: "memory_fact", RecordID: "m1", Collection: "memory", Text: "hello", EnqueuedAt: 1,
	}))

	sched.drainPendingEmbeddings(context.Background())

	batch, err := db.DrainPendingEmbeddings(10)
	require.NoError(t, err)
	require.Empty(t, batch, "a successfully embedded record is removed from the queue")

	matches, err := vec.Search("memory", []float32{0, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "memory_fact:m1", matches[0].ID)
}

func TestDrainPendingEmbeddingsRequeuesOnFailure(t *testing.T) {
	sched, db, _ := testScheduler(t, &fakeProvider{dims: 3, fail: true})
	require.NoError(t, db.EnqueuePendingEmbedding(store.PendingEmbedding{
		RecordKind: "memory_fact", RecordID: "m1", Collection: "memory", Text: "hello", EnqueuedAt: 1,
	}))

	sched.drainPendingEmbeddings(context.Background())

	batch, err := db.DrainPendingEmbeddings(10)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	require.Equal(t, 2, batch[0].Attempts, "a renewed failure bumps the attempt counter rather than dropping the record")
}

func TestRecordExistsByKind(t *testing.T) {
	sched, db, _ := testScheduler(t, nil)

	require.NoError(t, db.ReplaceFileSymbols("a.go", []store.CodeSymbol{
		{ID: "seeded", FilePath: "a.go", Language: "go", Kind: "function", Name: "F", Signature: "func F(...)", Hash: "h", IndexedAt: 1},
	}, nil))

	require.True(t, sched.recordExists("code_symbol:seeded"))
	require.False(t, sched.recordExists("code_symbol:missing"))
	require.False(t, sched.recordExists("memory_fact:missing"))
	require.True(t, sched.recordExists("session_summary:anything"))
	require.True(t, sched.recordExists("decision:anything"))
	require.True(t, sched.recordExists("document_chunk:anything"))
	require.True(t, sched.recordExists("unknown_kind:anything"))
	require.False(t, sched.recordExists("no-colon-at-all"))
}

func TestSweepOrphansRemovesDeadCodeSymbolPoints(t *testing.T) {
	sched, _, vec := testScheduler(t, nil)
	require.NoError(t, vec.EnsureCollection("code", 2))
	require.NoError(t, vec.Upsert("code", vectorstore.Point{ID: "code_symbol:missing", Vector: []float32{1, 0}}))

	sched.sweepOrphans()

	matches, err := vec.Search("code", []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestRunOnceSweepsExpiredContext(t *testing.T) {
	sched, db, _ := testScheduler(t, nil)
	require.NoError(t, db.SetContext(store.WorkContext{
		ProjectID: "proj", Key: "scratch", Value: "value", SetAt: 100, ExpiresAt: 500,
	}))

	sched.RunOnce(context.Background())

	_, err := db.GetContext("proj", "scratch", 1000)
	require.Equal(t, store.ErrNotFound, err)
}
