package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mira-dev/mira/internal/store"
)

func TestRecallLexicalOnlyFindsMatchingFact(t *testing.T) {
	db, err := store.OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	_, _, err = db.UpsertMemoryFact("f1", store.MemoryFact{
		ProjectID: "proj", Kind: "fact", Content: "the project uses bazel for builds",
		ContentHash: "h1", CreatedAt: 1000, Confidence: 0.5,
	})
	require.NoError(t, err)
	_, _, err = db.UpsertMemoryFact("f2", store.MemoryFact{
		ProjectID: "proj", Kind: "fact", Content: "deploys go through terraform",
		ContentHash: "h2", CreatedAt: 1000, Confidence: 0.5,
	})
	require.NoError(t, err)

	r := NewRecaller(db, nil, nil, func() int64 { return 2000 })
	results, err := r.Recall(context.Background(), Query{ProjectID: "proj", Text: "bazel", K: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "the project uses bazel for builds", results[0].Record.Content)
}

func TestRecallExcludesFlaggedFacts(t *testing.T) {
	db, err := store.OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	_, _, err = db.UpsertMemoryFact("f1", store.MemoryFact{
		ProjectID: "proj", Kind: "fact", Content: "bazel bazel bazel suspicious",
		ContentHash: "h1", CreatedAt: 1000, Confidence: 0.5, Flagged: true,
	})
	require.NoError(t, err)

	r := NewRecaller(db, nil, nil, func() int64 { return 2000 })
	results, err := r.Recall(context.Background(), Query{ProjectID: "proj", Text: "bazel", K: 10})
	require.NoError(t, err)
	require.Empty(t, results, "flagged facts must never surface in recall")
}

func TestRecallFiltersByKindAndCategory(t *testing.T) {
	db, err := store.OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	_, _, err = db.UpsertMemoryFact("f1", store.MemoryFact{
		ProjectID: "proj", Kind: "fact", Category: "build", Content: "uses bazel",
		ContentHash: "h1", CreatedAt: 1000, Confidence: 0.5,
	})
	require.NoError(t, err)
	_, _, err = db.UpsertMemoryFact("f2", store.MemoryFact{
		ProjectID: "proj", Kind: "preference", Category: "style", Content: "uses bazel too",
		ContentHash: "h2", CreatedAt: 1000, Confidence: 0.5,
	})
	require.NoError(t, err)

	r := NewRecaller(db, nil, nil, func() int64 { return 2000 })
	results, err := r.Recall(context.Background(), Query{ProjectID: "proj", Text: "bazel", K: 10, Kind: "fact"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "fact", results[0].Record.Kind)

	results, err = r.Recall(context.Background(), Query{ProjectID: "proj", Text: "bazel", K: 10, Category: "style"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "style", results[0].Record.Category)
}

func TestRecallDefaultsKWhenUnset(t *testing.T) {
	db, err := store.OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	for i := 0; i < 12; i++ {
		_, _, err = db.UpsertMemoryFact(string(rune('a'+i)), store.MemoryFact{
			ProjectID: "proj", Kind: "fact", Content: "bazel note number " + string(rune('a'+i)),
			ContentHash: string(rune('a' + i)), CreatedAt: 1000, Confidence: 0.5,
		})
		require.NoError(t, err)
	}

	r := NewRecaller(db, nil, nil, func() int64 { return 2000 })
	results, err := r.Recall(context.Background(), Query{ProjectID: "proj", Text: "bazel"})
	require.NoError(t, err)
	require.LessOrEqual(t, len(results), 10, "k defaults to 10 when unset")
}
