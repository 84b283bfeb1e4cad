package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mira-dev/mira/internal/store"
)

// testStore opens a fresh in-memory structured store (which loads the
// sqlite-vec extension via its package init) and wraps its connection in a
// vectorstore.Store, mirroring how cmd/mira shares one *sql.DB between them.
func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return Open(db.Conn())
}

func TestEnsureCollectionCreatesThenRejectsDimensionMismatch(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.EnsureCollection("memory", 4))
	require.NoError(t, s.EnsureCollection("memory", 4), "re-ensuring with the same dim is a no-op")

	err := s.EnsureCollection("memory", 8)
	require.ErrorIs(t, err, ErrCollectionMismatch)
}

func TestUpsertThenSearchReturnsNearestByScoreDescending(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.EnsureCollection("memory", 3))

	require.NoError(t, s.Upsert("memory", Point{ID: "memory_fact:1", Vector: []float32{1, 0, 0}, Metadata: map[string]string{"kind": "fact"}}))
	require.NoError(t, s.Upsert("memory", Point{ID: "memory_fact:2", Vector: []float32{0, 1, 0}}))
	require.NoError(t, s.Upsert("memory", Point{ID: "memory_fact:3", Vector: []float32{-1, 0, 0}}))

	matches, err := s.Search("memory", []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	require.Equal(t, "memory_fact:1", matches[0].ID)
	require.Equal(t, "fact", matches[0].Metadata["kind"])
	require.InDelta(t, 1.0, matches[0].Score, 0.001)
	require.Equal(t, "memory_fact:3", matches[len(matches)-1].ID)
	require.True(t, matches[0].Score >= matches[1].Score && matches[1].Score >= matches[2].Score)
}

func TestUpsertOverwritesExistingPoint(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.EnsureCollection("memory", 2))

	require.NoError(t, s.Upsert("memory", Point{ID: "p1", Vector: []float32{1, 0}}))
	require.NoError(t, s.Upsert("memory", Point{ID: "p1", Vector: []float32{0, 1}, Metadata: map[string]string{"kind": "updated"}}))

	matches, err := s.Search("memory", []float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "updated", matches[0].Metadata["kind"])
}

func TestDeleteRemovesPointAndIsIdempotent(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.EnsureCollection("memory", 2))
	require.NoError(t, s.Upsert("memory", Point{ID: "p1", Vector: []float32{1, 0}}))

	require.NoError(t, s.Delete("memory", "p1"))
	require.NoError(t, s.Delete("memory", "p1"), "deleting an absent point is a no-op")

	matches, err := s.Search("memory", []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestOrphanSweepRemovesPointsWhoseRecordIsGone(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.EnsureCollection("memory", 2))
	require.NoError(t, s.Upsert("memory", Point{ID: "keep", Vector: []float32{1, 0}}))
	require.NoError(t, s.Upsert("memory", Point{ID: "orphan", Vector: []float32{0, 1}}))

	exists := func(id string) bool { return id == "keep" }
	n, err := s.OrphanSweep("memory", exists)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	matches, err := s.Search("memory", []float32{0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "keep", matches[0].ID)
}

func TestEncodeDecodeMetadataRoundTrips(t *testing.T) {
	in := map[string]string{"kind": "fact", "project_id": "proj-1"}
	out := decodeMetadata(encodeMetadata(in))
	require.Equal(t, in, out)
}

func TestEncodeDecodeVectorRoundTrips(t *testing.T) {
	in := []float32{0.5, -1.25, 3}
	out := decodeVector(encodeVector(in))
	require.Equal(t, in, out)
}
