package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordActivityAndGetRecentActivityOrdersNewestFirst(t *testing.T) {
	db, err := OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.RecordActivity("a1", ActivityEntry{ProjectID: "proj", Kind: "commit", Summary: "first", OccurredAt: 100}))
	require.NoError(t, db.RecordActivity("a2", ActivityEntry{ProjectID: "proj", Kind: "commit", Summary: "second", OccurredAt: 200}))
	require.NoError(t, db.RecordActivity("a3", ActivityEntry{ProjectID: "other", Kind: "commit", Summary: "other project", OccurredAt: 300}))

	entries, err := db.GetRecentActivity("proj", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "a2", entries[0].ID)
	require.Equal(t, "a1", entries[1].ID)
}

func TestGetRecentActivityClampsOutOfRangeLimit(t *testing.T) {
	db, err := OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	for i := 0; i < 3; i++ {
		require.NoError(t, db.RecordActivity(string(rune('a'+i)), ActivityEntry{ProjectID: "proj", Kind: "k", Summary: "s", OccurredAt: int64(i)}))
	}

	entries, err := db.GetRecentActivity("proj", 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	entries, err = db.GetRecentActivity("proj", 10000)
	require.NoError(t, err)
	require.Len(t, entries, 3)
}
