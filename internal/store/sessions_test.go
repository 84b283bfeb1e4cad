package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInsertSessionSummaryDedupesOnProjectAndContentHash(t *testing.T) {
	db, err := OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	s := SessionSummary{ProjectID: "proj", StartedAt: 100, EndedAt: 200, Summary: "fixed the bug", ContentHash: "h1"}
	id1, inserted1, err := db.InsertSessionSummary("s1", s)
	require.NoError(t, err)
	require.True(t, inserted1)
	require.Equal(t, "s1", id1)

	id2, inserted2, err := db.InsertSessionSummary("s2", s)
	require.NoError(t, err)
	require.False(t, inserted2)
	require.Equal(t, "s1", id2, "same project + content hash resolves to the original row")

	other := s
	other.ProjectID = "other-proj"
	id3, inserted3, err := db.InsertSessionSummary("s3", other)
	require.NoError(t, err)
	require.True(t, inserted3, "the same content hash under a different project is a distinct row")
	require.Equal(t, "s3", id3)
}

func TestSearchSessionsLexicalMatchesSubstringAndOrdersNewestFirst(t *testing.T) {
	db, err := OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	_, _, err = db.InsertSessionSummary("s1", SessionSummary{ProjectID: "proj", StartedAt: 100, EndedAt: 100, Summary: "implemented auth flow", ContentHash: "h1"})
	require.NoError(t, err)
	_, _, err = db.InsertSessionSummary("s2", SessionSummary{ProjectID: "proj", StartedAt: 200, EndedAt: 200, Summary: "fixed auth regression", ContentHash: "h2"})
	require.NoError(t, err)
	_, _, err = db.InsertSessionSummary("s3", SessionSummary{ProjectID: "proj", StartedAt: 300, EndedAt: 300, Summary: "unrelated cleanup", ContentHash: "h3"})
	require.NoError(t, err)

	results, err := db.SearchSessionsLexical("auth", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "s2", results[0].ID)
	require.Equal(t, "s1", results[1].ID)
}
