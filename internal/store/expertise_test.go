package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpertiseForFileSingleAuthorFullScoreAtZeroAge(t *testing.T) {
	db, err := OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	tx, err := db.BeginTx()
	require.NoError(t, err)
	require.NoError(t, db.RecordCommitAuthorStats(tx, "alice", "a.go", 50, 1000))
	require.NoError(t, tx.Commit())

	scores, err := db.ExpertiseForFile("a.go", 1000)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	require.Equal(t, "alice", scores[0].Author)
	require.InDelta(t, 1.0, scores[0].Score, 0.0001)
}

func TestExpertiseForFileSplitsAndRescalesAcrossAuthors(t *testing.T) {
	db, err := OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	tx, err := db.BeginTx()
	require.NoError(t, err)
	require.NoError(t, db.RecordCommitAuthorStats(tx, "alice", "a.go", 80, 1000))
	require.NoError(t, db.RecordCommitAuthorStats(tx, "bob", "a.go", 20, 1000))
	require.NoError(t, tx.Commit())

	scores, err := db.ExpertiseForFile("a.go", 1000)
	require.NoError(t, err)
	require.Len(t, scores, 2)

	byAuthor := map[string]float64{}
	var sum float64
	for _, s := range scores {
		byAuthor[s.Author] = s.Score
		sum += s.Score
	}
	require.InDelta(t, 0.56923, byAuthor["alice"], 0.001)
	require.InDelta(t, 0.43077, byAuthor["bob"], 0.001)
	require.LessOrEqual(t, sum, 1.0001, "scores must never sum above 1.0")
	require.Greater(t, byAuthor["alice"], byAuthor["bob"], "the author with more commits and lines should score higher")
}

func TestRecordCommitAuthorStatsAccumulatesAndTracksMostRecentCommit(t *testing.T) {
	db, err := OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	tx, err := db.BeginTx()
	require.NoError(t, err)
	require.NoError(t, db.RecordCommitAuthorStats(tx, "alice", "a.go", 10, -1_000_000))
	require.NoError(t, db.RecordCommitAuthorStats(tx, "alice", "a.go", 5, 100))
	require.NoError(t, tx.Commit())

	scores, err := db.ExpertiseForFile("a.go", 100)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	// last_commit_at must track the MAX of the two stats calls (100, not the
	// much older -1000000), so at nowUnix=100 the recency term is ~1 and the
	// lone author's score is the full 1.0, not decayed toward zero.
	require.InDelta(t, 1.0, scores[0].Score, 0.0001)
}

func TestExpertiseForFileUnknownFileReturnsEmpty(t *testing.T) {
	db, err := OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	scores, err := db.ExpertiseForFile("missing.go", 1000)
	require.NoError(t, err)
	require.Empty(t, scores)
}
