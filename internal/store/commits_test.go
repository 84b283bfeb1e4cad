package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInsertGitCommitAndCommitIndexed(t *testing.T) {
	db, err := OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	require.False(t, db.CommitIndexed("sha1"))
	require.Empty(t, db.LatestIndexedCommit())

	tx, err := db.BeginTx()
	require.NoError(t, err)
	require.NoError(t, db.InsertGitCommit(tx, GitCommit{SHA: "sha1", Author: "alice", Message: "init", CommittedAt: 100, FilesJSON: `["a.go"]`}))
	require.NoError(t, tx.Commit())

	require.True(t, db.CommitIndexed("sha1"))
	require.Equal(t, "sha1", db.LatestIndexedCommit())
}

func TestInsertGitCommitDuplicateShaIsNoOp(t *testing.T) {
	db, err := OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	tx, err := db.BeginTx()
	require.NoError(t, err)
	require.NoError(t, db.InsertGitCommit(tx, GitCommit{SHA: "sha1", Author: "alice", Message: "init", CommittedAt: 100, FilesJSON: `[]`}))
	require.NoError(t, db.InsertGitCommit(tx, GitCommit{SHA: "sha1", Author: "bob", Message: "repeat", CommittedAt: 200, FilesJSON: `[]`}))
	require.NoError(t, tx.Commit())

	require.Equal(t, "sha1", db.LatestIndexedCommit())
}

func TestLatestIndexedCommitReturnsMostRecentByTime(t *testing.T) {
	db, err := OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	tx, err := db.BeginTx()
	require.NoError(t, err)
	require.NoError(t, db.InsertGitCommit(tx, GitCommit{SHA: "older", Author: "a", Message: "m1", CommittedAt: 100, FilesJSON: `[]`}))
	require.NoError(t, db.InsertGitCommit(tx, GitCommit{SHA: "newer", Author: "a", Message: "m2", CommittedAt: 300, FilesJSON: `[]`}))
	require.NoError(t, tx.Commit())

	require.Equal(t, "newer", db.LatestIndexedCommit())
}
