package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCochangeForComputesJaccardConfidence(t *testing.T) {
	db, err := OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	commits := [][]string{
		{"a.go", "b.go"},
		{"a.go", "b.go"},
		{"a.go", "c.go"},
		{"a.go"},
	}
	for _, files := range commits {
		tx, err := db.conn.Begin()
		require.NoError(t, err)
		require.NoError(t, db.RecordCochangeCommit(tx, files))
		require.NoError(t, tx.Commit())
	}

	patterns, err := db.CochangeFor("a.go", 0)
	require.NoError(t, err)
	require.Len(t, patterns, 2)

	byOther := make(map[string]CochangePattern)
	for _, p := range patterns {
		other := p.FileA
		if other == "a.go" {
			other = p.FileB
		}
		byOther[other] = p
	}

	ab := byOther["b.go"]
	require.Equal(t, 2, ab.CommitsTogether)
	require.Equal(t, 2, ab.CommitsAOnly) // a.go alone in the other 2 commits
	require.Equal(t, 0, ab.CommitsBOnly)
	require.InDelta(t, 0.5, ab.Confidence, 0.001)

	filtered, err := db.CochangeFor("a.go", 0.9)
	require.NoError(t, err)
	require.Empty(t, filtered)
}
