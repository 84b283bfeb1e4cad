package store

import (
	"database/sql"
	"fmt"
)

// GitCommit mirrors spec §3 "Git Commit" — the indexed record of a commit
// already walked by gitintel, distinct from the derived cochange/expertise
// counters it feeds.
type GitCommit struct {
	SHA       string
	Author    string
	Message   string
	CommittedAt int64
	FilesJSON string // JSON-encoded list of touched file paths
}

// InsertGitCommit records a commit; SHA is globally unique so a repeat
// indexing run (e.g. after a restart) is a no-op rather than an error.
func (db *DB) InsertGitCommit(tx *sql.Tx, c GitCommit) error {
	_, err := tx.Exec(
		`INSERT INTO git_commits (sha, author, message, committed_at, files) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(sha) DO NOTHING`,
		c.SHA, c.Author, c.Message, c.CommittedAt, c.FilesJSON,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

// CommitIndexed reports whether a commit SHA has already been walked, used
// by gitintel to resume indexing from where it last left off.
func (db *DB) CommitIndexed(sha string) bool {
	var exists int
	_ = db.conn.QueryRow(`SELECT 1 FROM git_commits WHERE sha = ?`, sha).Scan(&exists)
	return exists == 1
}

// LatestIndexedCommit returns the most recently indexed commit SHA, or
// empty string if none has been indexed yet.
func (db *DB) LatestIndexedCommit() string {
	var sha string
	_ = db.conn.QueryRow(`SELECT sha FROM git_commits ORDER BY committed_at DESC LIMIT 1`).Scan(&sha)
	return sha
}

// BeginTx exposes a raw transaction for gitintel's commit-walk, which needs
// to interleave InsertGitCommit with RecordCochangeCommit and
// RecordCommitAuthorStats in a single atomic unit per commit.
func (db *DB) BeginTx() (*sql.Tx, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Begin()
}
