package store

import (
	"database/sql"
	"fmt"
	"math"
)

// AuthorExpertise mirrors spec §3 "Author Expertise" derived view.
type AuthorExpertise struct {
	Author string
	File   string
	Score  float64
}

const expertiseRecencyTau = 90.0 // days, per spec §3

// RecordCommitAuthorStats accumulates per-(file, author) commit count and
// lines changed, called transactionally alongside the commit insert.
func (db *DB) RecordCommitAuthorStats(tx *sql.Tx, author, file string, linesChanged int, commitAt int64) error {
	_, err := tx.Exec(
		`INSERT INTO author_file_stats (author, file_path, commit_count, lines_changed, last_commit_at)
		 VALUES (?, ?, 1, ?, ?)
		 ON CONFLICT(author, file_path) DO UPDATE SET
			commit_count = commit_count + 1,
			lines_changed = lines_changed + excluded.lines_changed,
			last_commit_at = MAX(last_commit_at, excluded.last_commit_at)`,
		author, file, linesChanged, commitAt,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

// ExpertiseForFile computes author expertise scores for a file per spec §3:
// score = 0.40*norm(commits) + 0.30*norm(lines) + 0.30*recency, with
// recency = exp(-age_days/tau). norm(commits)/norm(lines) are each author's
// share of the file's total commits/lines so those two components sum to
// 1 across authors; the final score is then rescaled down (never up) so
// Sigma_author score <= 1.0, satisfying the normalization invariant in
// spec §8 even though the per-author recency term is unnormalized.
func (db *DB) ExpertiseForFile(file string, nowUnix int64) ([]AuthorExpertise, error) {
	rows, err := db.conn.Query(
		`SELECT author, commit_count, lines_changed, last_commit_at FROM author_file_stats WHERE file_path = ?`,
		file,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	defer rows.Close()

	type raw struct {
		author       string
		commits      int
		lines        int
		lastCommitAt int64
	}
	var rs []raw
	totalCommits, totalLines := 0, 0
	for rows.Next() {
		var r raw
		if err := rows.Scan(&r.author, &r.commits, &r.lines, &r.lastCommitAt); err != nil {
			return nil, err
		}
		totalCommits += r.commits
		totalLines += r.lines
		rs = append(rs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	raws := make([]float64, len(rs))
	var sumRaw float64
	for i, r := range rs {
		normCommits := normalize(r.commits, totalCommits)
		normLines := normalize(r.lines, totalLines)
		ageDays := float64(nowUnix-r.lastCommitAt) / 86400.0
		if ageDays < 0 {
			ageDays = 0
		}
		recency := math.Exp(-ageDays / expertiseRecencyTau)
		raws[i] = 0.40*normCommits + 0.30*normLines + 0.30*recency
		sumRaw += raws[i]
	}

	scale := 1.0
	if sumRaw > 1.0 {
		scale = 1.0 / sumRaw
	}

	out := make([]AuthorExpertise, 0, len(rs))
	for i, r := range rs {
		out = append(out, AuthorExpertise{Author: r.author, File: file, Score: raws[i] * scale})
	}
	return out, nil
}

func normalize(v, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(v) / float64(total)
}
