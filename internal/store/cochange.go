package store

import (
	"database/sql"
	"fmt"
)

// CochangePattern mirrors spec §3 "Co-change Pattern". Confidence is the
// Jaccard similarity of the commit sets touching each file, recomputed
// lazily from counters on read (spec §4.G) to avoid write amplification.
type CochangePattern struct {
	FileA            string
	FileB            string
	CommitsTogether  int
	CommitsAOnly     int
	CommitsBOnly     int
	Confidence       float64
}

// orderedPair returns (a, b) with a < b, per spec §3's "file_a < file_b" key.
func orderedPair(x, y string) (string, string) {
	if x < y {
		return x, y
	}
	return y, x
}

// RecordCochangeCommit updates co-change counters for every unordered pair of
// files in a single commit's file list, plus each file's total commit count,
// per spec §4.G. Must be called within the same transaction as the commit
// insert by the caller (gitintel) to keep derived tables consistent.
func (db *DB) RecordCochangeCommit(tx *sql.Tx, files []string) error {
	unique := dedupeStrings(files)
	for _, f := range unique {
		if _, err := tx.Exec(
			`INSERT INTO file_commit_counts (file_path, commit_count) VALUES (?, 1)
			 ON CONFLICT(file_path) DO UPDATE SET commit_count = commit_count + 1`, f,
		); err != nil {
			return fmt.Errorf("%w: %v", ErrStorage, err)
		}
	}
	for i := 0; i < len(unique); i++ {
		for j := i + 1; j < len(unique); j++ {
			a, b := orderedPair(unique[i], unique[j])
			if _, err := tx.Exec(
				`INSERT INTO cochange_counters (file_a, file_b, commits_together) VALUES (?, ?, 1)
				 ON CONFLICT(file_a, file_b) DO UPDATE SET commits_together = commits_together + 1`,
				a, b,
			); err != nil {
				return fmt.Errorf("%w: %v", ErrStorage, err)
			}
		}
	}
	return nil
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// CochangeFor returns patterns involving the given file, with confidence
// computed lazily at read time: commits_a_only/commits_b_only are derived
// from each file's total commit count minus the pair's shared count,
// so no extra write-path bookkeeping is needed as new pairs appear.
func (db *DB) CochangeFor(file string, minConfidence float64) ([]CochangePattern, error) {
	rows, err := db.conn.Query(
		`SELECT file_a, file_b, commits_together FROM cochange_counters WHERE file_a = ? OR file_b = ?`,
		file, file,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	defer rows.Close()

	type row struct {
		a, b    string
		together int
	}
	var rs []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.a, &r.b, &r.together); err != nil {
			return nil, err
		}
		rs = append(rs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	totals := make(map[string]int)
	for _, r := range rs {
		if _, ok := totals[r.a]; !ok {
			totals[r.a] = db.fileCommitCount(r.a)
		}
		if _, ok := totals[r.b]; !ok {
			totals[r.b] = db.fileCommitCount(r.b)
		}
	}

	var out []CochangePattern
	for _, r := range rs {
		aOnly := totals[r.a] - r.together
		bOnly := totals[r.b] - r.together
		if aOnly < 0 {
			aOnly = 0
		}
		if bOnly < 0 {
			bOnly = 0
		}
		denom := r.together + aOnly + bOnly
		var conf float64
		if denom > 0 {
			conf = float64(r.together) / float64(denom)
		}
		if conf < minConfidence {
			continue
		}
		out = append(out, CochangePattern{
			FileA: r.a, FileB: r.b,
			CommitsTogether: r.together, CommitsAOnly: aOnly, CommitsBOnly: bOnly,
			Confidence: conf,
		})
	}
	return out, nil
}

func (db *DB) fileCommitCount(file string) int {
	var n int
	_ = db.conn.QueryRow(`SELECT commit_count FROM file_commit_counts WHERE file_path = ?`, file).Scan(&n)
	return n
}
