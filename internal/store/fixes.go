package store

import "fmt"

// HistoricalFix mirrors spec §3 "Historical Fix".
type HistoricalFix struct {
	ID             string
	ErrorSignature string
	FixCommitSHA   string
	FilesTouched   []string // JSON-encoded in storage
	Description    string
	CreatedAt      int64
}

// InsertHistoricalFix records a fix. No dedup is specified for this entity
// in spec §3/§4.G, so every call inserts a new row (record_error_fix is not
// described as idempotent).
func (db *DB) InsertHistoricalFix(id string, f HistoricalFix, filesJSON string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, err := db.conn.Exec(
		`INSERT INTO historical_fixes (id, error_signature, fix_commit_sha, files_touched, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, f.ErrorSignature, f.FixCommitSHA, filesJSON, f.Description, f.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

// historicalFixRow is the raw row shape scanned from historical_fixes.
type historicalFixRow struct {
	ID             string
	ErrorSignature string
	FixCommitSHA   string
	FilesTouchedJSON string
	Description    string
	CreatedAt      int64
}

// FindExactFixBySignature returns the most recent fix whose normalized
// error_signature matches exactly, used to short-circuit semantic search
// per spec §4.G find_similar_fixes.
func (db *DB) FindExactFixBySignature(signature string) (*historicalFixRow, error) {
	var r historicalFixRow
	err := db.conn.QueryRow(
		`SELECT id, error_signature, fix_commit_sha, files_touched, description, created_at
		 FROM historical_fixes WHERE error_signature = ? ORDER BY created_at DESC LIMIT 1`,
		signature,
	).Scan(&r.ID, &r.ErrorSignature, &r.FixCommitSHA, &r.FilesTouchedJSON, &r.Description, &r.CreatedAt)
	if err != nil {
		return nil, ErrNotFound
	}
	return &r, nil
}

// GetHistoricalFixByID fetches a single fix by id, used to resolve a
// semantic vector hit back to its full record.
func (db *DB) GetHistoricalFixByID(id string) (*historicalFixRow, error) {
	var r historicalFixRow
	err := db.conn.QueryRow(
		`SELECT id, error_signature, fix_commit_sha, files_touched, description, created_at
		 FROM historical_fixes WHERE id = ?`, id,
	).Scan(&r.ID, &r.ErrorSignature, &r.FixCommitSHA, &r.FilesTouchedJSON, &r.Description, &r.CreatedAt)
	if err != nil {
		return nil, ErrNotFound
	}
	return &r, nil
}

// ListHistoricalFixes returns all fix rows, used to build/refresh the fixes
// vector collection and for lexical fallback search.
func (db *DB) ListHistoricalFixes(limit int) ([]historicalFixRow, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := db.conn.Query(
		`SELECT id, error_signature, fix_commit_sha, files_touched, description, created_at
		 FROM historical_fixes ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	defer rows.Close()
	var out []historicalFixRow
	for rows.Next() {
		var r historicalFixRow
		if err := rows.Scan(&r.ID, &r.ErrorSignature, &r.FixCommitSHA, &r.FilesTouchedJSON, &r.Description, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ToHistoricalFix converts the raw row into the public type, decoding the
// JSON files_touched array.
func (r *historicalFixRow) ToHistoricalFix(decodeFiles func(string) []string) HistoricalFix {
	return HistoricalFix{
		ID:             r.ID,
		ErrorSignature: r.ErrorSignature,
		FixCommitSHA:   r.FixCommitSHA,
		FilesTouched:   decodeFiles(r.FilesTouchedJSON),
		Description:    r.Description,
		CreatedAt:      r.CreatedAt,
	}
}
