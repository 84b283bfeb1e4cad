package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// Decision mirrors spec §3 "Decision". Immutable; embedded.
type Decision struct {
	ID          string
	Title       string
	Rationale   string
	Context     string
	ContentHash string
	CreatedAt   int64
}

// InsertDecision writes a decision, deduping on content_hash globally
// (decisions carry no project scoping in spec §3).
func (db *DB) InsertDecision(id string, d Decision) (resolvedID string, inserted bool, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var existing string
	scanErr := db.conn.QueryRow(`SELECT id FROM decisions WHERE content_hash = ?`, d.ContentHash).Scan(&existing)
	if scanErr == nil {
		return existing, false, nil
	}
	if !errors.Is(scanErr, sql.ErrNoRows) {
		return "", false, fmt.Errorf("%w: %v", ErrStorage, scanErr)
	}

	_, err = db.conn.Exec(
		`INSERT INTO decisions (id, title, rationale, context, content_hash, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, d.Title, d.Rationale, d.Context, d.ContentHash, d.CreatedAt,
	)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return id, true, nil
}

// SearchDecisionsLexical searches decisions by substring match on title+rationale.
func (db *DB) SearchDecisionsLexical(query string, limit int) ([]Decision, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(
		`SELECT id, title, rationale, context, content_hash, created_at FROM decisions
		 WHERE title LIKE ? OR rationale LIKE ? ORDER BY created_at DESC LIMIT ?`,
		like, like, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		var d Decision
		if err := rows.Scan(&d.ID, &d.Title, &d.Rationale, &d.Context, &d.ContentHash, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
