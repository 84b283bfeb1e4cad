package store

import (
	"fmt"
)

// PendingEmbedding mirrors spec §4.D step 4's retry queue: a record whose
// embed step failed is enqueued here instead of failing the whole ingest.
type PendingEmbedding struct {
	ID          int64
	RecordKind  string // memory_fact, session_summary, decision, document_chunk, code_symbol, historical_fix
	RecordID    string
	Collection  string
	Text        string
	EnqueuedAt  int64
	Attempts    int
	LastError   string
}

// EnqueuePendingEmbedding adds a record to the retry queue at most once per
// (record_kind, record_id): a repeat failure bumps attempts/last_error
// rather than stacking duplicate rows.
func (db *DB) EnqueuePendingEmbedding(p PendingEmbedding) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, err := db.conn.Exec(
		`INSERT INTO pending_embeddings (record_kind, record_id, collection, text, enqueued_at, attempts, last_error)
		 VALUES (?, ?, ?, ?, ?, 1, ?)
		 ON CONFLICT(record_kind, record_id) DO UPDATE SET
			attempts = attempts + 1,
			last_error = excluded.last_error,
			text = excluded.text`,
		p.RecordKind, p.RecordID, p.Collection, p.Text, p.EnqueuedAt, p.LastError,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

// DrainPendingEmbeddings returns up to limit queued records for the
// maintenance loop to retry, oldest first.
func (db *DB) DrainPendingEmbeddings(limit int) ([]PendingEmbedding, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.Query(
		`SELECT id, record_kind, record_id, collection, text, enqueued_at, attempts, COALESCE(last_error,'')
		 FROM pending_embeddings ORDER BY enqueued_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	defer rows.Close()
	var out []PendingEmbedding
	for rows.Next() {
		var p PendingEmbedding
		if err := rows.Scan(&p.ID, &p.RecordKind, &p.RecordID, &p.Collection, &p.Text, &p.EnqueuedAt, &p.Attempts, &p.LastError); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ResolvePendingEmbedding removes a record from the queue once its embedding
// has been successfully produced and upserted.
func (db *DB) ResolvePendingEmbedding(id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, err := db.conn.Exec(`DELETE FROM pending_embeddings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}
