package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// SessionSummary mirrors spec §3 "Session Summary". Immutable after write.
type SessionSummary struct {
	ID          string
	ProjectID   string
	StartedAt   int64
	EndedAt     int64
	Summary     string
	ContentHash string
}

// InsertSessionSummary writes an immutable session summary row, deduping on
// (project_id, content_hash) per the ingestion pipeline's dedup rule.
func (db *DB) InsertSessionSummary(id string, s SessionSummary) (resolvedID string, inserted bool, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var existing string
	scanErr := db.conn.QueryRow(
		`SELECT id FROM session_summaries WHERE project_id = ? AND content_hash = ?`,
		s.ProjectID, s.ContentHash,
	).Scan(&existing)
	if scanErr == nil {
		return existing, false, nil
	}
	if !errors.Is(scanErr, sql.ErrNoRows) {
		return "", false, fmt.Errorf("%w: %v", ErrStorage, scanErr)
	}

	_, err = db.conn.Exec(
		`INSERT INTO session_summaries (id, project_id, started_at, ended_at, summary, content_hash) VALUES (?, ?, ?, ?, ?, ?)`,
		id, s.ProjectID, s.StartedAt, s.EndedAt, s.Summary, s.ContentHash,
	)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return id, true, nil
}

// SearchSessionsLexical searches session summaries by substring match.
func (db *DB) SearchSessionsLexical(query string, limit int) ([]SessionSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(
		`SELECT id, project_id, started_at, ended_at, summary, content_hash FROM session_summaries
		 WHERE summary LIKE ? ORDER BY started_at DESC LIMIT ?`,
		"%"+query+"%", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var s SessionSummary
		if err := rows.Scan(&s.ID, &s.ProjectID, &s.StartedAt, &s.EndedAt, &s.Summary, &s.ContentHash); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
