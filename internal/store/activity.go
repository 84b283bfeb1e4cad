package store

import "fmt"

// ActivityEntry mirrors spec §3 "Activity Log Entry".
type ActivityEntry struct {
	ID        string
	ProjectID string
	Kind      string
	Summary   string
	OccurredAt int64
}

// RecordActivity appends an entry to the activity log. The log is
// append-only; there is no dedup or update path.
func (db *DB) RecordActivity(id string, e ActivityEntry) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, err := db.conn.Exec(
		`INSERT INTO activity_log (id, project_id, kind, summary, occurred_at) VALUES (?, ?, ?, ?, ?)`,
		id, e.ProjectID, e.Kind, e.Summary, e.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

// GetRecentActivity returns the most recent entries for a project, newest
// first, capped at limit.
func (db *DB) GetRecentActivity(projectID string, limit int) ([]ActivityEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := db.conn.Query(
		`SELECT id, project_id, kind, summary, occurred_at FROM activity_log
		 WHERE project_id = ? ORDER BY occurred_at DESC LIMIT ?`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	defer rows.Close()
	var out []ActivityEntry
	for rows.Next() {
		var e ActivityEntry
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.Kind, &e.Summary, &e.OccurredAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
