package store

import (
	"database/sql"
	"fmt"
)

// ProjectGuideline mirrors spec §3 "Project Guideline".
type ProjectGuideline struct {
	ID        string
	ProjectID string
	Category  string
	Content   string
	CreatedAt int64
}

// WorkContext mirrors spec §3 "Work Context" — a TTL-bound key/value slot
// used by set_context/get_context, expired lazily by maintenance.
type WorkContext struct {
	ProjectID string
	Key       string
	Value     string
	SetAt     int64
	ExpiresAt int64 // 0 means no expiry
}

// AddGuideline inserts a project guideline. No dedup is specified; repeated
// guidance under the same category simply accumulates.
func (db *DB) AddGuideline(id string, g ProjectGuideline) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, err := db.conn.Exec(
		`INSERT INTO project_guidelines (id, project_id, category, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, g.ProjectID, g.Category, g.Content, g.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

// GetGuidelines returns guidelines for a project, optionally filtered by
// category.
func (db *DB) GetGuidelines(projectID, category string) ([]ProjectGuideline, error) {
	query := `SELECT id, project_id, category, content, created_at FROM project_guidelines WHERE project_id = ?`
	args := []any{projectID}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY created_at DESC`
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	defer rows.Close()
	var out []ProjectGuideline
	for rows.Next() {
		var g ProjectGuideline
		if err := rows.Scan(&g.ID, &g.ProjectID, &g.Category, &g.Content, &g.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// SetContext upserts a work-context key for a project, replacing both value
// and expiry on every call per spec §4.E set_context semantics.
func (db *DB) SetContext(c WorkContext) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, err := db.conn.Exec(
		`INSERT INTO work_context (project_id, key, value, set_at, expires_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(project_id, key) DO UPDATE SET value = excluded.value, set_at = excluded.set_at, expires_at = excluded.expires_at`,
		c.ProjectID, c.Key, c.Value, c.SetAt, c.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

// GetContext returns a context value, reporting ErrNotFound if absent or
// expired (expiry is checked lazily on read rather than write-swept).
func (db *DB) GetContext(projectID, key string, nowUnix int64) (*WorkContext, error) {
	var c WorkContext
	err := db.conn.QueryRow(
		`SELECT project_id, key, value, set_at, expires_at FROM work_context WHERE project_id = ? AND key = ?`,
		projectID, key,
	).Scan(&c.ProjectID, &c.Key, &c.Value, &c.SetAt, &c.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if c.ExpiresAt != 0 && nowUnix > c.ExpiresAt {
		return nil, ErrNotFound
	}
	return &c, nil
}

// ListContext returns all non-expired context entries for a project.
func (db *DB) ListContext(projectID string, nowUnix int64) ([]WorkContext, error) {
	rows, err := db.conn.Query(
		`SELECT project_id, key, value, set_at, expires_at FROM work_context WHERE project_id = ?`, projectID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	defer rows.Close()
	var out []WorkContext
	for rows.Next() {
		var c WorkContext
		if err := rows.Scan(&c.ProjectID, &c.Key, &c.Value, &c.SetAt, &c.ExpiresAt); err != nil {
			return nil, err
		}
		if c.ExpiresAt != 0 && nowUnix > c.ExpiresAt {
			continue
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SweepExpiredContext deletes context entries past their TTL, called
// periodically by maintenance.
func (db *DB) SweepExpiredContext(nowUnix int64) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	res, err := db.conn.Exec(`DELETE FROM work_context WHERE expires_at != 0 AND expires_at < ?`, nowUnix)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
