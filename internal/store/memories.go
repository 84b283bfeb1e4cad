package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// confidenceBump is the fixed per-dedupe-hit confidence increment from
// spec §4.D step 2, applied independent of the incoming write's own
// confidence value.
const confidenceBump = 0.1

// MemoryFact mirrors spec §3 "Memory Fact".
type MemoryFact struct {
	ID         string
	ProjectID  string
	Kind       string // fact, decision, preference, note
	Category   string
	Content    string
	ContentHash string
	CreatedAt  int64
	LastUsedAt int64
	Confidence float64
	Source     string
	Flagged    bool
}

// UpsertMemoryFact implements the dedupe rule from spec §4.D step 2: a row
// with the same (project_id, kind, content_hash) bumps confidence instead of
// inserting a duplicate. Returns the resolved id and whether a new row was
// inserted.
func (db *DB) UpsertMemoryFact(id string, m MemoryFact) (resolvedID string, inserted bool, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	err = db.withTx(func(tx *sql.Tx) error {
		var existingID string
		var existingConfidence float64
		scanErr := tx.QueryRow(
			`SELECT id, confidence FROM memory_facts WHERE project_id = ? AND kind = ? AND content_hash = ?`,
			m.ProjectID, m.Kind, m.ContentHash,
		).Scan(&existingID, &existingConfidence)

		if scanErr == nil {
			// Fixed per-hit bump per spec §4.D step 2: min(0.1, 1-confidence),
			// independent of whatever confidence value rides on this write.
			bump := confidenceBump
			if headroom := 1 - existingConfidence; headroom < bump {
				bump = headroom
			}
			newConfidence := existingConfidence + bump
			if newConfidence > 1.0 {
				newConfidence = 1.0
			}
			_, execErr := tx.Exec(
				`UPDATE memory_facts SET confidence = ?, last_used_at = ? WHERE id = ?`,
				newConfidence, m.LastUsedAt, existingID,
			)
			if execErr != nil {
				return execErr
			}
			resolvedID = existingID
			inserted = false
			return nil
		}
		if !errors.Is(scanErr, sql.ErrNoRows) {
			return scanErr
		}

		flagged := 0
		if m.Flagged {
			flagged = 1
		}
		_, execErr := tx.Exec(
			`INSERT INTO memory_facts (id, project_id, kind, category, content, content_hash, created_at, last_used_at, confidence, source, flagged)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, m.ProjectID, m.Kind, m.Category, m.Content, m.ContentHash, m.CreatedAt, m.LastUsedAt, m.Confidence, m.Source, flagged,
		)
		if execErr != nil {
			return fmt.Errorf("%w: %v", ErrStorage, execErr)
		}
		resolvedID = id
		inserted = true
		return nil
	})
	return resolvedID, inserted, err
}

// GetMemoryFact fetches a fact by id.
func (db *DB) GetMemoryFact(id string) (*MemoryFact, error) {
	var m MemoryFact
	var flagged int
	err := db.conn.QueryRow(
		`SELECT id, project_id, kind, category, content, content_hash, created_at, last_used_at, confidence, source, flagged
		 FROM memory_facts WHERE id = ?`, id,
	).Scan(&m.ID, &m.ProjectID, &m.Kind, &m.Category, &m.Content, &m.ContentHash, &m.CreatedAt, &m.LastUsedAt, &m.Confidence, &m.Source, &flagged)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	m.Flagged = flagged != 0
	return &m, nil
}

// DeleteMemoryFact removes a fact by id. Returns ErrNotFound if it does not exist.
func (db *DB) DeleteMemoryFact(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	res, err := db.conn.Exec(`DELETE FROM memory_facts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListMemoryFacts returns facts for a project, most recent first, capped at limit.
func (db *DB) ListMemoryFacts(projectID string, limit int) ([]MemoryFact, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.Query(
		`SELECT id, project_id, kind, category, content, content_hash, created_at, last_used_at, confidence, source, flagged
		 FROM memory_facts WHERE project_id = ? ORDER BY created_at DESC LIMIT ?`,
		projectID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	defer rows.Close()

	var out []MemoryFact
	for rows.Next() {
		var m MemoryFact
		var flagged int
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.Kind, &m.Category, &m.Content, &m.ContentHash, &m.CreatedAt, &m.LastUsedAt, &m.Confidence, &m.Source, &flagged); err != nil {
			return nil, err
		}
		m.Flagged = flagged != 0
		out = append(out, m)
	}
	return out, rows.Err()
}

// SearchMemoryFactsLexical performs substring/token lexical search over
// content, used by the retrieval ranker's lexical fallback path (spec §4.E).
func (db *DB) SearchMemoryFactsLexical(projectID, query string, limit int) ([]MemoryFact, error) {
	if limit <= 0 {
		limit = 30
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(
		`SELECT id, project_id, kind, category, content, content_hash, created_at, last_used_at, confidence, source, flagged
		 FROM memory_facts
		 WHERE (project_id = ? OR ? = '') AND content LIKE ?
		 ORDER BY created_at DESC LIMIT ?`,
		projectID, projectID, like, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	defer rows.Close()

	var out []MemoryFact
	for rows.Next() {
		var m MemoryFact
		var flagged int
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.Kind, &m.Category, &m.Content, &m.ContentHash, &m.CreatedAt, &m.LastUsedAt, &m.Confidence, &m.Source, &flagged); err != nil {
			return nil, err
		}
		m.Flagged = flagged != 0
		out = append(out, m)
	}
	return out, rows.Err()
}
