package store

import (
	"database/sql"
	"fmt"
)

// DocumentChunk mirrors spec §3 "Document Chunk".
type DocumentChunk struct {
	ID          string
	ProjectID   string
	Path        string
	ChunkIndex  int
	Content     string
	ContentHash string
	Frontmatter string // JSON-encoded, may be empty
	IndexedAt   int64
	Flagged     bool
}

// UpsertDocumentChunk dedupes on (project_id, path, chunk_index, content_hash)
// and, unlike memory facts, bumps nothing on a hit. A chunk whose content
// changed at the same index is inserted as a new row; earlier rows for that
// path and index are not removed.
func (db *DB) UpsertDocumentChunk(id string, d DocumentChunk) (string, bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var existingID string
	err := db.withTx(func(tx *sql.Tx) error {
		row := tx.QueryRow(
			`SELECT id FROM document_chunks WHERE project_id = ? AND path = ? AND chunk_index = ? AND content_hash = ?`,
			d.ProjectID, d.Path, d.ChunkIndex, d.ContentHash,
		)
		scanErr := row.Scan(&existingID)
		if scanErr == nil {
			return nil
		}
		if scanErr != sql.ErrNoRows {
			return fmt.Errorf("%w: %v", ErrStorage, scanErr)
		}
		_, insErr := tx.Exec(
			`INSERT INTO document_chunks (id, project_id, path, chunk_index, content, content_hash, frontmatter, indexed_at, flagged)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, d.ProjectID, d.Path, d.ChunkIndex, d.Content, d.ContentHash, d.Frontmatter, d.IndexedAt, d.Flagged,
		)
		if insErr != nil {
			return fmt.Errorf("%w: %v", ErrStorage, insErr)
		}
		existingID = id
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return existingID, existingID == id, nil
}

// ListDocuments returns the distinct document paths ingested for a project.
func (db *DB) ListDocuments(projectID string) ([]string, error) {
	rows, err := db.conn.Query(
		`SELECT DISTINCT path FROM document_chunks WHERE project_id = ? ORDER BY path`, projectID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetDocument returns all chunks of a document in chunk order.
func (db *DB) GetDocument(projectID, path string) ([]DocumentChunk, error) {
	rows, err := db.conn.Query(
		`SELECT id, project_id, path, chunk_index, content, content_hash, COALESCE(frontmatter,''), indexed_at, flagged
		 FROM document_chunks WHERE project_id = ? AND path = ? ORDER BY chunk_index`, projectID, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	defer rows.Close()
	var out []DocumentChunk
	for rows.Next() {
		var d DocumentChunk
		var flagged int
		if err := rows.Scan(&d.ID, &d.ProjectID, &d.Path, &d.ChunkIndex, &d.Content, &d.ContentHash, &d.Frontmatter, &d.IndexedAt, &flagged); err != nil {
			return nil, err
		}
		d.Flagged = flagged != 0
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, rows.Err()
}

// SearchDocumentsLexical is the lexical fallback for search_documents.
func (db *DB) SearchDocumentsLexical(projectID, query string, limit int) ([]DocumentChunk, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(
		`SELECT id, project_id, path, chunk_index, content, content_hash, COALESCE(frontmatter,''), indexed_at, flagged
		 FROM document_chunks WHERE project_id = ? AND content LIKE ? ORDER BY indexed_at DESC LIMIT ?`,
		projectID, like, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	defer rows.Close()
	var out []DocumentChunk
	for rows.Next() {
		var d DocumentChunk
		var flagged int
		if err := rows.Scan(&d.ID, &d.ProjectID, &d.Path, &d.ChunkIndex, &d.Content, &d.ContentHash, &d.Frontmatter, &d.IndexedAt, &flagged); err != nil {
			return nil, err
		}
		d.Flagged = flagged != 0
		out = append(out, d)
	}
	return out, rows.Err()
}
