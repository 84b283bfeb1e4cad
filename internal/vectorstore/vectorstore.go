// Package vectorstore implements the vector store client contract (spec
// §4.B) on top of sqlite-vec vec0 virtual tables, sharing the structured
// store's SQLite connection rather than talking to a separate process.
package vectorstore

import (
	"bytes"
	"database/sql"
	"encoding/binary"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrCollectionMismatch is returned when a collection already exists with a
// different vector dimension than the one requested.
var ErrCollectionMismatch = fmt.Errorf("vectorstore: collection dimension mismatch")

// ErrNotFound is returned when a point id does not exist in a collection.
var ErrNotFound = fmt.Errorf("vectorstore: point not found")

// Point is a single embedded record in a collection.
type Point struct {
	ID       string // "{kind}:{record_id}", per spec §4.B point naming
	Vector   []float32
	Metadata map[string]string
}

// Match is a search hit with its similarity score (1 - cosine distance).
type Match struct {
	Point
	Score float64
}

// Store manages named vec0 collections over a shared SQLite connection.
type Store struct {
	conn *sql.DB
	mu   sync.Mutex
	dims map[string]int
}

// Open wraps an existing *sql.DB (typically store.DB.Conn()) for vector
// operations. It does not own the connection's lifecycle.
func Open(conn *sql.DB) *Store {
	return &Store{conn: conn, dims: make(map[string]int)}
}

func tableName(collection string) string {
	return "vec_" + collection
}

func metaTable(collection string) string {
	return "vec_" + collection + "_meta"
}

// EnsureCollection creates the named collection's vec0 table if absent. If
// it already exists with a different dimension, returns
// ErrCollectionMismatch rather than silently dropping data, per spec §4.B.
func (s *Store) EnsureCollection(collection string, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.dims[collection]; ok {
		if existing != dim {
			return ErrCollectionMismatch
		}
		return nil
	}

	tbl := tableName(collection)
	stmt := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec0(embedding float[%d])`,
		tbl, dim,
	)
	if _, err := s.conn.Exec(stmt); err != nil {
		return fmt.Errorf("vectorstore: create collection %s: %w", collection, err)
	}

	metaStmt := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (
			rowid INTEGER PRIMARY KEY,
			point_id TEXT NOT NULL UNIQUE,
			metadata TEXT NOT NULL DEFAULT ''
		)`, metaTable(collection),
	)
	if _, err := s.conn.Exec(metaStmt); err != nil {
		return fmt.Errorf("vectorstore: create collection metadata %s: %w", collection, err)
	}

	// Record the dimension actually in effect for existing tables too, by
	// probing an already-created vec0 table's declared schema is not
	// straightforward, so a fresh process simply trusts the first caller.
	s.dims[collection] = dim
	return nil
}

// Upsert inserts or replaces a point in a collection. The collection must
// already have been created with EnsureCollection.
func (s *Store) Upsert(collection string, p Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tbl := tableName(collection)
	meta := metaTable(collection)

	var rowid int64
	err := s.conn.QueryRow(fmt.Sprintf(`SELECT rowid FROM %s WHERE point_id = ?`, meta), p.ID).Scan(&rowid)
	blob := encodeVector(p.Vector)
	metaJSON := encodeMetadata(p.Metadata)

	if err == sql.ErrNoRows {
		res, insErr := s.conn.Exec(fmt.Sprintf(`INSERT INTO %s (embedding) VALUES (?)`, tbl), blob)
		if insErr != nil {
			return fmt.Errorf("vectorstore: insert into %s: %w", collection, insErr)
		}
		newRowid, _ := res.LastInsertId()
		if _, mErr := s.conn.Exec(
			fmt.Sprintf(`INSERT INTO %s (rowid, point_id, metadata) VALUES (?, ?, ?)`, meta),
			newRowid, p.ID, metaJSON,
		); mErr != nil {
			return fmt.Errorf("vectorstore: insert metadata into %s: %w", collection, mErr)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("vectorstore: lookup %s: %w", collection, err)
	}

	if _, err := s.conn.Exec(fmt.Sprintf(`UPDATE %s SET embedding = ? WHERE rowid = ?`, tbl), blob, rowid); err != nil {
		return fmt.Errorf("vectorstore: update %s: %w", collection, err)
	}
	if _, err := s.conn.Exec(fmt.Sprintf(`UPDATE %s SET metadata = ? WHERE rowid = ?`, meta), metaJSON, rowid); err != nil {
		return fmt.Errorf("vectorstore: update metadata %s: %w", collection, err)
	}
	return nil
}

// Delete removes a point from a collection. Deleting a point that does not
// exist is a no-op, mirroring idempotent deletes elsewhere in the store.
func (s *Store) Delete(collection, pointID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tbl := tableName(collection)
	meta := metaTable(collection)

	var rowid int64
	err := s.conn.QueryRow(fmt.Sprintf(`SELECT rowid FROM %s WHERE point_id = ?`, meta), pointID).Scan(&rowid)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("vectorstore: lookup for delete %s: %w", collection, err)
	}
	if _, err := s.conn.Exec(fmt.Sprintf(`DELETE FROM %s WHERE rowid = ?`, tbl), rowid); err != nil {
		return fmt.Errorf("vectorstore: delete from %s: %w", collection, err)
	}
	if _, err := s.conn.Exec(fmt.Sprintf(`DELETE FROM %s WHERE rowid = ?`, meta), rowid); err != nil {
		return fmt.Errorf("vectorstore: delete metadata from %s: %w", collection, err)
	}
	return nil
}

// Search returns the top-k nearest neighbors by cosine distance.
func (s *Store) Search(collection string, query []float32, k int) ([]Match, error) {
	if k <= 0 {
		k = 10
	}
	tbl := tableName(collection)
	meta := metaTable(collection)
	blob := encodeVector(query)

	rows, err := s.conn.Query(
		fmt.Sprintf(
			`SELECT m.point_id, m.metadata, v.embedding, vec_distance_cosine(v.embedding, ?) AS dist
			 FROM %s v JOIN %s m ON m.rowid = v.rowid
			 ORDER BY dist ASC LIMIT ?`, tbl, meta,
		),
		blob, k,
	)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: search %s: %w", collection, err)
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		var pointID, metaJSON string
		var embBlob []byte
		var dist float64
		if err := rows.Scan(&pointID, &metaJSON, &embBlob, &dist); err != nil {
			return nil, err
		}
		out = append(out, Match{
			Point: Point{
				ID:       pointID,
				Vector:   decodeVector(embBlob),
				Metadata: decodeMetadata(metaJSON),
			},
			Score: 1 - dist,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, rows.Err()
}

// OrphanSweep deletes points whose record no longer exists in the
// structured store, per spec §4.I maintenance. exists reports whether a
// given point id still has a backing row.
func (s *Store) OrphanSweep(collection string, exists func(pointID string) bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta := metaTable(collection)
	rows, err := s.conn.Query(fmt.Sprintf(`SELECT rowid, point_id FROM %s`, meta))
	if err != nil {
		return 0, fmt.Errorf("vectorstore: orphan scan %s: %w", collection, err)
	}
	type victim struct {
		rowid int64
		id    string
	}
	var victims []victim
	for rows.Next() {
		var v victim
		if err := rows.Scan(&v.rowid, &v.id); err != nil {
			rows.Close()
			return 0, err
		}
		if !exists(v.id) {
			victims = append(victims, v)
		}
	}
	rows.Close()

	tbl := tableName(collection)
	for _, v := range victims {
		if _, err := s.conn.Exec(fmt.Sprintf(`DELETE FROM %s WHERE rowid = ?`, tbl), v.rowid); err != nil {
			return 0, err
		}
		if _, err := s.conn.Exec(fmt.Sprintf(`DELETE FROM %s WHERE rowid = ?`, meta), v.rowid); err != nil {
			return 0, err
		}
	}
	return len(victims), nil
}

func encodeVector(v []float32) []byte {
	buf := &bytes.Buffer{}
	_ = binary.Write(buf, binary.LittleEndian, v)
	return buf.Bytes()
}

func decodeVector(b []byte) []float32 {
	n := len(b) / 4
	out := make([]float32, n)
	_ = binary.Read(bytes.NewReader(b), binary.LittleEndian, &out)
	return out
}

// encodeMetadata/decodeMetadata use a flat key=value\n encoding rather than
// JSON since the metadata here is always a small flat string map (kind,
// project_id, path) used only for post-filtering, not arbitrary payloads.
func encodeMetadata(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(strings.ReplaceAll(m[k], "\n", " "))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func decodeMetadata(s string) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.Split(s, "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		out[parts[0]] = parts[1]
	}
	return out
}
