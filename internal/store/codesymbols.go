package store

import (
	"database/sql"
	"fmt"
)

// CodeSymbol mirrors spec §3 "Code Symbol".
type CodeSymbol struct {
	ID        string
	FilePath  string
	Language  string
	Kind      string // function, struct, class, enum, trait, interface, method
	Name      string
	Signature string
	StartLine int
	EndLine   int
	Hash      string
	IndexedAt int64
}

// CallEdge mirrors spec §3 "Call Edge".
type CallEdge struct {
	CallerSymbolID string
	CalleeSymbolID string
	FilePath       string
	Line           int
}

// FileIndexedHash returns the content hash recorded for a file at its last
// index time, used by codeintel.IndexPath to decide whether to skip a file.
func (db *DB) FileIndexedHash(filePath string) (string, bool) {
	var hash string
	err := db.conn.QueryRow(`SELECT hash FROM code_symbols WHERE file_path = ? LIMIT 1`, filePath).Scan(&hash)
	if err != nil {
		return "", false
	}
	return hash, true
}

// ReplaceFileSymbols deletes all symbols+edges for a file and inserts the
// given replacement set transactionally, per spec §4.F index_path.
func (db *DB) ReplaceFileSymbols(filePath string, symbols []CodeSymbol, edges []CallEdge) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM call_edges WHERE file_path = ?`, filePath); err != nil {
			return fmt.Errorf("%w: %v", ErrStorage, err)
		}
		if _, err := tx.Exec(`DELETE FROM code_symbols WHERE file_path = ?`, filePath); err != nil {
			return fmt.Errorf("%w: %v", ErrStorage, err)
		}
		stmt, err := tx.Prepare(
			`INSERT INTO code_symbols (id, file_path, language, kind, name, signature, start_line, end_line, hash, indexed_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStorage, err)
		}
		defer stmt.Close()
		for _, s := range symbols {
			if _, err := stmt.Exec(s.ID, s.FilePath, s.Language, s.Kind, s.Name, s.Signature, s.StartLine, s.EndLine, s.Hash, s.IndexedAt); err != nil {
				return fmt.Errorf("%w: %v", ErrStorage, err)
			}
		}
		edgeStmt, err := tx.Prepare(
			`INSERT OR IGNORE INTO call_edges (caller_symbol_id, callee_symbol_id, file_path, line) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStorage, err)
		}
		defer edgeStmt.Close()
		for _, e := range edges {
			if _, err := edgeStmt.Exec(e.CallerSymbolID, e.CalleeSymbolID, e.FilePath, e.Line); err != nil {
				return fmt.Errorf("%w: %v", ErrStorage, err)
			}
		}
		return nil
	})
}

// GetSymbolsForFile returns all symbols indexed for a file.
func (db *DB) GetSymbolsForFile(filePath string) ([]CodeSymbol, error) {
	rows, err := db.conn.Query(
		`SELECT id, file_path, language, kind, name, signature, start_line, end_line, hash, indexed_at
		 FROM code_symbols WHERE file_path = ? ORDER BY start_line`, filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	defer rows.Close()

	var out []CodeSymbol
	for rows.Next() {
		var s CodeSymbol
		if err := rows.Scan(&s.ID, &s.FilePath, &s.Language, &s.Kind, &s.Name, &s.Signature, &s.StartLine, &s.EndLine, &s.Hash, &s.IndexedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetSymbolByID fetches a single symbol.
func (db *DB) GetSymbolByID(id string) (*CodeSymbol, error) {
	var s CodeSymbol
	err := db.conn.QueryRow(
		`SELECT id, file_path, language, kind, name, signature, start_line, end_line, hash, indexed_at
		 FROM code_symbols WHERE id = ?`, id,
	).Scan(&s.ID, &s.FilePath, &s.Language, &s.Kind, &s.Name, &s.Signature, &s.StartLine, &s.EndLine, &s.Hash, &s.IndexedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return &s, nil
}

// FindSymbolByName resolves a symbol id from a free-text name, used by
// get_call_graph which takes a symbol name rather than an id.
func (db *DB) FindSymbolByName(name string) (*CodeSymbol, error) {
	var s CodeSymbol
	err := db.conn.QueryRow(
		`SELECT id, file_path, language, kind, name, signature, start_line, end_line, hash, indexed_at
		 FROM code_symbols WHERE name = ? LIMIT 1`, name,
	).Scan(&s.ID, &s.FilePath, &s.Language, &s.Kind, &s.Name, &s.Signature, &s.StartLine, &s.EndLine, &s.Hash, &s.IndexedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return &s, nil
}

// OutboundEdges returns callees of a symbol.
func (db *DB) OutboundEdges(symbolID string) ([]CallEdge, error) {
	return db.queryEdges(`SELECT caller_symbol_id, callee_symbol_id, file_path, line FROM call_edges WHERE caller_symbol_id = ?`, symbolID)
}

// InboundEdges returns callers of a symbol.
func (db *DB) InboundEdges(symbolID string) ([]CallEdge, error) {
	return db.queryEdges(`SELECT caller_symbol_id, callee_symbol_id, file_path, line FROM call_edges WHERE callee_symbol_id = ?`, symbolID)
}

func (db *DB) queryEdges(query, symbolID string) ([]CallEdge, error) {
	rows, err := db.conn.Query(query, symbolID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	defer rows.Close()
	var out []CallEdge
	for rows.Next() {
		var e CallEdge
		if err := rows.Scan(&e.CallerSymbolID, &e.CalleeSymbolID, &e.FilePath, &e.Line); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SearchSymbolsLexical matches name/signature substrings, used as the
// semantic_code_search fallback when embeddings are unavailable.
func (db *DB) SearchSymbolsLexical(query string, limit int) ([]CodeSymbol, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(
		`SELECT id, file_path, language, kind, name, signature, start_line, end_line, hash, indexed_at
		 FROM code_symbols WHERE name LIKE ? OR signature LIKE ? ORDER BY indexed_at DESC LIMIT ?`,
		like, like, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	defer rows.Close()
	var out []CodeSymbol
	for rows.Next() {
		var s CodeSymbol
		if err := rows.Scan(&s.ID, &s.FilePath, &s.Language, &s.Kind, &s.Name, &s.Signature, &s.StartLine, &s.EndLine, &s.Hash, &s.IndexedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
