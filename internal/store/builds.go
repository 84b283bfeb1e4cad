package store

import (
	"fmt"
)

// BuildRun mirrors spec §3 "Build Run".
type BuildRun struct {
	RunID     string
	StartedAt int64
	EndedAt   int64
	Status    string
	Command   string
}

// BuildError mirrors spec §3 "Build Error".
type BuildError struct {
	ErrorID    string
	RunID      string
	Category   string
	Message    string
	File       string
	Line       int
	Resolved   bool
	ResolvedBy string
}

// InsertBuildRun records the start of a build run.
func (db *DB) InsertBuildRun(r BuildRun) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, err := db.conn.Exec(
		`INSERT INTO build_runs (run_id, started_at, status, command) VALUES (?, ?, ?, ?)`,
		r.RunID, r.StartedAt, r.Status, r.Command,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

// EndBuildRun marks a build run complete.
func (db *DB) EndBuildRun(runID string, endedAt int64, status string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	res, err := db.conn.Exec(`UPDATE build_runs SET ended_at = ?, status = ? WHERE run_id = ?`, endedAt, status, runID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertBuildError records an error surfaced during a build run.
func (db *DB) InsertBuildError(id string, e BuildError) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	var file, line any
	if e.File != "" {
		file = e.File
	}
	if e.Line != 0 {
		line = e.Line
	}
	_, err := db.conn.Exec(
		`INSERT INTO build_errors (error_id, run_id, category, message, file, line) VALUES (?, ?, ?, ?, ?, ?)`,
		id, e.RunID, e.Category, e.Message, file, line,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

// GetBuildErrors lists errors for a run, optionally filtering to unresolved only.
func (db *DB) GetBuildErrors(runID string, unresolvedOnly bool) ([]BuildError, error) {
	query := `SELECT error_id, run_id, category, message, COALESCE(file,''), COALESCE(line,0), resolved, COALESCE(resolved_by,'')
		FROM build_errors WHERE run_id = ?`
	if unresolvedOnly {
		query += ` AND resolved = 0`
	}
	rows, err := db.conn.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	defer rows.Close()
	var out []BuildError
	for rows.Next() {
		var e BuildError
		var resolved int
		if err := rows.Scan(&e.ErrorID, &e.RunID, &e.Category, &e.Message, &e.File, &e.Line, &resolved, &e.ResolvedBy); err != nil {
			return nil, err
		}
		e.Resolved = resolved != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

// ResolveBuildError marks an error resolved.
func (db *DB) ResolveBuildError(errorID, resolvedBy string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	res, err := db.conn.Exec(`UPDATE build_errors SET resolved = 1, resolved_by = ? WHERE error_id = ?`, resolvedBy, errorID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
