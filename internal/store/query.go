package store

import (
	"fmt"
	"regexp"
	"strings"
)

// ErrQueryRejected is returned when raw_read_only_query is asked to run
// anything other than a single read-only statement.
var ErrQueryRejected = fmt.Errorf("query rejected: only a single SELECT, WITH, or EXPLAIN statement is permitted")

const maxQueryRows = 10000

var leadingKeyword = regexp.MustCompile(`(?is)^\s*(select|with|explain)\b`)

// isReadOnlyStatement rejects anything but a single leading SELECT/WITH/
// EXPLAIN statement, guarding against writes and statement stacking via
// semicolons, per spec §4.J raw_read_only_query.
func isReadOnlyStatement(query string) bool {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return false
	}
	if !leadingKeyword.MatchString(trimmed) {
		return false
	}
	body := strings.TrimRight(trimmed, ";")
	if strings.Contains(body, ";") {
		return false
	}
	return true
}

// Row is a generic result row from raw_read_only_query, keyed by column name.
type Row map[string]any

// RunReadOnlyQuery executes a single read-only SQL statement and returns at
// most maxQueryRows rows. The query is validated before execution and then
// runs inside a transaction that is always rolled back, as defense in depth.
func (db *DB) RunReadOnlyQuery(query string) ([]Row, error) {
	if !isReadOnlyStatement(query) {
		return nil, ErrQueryRejected
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []Row
	for rows.Next() {
		if len(out) >= maxQueryRows {
			break
		}
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		r := make(Row, len(cols))
		for i, c := range cols {
			r[c] = vals[i]
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListTables returns the names of user tables in the structured store,
// excluding sqlite-internal and FTS shadow tables.
func (db *DB) ListTables() ([]string, error) {
	rows, err := db.conn.Query(
		`SELECT name FROM sqlite_master
		 WHERE type = 'table'
		   AND name NOT LIKE 'sqlite_%'
		   AND name NOT LIKE '%_fts%'
		 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
