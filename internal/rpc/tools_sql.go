package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mira-dev/mira/internal/store"
)

// RegisterSQLTools wires list_tables/query onto reg. query runs a single
// read-only statement against the structured store; any attempt to write
// through it is rejected as ReadOnlyViolation per spec §7.
func RegisterSQLTools(reg *Registry, db *store.DB) {
	reg.Register(Tool{
		Name:        "list_tables",
		Description: "List the structured store's user tables with row counts. Use this to orient yourself before writing a query.\n\nReturns table names and row counts.",
		Annotations: ReadOnly,
		Schema:      obj(map[string]any{}),
		Handler: func(ctx context.Context, raw json.RawMessage) (any, *Error) {
			names, err := db.ListTables()
			if err != nil {
				return nil, storageErr(err.Error())
			}
			type tableInfo struct {
				Name     string `json:"name"`
				RowCount int64  `json:"row_count"`
			}
			out := make([]tableInfo, 0, len(names))
			for _, n := range names {
				var count int64
				row := db.Conn().QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %q", n))
				if err := row.Scan(&count); err != nil {
					return nil, storageErr(err.Error())
				}
				out = append(out, tableInfo{Name: n, RowCount: count})
			}
			return map[string]any{"tables": out}, nil
		},
	})

	reg.Register(Tool{
		Name:        "query",
		Description: "Run a single read-only SQL statement (SELECT, WITH, or EXPLAIN) against the structured store, capped at 10,000 rows. Any write attempt is rejected.\n\nArgs:\n  sql: the statement to run\n\nReturns columns and rows.",
		Annotations: ReadOnly,
		Schema:      obj(map[string]any{"sql": str("A single SELECT/WITH/EXPLAIN statement")}, "sql"),
		Handler: func(ctx context.Context, raw json.RawMessage) (any, *Error) {
			p, perr := decodeParams[struct {
				SQL string `json:"sql"`
			}](raw)
			if perr != nil {
				return nil, perr
			}
			if err := requireString("sql", p.SQL); err != nil {
				return nil, err
			}
			rows, err := db.RunReadOnlyQuery(p.SQL)
			if err == store.ErrQueryRejected {
				return nil, readOnlyViolation(err.Error())
			}
			if err != nil {
				return nil, storageErr(err.Error())
			}
			var columns []string
			if len(rows) > 0 {
				for c := range rows[0] {
					columns = append(columns, c)
				}
			}
			outRows := make([][]any, 0, len(rows))
			for _, r := range rows {
				row := make([]any, len(columns))
				for i, c := range columns {
					row[i] = r[c]
				}
				outRows = append(outRows, row)
			}
			return map[string]any{"columns": columns, "rows": outRows}, nil
		},
	})
}
