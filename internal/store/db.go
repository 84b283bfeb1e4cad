// Package store provides the SQLite-backed structured store (spec §4.A).
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// DB wraps a SQLite connection holding every durable Mira record.
// The vector store (internal/vectorstore) wraps this same *sql.DB (via
// Conn) rather than opening a handle of its own, per spec §4.B.
type DB struct {
	conn         *sql.DB
	mu           sync.Mutex // serializes writes, mirrors the teacher's single-writer discipline
	ftsAvailable bool
}

// Open opens or creates the database at path, applying pragmas tuned for a
// single-writer / many-reader embedded workload.
func Open(path string) (*DB, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create data dir: %v", ErrStorage, err)
		}
	}

	dsn := path
	if path != ":memory:" {
		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"
	}

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open db: %v", ErrStorage, err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: migrate: %v", ErrStorage, err)
	}
	return db, nil
}

// OpenMemory opens an in-memory database, used by tests.
func OpenMemory() (*DB, error) {
	return Open(":memory:")
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying *sql.DB for callers (vectorstore, the
// embedding cache, the SQL tools) that need to share the connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on any error or panic.
func (db *DB) withTx(fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", ErrStorage, err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()
	if err = fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrStorage, err)
	}
	return nil
}

func (db *DB) migrate() error {
	base := []string{
		`CREATE TABLE IF NOT EXISTS schema_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS memory_facts (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL DEFAULT '',
			kind TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			last_used_at INTEGER NOT NULL,
			confidence REAL NOT NULL DEFAULT 0.5,
			source TEXT NOT NULL DEFAULT '',
			flagged INTEGER NOT NULL DEFAULT 0,
			UNIQUE(project_id, kind, content_hash)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_memory_facts_project ON memory_facts(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_memory_facts_created ON memory_facts(created_at DESC)`,

		`CREATE TABLE IF NOT EXISTS session_summaries (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL DEFAULT '',
			started_at INTEGER NOT NULL,
			ended_at INTEGER NOT NULL,
			summary TEXT NOT NULL,
			content_hash TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_session_summaries_project ON session_summaries(project_id)`,

		`CREATE TABLE IF NOT EXISTS decisions (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			rationale TEXT NOT NULL,
			context TEXT NOT NULL DEFAULT '',
			content_hash TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			parent_id TEXT,
			project_id TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'open',
			priority TEXT NOT NULL DEFAULT 'med',
			notes TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			completed_at INTEGER,
			FOREIGN KEY(parent_id) REFERENCES tasks(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status)`,

		`CREATE TABLE IF NOT EXISTS code_symbols (
			id TEXT PRIMARY KEY,
			file_path TEXT NOT NULL,
			language TEXT NOT NULL,
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			signature TEXT NOT NULL DEFAULT '',
			start_line INTEGER NOT NULL,
			end_line INTEGER NOT NULL,
			hash TEXT NOT NULL,
			indexed_at INTEGER NOT NULL,
			UNIQUE(file_path, name, kind, start_line)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_code_symbols_file ON code_symbols(file_path)`,
		`CREATE INDEX IF NOT EXISTS idx_code_symbols_name ON code_symbols(name)`,

		`CREATE TABLE IF NOT EXISTS call_edges (
			caller_symbol_id TEXT NOT NULL,
			callee_symbol_id TEXT NOT NULL,
			file_path TEXT NOT NULL,
			line INTEGER NOT NULL,
			PRIMARY KEY (caller_symbol_id, callee_symbol_id, line)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_call_edges_caller ON call_edges(caller_symbol_id)`,
		`CREATE INDEX IF NOT EXISTS idx_call_edges_callee ON call_edges(callee_symbol_id)`,

		`CREATE TABLE IF NOT EXISTS cochange_counters (
			file_a TEXT NOT NULL,
			file_b TEXT NOT NULL,
			commits_together INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (file_a, file_b)
		)`,

		`CREATE TABLE IF NOT EXISTS file_commit_counts (
			file_path TEXT PRIMARY KEY,
			commit_count INTEGER NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS author_file_stats (
			author TEXT NOT NULL,
			file_path TEXT NOT NULL,
			commit_count INTEGER NOT NULL DEFAULT 0,
			lines_changed INTEGER NOT NULL DEFAULT 0,
			last_commit_at INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (author, file_path)
		)`,

		`CREATE TABLE IF NOT EXISTS historical_fixes (
			id TEXT PRIMARY KEY,
			error_signature TEXT NOT NULL,
			fix_commit_sha TEXT NOT NULL,
			files_touched TEXT NOT NULL DEFAULT '[]',
			description TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_historical_fixes_sig ON historical_fixes(error_signature)`,

		`CREATE TABLE IF NOT EXISTS build_runs (
			run_id TEXT PRIMARY KEY,
			started_at INTEGER NOT NULL,
			ended_at INTEGER,
			status TEXT NOT NULL DEFAULT 'running',
			command TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS build_errors (
			error_id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			message TEXT NOT NULL,
			file TEXT,
			line INTEGER,
			resolved INTEGER NOT NULL DEFAULT 0,
			resolved_by TEXT,
			FOREIGN KEY(run_id) REFERENCES build_runs(run_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_build_errors_run ON build_errors(run_id)`,

		`CREATE TABLE IF NOT EXISTS document_chunks (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL DEFAULT '',
			path TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			content TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			frontmatter TEXT NOT NULL DEFAULT '',
			indexed_at INTEGER NOT NULL,
			flagged INTEGER NOT NULL DEFAULT 0,
			UNIQUE(project_id, path, chunk_index, content_hash)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_document_chunks_project_path ON document_chunks(project_id, path)`,

		`CREATE TABLE IF NOT EXISTS git_commits (
			sha TEXT PRIMARY KEY,
			author TEXT NOT NULL,
			message TEXT NOT NULL,
			committed_at INTEGER NOT NULL,
			files TEXT NOT NULL DEFAULT '[]'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_git_commits_committed_at ON git_commits(committed_at DESC)`,

		`CREATE TABLE IF NOT EXISTS pending_embeddings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			record_kind TEXT NOT NULL,
			record_id TEXT NOT NULL,
			collection TEXT NOT NULL DEFAULT '',
			text TEXT NOT NULL,
			enqueued_at INTEGER NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			last_error TEXT NOT NULL DEFAULT '',
			UNIQUE(record_kind, record_id)
		)`,

		`CREATE TABLE IF NOT EXISTS project_guidelines (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_project_guidelines_project ON project_guidelines(project_id)`,

		`CREATE TABLE IF NOT EXISTS work_context (
			project_id TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			set_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (project_id, key)
		)`,

		`CREATE TABLE IF NOT EXISTS activity_log (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL DEFAULT '',
			kind TEXT NOT NULL,
			summary TEXT NOT NULL DEFAULT '',
			occurred_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_log_project_ts ON activity_log(project_id, occurred_at DESC)`,
	}

	for _, stmt := range base {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, stmt)
		}
	}

	currentVersion := db.SchemaVersion()
	versioned := []struct {
		version int
		fn      func() error
	}{
		{1, db.migrateV1},
	}
	for _, m := range versioned {
		if currentVersion < m.version {
			if err := m.fn(); err != nil {
				return fmt.Errorf("migration v%d: %w", m.version, err)
			}
			if err := db.SetMeta("schema_version", strconv.Itoa(m.version)); err != nil {
				return fmt.Errorf("record migration v%d: %w", m.version, err)
			}
		}
	}

	return nil
}

// migrateV1 creates the FTS5 virtual table over memory_facts. The lexical
// search functions in this package use LIKE and do not query it.
// FTS5 may be unavailable on some SQLite builds; failure here is non-fatal,
// matching the teacher's best-effort FTS migration.
func (db *DB) migrateV1() error {
	_, err := db.conn.Exec(`CREATE VIRTUAL TABLE IF NOT EXISTS memory_facts_fts USING fts5(
		content, category,
		content=memory_facts, content_rowid=rowid
	)`)
	if err != nil {
		db.ftsAvailable = false
		return nil
	}
	db.ftsAvailable = true
	return nil
}

// FTSAvailable reports whether the FTS5 module loaded successfully.
func (db *DB) FTSAvailable() bool { return db.ftsAvailable }

// SchemaVersion returns the current schema version (0 if unset).
func (db *DB) SchemaVersion() int {
	v, ok := db.GetMeta("schema_version")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

// GetMeta reads a key from schema_meta.
func (db *DB) GetMeta(key string) (string, bool) {
	var value string
	err := db.conn.QueryRow(`SELECT value FROM schema_meta WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", false
	}
	return value, true
}

// SetMeta upserts a key in schema_meta.
func (db *DB) SetMeta(key, value string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, err := db.conn.Exec(
		`INSERT INTO schema_meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// IntegrityCheck runs PRAGMA integrity_check.
func (db *DB) IntegrityCheck() error {
	var result string
	if err := db.conn.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("%w: integrity check: %v", ErrStorage, err)
	}
	if result != "ok" {
		return fmt.Errorf("%w: integrity check failed: %s", ErrStorage, result)
	}
	return nil
}
