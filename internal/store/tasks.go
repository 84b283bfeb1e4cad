package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// Task mirrors spec §3 "Task". Mutable; status transitions monotonic toward done.
type Task struct {
	ID          string
	ParentID    string
	ProjectID   string
	Title       string
	Description string
	Status      string // open, in_progress, blocked, done
	Priority    string // low, med, high, crit
	Notes       string
	CreatedAt   int64
	UpdatedAt   int64
	CompletedAt int64 // 0 = unset
}

// statusRank orders statuses so transitions can be checked for monotonicity.
// open < {in_progress, blocked} < done. Lateral moves between in_progress
// and blocked are allowed; moving back to open, or moving away from done,
// is not.
var statusRank = map[string]int{
	"open":        0,
	"in_progress": 1,
	"blocked":     1,
	"done":        2,
}

// ErrInvalidStatusTransition signals a non-monotonic status change; callers
// surface this as rpc.InvalidParams.
var ErrInvalidStatusTransition = errors.New("invalid status transition")

// ValidStatusTransition reports whether moving from `from` to `to` respects
// the monotonic-toward-done invariant from spec §3/§8.
func ValidStatusTransition(from, to string) bool {
	fr, ok1 := statusRank[from]
	tr, ok2 := statusRank[to]
	if !ok1 || !ok2 {
		return false
	}
	if fr == 2 {
		return to == from // done is terminal
	}
	return tr >= fr
}

// InsertTask creates a new task.
func (db *DB) InsertTask(id string, t Task) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	var parentID any
	if t.ParentID != "" {
		parentID = t.ParentID
	}
	_, err := db.conn.Exec(
		`INSERT INTO tasks (id, parent_id, project_id, title, description, status, priority, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, parentID, t.ProjectID, t.Title, t.Description, t.Status, t.Priority, t.Notes, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return wrapInsertErr(err)
	}
	return nil
}

// GetTask fetches a task by id.
func (db *DB) GetTask(id string) (*Task, error) {
	var t Task
	var parentID, completedAt sql.NullString
	var completedAtN sql.NullInt64
	_ = parentID
	row := db.conn.QueryRow(
		`SELECT id, COALESCE(parent_id,''), project_id, title, description, status, priority, notes, created_at, updated_at, completed_at
		 FROM tasks WHERE id = ?`, id,
	)
	err := row.Scan(&t.ID, &t.ParentID, &t.ProjectID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.Notes, &t.CreatedAt, &t.UpdatedAt, &completedAtN)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	_ = completedAt
	if completedAtN.Valid {
		t.CompletedAt = completedAtN.Int64
	}
	return &t, nil
}

// ListTasks lists tasks for a project, optionally filtered by status.
func (db *DB) ListTasks(projectID, status string, limit int) ([]Task, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, COALESCE(parent_id,''), project_id, title, description, status, priority, notes, created_at, updated_at, completed_at
		FROM tasks WHERE (project_id = ? OR ? = '')`
	args := []any{projectID, projectID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		var t Task
		var completedAtN sql.NullInt64
		if err := rows.Scan(&t.ID, &t.ParentID, &t.ProjectID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.Notes, &t.CreatedAt, &t.UpdatedAt, &completedAtN); err != nil {
			return nil, err
		}
		if completedAtN.Valid {
			t.CompletedAt = completedAtN.Int64
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTaskStatus transitions a task's status, enforcing monotonicity.
// Returns ErrInvalidStatusTransition if the move is not forward-compatible.
func (db *DB) UpdateTaskStatus(id, newStatus string, updatedAt int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.withTx(func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRow(`SELECT status FROM tasks WHERE id = ?`, id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStorage, err)
		}
		if !ValidStatusTransition(current, newStatus) {
			return ErrInvalidStatusTransition
		}
		var completedAt any
		if newStatus == "done" {
			completedAt = updatedAt
		}
		_, err = tx.Exec(`UPDATE tasks SET status = ?, updated_at = ?, completed_at = COALESCE(?, completed_at) WHERE id = ?`,
			newStatus, updatedAt, completedAt, id)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStorage, err)
		}
		return nil
	})
}

// UpdateTaskFields updates the mutable non-status fields of a task.
func (db *DB) UpdateTaskFields(id string, title, description, priority, notes *string, updatedAt int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.withTx(func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRow(`SELECT 1 FROM tasks WHERE id = ?`, id).Scan(&exists); errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		} else if err != nil {
			return fmt.Errorf("%w: %v", ErrStorage, err)
		}
		if title != nil {
			if _, err := tx.Exec(`UPDATE tasks SET title = ? WHERE id = ?`, *title, id); err != nil {
				return err
			}
		}
		if description != nil {
			if _, err := tx.Exec(`UPDATE tasks SET description = ? WHERE id = ?`, *description, id); err != nil {
				return err
			}
		}
		if priority != nil {
			if _, err := tx.Exec(`UPDATE tasks SET priority = ? WHERE id = ?`, *priority, id); err != nil {
				return err
			}
		}
		if notes != nil {
			if _, err := tx.Exec(`UPDATE tasks SET notes = ? WHERE id = ?`, *notes, id); err != nil {
				return err
			}
		}
		_, err := tx.Exec(`UPDATE tasks SET updated_at = ? WHERE id = ?`, updatedAt, id)
		return err
	})
}

// DeleteTask removes a task by id.
func (db *DB) DeleteTask(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	res, err := db.conn.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
