package rpc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/mira-dev/mira/internal/store"
)

// RegisterTaskTools wires create_task/list_tasks/get_task/update_task/
// complete_task/delete_task onto reg.
func RegisterTaskTools(reg *Registry, db *store.DB, now func() int64) {
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}

	reg.Register(Tool{
		Name:        "create_task",
		Description: "Create a task.\n\nArgs:\n  title: short title\n  description: optional detail\n  parent_id: optional parent task id\n  project_id: optional\n  priority: low, med, high, or crit (default med)\n\nReturns the task id.",
		Annotations: WriteNonIdempotent,
		Schema: obj(map[string]any{
			"title":       str("Short title"),
			"description": str("Optional detail"),
			"parent_id":   str("Optional parent task id"),
			"project_id":  str("Optional project id"),
			"priority":    str("low, med, high, or crit (default med)"),
		}, "title"),
		Handler: func(ctx context.Context, raw json.RawMessage) (any, *Error) {
			p, perr := decodeParams[struct {
				Title       string `json:"title"`
				Description string `json:"description"`
				ParentID    string `json:"parent_id"`
				ProjectID   string `json:"project_id"`
				Priority    string `json:"priority"`
			}](raw)
			if perr != nil {
				return nil, perr
			}
			if err := requireString("title", p.Title); err != nil {
				return nil, err
			}
			priority := p.Priority
			if priority == "" {
				priority = "med"
			}
			ts := now()
			id := uuid.NewString()
			t := store.Task{
				ID: id, ParentID: p.ParentID, ProjectID: p.ProjectID, Title: p.Title,
				Description: p.Description, Status: "open", Priority: priority,
				CreatedAt: ts, UpdatedAt: ts,
			}
			if err := db.InsertTask(id, t); err == store.ErrUniqueViolation {
				return nil, conflict("task id collision, retry")
			} else if err != nil {
				return nil, storageErr(err.Error())
			}
			return map[string]any{"id": id}, nil
		},
	})

	reg.Register(Tool{
		Name:        "list_tasks",
		Description: "List tasks, optionally filtered by project and status.\n\nArgs:\n  project_id: optional\n  status: optional (open, in_progress, blocked, done)\n  limit: max results (default 100)\n\nReturns the matching tasks.",
		Annotations: ReadOnly,
		Schema: obj(map[string]any{
			"project_id": str("Optional project id filter"),
			"status":     str("Optional status filter"),
			"limit":      integer("Max results (default 100)"),
		}),
		Handler: func(ctx context.Context, raw json.RawMessage) (any, *Error) {
			p, perr := decodeParams[struct {
				ProjectID string `json:"project_id"`
				Status    string `json:"status"`
				Limit     int    `json:"limit"`
			}](raw)
			if perr != nil {
				return nil, perr
			}
			tasks, err := db.ListTasks(p.ProjectID, p.Status, p.Limit)
			if err != nil {
				return nil, storageErr(err.Error())
			}
			return map[string]any{"tasks": tasks}, nil
		},
	})

	reg.Register(Tool{
		Name:        "get_task",
		Description: "Fetch a task by id.\n\nArgs:\n  id: task id\n\nReturns the task.",
		Annotations: ReadOnly,
		Schema:      obj(map[string]any{"id": str("Task id")}, "id"),
		Handler: func(ctx context.Context, raw json.RawMessage) (any, *Error) {
			p, perr := decodeParams[struct {
				ID string `json:"id"`
			}](raw)
			if perr != nil {
				return nil, perr
			}
			if err := requireString("id", p.ID); err != nil {
				return nil, err
			}
			t, err := db.GetTask(p.ID)
			if err == store.ErrNotFound {
				return nil, notFound("task not found: " + p.ID)
			}
			if err != nil {
				return nil, storageErr(err.Error())
			}
			return t, nil
		},
	})

	reg.Register(Tool{
		Name:        "update_task",
		Description: "Update a task's mutable fields or transition its status. Status transitions must move monotonically toward done.\n\nArgs:\n  id: task id\n  title, description, priority, notes: optional field updates\n  status: optional new status\n\nReturns an empty object.",
		Annotations: WriteIdempotent,
		Schema: obj(map[string]any{
			"id":          str("Task id"),
			"title":       str("New title"),
			"description": str("New description"),
			"priority":    str("New priority"),
			"notes":       str("New notes"),
			"status":      str("New status (open, in_progress, blocked, done)"),
		}, "id"),
		Handler: func(ctx context.Context, raw json.RawMessage) (any, *Error) {
			p, perr := decodeParams[struct {
				ID          string  `json:"id"`
				Title       *string `json:"title"`
				Description *string `json:"description"`
				Priority    *string `json:"priority"`
				Notes       *string `json:"notes"`
				Status      string  `json:"status"`
			}](raw)
			if perr != nil {
				return nil, perr
			}
			if err := requireString("id", p.ID); err != nil {
				return nil, err
			}
			ts := now()
			if p.Status != "" {
				if err := db.UpdateTaskStatus(p.ID, p.Status, ts); err != nil {
					if err == store.ErrNotFound {
						return nil, notFound("task not found: " + p.ID)
					}
					if err == store.ErrInvalidStatusTransition {
						return nil, invalidParams("status", "status transitions must move monotonically toward done")
					}
					return nil, storageErr(err.Error())
				}
			}
			if p.Title != nil || p.Description != nil || p.Priority != nil || p.Notes != nil {
				if err := db.UpdateTaskFields(p.ID, p.Title, p.Description, p.Priority, p.Notes, ts); err != nil {
					if err == store.ErrNotFound {
						return nil, notFound("task not found: " + p.ID)
					}
					return nil, storageErr(err.Error())
				}
			}
			return map[string]any{}, nil
		},
	})

	reg.Register(Tool{
		Name:        "complete_task",
		Description: "Mark a task done.\n\nArgs:\n  id: task id\n\nReturns an empty object.",
		Annotations: WriteIdempotent,
		Schema:      obj(map[string]any{"id": str("Task id")}, "id"),
		Handler: func(ctx context.Context, raw json.RawMessage) (any, *Error) {
			p, perr := decodeParams[struct {
				ID string `json:"id"`
			}](raw)
			if perr != nil {
				return nil, perr
			}
			if err := requireString("id", p.ID); err != nil {
				return nil, err
			}
			if err := db.UpdateTaskStatus(p.ID, "done", now()); err != nil {
				if err == store.ErrNotFound {
					return nil, notFound("task not found: " + p.ID)
				}
				if err == store.ErrInvalidStatusTransition {
					return nil, invalidParams("status", "cannot complete a task from its current status")
				}
				return nil, storageErr(err.Error())
			}
			return map[string]any{}, nil
		},
	})

	reg.Register(Tool{
		Name:        "delete_task",
		Description: "Delete a task by id.\n\nArgs:\n  id: task id\n\nReturns an empty object.",
		Annotations: WriteNonIdempotent,
		Schema:      obj(map[string]any{"id": str("Task id")}, "id"),
		Handler: func(ctx context.Context, raw json.RawMessage) (any, *Error) {
			p, perr := decodeParams[struct {
				ID string `json:"id"`
			}](raw)
			if perr != nil {
				return nil, perr
			}
			if err := requireString("id", p.ID); err != nil {
				return nil, err
			}
			if err := db.DeleteTask(p.ID); err != nil {
				if err == store.ErrNotFound {
					return nil, notFound("task not found: " + p.ID)
				}
				return nil, storageErr(err.Error())
			}
			return map[string]any{}, nil
		},
	})
}
