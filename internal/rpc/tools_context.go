package rpc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/mira-dev/mira/internal/store"
)

// RegisterContextTools wires record_activity/get_recent_activity/
// set_context/get_context/get_guidelines/add_guideline onto reg.
func RegisterContextTools(reg *Registry, db *store.DB, now func() int64) {
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}

	reg.Register(Tool{
		Name:        "record_activity",
		Description: "Append an entry to the project activity log.\n\nArgs:\n  project_id: project scope\n  kind: activity kind (e.g. edit, run, note)\n  summary: short description\n\nReturns the entry id.",
		Annotations: WriteNonIdempotent,
		Schema: obj(map[string]any{
			"project_id": str("Project id"),
			"kind":       str("Activity kind"),
			"summary":    str("Short description"),
		}, "project_id", "kind", "summary"),
		Handler: func(ctx context.Context, raw json.RawMessage) (any, *Error) {
			p, perr := decodeParams[struct {
				ProjectID string `json:"project_id"`
				Kind      string `json:"kind"`
				Summary   string `json:"summary"`
			}](raw)
			if perr != nil {
				return nil, perr
			}
			if err := requireString("summary", p.Summary); err != nil {
				return nil, err
			}
			id := uuid.NewString()
			if err := db.RecordActivity(id, store.ActivityEntry{
				ProjectID: p.ProjectID, Kind: p.Kind, Summary: p.Summary, OccurredAt: now(),
			}); err != nil {
				return nil, storageErr(err.Error())
			}
			return map[string]any{"id": id}, nil
		},
	})

	reg.Register(Tool{
		Name:        "get_recent_activity",
		Description: "List recent activity log entries for a project, newest first.\n\nArgs:\n  project_id: project scope\n  limit: max entries (default 50)\n\nReturns the entries.",
		Annotations: ReadOnly,
		Schema: obj(map[string]any{
			"project_id": str("Project id"),
			"limit":      integer("Max entries (default 50)"),
		}, "project_id"),
		Handler: func(ctx context.Context, raw json.RawMessage) (any, *Error) {
			p, perr := decodeParams[struct {
				ProjectID string `json:"project_id"`
				Limit     int    `json:"limit"`
			}](raw)
			if perr != nil {
				return nil, perr
			}
			entries, err := db.GetRecentActivity(p.ProjectID, p.Limit)
			if err != nil {
				return nil, storageErr(err.Error())
			}
			return map[string]any{"activity": entries}, nil
		},
	})

	reg.Register(Tool{
		Name:        "set_context",
		Description: "Set (or replace) a work-context key for a project, with an optional TTL.\n\nArgs:\n  project_id: project scope\n  key: context key\n  value: context value\n  ttl_seconds: optional expiry relative to now (0 = no expiry)\n\nReturns an empty object.",
		Annotations: WriteIdempotent,
		Schema: obj(map[string]any{
			"project_id":  str("Project id"),
			"key":         str("Context key"),
			"value":       str("Context value"),
			"ttl_seconds": integer("Optional TTL in seconds (0 = no expiry)"),
		}, "project_id", "key", "value"),
		Handler: func(ctx context.Context, raw json.RawMessage) (any, *Error) {
			p, perr := decodeParams[struct {
				ProjectID  string `json:"project_id"`
				Key        string `json:"key"`
				Value      string `json:"value"`
				TTLSeconds int64  `json:"ttl_seconds"`
			}](raw)
			if perr != nil {
				return nil, perr
			}
			if err := requireString("key", p.Key); err != nil {
				return nil, err
			}
			ts := now()
			var expiresAt int64
			if p.TTLSeconds > 0 {
				expiresAt = ts + p.TTLSeconds
			}
			if err := db.SetContext(store.WorkContext{
				ProjectID: p.ProjectID, Key: p.Key, Value: p.Value, SetAt: ts, ExpiresAt: expiresAt,
			}); err != nil {
				return nil, storageErr(err.Error())
			}
			return map[string]any{}, nil
		},
	})

	reg.Register(Tool{
		Name:        "get_context",
		Description: "Get a work-context value for a project. Returns NotFound if absent or expired.\n\nArgs:\n  project_id: project scope\n  key: context key\n\nReturns the context entry.",
		Annotations: ReadOnly,
		Schema:      obj(map[string]any{"project_id": str("Project id"), "key": str("Context key")}, "project_id", "key"),
		Handler: func(ctx context.Context, raw json.RawMessage) (any, *Error) {
			p, perr := decodeParams[struct {
				ProjectID string `json:"project_id"`
				Key       string `json:"key"`
			}](raw)
			if perr != nil {
				return nil, perr
			}
			if err := requireString("key", p.Key); err != nil {
				return nil, err
			}
			c, err := db.GetContext(p.ProjectID, p.Key, now())
			if err == store.ErrNotFound {
				return nil, notFound("context key not found: " + p.Key)
			}
			if err != nil {
				return nil, storageErr(err.Error())
			}
			return c, nil
		},
	})

	reg.Register(Tool{
		Name:        "get_guidelines",
		Description: "List project guidelines, optionally filtered by category.\n\nArgs:\n  project_id: project scope\n  category: optional category filter\n\nReturns the guidelines.",
		Annotations: ReadOnly,
		Schema: obj(map[string]any{
			"project_id": str("Project id"),
			"category":   str("Optional category filter"),
		}, "project_id"),
		Handler: func(ctx context.Context, raw json.RawMessage) (any, *Error) {
			p, perr := decodeParams[struct {
				ProjectID string `json:"project_id"`
				Category  string `json:"category"`
			}](raw)
			if perr != nil {
				return nil, perr
			}
			guidelines, err := db.GetGuidelines(p.ProjectID, p.Category)
			if err != nil {
				return nil, storageErr(err.Error())
			}
			return map[string]any{"guidelines": guidelines}, nil
		},
	})

	reg.Register(Tool{
		Name:        "add_guideline",
		Description: "Add a project guideline.\n\nArgs:\n  project_id: project scope\n  category: guideline category\n  content: guideline text\n\nReturns the guideline id.",
		Annotations: WriteIdempotent,
		Schema: obj(map[string]any{
			"project_id": str("Project id"),
			"category":   str("Guideline category"),
			"content":    str("Guideline text"),
		}, "project_id", "content"),
		Handler: func(ctx context.Context, raw json.RawMessage) (any, *Error) {
			p, perr := decodeParams[struct {
				ProjectID string `json:"project_id"`
				Category  string `json:"category"`
				Content   string `json:"content"`
			}](raw)
			if perr != nil {
				return nil, perr
			}
			if err := requireString("content", p.Content); err != nil {
				return nil, err
			}
			id := uuid.NewString()
			if err := db.AddGuideline(id, store.ProjectGuideline{
				ProjectID: p.ProjectID, Category: p.Category, Content: p.Content, CreatedAt: now(),
			}); err != nil {
				return nil, storageErr(err.Error())
			}
			return map[string]any{"id": id}, nil
		},
	})
}
