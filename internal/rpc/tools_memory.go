package rpc

import (
	"context"
	"encoding/json"

	"github.com/mira-dev/mira/internal/ingest"
	"github.com/mira-dev/mira/internal/retrieval"
	"github.com/mira-dev/mira/internal/store"
	"github.com/mira-dev/mira/internal/vectorstore"
)

// RegisterMemoryTools wires remember/recall/forget/store_session/
// search_sessions/store_decision onto reg.
func RegisterMemoryTools(reg *Registry, db *store.DB, vec *vectorstore.Store, pipe *ingest.Pipeline, rec *retrieval.Recaller) {
	reg.Register(Tool{
		Name:        "remember",
		Description: "Persist a fact, decision, preference, or note to long-term memory. Deduplicates on (kind, content) — calling remember again with the same content strengthens its confidence instead of creating a duplicate.\n\nArgs:\n  content: the text to remember\n  category: optional free-form category\n  kind: fact, decision, preference, or note (default fact)\n\nReturns the record id.",
		Annotations: WriteIdempotent,
		Schema: obj(map[string]any{
			"content":  str("Text to remember"),
			"category": str("Optional free-form category"),
			"kind":     str("fact, decision, preference, or note (default fact)"),
		}, "content"),
		Handler: func(ctx context.Context, raw json.RawMessage) (any, *Error) {
			p, perr := decodeParams[struct {
				Content    string `json:"content"`
				Category   string `json:"category"`
				Kind       string `json:"kind"`
				ProjectID  string `json:"project_id"`
			}](raw)
			if perr != nil {
				return nil, perr
			}
			if err := requireString("content", p.Content); err != nil {
				return nil, err
			}
			kind := p.Kind
			if kind == "" {
				kind = "fact"
			}
			res, err := pipe.IngestMemoryFact(ctx, store.MemoryFact{
				ProjectID: p.ProjectID, Kind: kind, Category: p.Category, Content: p.Content,
			})
			if err != nil {
				return nil, storageErr(err.Error())
			}
			return map[string]any{"id": res.ID}, nil
		},
	})

	reg.Register(Tool{
		Name:        "recall",
		Description: "Search long-term memory with hybrid semantic + lexical ranking. Use this to recall facts, decisions, preferences, or notes relevant to the current task.\n\nArgs:\n  query: natural language search text\n  k: number of results (default 10)\n  kind: optional filter (fact, decision, preference, note)\n  category: optional filter\n\nReturns ranked results with score breakdown.",
		Annotations: ReadOnly,
		Schema: obj(map[string]any{
			"query":    str("Natural language search query"),
			"k":        integer("Number of results (default 10)"),
			"kind":     str("Optional kind filter"),
			"category": str("Optional category filter"),
		}, "query"),
		Handler: func(ctx context.Context, raw json.RawMessage) (any, *Error) {
			p, perr := decodeParams[struct {
				Query     string `json:"query"`
				K         int    `json:"k"`
				Kind      string `json:"kind"`
				Category  string `json:"category"`
				ProjectID string `json:"project_id"`
			}](raw)
			if perr != nil {
				return nil, perr
			}
			if err := requireString("query", p.Query); err != nil {
				return nil, err
			}
			results, err := rec.Recall(ctx, retrieval.Query{
				ProjectID: p.ProjectID, Text: p.Query, K: p.K, Kind: p.Kind, Category: p.Category,
			})
			if err != nil {
				return nil, storageErr(err.Error())
			}
			return map[string]any{"results": results}, nil
		},
	})

	reg.Register(Tool{
		Name:        "forget",
		Description: "Delete a memory fact by id. The record and any vector embedding are removed immediately; a lingering vector point (if the embedded delete fails) is swept by the next maintenance pass.\n\nArgs:\n  id: memory fact id\n\nReturns an empty object.",
		Annotations: WriteNonIdempotent,
		Schema:      obj(map[string]any{"id": str("Memory fact id")}, "id"),
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
			if err := db.DeleteMemoryFact(p.ID); err != nil {
				if err == store.ErrNotFound {
					return nil, notFound("memory fact not found: " + p.ID)
				}
				return nil, storageErr(err.Error())
			}
			_ = vec.Delete("conversation", "memory_fact:"+p.ID)
			return map[string]any{}, nil
		},
	})

	reg.Register(Tool{
		Name:        "store_session",
		Description: "Record an end-of-session summary. Immutable once written.\n\nArgs:\n  summary: session summary text\n  started_at: unix timestamp\n  ended_at: unix timestamp\n  project_id: optional\n\nReturns the record id.",
		Annotations: WriteIdempotent,
		Schema: obj(map[string]any{
			"summary":    str("Session summary text"),
			"started_at": integer("Session start, unix seconds"),
			"ended_at":   integer("Session end, unix seconds"),
			"project_id": str("Optional project id"),
		}, "summary", "started_at", "ended_at"),
		Handler: func(ctx context.Context, raw json.RawMessage) (any, *Error) {
			p, perr := decodeParams[struct {
				Summary   string `json:"summary"`
				StartedAt int64  `json:"started_at"`
				EndedAt   int64  `json:"ended_at"`
				ProjectID string `json:"project_id"`
			}](raw)
			if perr != nil {
				return nil, perr
			}
			if err := requireString("summary", p.Summary); err != nil {
				return nil, err
			}
			res, err := pipe.IngestSessionSummary(ctx, store.SessionSummary{
				ProjectID: p.ProjectID, StartedAt: p.StartedAt, EndedAt: p.EndedAt, Summary: p.Summary,
			})
			if err != nil {
				return nil, storageErr(err.Error())
			}
			return map[string]any{"id": res.ID}, nil
		},
	})

	reg.Register(Tool{
		Name:        "search_sessions",
		Description: "Search session summaries by keyword.\n\nArgs:\n  query: search text\n  k: number of results (default 10)\n\nReturns matching session summaries.",
		Annotations: ReadOnly,
		Schema:      obj(map[string]any{"query": str("Search text"), "k": integer("Number of results")}, "query"),
		Handler: func(ctx context.Context, raw json.RawMessage) (any, *Error) {
			p, perr := decodeParams[struct {
				Query string `json:"query"`
				K     int    `json:"k"`
			}](raw)
			if perr != nil {
				return nil, perr
			}
			if err := requireString("query", p.Query); err != nil {
				return nil, err
			}
			results, err := db.SearchSessionsLexical(p.Query, defaultInt(p.K, 10))
			if err != nil {
				return nil, storageErr(err.Error())
			}
			return map[string]any{"results": results}, nil
		},
	})

	reg.Register(Tool{
		Name:        "store_decision",
		Description: "Record a project decision with rationale. Immutable once written; its title and rationale are embedded into the vector store, but the recall tool returns memory facts only and does not surface decisions.\n\nArgs:\n  title: short decision title\n  rationale: why this decision was made\n  context: optional surrounding context\n\nReturns the record id.",
		Annotations: WriteIdempotent,
		Schema: obj(map[string]any{
			"title":     str("Short decision title"),
			"rationale": str("Why this decision was made"),
			"context":   str("Optional surrounding context"),
		}, "title", "rationale"),
		Handler: func(ctx context.Context, raw json.RawMessage) (any, *Error) {
			p, perr := decodeParams[struct {
				Title     string `json:"title"`
				Rationale string `json:"rationale"`
				Context   string `json:"context"`
			}](raw)
			if perr != nil {
				return nil, perr
			}
			if err := requireString("title", p.Title); err != nil {
				return nil, err
			}
			if err := requireString("rationale", p.Rationale); err != nil {
				return nil, err
			}
			res, err := pipe.IngestDecision(ctx, store.Decision{Title: p.Title, Rationale: p.Rationale, Context: p.Context})
			if err != nil {
				return nil, storageErr(err.Error())
			}
			return map[string]any{"id": res.ID}, nil
		},
	})
}
