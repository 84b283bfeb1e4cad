package rpc

import (
	"context"
	"encoding/json"

	"github.com/mira-dev/mira/internal/ingest"
	"github.com/mira-dev/mira/internal/store"
)

// RegisterDocumentTools wires list_documents/search_documents/get_document
// onto reg.
func RegisterDocumentTools(reg *Registry, db *store.DB, pipe *ingest.Pipeline) {
	reg.Register(Tool{
		Name:        "list_documents",
		Description: "List indexed document paths for a project.\n\nArgs:\n  project_id: project scope\n\nReturns the list of paths.",
		Annotations: ReadOnly,
		Schema:      obj(map[string]any{"project_id": str("Project id")}, "project_id"),
		Handler: func(ctx context.Context, raw json.RawMessage) (any, *Error) {
			p, perr := decodeParams[struct {
				ProjectID string `json:"project_id"`
			}](raw)
			if perr != nil {
				return nil, perr
			}
			paths, err := db.ListDocuments(p.ProjectID)
			if err != nil {
				return nil, storageErr(err.Error())
			}
			return map[string]any{"documents": paths}, nil
		},
	})

	reg.Register(Tool{
		Name:        "search_documents",
		Description: "Search indexed document chunks by keyword within a project.\n\nArgs:\n  project_id: project scope\n  query: search text\n  k: number of results (default 20)\n\nReturns matching chunks.",
		Annotations: ReadOnly,
		Schema: obj(map[string]any{
			"project_id": str("Project id"),
			"query":      str("Search text"),
			"k":          integer("Number of results (default 20)"),
		}, "project_id", "query"),
		Handler: func(ctx context.Context, raw json.RawMessage) (any, *Error) {
			p, perr := decodeParams[struct {
				ProjectID string `json:"project_id"`
				Query     string `json:"query"`
				K         int    `json:"k"`
			}](raw)
			if perr != nil {
				return nil, perr
			}
			if err := requireString("query", p.Query); err != nil {
				return nil, err
			}
			chunks, err := db.SearchDocumentsLexical(p.ProjectID, p.Query, defaultInt(p.K, 20))
			if err != nil {
				return nil, storageErr(err.Error())
			}
			return map[string]any{"results": chunks}, nil
		},
	})

	reg.Register(Tool{
		Name:        "get_document",
		Description: "Fetch all chunks of a document in order.\n\nArgs:\n  project_id: project scope\n  path: document path\n\nReturns the document's chunks.",
		Annotations: ReadOnly,
		Schema: obj(map[string]any{
			"project_id": str("Project id"),
			"path":       str("Document path"),
		}, "project_id", "path"),
		Handler: func(ctx context.Context, raw json.RawMessage) (any, *Error) {
			p, perr := decodeParams[struct {
				ProjectID string `json:"project_id"`
				Path      string `json:"path"`
			}](raw)
			if perr != nil {
				return nil, perr
			}
			if err := requireString("path", p.Path); err != nil {
				return nil, err
			}
			chunks, err := db.GetDocument(p.ProjectID, p.Path)
			if err == store.ErrNotFound {
				return nil, notFound("document not found: " + p.Path)
			}
			if err != nil {
				return nil, storageErr(err.Error())
			}
			return map[string]any{"chunks": chunks}, nil
		},
	})

	reg.Register(Tool{
		Name:        "ingest_document",
		Description: "Ingest (or re-ingest) a full document: parses frontmatter, splits into chunks, persists and embeds each chunk. Not part of the minimum catalog but needed to populate list_documents/search_documents/get_document.\n\nArgs:\n  project_id: project scope\n  path: document path\n  content: raw document text (markdown, optionally with frontmatter)\n\nReturns one result per chunk.",
		Annotations: WriteIdempotent,
		Schema: obj(map[string]any{
			"project_id": str("Project id"),
			"path":       str("Document path"),
			"content":    str("Raw document text"),
		}, "project_id", "path", "content"),
		Handler: func(ctx context.Context, raw json.RawMessage) (any, *Error) {
			p, perr := decodeParams[struct {
				ProjectID string `json:"project_id"`
				Path      string `json:"path"`
				Content   string `json:"content"`
			}](raw)
			if perr != nil {
				return nil, perr
			}
			if err := requireString("path", p.Path); err != nil {
				return nil, err
			}
			results, err := pipe.IngestDocument(ctx, p.ProjectID, p.Path, p.Content)
			if err != nil {
				return nil, storageErr(err.Error())
			}
			return map[string]any{"chunks": results}, nil
		},
	})
}
