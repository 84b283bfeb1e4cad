package rpc

import (
	"context"
	"encoding/json"

	"github.com/mira-dev/mira/internal/codeintel"
	"github.com/mira-dev/mira/internal/store"
)

// RegisterCodeTools wires get_symbols/get_call_graph/semantic_code_search/
// index_path onto reg.
func RegisterCodeTools(reg *Registry, db *store.DB, searcher *codeintel.Searcher, indexer *codeintel.Indexer) {
	reg.Register(Tool{
		Name:        "get_symbols",
		Description: "List the symbols (functions, methods, types) indexed from a source file.\n\nArgs:\n  file_path: path as indexed\n\nReturns the file's symbols.",
		Annotations: ReadOnly,
		Schema:      obj(map[string]any{"file_path": str("Indexed file path")}, "file_path"),
		Handler: func(ctx context.Context, raw json.RawMessage) (any, *Error) {
			p, perr := decodeParams[struct {
				FilePath string `json:"file_path"`
			}](raw)
			if perr != nil {
				return nil, perr
			}
			if err := requireString("file_path", p.FilePath); err != nil {
				return nil, err
			}
			symbols, err := db.GetSymbolsForFile(p.FilePath)
			if err != nil {
				return nil, storageErr(err.Error())
			}
			return map[string]any{"symbols": symbols}, nil
		},
	})

	reg.Register(Tool{
		Name:        "get_call_graph",
		Description: "Get the inbound and outbound call graph for a symbol, up to a fixed depth of 3.\n\nArgs:\n  symbol: bare symbol name\n  depth: accepted but not used; the traversal always runs to depth 3\n\nReturns inbound and outbound symbol lists.",
		Annotations: ReadOnly,
		Schema: obj(map[string]any{
			"symbol": str("Bare symbol name"),
			"depth":  integer("Accepted but not used; traversal depth is fixed at 3"),
		}, "symbol"),
		Handler: func(ctx context.Context, raw json.RawMessage) (any, *Error) {
			p, perr := decodeParams[struct {
				Symbol string `json:"symbol"`
				Depth  int    `json:"depth"`
			}](raw)
			if perr != nil {
				return nil, perr
			}
			if err := requireString("symbol", p.Symbol); err != nil {
				return nil, err
			}
			graph, err := codeintel.GetCallGraph(db, p.Symbol)
			if err == store.ErrNotFound {
				return nil, notFound("symbol not found: " + p.Symbol)
			}
			if err != nil {
				return nil, storageErr(err.Error())
			}
			return map[string]any{"inbound": graph.Inbound, "outbound": graph.Outbound}, nil
		},
	})

	reg.Register(Tool{
		Name:        "semantic_code_search",
		Description: "Search indexed code symbols by meaning, falling back to lexical name/signature search when embeddings are unavailable.\n\nArgs:\n  query: natural language or code-like query\n  k: number of results (default 10)\n\nReturns ranked symbol matches.",
		Annotations: ReadOnly,
		Schema:      obj(map[string]any{"query": str("Search query"), "k": integer("Number of results")}, "query"),
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
			matches, err := searcher.Search(ctx, p.Query, defaultInt(p.K, 10))
			if err != nil {
				return nil, storageErr(err.Error())
			}
			return map[string]any{"results": matches}, nil
		},
	})

	reg.Register(Tool{
		Name:        "index_path",
		Description: "Walk a directory, parsing every recognized source file and (re)indexing its symbols and call edges. Files whose content hash is unchanged since the last index_path call are skipped.\n\nArgs:\n  path: directory to walk\n\nReturns per-file indexing stats.",
		Annotations: WriteIdempotent,
		Schema:      obj(map[string]any{"path": str("Directory to walk")}, "path"),
		Handler: func(ctx context.Context, raw json.RawMessage) (any, *Error) {
			p, perr := decodeParams[struct {
				Path string `json:"path"`
			}](raw)
			if perr != nil {
				return nil, perr
			}
			if err := requireString("path", p.Path); err != nil {
				return nil, err
			}
			stats, err := indexer.IndexPath(ctx, p.Path)
			if err != nil {
				return nil, unavailable("cannot walk "+p.Path+": "+err.Error(), false)
			}
			files := make([]map[string]any, 0, len(stats))
			failed := 0
			for _, s := range stats {
				entry := map[string]any{"path": s.Path, "skipped": s.Skipped, "symbols": s.Symbols}
				if s.Err != nil {
					entry["error"] = s.Err.Error()
					failed++
				}
				files = append(files, entry)
			}
			result := map[string]any{"files": files}
			if failed > 0 {
				result["degraded"] = true
			}
			return result, nil
		},
	})
}
