package rpc

import (
	"context"
	"encoding/json"

	"github.com/mira-dev/mira/internal/gitintel"
	"github.com/mira-dev/mira/internal/store"
)

// RegisterGitTools wires find_cochange_patterns/find_similar_fixes/
// record_error_fix onto reg.
func RegisterGitTools(reg *Registry, db *store.DB, fixes *gitintel.Fixes) {
	reg.Register(Tool{
		Name:        "find_cochange_patterns",
		Description: "List files that historically change together with a given file, ranked by Jaccard confidence over the commit history.\n\nArgs:\n  file: path as recorded in git history\n  min_confidence: floor below which patterns are dropped (default 0)\n\nReturns related files with confidence.",
		Annotations: ReadOnly,
		Schema: obj(map[string]any{
			"file":           str("File path"),
			"min_confidence": map[string]any{"type": "number", "description": "Minimum confidence threshold (0-1, default 0)"},
		}, "file"),
		Handler: func(ctx context.Context, raw json.RawMessage) (any, *Error) {
			p, perr := decodeParams[struct {
				File          string  `json:"file"`
				MinConfidence float64 `json:"min_confidence"`
			}](raw)
			if perr != nil {
				return nil, perr
			}
			if err := requireString("file", p.File); err != nil {
				return nil, err
			}
			patterns, err := db.CochangeFor(p.File, p.MinConfidence)
			if err != nil {
				return nil, storageErr(err.Error())
			}
			related := make([]map[string]any, 0, len(patterns))
			for _, pt := range patterns {
				other := pt.FileB
				if other == p.File {
					other = pt.FileA
				}
				related = append(related, map[string]any{"file": other, "confidence": pt.Confidence})
			}
			return map[string]any{"related": related}, nil
		},
	})

	reg.Register(Tool{
		Name:        "find_similar_fixes",
		Description: "Find prior fixes for a similar error. An exact normalized-signature match short-circuits with score 1.0; otherwise uses semantic search over recorded fixes, falling back to lexical overlap when embeddings are unavailable or semantic search finds no match.\n\nArgs:\n  error: error text or stack trace\n  k: number of results (default 10)\n\nReturns matching historical fixes with scores.",
		Annotations: ReadOnly,
		Schema:      obj(map[string]any{"error": str("Error text or stack trace"), "k": integer("Number of results")}, "error"),
		Handler: func(ctx context.Context, raw json.RawMessage) (any, *Error) {
			p, perr := decodeParams[struct {
				Error string `json:"error"`
				K     int    `json:"k"`
			}](raw)
			if perr != nil {
				return nil, perr
			}
			if err := requireString("error", p.Error); err != nil {
				return nil, err
			}
			matches, err := fixes.FindSimilarFixes(ctx, p.Error, p.K)
			if err != nil {
				return nil, storageErr(err.Error())
			}
			return map[string]any{"fixes": matches}, nil
		},
	})

	reg.Register(Tool{
		Name:        "record_error_fix",
		Description: "Record a fix for an error so future similar errors can surface it via find_similar_fixes.\n\nArgs:\n  error: error text that was fixed\n  fix_commit: commit SHA of the fix\n  files: files touched by the fix\n  description: optional human description\n\nReturns the record id.",
		Annotations: WriteIdempotent,
		Schema: obj(map[string]any{
			"error":       str("Error text that was fixed"),
			"fix_commit":  str("Commit SHA of the fix"),
			"files":       array(str("path"), "Files touched by the fix"),
			"description": str("Optional human description"),
		}, "error", "fix_commit"),
		Handler: func(ctx context.Context, raw json.RawMessage) (any, *Error) {
			p, perr := decodeParams[struct {
				Error       string   `json:"error"`
				FixCommit   string   `json:"fix_commit"`
				Files       []string `json:"files"`
				Description string   `json:"description"`
			}](raw)
			if perr != nil {
				return nil, perr
			}
			if err := requireString("error", p.Error); err != nil {
				return nil, err
			}
			if err := requireString("fix_commit", p.FixCommit); err != nil {
				return nil, err
			}
			id, err := fixes.RecordErrorFix(ctx, p.Error, p.FixCommit, p.Description, p.Files)
			if err != nil {
				return nil, storageErr(err.Error())
			}
			return map[string]any{"id": id}, nil
		},
	})
}
