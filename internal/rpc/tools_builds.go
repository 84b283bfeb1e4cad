package rpc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/mira-dev/mira/internal/store"
)

// RegisterBuildTools wires record_build/record_build_error/get_build_errors/
// resolve_error onto reg.
func RegisterBuildTools(reg *Registry, db *store.DB, now func() int64) {
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}

	reg.Register(Tool{
		Name:        "record_build",
		Description: "Record the start (or start+end) of a build run.\n\nArgs:\n  command: the build command invoked\n  status: build status (default running)\n  ended: whether the run already finished (default false)\n\nReturns the run id.",
		Annotations: WriteNonIdempotent,
		Schema: obj(map[string]any{
			"command": str("Build command invoked"),
			"status":  str("Build status (default running)"),
			"ended":   boolean("Whether the run already finished"),
		}, "command"),
		Handler: func(ctx context.Context, raw json.RawMessage) (any, *Error) {
			p, perr := decodeParams[struct {
				Command string `json:"command"`
				Status  string `json:"status"`
				Ended   bool   `json:"ended"`
			}](raw)
			if perr != nil {
				return nil, perr
			}
			if err := requireString("command", p.Command); err != nil {
				return nil, err
			}
			status := p.Status
			if status == "" {
				status = "running"
			}
			runID := uuid.NewString()
			ts := now()
			if err := db.InsertBuildRun(store.BuildRun{RunID: runID, StartedAt: ts, Status: status, Command: p.Command}); err != nil {
				return nil, storageErr(err.Error())
			}
			if p.Ended {
				if err := db.EndBuildRun(runID, ts, status); err != nil {
					return nil, storageErr(err.Error())
				}
			}
			return map[string]any{"run_id": runID}, nil
		},
	})

	reg.Register(Tool{
		Name:        "record_build_error",
		Description: "Record an error surfaced during a build run.\n\nArgs:\n  run_id: the build run id\n  category: error category\n  message: error message\n  file, line: optional source location\n\nReturns the error id.",
		Annotations: WriteNonIdempotent,
		Schema: obj(map[string]any{
			"run_id":   str("Build run id"),
			"category": str("Error category"),
			"message":  str("Error message"),
			"file":     str("Optional source file"),
			"line":     integer("Optional source line"),
		}, "run_id", "message"),
		Handler: func(ctx context.Context, raw json.RawMessage) (any, *Error) {
			p, perr := decodeParams[struct {
				RunID    string `json:"run_id"`
				Category string `json:"category"`
				Message  string `json:"message"`
				File     string `json:"file"`
				Line     int    `json:"line"`
			}](raw)
			if perr != nil {
				return nil, perr
			}
			if err := requireString("run_id", p.RunID); err != nil {
				return nil, err
			}
			if err := requireString("message", p.Message); err != nil {
				return nil, err
			}
			id := uuid.NewString()
			if err := db.InsertBuildError(id, store.BuildError{
				ErrorID: id, RunID: p.RunID, Category: p.Category, Message: p.Message, File: p.File, Line: p.Line,
			}); err != nil {
				return nil, storageErr(err.Error())
			}
			return map[string]any{"id": id}, nil
		},
	})

	reg.Register(Tool{
		Name:        "get_build_errors",
		Description: "List errors for a build run.\n\nArgs:\n  run_id: the build run id\n  unresolved_only: only return unresolved errors (default false)\n\nReturns the matching errors.",
		Annotations: ReadOnly,
		Schema: obj(map[string]any{
			"run_id":          str("Build run id"),
			"unresolved_only": boolean("Only return unresolved errors"),
		}, "run_id"),
		Handler: func(ctx context.Context, raw json.RawMessage) (any, *Error) {
			p, perr := decodeParams[struct {
				RunID          string `json:"run_id"`
				UnresolvedOnly bool   `json:"unresolved_only"`
			}](raw)
			if perr != nil {
				return nil, perr
			}
			if err := requireString("run_id", p.RunID); err != nil {
				return nil, err
			}
			errs, err := db.GetBuildErrors(p.RunID, p.UnresolvedOnly)
			if err != nil {
				return nil, storageErr(err.Error())
			}
			return map[string]any{"errors": errs}, nil
		},
	})

	reg.Register(Tool{
		Name:        "resolve_error",
		Description: "Mark a build error resolved.\n\nArgs:\n  error_id: the build error id\n  resolved_by: who/what resolved it\n\nReturns an empty object.",
		Annotations: WriteIdempotent,
		Schema: obj(map[string]any{
			"error_id":    str("Build error id"),
			"resolved_by": str("Who/what resolved it"),
		}, "error_id"),
		Handler: func(ctx context.Context, raw json.RawMessage) (any, *Error) {
			p, perr := decodeParams[struct {
				ErrorID    string `json:"error_id"`
				ResolvedBy string `json:"resolved_by"`
			}](raw)
			if perr != nil {
				return nil, perr
			}
			if err := requireString("error_id", p.ErrorID); err != nil {
				return nil, err
			}
			if err := db.ResolveBuildError(p.ErrorID, p.ResolvedBy); err != nil {
				if err == store.ErrNotFound {
					return nil, notFound("build error not found: " + p.ErrorID)
				}
				return nil, storageErr(err.Error())
			}
			return map[string]any{}, nil
		},
	})
}
