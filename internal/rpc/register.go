package rpc

import (
	"github.com/mira-dev/mira/internal/codeintel"
	"github.com/mira-dev/mira/internal/gitintel"
	"github.com/mira-dev/mira/internal/ingest"
	"github.com/mira-dev/mira/internal/retrieval"
	"github.com/mira-dev/mira/internal/store"
	"github.com/mira-dev/mira/internal/vectorstore"
)

// Deps bundles every component the tool catalog dispatches into, wired
// together by cmd/mira at startup.
type Deps struct {
	DB       *store.DB
	Vec      *vectorstore.Store
	Pipeline *ingest.Pipeline
	Recaller *retrieval.Recaller
	Searcher *codeintel.Searcher
	Indexer  *codeintel.Indexer
	Fixes    *gitintel.Fixes
	Now      func() int64
}

// BuildRegistry registers the full tool catalog from spec §6 against deps.
func BuildRegistry(deps Deps) *Registry {
	reg := NewRegistry()
	RegisterMemoryTools(reg, deps.DB, deps.Vec, deps.Pipeline, deps.Recaller)
	RegisterTaskTools(reg, deps.DB, deps.Now)
	RegisterCodeTools(reg, deps.DB, deps.Searcher, deps.Indexer)
	RegisterGitTools(reg, deps.DB, deps.Fixes)
	RegisterBuildTools(reg, deps.DB, deps.Now)
	RegisterDocumentTools(reg, deps.DB, deps.Pipeline)
	RegisterContextTools(reg, deps.DB, deps.Now)
	RegisterSQLTools(reg, deps.DB)
	return reg
}
