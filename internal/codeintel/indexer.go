package codeintel

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sync/semaphore"

	"github.com/google/uuid"

	"github.com/mira-dev/mira/internal/embedding"
	"github.com/mira-dev/mira/internal/store"
	"github.com/mira-dev/mira/internal/vectorstore"
)

const codeCollection = "code"

// DefaultWorkers is the bounded worker pool size for index_path, matching
// spec.md §5's "long parses run on a bounded worker pool (default 4)".
const DefaultWorkers = 4

// Indexer implements index_path (spec §4.F).
type Indexer struct {
	db      *store.DB
	vec     *vectorstore.Store
	emb     *embedding.Service
	workers int64
	now     func() int64
}

// NewIndexer builds an Indexer. vec/emb may be nil, in which case symbols
// are still extracted and stored but no embeddings are requested.
func NewIndexer(db *store.DB, vec *vectorstore.Store, emb *embedding.Service, workers int, now func() int64) *Indexer {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Indexer{db: db, vec: vec, emb: emb, workers: int64(workers), now: now}
}

// FileStats reports what IndexPath did for one file.
type FileStats struct {
	Path    string
	Skipped bool // content hash unchanged since last index
	Symbols int
	Err     error
}

// IndexPath walks root, parsing every file whose extension maps to a
// supported language, and re-indexes it unless its content hash is
// unchanged since the last index_path call (spec §4.F step 1). Files run
// through a bounded worker pool sized at i.workers.
func (i *Indexer) IndexPath(ctx context.Context, root string) ([]FileStats, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if LanguageForExt(path) == "" {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("codeintel: walk %s: %w", root, err)
	}

	sem := semaphore.NewWeighted(i.workers)
	results := make([]FileStats, len(paths))

	done := make(chan struct{}, len(paths))
	for idx, p := range paths {
		if err := sem.Acquire(ctx, 1); err != nil {
			return results, err
		}
		go func(idx int, path string) {
			defer sem.Release(1)
			results[idx] = i.indexFile(ctx, path)
			done <- struct{}{}
		}(idx, p)
	}
	for range paths {
		<-done
	}
	return results, nil
}

func (i *Indexer) indexFile(ctx context.Context, path string) FileStats {
	content, err := os.ReadFile(path)
	if err != nil {
		return FileStats{Path: path, Err: fmt.Errorf("read: %w", err)}
	}

	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])

	if prev, ok := i.db.FileIndexedHash(path); ok && prev == hash {
		return FileStats{Path: path, Skipped: true}
	}

	lang := LanguageForExt(path)
	result, err := Parse(ctx, lang, content)
	if err != nil {
		return FileStats{Path: path, Err: err}
	}

	now := i.now()
	symbolByName := make(map[string]string, len(result.Symbols))
	symbols := make([]store.CodeSymbol, 0, len(result.Symbols))
	for _, s := range result.Symbols {
		id := uuid.NewString()
		symbolByName[s.Name] = id
		symbols = append(symbols, store.CodeSymbol{
			ID: id, FilePath: path, Language: lang, Kind: s.Kind,
			Name: s.Name, Signature: s.Signature,
			StartLine: s.StartLine, EndLine: s.EndLine,
			Hash: hash, IndexedAt: now,
		})
	}

	var edges []store.CallEdge
	for _, c := range result.Calls {
		callerID, ok := symbolByName[c.CallerName]
		if !ok {
			continue // call outside any tracked symbol (e.g. package init)
		}
		calleeID, ok := symbolByName[c.CalleeName]
		if !ok {
			continue // callee not defined in this file; no edge is stored, so cross-file calls are not part of the call graph
		}
		edges = append(edges, store.CallEdge{CallerSymbolID: callerID, CalleeSymbolID: calleeID, FilePath: path, Line: c.Line})
	}

	if err := i.db.ReplaceFileSymbols(path, symbols, edges); err != nil {
		return FileStats{Path: path, Err: err}
	}

	if i.emb != nil && i.emb.Available() {
		i.embedSymbols(ctx, symbols, now)
	}

	return FileStats{Path: path, Symbols: len(symbols)}
}

func (i *Indexer) embedSymbols(ctx context.Context, symbols []store.CodeSymbol, now int64) {
	for _, s := range symbols {
		text := s.Signature + "\n" + s.Name
		vec, err := i.emb.Embed(ctx, text, now)
		if err != nil {
			_ = i.db.EnqueuePendingEmbedding(store.PendingEmbedding{
				RecordKind: "code_symbol", RecordID: s.ID, Collection: codeCollection,
				Text: text, EnqueuedAt: now, LastError: err.Error(),
			})
			continue
		}
		if err := i.vec.EnsureCollection(codeCollection, len(vec)); err != nil {
			continue
		}
		_ = i.vec.Upsert(codeCollection, vectorstore.Point{
			ID: "code_symbol:" + s.ID, Vector: vec,
			Metadata: map[string]string{"file_path": s.FilePath, "kind": s.Kind},
		})
	}
}
