package codeintel

import (
	"context"
	"strings"

	"github.com/mira-dev/mira/internal/embedding"
	"github.com/mira-dev/mira/internal/ingest"
	"github.com/mira-dev/mira/internal/store"
	"github.com/mira-dev/mira/internal/vectorstore"
)

// SymbolMatch is one semantic_code_search result.
type SymbolMatch struct {
	Symbol store.CodeSymbol
	Score  float64 // 1 - cosine distance, in [-1,1]; 0 for lexical-only matches
}

// Searcher implements semantic_code_search (spec §4.F): embed the query and
// search the code collection, falling back to lexical name/signature match
// when embeddings are unavailable.
type Searcher struct {
	db  *store.DB
	vec *vectorstore.Store
	emb *embedding.Service
	now func() int64
}

func NewSearcher(db *store.DB, vec *vectorstore.Store, emb *embedding.Service, now func() int64) *Searcher {
	return &Searcher{db: db, vec: vec, emb: emb, now: now}
}

func (s *Searcher) Search(ctx context.Context, query string, k int) ([]SymbolMatch, error) {
	if k <= 0 {
		k = 10
	}

	if s.emb != nil && s.emb.Available() {
		vec, err := s.emb.Embed(ctx, ingest.Canonicalize(query), s.now())
		if err == nil {
			matches, serr := s.vec.Search(codeCollection, vec, k)
			if serr == nil && len(matches) > 0 {
				out := make([]SymbolMatch, 0, len(matches))
				for _, m := range matches {
					id := strings.TrimPrefix(m.ID, "code_symbol:")
					sym, gerr := s.db.GetSymbolByID(id)
					if gerr != nil {
						continue // stale vector point
					}
					out = append(out, SymbolMatch{Symbol: *sym, Score: m.Score})
				}
				if len(out) > 0 {
					return out, nil
				}
			}
		}
	}

	symbols, err := s.db.SearchSymbolsLexical(query, k)
	if err != nil {
		return nil, err
	}
	out := make([]SymbolMatch, 0, len(symbols))
	for _, sym := range symbols {
		out = append(out, SymbolMatch{Symbol: sym})
	}
	return out, nil
}
