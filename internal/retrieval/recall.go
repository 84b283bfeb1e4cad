package retrieval

import (
	"context"
	"strings"

	"github.com/mira-dev/mira/internal/embedding"
	"github.com/mira-dev/mira/internal/ingest"
	"github.com/mira-dev/mira/internal/store"
	"github.com/mira-dev/mira/internal/vectorstore"
)

const memoryCollection = "conversation"

// Result is one entry of the recall tool's response: the full record plus
// its score breakdown, per spec §6's `recall` schema.
type Result struct {
	Record     store.MemoryFact
	Score      float64
	Components Components
}

// Recaller implements the `recall` tool (spec §4.E, §6) over memory facts.
type Recaller struct {
	db  *store.DB
	vec *vectorstore.Store
	emb *embedding.Service
	now func() int64
}

// NewRecaller builds a Recaller. vec/emb may be nil, in which case recall
// degrades to lexical-only search per spec §4.E step 4.
func NewRecaller(db *store.DB, vec *vectorstore.Store, emb *embedding.Service, now func() int64) *Recaller {
	return &Recaller{db: db, vec: vec, emb: emb, now: now}
}

// Query carries the `recall` tool's input fields.
type Query struct {
	ProjectID string
	Text      string
	K         int
	Kind      string // optional filter: fact, decision, preference, note
	Category  string // optional filter
}

// Recall runs the full spec §4.E pipeline: vector search (if available),
// lexical search, merge, score, and truncate to k.
func (r *Recaller) Recall(ctx context.Context, q Query) ([]Result, error) {
	k := q.K
	if k <= 0 {
		k = 10
	}
	overfetch := 3 * k

	weights := DefaultWeights
	vectorHits := map[string]Candidate{}

	if r.emb != nil && r.emb.Available() {
		qvec, err := r.emb.Embed(ctx, ingest.Canonicalize(q.Text), r.now())
		if err == nil {
			matches, serr := r.vec.Search(memoryCollection, qvec, overfetch)
			if serr == nil {
				for _, m := range matches {
					vectorHits[m.ID] = Candidate{Semantic: clamp01(m.Score)}
				}
			}
		}
	}
	if len(vectorHits) == 0 {
		weights.Semantic = 0
	}

	lexHits := map[string]Candidate{}
	facts, err := r.db.SearchMemoryFactsLexical(q.ProjectID, q.Text, overfetch)
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]store.MemoryFact, len(facts))
	tokens := strings.Fields(q.Text)

	for _, f := range facts {
		if q.Kind != "" && f.Kind != q.Kind {
			continue
		}
		if q.Category != "" && f.Category != q.Category {
			continue
		}
		if f.Flagged {
			continue // flagged content is excluded from ranking per spec §4.D
		}
		key := "memory_fact:" + f.ID
		byKey[key] = f
		lexHits[key] = Candidate{
			CreatedAt:  f.CreatedAt,
			Confidence: f.Confidence,
			Lexical:    LexicalScore(tokens, f.Content),
		}
	}

	for key, c := range vectorHits {
		if _, ok := byKey[key]; ok {
			continue
		}
		id := strings.TrimPrefix(key, "memory_fact:")
		f, err := r.db.GetMemoryFact(id)
		if err != nil {
			delete(vectorHits, key) // stale vector point, per spec §4.E step 1
			continue
		}
		if f.Flagged {
			delete(vectorHits, key)
			continue
		}
		if q.Kind != "" && f.Kind != q.Kind {
			delete(vectorHits, key)
			continue
		}
		if q.Category != "" && f.Category != q.Category {
			delete(vectorHits, key)
			continue
		}
		byKey[key] = *f
		c.CreatedAt = f.CreatedAt
		c.Confidence = f.Confidence
		vectorHits[key] = c
	}

	candidates := MergeByKey(vectorHits, lexHits)
	scored := Rank(candidates, weights, r.now(), k)

	out := make([]Result, 0, len(scored))
	for _, s := range scored {
		out = append(out, Result{Record: byKey[s.Key], Score: s.Score, Components: s.Components})
	}
	return out, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
