package gitintel

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/mira-dev/mira/internal/embedding"
	"github.com/mira-dev/mira/internal/ingest"
	"github.com/mira-dev/mira/internal/store"
	"github.com/mira-dev/mira/internal/vectorstore"
)

const fixCollection = "git"

// FixMatch is one find_similar_fixes result.
type FixMatch struct {
	Fix   store.HistoricalFix
	Score float64
	Exact bool
}

// Fixes implements record_error_fix and find_similar_fixes (spec §4.G).
type Fixes struct {
	db  *store.DB
	vec *vectorstore.Store
	emb *embedding.Service
	now func() int64
}

func NewFixes(db *store.DB, vec *vectorstore.Store, emb *embedding.Service, now func() int64) *Fixes {
	return &Fixes{db: db, vec: vec, emb: emb, now: now}
}

// RecordErrorFix canonicalizes the error text and stores a historical fix
// row, embedding the normalized signature into the fix vector space.
func (f *Fixes) RecordErrorFix(ctx context.Context, errorText, fixCommitSHA, description string, files []string) (string, error) {
	signature := CanonicalizeErrorSignature(errorText)
	id := uuid.NewString()

	filesJSON, err := json.Marshal(files)
	if err != nil {
		return "", err
	}

	if err := f.db.InsertHistoricalFix(id, store.HistoricalFix{
		ID: id, ErrorSignature: signature, FixCommitSHA: fixCommitSHA,
		FilesTouched: files, Description: description, CreatedAt: f.now(),
	}, string(filesJSON)); err != nil {
		return "", err
	}

	if f.emb != nil && f.emb.Available() {
		vec, err := f.emb.Embed(ctx, signature, f.now())
		if err == nil {
			if err := f.vec.EnsureCollection(fixCollection, len(vec)); err == nil {
				_ = f.vec.Upsert(fixCollection, vectorstore.Point{
					ID: "historical_fix:" + id, Vector: vec,
				})
			}
		}
	}
	return id, nil
}

// FindSimilarFixes implements find_similar_fixes: an exact normalized
// signature match short-circuits with score 1.0; otherwise falls back to
// semantic search over the fix collection, and to lexical overlap on
// description plus signature when embeddings are unavailable or the
// semantic search yields no resolvable match.
func (f *Fixes) FindSimilarFixes(ctx context.Context, errorText string, k int) ([]FixMatch, error) {
	if k <= 0 {
		k = 10
	}
	signature := CanonicalizeErrorSignature(errorText)

	if row, err := f.db.FindExactFixBySignature(signature); err == nil && row != nil {
		return []FixMatch{{Fix: row.ToHistoricalFix(decodeFilesJSON), Score: 1.0, Exact: true}}, nil
	}

	if f.emb != nil && f.emb.Available() {
		vec, err := f.emb.Embed(ctx, signature, f.now())
		if err == nil {
			matches, serr := f.vec.Search(fixCollection, vec, k)
			if serr == nil && len(matches) > 0 {
				out := make([]FixMatch, 0, len(matches))
				for _, m := range matches {
					id := strings.TrimPrefix(m.ID, "historical_fix:")
					row, gerr := f.db.GetHistoricalFixByID(id)
					if gerr != nil {
						continue
					}
					out = append(out, FixMatch{Fix: row.ToHistoricalFix(decodeFilesJSON), Score: m.Score})
				}
				if len(out) > 0 {
					return out, nil
				}
			}
		}
	}

	rows, err := f.db.ListHistoricalFixes(200)
	if err != nil {
		return nil, err
	}
	tokens := strings.Fields(ingest.Canonicalize(errorText))
	var out []FixMatch
	for i := range rows {
		hf := rows[i].ToHistoricalFix(decodeFilesJSON)
		score := lexicalOverlap(tokens, hf.Description+" "+hf.ErrorSignature)
		if score > 0 {
			out = append(out, FixMatch{Fix: hf, Score: score})
		}
	}
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func decodeFilesJSON(raw string) []string {
	var files []string
	_ = json.Unmarshal([]byte(raw), &files)
	return files
}

func lexicalOverlap(tokens []string, text string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	hits := 0
	for _, t := range tokens {
		if t != "" && strings.Contains(lower, strings.ToLower(t)) {
			hits++
		}
	}
	return float64(hits) / float64(len(tokens))
}
