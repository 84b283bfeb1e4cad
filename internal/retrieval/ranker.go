// Package retrieval implements the hybrid semantic+lexical ranker described
// in spec §4.E: merge vector-search hits and lexical-search hits into one
// candidate set, score each, and return a sorted, explainable result list.
package retrieval

import (
	"math"
	"sort"
	"strings"
)

// Weights holds the four ranking weights from spec §4.E. They need not sum
// to 1; Rank normalizes by their sum so callers can zero out w_sem when
// the embedding path is unavailable without having to recompute the others.
type Weights struct {
	Semantic   float64
	Lexical    float64
	Recency    float64
	Confidence float64
}

// DefaultWeights matches spec §4.E's default (0.55, 0.25, 0.10, 0.10).
var DefaultWeights = Weights{Semantic: 0.55, Lexical: 0.25, Recency: 0.10, Confidence: 0.10}

// recencyTau is τ_r from spec §4.E: rec(r) = exp(-age_days/30).
const recencyTau = 30.0

// Components is the per-signal score breakdown returned alongside a
// result's total score, letting the host explain a ranking.
type Components struct {
	Semantic   float64
	Lexical    float64
	Recency    float64
	Confidence float64
}

// Candidate is a single record pulled from either the vector search or the
// lexical search (or both), before scoring.
type Candidate struct {
	Key        string // "{kind}:{id}", used to merge vector/lexical hits
	CreatedAt  int64
	Confidence float64 // zero if the record carries no confidence field
	Semantic   float64 // cosine-derived similarity in [0,1]; 0 if no vector hit
	Lexical    float64 // token-overlap score in [0,1]; 0 if no lexical hit
	FromVector bool
	FromLex    bool
}

// Scored is a Candidate with its computed score and component breakdown.
type Scored struct {
	Key        string
	Score      float64
	Components Components
}

// Recency computes rec(r) for a record of the given age in days.
func Recency(ageDays float64) float64 {
	if ageDays < 0 {
		ageDays = 0
	}
	return math.Exp(-ageDays / recencyTau)
}

// Rank scores and sorts candidates per spec §4.E step 3-4: each score is
// divided by the sum of all four weights, whether or not a candidate has a
// given component (a candidate with no vector hit contributes Semantic=0,
// which is itself meaningful, but if NO candidate in the whole set has a
// vector hit the caller should pass w.Semantic=0 so the remaining weights
// are renormalized instead of the ranking being silently deflated).
func Rank(candidates []Candidate, w Weights, nowUnix int64, k int) []Scored {
	sum := w.Semantic + w.Lexical + w.Recency + w.Confidence
	if sum <= 0 {
		sum = 1
	}

	out := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		ageDays := float64(nowUnix-c.CreatedAt) / 86400.0
		comp := Components{
			Semantic:   c.Semantic,
			Lexical:    c.Lexical,
			Recency:    Recency(ageDays),
			Confidence: c.Confidence,
		}
		score := (w.Semantic*comp.Semantic + w.Lexical*comp.Lexical + w.Recency*comp.Recency + w.Confidence*comp.Confidence) / sum
		out = append(out, Scored{Key: c.Key, Score: score, Components: comp})
	}

	createdAt := make(map[string]int64, len(candidates))
	for _, c := range candidates {
		createdAt[c.Key] = c.CreatedAt
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return createdAt[out[i].Key] > createdAt[out[j].Key]
	})

	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

// MergeByKey folds a vector-search pass and a lexical-search pass into one
// candidate set, keyed by "{kind}:{id}". Either input may be nil.
func MergeByKey(vectorHits, lexHits map[string]Candidate) []Candidate {
	merged := make(map[string]Candidate, len(vectorHits)+len(lexHits))
	for k, v := range vectorHits {
		v.Key = k
		v.FromVector = true
		merged[k] = v
	}
	for k, v := range lexHits {
		existing, ok := merged[k]
		if !ok {
			v.Key = k
			v.FromLex = true
			merged[k] = v
			continue
		}
		existing.Lexical = v.Lexical
		existing.FromLex = true
		if existing.CreatedAt == 0 {
			existing.CreatedAt = v.CreatedAt
		}
		if existing.Confidence == 0 {
			existing.Confidence = v.Confidence
		}
		merged[k] = existing
	}

	out := make([]Candidate, 0, len(merged))
	for _, c := range merged {
		out = append(out, c)
	}
	return out
}

// LexicalScore approximates lex(r) as the fraction of query tokens present
// in the record's text, a cheap proxy for substring/token overlap that
// stays in [0,1].
func LexicalScore(queryTokens []string, text string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	hits := 0
	lower := strings.ToLower(text)
	for _, t := range queryTokens {
		if t == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(t)) {
			hits++
		}
	}
	return float64(hits) / float64(len(queryTokens))
}
