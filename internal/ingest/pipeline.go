package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mira-dev/mira/internal/embedding"
	"github.com/mira-dev/mira/internal/security"
	"github.com/mira-dev/mira/internal/store"
	"github.com/mira-dev/mira/internal/vectorstore"
)

// Result reports the outcome of running a record through the pipeline.
type Result struct {
	ID       string
	Inserted bool // false if an existing record was deduped/bumped instead
	Flagged  bool
	Embedded bool // false if embedding failed and was queued for retry
}

// Pipeline wires the structured store, vector store, and embedding service
// together to implement spec §4.D's five-step ingest: canonicalize, dedupe,
// persist, embed, vector-upsert.
type Pipeline struct {
	db   *store.DB
	vec  *vectorstore.Store
	emb  *embedding.Service
	now  func() int64
}

// NewPipeline builds a Pipeline. now defaults to time.Now().Unix() if nil,
// overridable in tests for deterministic timestamps.
func NewPipeline(db *store.DB, vec *vectorstore.Store, emb *embedding.Service, now func() int64) *Pipeline {
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	return &Pipeline{db: db, vec: vec, emb: emb, now: now}
}

// IngestMemoryFact runs a remember() call through the full pipeline.
func (p *Pipeline) IngestMemoryFact(ctx context.Context, m store.MemoryFact) (Result, error) {
	canonical := Canonicalize(m.Content)
	m.Content = canonical
	m.ContentHash = ContentHash(canonical)
	m.Flagged = security.ScanText(canonical)

	now := p.now()
	if m.CreatedAt == 0 {
		m.CreatedAt = now
	}
	m.LastUsedAt = now
	if m.Confidence == 0 {
		m.Confidence = 0.1 // low prior; climbs via the fixed dedupe bump in UpsertMemoryFact
	}

	id := uuid.NewString()
	existingID, inserted, err := p.db.UpsertMemoryFact(id, m)
	if err != nil {
		return Result{}, fmt.Errorf("ingest memory fact: %w", err)
	}

	res := Result{ID: existingID, Inserted: inserted, Flagged: m.Flagged}
	if m.Flagged {
		return res, nil // flagged content is persisted but never embedded
	}

	res.Embedded = p.embedAndUpsert(ctx, "memory_fact", existingID, "conversation", canonical, map[string]string{
		"kind":       m.Kind,
		"project_id": m.ProjectID,
	})
	return res, nil
}

// IngestDocumentChunk runs a document chunk (from ingest_document) through
// the pipeline.
func (p *Pipeline) IngestDocumentChunk(ctx context.Context, d store.DocumentChunk) (Result, error) {
	canonical := Canonicalize(d.Content)
	d.Content = canonical
	d.ContentHash = ContentHash(canonical)
	d.Flagged = security.ScanText(canonical)
	if d.IndexedAt == 0 {
		d.IndexedAt = p.now()
	}

	id := uuid.NewString()
	existingID, inserted, err := p.db.UpsertDocumentChunk(id, d)
	if err != nil {
		return Result{}, fmt.Errorf("ingest document chunk: %w", err)
	}

	res := Result{ID: existingID, Inserted: inserted, Flagged: d.Flagged}
	if d.Flagged {
		return res, nil
	}

	res.Embedded = p.embedAndUpsert(ctx, "document_chunk", existingID, "documents", canonical, map[string]string{
		"project_id": d.ProjectID,
		"path":       d.Path,
	})
	return res, nil
}

// IngestSessionSummary runs an end-of-session summary through the
// pipeline. Session summaries are immutable once written, so a dedupe hit
// is returned as-is without re-embedding.
func (p *Pipeline) IngestSessionSummary(ctx context.Context, s store.SessionSummary) (Result, error) {
	canonical := Canonicalize(s.Summary)
	s.Summary = canonical
	s.ContentHash = ContentHash(canonical)
	flagged := security.ScanText(canonical)

	id := uuid.NewString()
	existingID, inserted, err := p.db.InsertSessionSummary(id, s)
	if err != nil {
		return Result{}, fmt.Errorf("ingest session summary: %w", err)
	}

	res := Result{ID: existingID, Inserted: inserted, Flagged: flagged}
	if !inserted || flagged {
		return res, nil
	}

	res.Embedded = p.embedAndUpsert(ctx, "session_summary", existingID, "conversation", canonical, map[string]string{
		"project_id": s.ProjectID,
	})
	return res, nil
}

// IngestDecision runs a recorded decision through the pipeline. Decisions
// carry no project scoping in the store, matching spec §3.
func (p *Pipeline) IngestDecision(ctx context.Context, d store.Decision) (Result, error) {
	canonical := Canonicalize(d.Title + "\n" + d.Rationale)
	d.ContentHash = ContentHash(canonical)
	flagged := security.ScanText(canonical)

	id := uuid.NewString()
	existingID, inserted, err := p.db.InsertDecision(id, d)
	if err != nil {
		return Result{}, fmt.Errorf("ingest decision: %w", err)
	}

	res := Result{ID: existingID, Inserted: inserted, Flagged: flagged}
	if !inserted || flagged {
		return res, nil
	}

	res.Embedded = p.embedAndUpsert(ctx, "decision", existingID, "conversation", canonical, nil)
	return res, nil
}

// IngestDocument parses frontmatter out of a raw document, splits the body
// into chunks, and ingests each chunk independently, returning one Result
// per chunk in order.
func (p *Pipeline) IngestDocument(ctx context.Context, projectID, path, content string) ([]Result, error) {
	parsed := ParseDocument(content)

	var frontmatterJSON string
	if len(parsed.Meta) > 0 {
		if b, err := json.Marshal(parsed.Meta); err == nil {
			frontmatterJSON = string(b)
		}
	}

	chunks := ChunkDocument(parsed.Body)
	results := make([]Result, 0, len(chunks))
	for i, c := range chunks {
		res, err := p.IngestDocumentChunk(ctx, store.DocumentChunk{
			ProjectID:   projectID,
			Path:        path,
			ChunkIndex:  i,
			Content:     c.Text,
			Frontmatter: frontmatterJSON,
		})
		if err != nil {
			return results, fmt.Errorf("ingest document %s chunk %d: %w", path, i, err)
		}
		results = append(results, res)
	}
	return results, nil
}

// embedAndUpsert embeds text and writes it into the named vector
// collection. On embedding failure it enqueues a pending_embeddings retry
// row instead of failing the whole ingest call, per spec §4.D step 4.
func (p *Pipeline) embedAndUpsert(ctx context.Context, recordKind, recordID, collection, text string, meta map[string]string) bool {
	if p.emb == nil || !p.emb.Available() {
		p.enqueueRetry(recordKind, recordID, collection, text, "embedding unavailable")
		return false
	}

	vec, err := p.emb.Embed(ctx, text, p.now())
	if err != nil {
		p.enqueueRetry(recordKind, recordID, collection, text, err.Error())
		return false
	}

	if err := p.vec.EnsureCollection(collection, len(vec)); err != nil {
		p.enqueueRetry(recordKind, recordID, collection, text, err.Error())
		return false
	}

	pointID := recordKind + ":" + recordID
	if err := p.vec.Upsert(collection, vectorstore.Point{ID: pointID, Vector: vec, Metadata: meta}); err != nil {
		p.enqueueRetry(recordKind, recordID, collection, text, err.Error())
		return false
	}
	return true
}

func (p *Pipeline) enqueueRetry(recordKind, recordID, collection, text, lastErr string) {
	_ = p.db.EnqueuePendingEmbedding(store.PendingEmbedding{
		RecordKind: recordKind,
		RecordID:   recordID,
		Collection: collection,
		Text:       text,
		EnqueuedAt: p.now(),
		LastError:  lastErr,
	})
}
