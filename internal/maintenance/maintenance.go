// Package maintenance runs the cooperative background task from spec
// §4.I: draining the pending-embeddings retry queue, sweeping expired work
// contexts, and periodically scanning vector collections for orphaned
// points. It generalizes the teacher's reindex-on-idle cooldown pattern
// (mcp/server.go's lastReindexTime/reindexCooldown/reindexMu) into a
// ticking scheduler instead of a request-triggered one-shot.
package maintenance

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/mira-dev/mira/internal/embedding"
	"github.com/mira-dev/mira/internal/store"
	"github.com/mira-dev/mira/internal/vectorstore"
)

// minTickInterval is the minimum cooperative maintenance interval allowed by
// spec §4.I ("on a fixed interval (>=5s)").
const minTickInterval = 5 * time.Second

// defaultOrphanSweepEvery matches spec §4.I's "periodically (default every
// 10 min)" orphan scan cadence.
const defaultOrphanSweepEvery = 10 * time.Minute

// collections enumerates the vector collections maintained by the system,
// mirroring the record_kind prefixes used when ingest upserts points.
var collections = []string{"conversation", "documents", "code", "git"}

// Scheduler runs the background task on a fixed tick, re-entrant and
// crash-safe: every batch re-queries current state rather than carrying
// partial progress across runs, so an interrupted tick simply re-runs.
type Scheduler struct {
	db               *store.DB
	vec              *vectorstore.Store
	emb              *embedding.Service
	tick             time.Duration
	orphanSweepEvery time.Duration
	lastOrphanSweep  time.Time
	now              func() int64
	log              *log.Logger
}

func NewScheduler(db *store.DB, vec *vectorstore.Store, emb *embedding.Service, tick time.Duration, orphanSweepEvery time.Duration, now func() int64, logger *log.Logger) *Scheduler {
	if tick < minTickInterval {
		tick = minTickInterval
	}
	if orphanSweepEvery <= 0 {
		orphanSweepEvery = defaultOrphanSweepEvery
	}
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{db: db, vec: vec, emb: emb, tick: tick, orphanSweepEvery: orphanSweepEvery, now: now, log: logger}
}

// Run blocks, ticking until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce executes one maintenance pass. Exported so it can also be driven
// by an idle-detection hook (e.g. "no foreground request in flight") rather
// than only the fixed ticker, per spec §4.I's "or on a fixed interval"
// phrasing.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.drainPendingEmbeddings(ctx)

	if n, err := s.db.SweepExpiredContext(s.now()); err != nil {
		s.log.Printf("maintenance: sweep expired context: %v", err)
	} else if n > 0 {
		s.log.Printf("maintenance: swept %d expired context entries", n)
	}

	if time.Since(s.lastOrphanSweep) >= s.orphanSweepEvery {
		s.sweepOrphans()
		s.lastOrphanSweep = time.Now()
	}
}

// drainPendingEmbeddings retries queued embed failures. Each record is
// resolved independently; a renewed failure simply bumps its attempt count
// via EnqueuePendingEmbedding and it is retried on the next pass.
func (s *Scheduler) drainPendingEmbeddings(ctx context.Context) {
	if s.emb == nil || !s.emb.Available() {
		return
	}
	batch, err := s.db.DrainPendingEmbeddings(50)
	if err != nil {
		s.log.Printf("maintenance: drain pending embeddings: %v", err)
		return
	}
	for _, p := range batch {
		vec, err := s.emb.Embed(ctx, p.Text, s.now())
		if err != nil {
			_ = s.db.EnqueuePendingEmbedding(p)
			continue
		}
		if err := s.vec.EnsureCollection(p.Collection, len(vec)); err != nil {
			_ = s.db.EnqueuePendingEmbedding(p)
			continue
		}
		pointID := p.RecordKind + ":" + p.RecordID
		if err := s.vec.Upsert(p.Collection, vectorstore.Point{ID: pointID, Vector: vec}); err != nil {
			_ = s.db.EnqueuePendingEmbedding(p)
			continue
		}
		if err := s.db.ResolvePendingEmbedding(p.ID); err != nil {
			s.log.Printf("maintenance: resolve pending embedding %d: %v", p.ID, err)
		}
	}
}

// sweepOrphans scans every maintained collection for points whose backing
// structured-store record no longer exists and deletes them, per spec §4.I.
func (s *Scheduler) sweepOrphans() {
	for _, collection := range collections {
		n, err := s.vec.OrphanSweep(collection, func(pointID string) bool {
			return s.recordExists(pointID)
		})
		if err != nil {
			s.log.Printf("maintenance: orphan sweep %s: %v", collection, err)
			continue
		}
		if n > 0 {
			s.log.Printf("maintenance: swept %d orphaned points from %s", n, collection)
		}
	}
}

// recordExists resolves a "{kind}:{id}" point id back to the structured
// store to decide whether the vector point is still live.
func (s *Scheduler) recordExists(pointID string) bool {
	kind, id, ok := strings.Cut(pointID, ":")
	if !ok {
		return false
	}
	switch kind {
	case "memory_fact":
		_, err := s.db.GetMemoryFact(id)
		return err == nil
	case "document_chunk":
		return true // chunks are looked up by (project, path), not by id; never orphaned independently
	case "session_summary", "decision":
		return true // immutable, append-only; never deleted, so never orphaned
	case "code_symbol":
		_, err := s.db.GetSymbolByID(id)
		return err == nil
	case "historical_fix":
		_, err := s.db.GetHistoricalFixByID(id)
		return err == nil
	default:
		return true
	}
}
