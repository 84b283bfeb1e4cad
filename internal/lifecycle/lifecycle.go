// Package lifecycle implements the startup/shutdown ordering from spec
// §4.J: open the structured store, run forward migrations, probe the
// vector store and embedding provider (both optional — their absence
// degrades gracefully rather than failing startup), emit a banner on
// stderr, and install SIGINT/SIGTERM handling for graceful shutdown.
// Generalized from the teacher's cmd/same/main.go + mcp.Serve() ordering.
package lifecycle

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mira-dev/mira/internal/config"
	"github.com/mira-dev/mira/internal/embedding"
	"github.com/mira-dev/mira/internal/store"
	"github.com/mira-dev/mira/internal/vectorstore"
)

// Exit codes per spec §6.
const (
	ExitClean         = 0
	ExitConfigError   = 2
	ExitStorageError  = 3
	ExitOther         = 1
)

// System is every long-lived resource opened at startup.
type System struct {
	Config *config.Config
	DB     *store.DB
	Vec    *vectorstore.Store
	Embed  *embedding.Service
	Logger *log.Logger
}

// Start opens the structured store and runs migrations (fatal on failure),
// then optionally opens the vector store and embedding provider — a
// failure in either degrades the service to lexical-only / no-embed mode
// rather than aborting startup, per spec §4.J.
func Start(version string) (*System, error) {
	logger := log.New(os.Stderr, "mira: ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("storage error: %w", err)
	}

	vec := vectorstore.Open(db.Conn())

	var embedSvc *embedding.Service
	provider, perr := embedding.NewProvider(embedding.Config{
		Provider: cfg.EmbedProvider, Model: cfg.EmbedModel, APIKey: cfg.EmbedAPIKey,
		BaseURL: cfg.EmbedBaseURL, Dimensions: cfg.EmbedDim,
	})
	if perr != nil {
		logger.Printf("embedding provider unavailable, continuing without semantic recall: %v", perr)
	} else {
		svc, serr := embedding.NewService(provider, db.Conn(), cfg.CacheBytes, int(cfg.BatchMax), time.Duration(cfg.BatchWindowMS)*time.Millisecond)
		if serr != nil {
			logger.Printf("embedding service init failed, continuing without semantic recall: %v", serr)
		} else {
			embedSvc = svc
		}
	}

	logger.Printf("mira %s ready — db=%s vector=%v embed=%v", version, cfg.DatabaseURL, vec != nil, embedSvc != nil && embedSvc.Available())

	return &System{Config: cfg, DB: db, Vec: vec, Embed: embedSvc, Logger: logger}, nil
}

// Close releases every resource opened by Start, best-effort.
func (s *System) Close() {
	if s.DB != nil {
		_ = s.DB.Close()
	}
}

// WithSignals returns a context cancelled on SIGINT/SIGTERM and a cleanup
// function to stop watching signals. Callers use the returned context to
// bound the server's Serve loop, which must drain in-flight requests before
// returning once cancellation fires.
func WithSignals(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}
