// Command mira is the entrypoint for the memory/code-intelligence server.
// It wires config/storage startup (internal/lifecycle) to the tool
// registry (internal/rpc) and the background maintenance scheduler
// (internal/maintenance), following the teacher's cmd/same/main.go
// cobra-root-plus-subcommands shape, trimmed to this service's single
// long-running job.
package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mira-dev/mira/internal/codeintel"
	"github.com/mira-dev/mira/internal/gitintel"
	"github.com/mira-dev/mira/internal/ingest"
	"github.com/mira-dev/mira/internal/lifecycle"
	"github.com/mira-dev/mira/internal/maintenance"
	"github.com/mira-dev/mira/internal/retrieval"
	"github.com/mira-dev/mira/internal/rpc"
)

// Version is set at build time via ldflags, mirroring the teacher.
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "mira",
		Short: "Local memory and code-intelligence server for AI coding assistants",
		Long: `mira gives an AI coding assistant durable, project-scoped memory:
decisions, facts, session summaries, tasks, code symbols, and the
history of fixes and build errors. It speaks JSON-RPC over stdio.`,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	}

	root.AddCommand(serveCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(lifecycle.ExitOther)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the mira version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("mira %s (%s)\n", Version, runtime.Version())
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON-RPC stdio server",
		RunE: func(cmd *cobra.Command, args []string) error {
			os.Exit(run())
			return nil
		},
	}
}

// run performs the full startup sequence and blocks until shutdown,
// returning the process exit code per spec §6.
func run() int {
	sys, err := lifecycle.Start(Version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mira: %v\n", err)
		return classifyStartupError(err)
	}
	defer sys.Close()

	now := func() int64 { return time.Now().Unix() }

	pipeline := ingest.NewPipeline(sys.DB, sys.Vec, sys.Embed, now)
	recaller := retrieval.NewRecaller(sys.DB, sys.Vec, sys.Embed, now)
	searcher := codeintel.NewSearcher(sys.DB, sys.Vec, sys.Embed, now)
	indexer := codeintel.NewIndexer(sys.DB, sys.Vec, sys.Embed, codeintel.DefaultWorkers, now)
	fixes := gitintel.NewFixes(sys.DB, sys.Vec, sys.Embed, now)

	reg := rpc.BuildRegistry(rpc.Deps{
		DB:       sys.DB,
		Vec:      sys.Vec,
		Pipeline: pipeline,
		Recaller: recaller,
		Searcher: searcher,
		Indexer:  indexer,
		Fixes:    fixes,
		Now:      now,
	})

	rpc.Version = Version
	server := rpc.NewServer(reg, os.Stdout, sys.Logger)

	ctx, stop := lifecycle.WithSignals(context.Background())
	defer stop()

	sched := maintenance.NewScheduler(sys.DB, sys.Vec, sys.Embed, sys.Config.MaintenanceTick, sys.Config.OrphanSweepEvery, now, sys.Logger)
	go sched.Run(ctx)

	if err := server.Serve(ctx, os.Stdin); err != nil {
		sys.Logger.Printf("server stopped with error: %v", err)
		return lifecycle.ExitStorageError
	}
	return lifecycle.ExitClean
}

// classifyStartupError distinguishes a bad config from a storage failure
// when lifecycle.Start fails before a System is available to inspect.
func classifyStartupError(err error) int {
	if strings.HasPrefix(err.Error(), "storage error") {
		return lifecycle.ExitStorageError
	}
	return lifecycle.ExitConfigError
}
