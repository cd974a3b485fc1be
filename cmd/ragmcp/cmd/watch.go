package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/mr-nozko/rag-mcp/internal/ingest"
	"github.com/mr-nozko/rag-mcp/internal/store"
	"github.com/mr-nozko/rag-mcp/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	var debounceMs int

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the corpus directory and re-ingest changed files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, debounceMs)
		},
	}
	cmd.Flags().IntVar(&debounceMs, "debounce-ms", 200, "debounce window before a batch of changes is processed")
	return cmd
}

func runWatch(cmd *cobra.Command, debounceMs int) error {
	ctx := cmd.Context()

	b, err := openBootstrap(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer b.Close()

	ing := ingest.New(b.st, ingest.Options{
		Root:              b.root,
		AllowedExtensions: b.cfg.RAGMCP.AllowedExtensions,
		Chunk:             chunkOptions(b.cfg),
	})

	opts := watcher.Options{DebounceWindow: time.Duration(debounceMs) * time.Millisecond}.WithDefaults()
	w, err := watcher.NewHybridWatcher(opts)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	go func() {
		if err := w.Start(ctx, b.root); err != nil && err != context.Canceled {
			slog.Error("watcher stopped", slog.String("error", err.Error()))
		}
	}()

	slog.Info("watching corpus", slog.String("root", b.root), slog.String("backend", w.WatcherType()))

	for {
		select {
		case <-ctx.Done():
			return w.Stop()
		case batch, ok := <-w.Events():
			if !ok {
				return nil
			}
			handleWatchBatch(ctx, b.st, ing, batch)
		case werr, ok := <-w.Errors():
			if !ok {
				continue
			}
			slog.Warn("watcher error", slog.String("error", werr.Error()))
		}
	}
}

func handleWatchBatch(ctx context.Context, st *store.Store, ing *ingest.Ingester, batch []watcher.FileEvent) {
	for _, ev := range batch {
		if ev.IsDir {
			continue
		}

		switch ev.Operation {
		case watcher.OpDelete:
			err := st.Transaction(ctx, func(tx *sql.Tx) error {
				return store.DeleteDocumentByPath(ctx, tx, ev.Path)
			})
			if err != nil {
				slog.Warn("delete on watch failed", slog.String("path", ev.Path), slog.String("error", err.Error()))
			}
		case watcher.OpGitignoreChange, watcher.OpConfigChange:
			slog.Debug("ignoring reconciliation-only watch event", slog.String("path", ev.Path), slog.String("op", ev.Operation.String()))
		default:
			if _, err := ing.IngestPath(ctx, ev.Path); err != nil {
				slog.Warn("ingest on watch failed", slog.String("path", ev.Path), slog.String("error", err.Error()))
			}
		}
	}
}
