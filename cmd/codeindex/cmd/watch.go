package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/forge9/codeindex/internal/async"
	"github.com/forge9/codeindex/internal/pipeline"
	"github.com/forge9/codeindex/internal/ui"
	"github.com/forge9/codeindex/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the project root and re-run build on every debounced change",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			exitCode = 1
			return fmt.Errorf("config: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		w, err := watcher.NewHybridWatcher(watcher.DefaultOptions())
		if err != nil {
			exitCode = 1
			return fmt.Errorf("start watcher: %w", err)
		}
		startErr := make(chan error, 1)
		go func() { startErr <- w.Start(ctx, cfg.Paths.SafeRoot) }()
		defer func() { _ = w.Stop() }()

		p, store, embedder, err := buildPipeline(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		defer func() { _ = embedder.Close() }()
		defer func() { _ = p.Manifest.Close() }()

		slog.Info("watching for changes", slog.String("root", cfg.Paths.SafeRoot))
		fmt.Printf("watching %s (ctrl-c to stop)\n", cfg.Paths.SafeRoot)

		indexer := async.NewBackgroundIndexer(async.IndexerConfig{
			DataDir: filepath.Join(cfg.Paths.SafeRoot, cfg.Store.Dir),
		})
		rebuildThroughput := ui.NewSparkline(30)
		indexer.IndexFunc = func(ctx context.Context, progress *async.IndexProgress) error {
			return runBuildOnce(ctx, p, progress, rebuildThroughput)
		}

		triggerRebuild := func(reason string) {
			if indexer.IsRunning() {
				slog.Debug("rebuild already in progress, event folded into next run", slog.String("reason", reason))
				return
			}
			slog.Info("rebuilding", slog.String("reason", reason))
			indexer.Start(ctx)
		}
		triggerRebuild("initial build")

		for {
			select {
			case <-ctx.Done():
				indexer.Stop()
				return nil
			case err := <-startErr:
				indexer.Stop()
				if err != nil && ctx.Err() == nil {
					exitCode = 1
					return fmt.Errorf("watch %s: %w", cfg.Paths.SafeRoot, err)
				}
				return nil
			case batch, ok := <-w.Events():
				if !ok {
					return nil
				}
				triggerRebuild(fmt.Sprintf("%d change(s) detected", len(batch)))
			case err, ok := <-w.Errors():
				if !ok {
					continue
				}
				slog.Warn("watcher error", slog.String("error", err.Error()))
			}
		}
	},
}

func runBuildOnce(ctx context.Context, p *pipeline.Pipeline, progress *async.IndexProgress, throughput *ui.Sparkline) error {
	progress.SetStage(async.StageIndexing, 0)
	stats, err := p.Build(ctx)
	if err != nil {
		return err
	}
	progress.UpdateFiles(stats.Indexed)
	progress.SetChunksTotal(stats.ChunksNew)
	progress.UpdateChunks(stats.ChunksNew)
	throughput.Add(float64(stats.ChunksNew))
	slog.Info("rebuild complete",
		slog.Int("scanned", stats.Scanned), slog.Int("indexed", stats.Indexed),
		slog.Int("skipped", stats.Skipped), slog.Int("deleted", stats.Deleted))
	fmt.Printf("chunks/rebuild: %s\n", throughput.Render())
	return nil
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
