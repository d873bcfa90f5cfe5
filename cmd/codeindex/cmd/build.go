package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/forge9/codeindex/internal/lock"
	"github.com/forge9/codeindex/internal/ui"
)

var buildQuiet bool

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Scan the project and incrementally (re)index changed files",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			exitCode = 1
			return fmt.Errorf("config: %w", err)
		}

		ctx := cmd.Context()

		storeDir := filepath.Join(cfg.Paths.SafeRoot, cfg.Store.Dir)
		if err := os.MkdirAll(storeDir, 0o755); err != nil {
			exitCode = 2
			return fmt.Errorf("create store dir %s: %w", storeDir, err)
		}
		l := lock.New(storeDir)
		ok, err := l.TryLock()
		if err != nil {
			exitCode = 1
			return fmt.Errorf("acquire build lock: %w", err)
		}
		if !ok {
			exitCode = 1
			return fmt.Errorf("a graph-link or build run already holds the index lock")
		}
		defer func() { _ = l.Unlock() }()

		p, store, embedder, err := buildPipeline(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		defer func() { _ = embedder.Close() }()
		defer func() { _ = p.Manifest.Close() }()

		renderer := ui.NewRenderer(ui.NewConfig(os.Stdout, ui.WithForcePlain(buildQuiet), ui.WithProjectDir(cfg.Paths.SafeRoot)))
		_ = renderer.Start(ctx)
		if !buildQuiet {
			p.Progress = renderer.UpdateProgress
		}

		start := time.Now()
		stats, err := p.Build(ctx)
		if err != nil {
			exitCode = 1
			return fmt.Errorf("build: %w", err)
		}

		renderer.Complete(ui.CompletionStats{
			Files: stats.Indexed, Chunks: stats.ChunksNew, Duration: time.Since(start),
			Errors: stats.Failed, Embedder: ui.EmbedderInfo{Backend: "http", Model: cfg.Embeddings.Model, Dimensions: cfg.Embeddings.Dimensions},
		})
		_ = renderer.Stop()

		slog.Info("build complete",
			slog.Int("scanned", stats.Scanned), slog.Int("indexed", stats.Indexed),
			slog.Int("skipped", stats.Skipped), slog.Int("deleted", stats.Deleted),
			slog.Int("failed", stats.Failed), slog.Int("chunks_new", stats.ChunksNew))

		if stats.Failed > 0 {
			exitCode = 1
			return fmt.Errorf("%d file(s) failed to index", stats.Failed)
		}
		return nil
	},
}

func init() {
	buildCmd.Flags().BoolVar(&buildQuiet, "quiet", false, "suppress per-file progress output")
	rootCmd.AddCommand(buildCmd)
}
