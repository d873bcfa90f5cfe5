package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/forge9/codeindex/internal/ui"
)

var (
	statusJSON    bool
	statusNoColor bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report index health: file/chunk counts, storage footprint, embedder reachability",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		chunks, err := store.Meta.AllChunks(ctx)
		if err != nil {
			exitCode = 1
			return fmt.Errorf("load chunks: %w", err)
		}

		paths := map[string]struct{}{}
		for _, c := range chunks {
			paths[c.Path] = struct{}{}
		}

		storeDir := filepath.Join(cfg.Paths.SafeRoot, cfg.Store.Dir)
		info := ui.StatusInfo{
			ProjectName:    filepath.Base(cfg.Paths.SafeRoot),
			TotalFiles:     len(paths),
			TotalChunks:    len(chunks),
			LastIndexed:    dirModTime(storeDir),
			MetadataSize:   fileSize(filepath.Join(storeDir, "meta.db")),
			BM25Size:       int64(dirSizeOrZero(filepath.Join(storeDir, cfg.Store.BM25IndexName))),
			VectorSize:     fileSize(filepath.Join(storeDir, "vectors.hnsw")),
			EmbedderType:   "http",
			EmbedderStatus: probeEmbedder(ctx),
			EmbedderModel:  cfg.Embeddings.Model,
			WatcherStatus:  "n/a",
		}
		info.TotalSize = info.MetadataSize + info.BM25Size + info.VectorSize

		renderer := ui.NewStatusRenderer(os.Stdout, statusNoColor)
		if statusJSON {
			return renderer.RenderJSON(info)
		}
		return renderer.Render(info)
	},
}

// probeEmbedder reports whether the configured embedding endpoint answers a
// single-text batch. Routed through the same breaker-wrapped EmbedBatch the
// build pipeline uses, so a status check on a struggling endpoint counts as
// a failure toward that breaker's trip threshold like any other caller.
func probeEmbedder(ctx context.Context) string {
	e, err := openEmbedder(ctx, cfg)
	if err != nil {
		return "error"
	}
	if _, err := e.EmbedBatch(ctx, []string{"ping"}); err != nil {
		return "offline"
	}
	return "ready"
}

func dirModTime(dir string) time.Time {
	info, err := os.Stat(dir)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func dirSizeOrZero(path string) uint64 {
	size, err := dirSize(path)
	if err != nil {
		return 0
	}
	return size
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "emit status as JSON")
	statusCmd.Flags().BoolVar(&statusNoColor, "no-color", false, "disable ANSI styling in the status report")
	rootCmd.AddCommand(statusCmd)
}
