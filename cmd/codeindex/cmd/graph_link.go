package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/forge9/codeindex/internal/graphlinker"
	"github.com/forge9/codeindex/internal/lock"
	"github.com/forge9/codeindex/internal/output"
)

var graphLinkCmd = &cobra.Command{
	Use:   "graph-link",
	Short: "Compute question/answer similarity links across the indexed chunks",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := output.New(cmd.OutOrStdout())
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
			return fmt.Errorf("acquire graph-link lock: %w", err)
		}
		if !ok {
			exitCode = 1
			return fmt.Errorf("another build or graph-link run holds the index lock")
		}
		defer func() { _ = l.Unlock() }()

		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		embedder, err := openEmbedder(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = embedder.Close() }()

		linker, err := graphlinker.New(store, embedder, cfg.Graph.SimilarityThreshold, cfg.Graph.MaxLinksPerChunk)
		if err != nil {
			exitCode = 1
			out.Error(err.Error())
			return fmt.Errorf("build graph linker: %w", err)
		}

		out.Status("~", "computing chunk similarity links")
		if err := linker.Run(ctx); err != nil {
			exitCode = 1
			out.Error(err.Error())
			return fmt.Errorf("graph-link: %w", err)
		}
		slog.Info("graph-link complete")
		out.Success("graph-link complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphLinkCmd)
}
