package cmd

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/forge9/codeindex/internal/profiling"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Report index size and composition",
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

		byLang := map[string]int{}
		byKind := map[string]int{}
		paths := map[string]struct{}{}
		for _, c := range chunks {
			byLang[c.Lang]++
			byKind[c.Kind]++
			paths[c.Path] = struct{}{}
		}

		fmt.Printf("files:  %d\n", len(paths))
		fmt.Printf("chunks: %d\n", len(chunks))
		fmt.Printf("dimensions: %d\n", cfg.Embeddings.Dimensions)

		fmt.Println("by language:")
		for _, lang := range sortedKeys(byLang) {
			fmt.Printf("  %-12s %d\n", lang, byLang[lang])
		}
		fmt.Println("by kind:")
		for _, kind := range sortedKeys(byKind) {
			fmt.Printf("  %-12s %d\n", kind, byKind[kind])
		}

		if size, err := dirSize(filepath.Join(cfg.Paths.SafeRoot, cfg.Store.Dir)); err == nil {
			fmt.Printf("on disk: %s (%s)\n", cfg.Store.Dir, profiling.FormatBytes(size))
		}
		return nil
	},
}

// dirSize sums the apparent size of every regular file under dir, used to
// report the combined footprint of the vector store, BM25 index, and
// manifest database without hardcoding their individual file names here.
func dirSize(dir string) (uint64, error) {
	var total uint64
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += uint64(info.Size())
		return nil
	})
	return total, err
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
