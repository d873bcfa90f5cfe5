package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/forge9/codeindex/internal/chunkindexer"
	"github.com/forge9/codeindex/internal/chunkstore"
	"github.com/forge9/codeindex/internal/config"
	"github.com/forge9/codeindex/internal/embedclient"
	"github.com/forge9/codeindex/internal/manifeststore"
	"github.com/forge9/codeindex/internal/pipeline"
	"github.com/forge9/codeindex/internal/scanner"
	"github.com/forge9/codeindex/internal/splitter"
)

// openStore opens the three-surface chunk store at the paths named by
// cfg.Store, rooted under cfg.Paths.SafeRoot.
func openStore(ctx context.Context, cfg config.Config) (*chunkstore.Store, error) {
	storeDir := filepath.Join(cfg.Paths.SafeRoot, cfg.Store.Dir)
	if err := os.MkdirAll(storeDir, 0o755); err != nil {
		exitCode = 2
		return nil, fmt.Errorf("create store dir %s: %w", storeDir, err)
	}
	bm25Path := filepath.Join(storeDir, cfg.Store.BM25IndexName)
	metaPath := filepath.Join(storeDir, "meta.db")
	vectorPath := filepath.Join(storeDir, "vectors.hnsw")

	s, err := chunkstore.Open(ctx, bm25Path, metaPath, vectorPath, cfg.Embeddings.Dimensions)
	if err != nil {
		exitCode = 2
		return nil, fmt.Errorf("open chunk store: %w", err)
	}
	return s, nil
}

func openEmbedder(ctx context.Context, cfg config.Config) (embedclient.Embedder, error) {
	e, err := embedclient.New(ctx, cfg.Embeddings.Endpoint, cfg.Embeddings.Model, 0)
	if err != nil {
		exitCode = 2
		return nil, fmt.Errorf("open embedding client: %w", err)
	}
	return e, nil
}

// buildPipeline wires a Pipeline ready to run Build over cfg.Paths.SafeRoot.
func buildPipeline(ctx context.Context, cfg config.Config) (*pipeline.Pipeline, *chunkstore.Store, embedclient.Embedder, error) {
	ignorePath := filepath.Join(cfg.Paths.SafeRoot, cfg.Paths.IgnoreFile)
	sc, err := scanner.New(ignorePath)
	if err != nil {
		exitCode = 2
		return nil, nil, nil, fmt.Errorf("open scanner: %w", err)
	}

	manifestPath := filepath.Join(cfg.Paths.SafeRoot, cfg.Store.Dir, cfg.Store.ManifestIndexName)
	manifest, err := manifeststore.Open(manifestPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open manifest store: %w", err)
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	embedder, err := openEmbedder(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	sp := splitter.NewAnthropicSplitter(cfg.AnthropicAPIKey(), cfg.LLM.Model)
	idx := chunkindexer.New(store, embedder)

	p := &pipeline.Pipeline{
		Scanner:  sc,
		Manifest: manifest,
		Splitter: sp,
		Store:    store,
		Indexer:  idx,
		Embedder: embedder,
		RootDir:  cfg.Paths.SafeRoot,
	}
	return p, store, embedder, nil
}
