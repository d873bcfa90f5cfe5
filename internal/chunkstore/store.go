package chunkstore

import (
	"context"
	"fmt"

	"github.com/forge9/codeindex/internal/model"
)

// Store aggregates the three surfaces a chunk is persisted across. All
// three document structures are driven from a single model.Chunk so no
// caller has to remember to update them in the right order; Store does.
type Store struct {
	BM25   *BM25Index
	Vector *VectorIndex
	Meta   *MetadataStore
}

// Open constructs the three backing indexes. bm25Path/metaPath/vectorPath
// of "" use in-memory/`:memory:` stores, for tests and search-only
// debugging.
func Open(ctx context.Context, bm25Path, metaPath, vectorPath string, dimensions int) (*Store, error) {
	meta, err := OpenMetadataStore(ctx, metaPath)
	if err != nil {
		return nil, fmt.Errorf("open chunk metadata store: %w", err)
	}
	bm25, err := OpenBM25Index(bm25Path)
	if err != nil {
		_ = meta.Close()
		return nil, fmt.Errorf("open chunk bm25 index: %w", err)
	}
	vec, err := NewVectorIndex(dimensions, meta, vectorPath)
	if err != nil {
		_ = meta.Close()
		_ = bm25.Close()
		return nil, fmt.Errorf("open chunk vector index: %w", err)
	}
	return &Store{BM25: bm25, Vector: vec, Meta: meta}, nil
}

// WriteChunks indexes a batch of chunks across all three surfaces. The
// caller (ChunkIndexer) is responsible for chunking this into bulk-sized
// batches and for deleting superseded chunks first.
func (s *Store) WriteChunks(ctx context.Context, chunks []model.Chunk) error {
	for _, c := range chunks {
		if err := s.Meta.Upsert(ctx, c); err != nil {
			return err
		}
		if err := s.BM25.Upsert(ctx, c.ChunkID, c.Path, c.Text, c.Symbols); err != nil {
			return fmt.Errorf("bm25 upsert %s: %w", c.ChunkID, err)
		}
		if err := s.Vector.Upsert(ctx, c.ChunkID, c.Embedding); err != nil {
			return fmt.Errorf("vector upsert %s: %w", c.ChunkID, err)
		}
	}
	return nil
}

// DeleteByPath removes every chunk belonging to path from all three
// surfaces; the scoped, conflicts=proceed delete the incremental pipeline
// performs before a rewrite and on disappearance.
func (s *Store) DeleteByPath(ctx context.Context, path string) error {
	ids, err := s.Meta.DeleteByPath(ctx, path)
	if err != nil {
		return fmt.Errorf("metadata delete for %s: %w", path, err)
	}
	if err := s.BM25.DeleteByPath(ctx, path); err != nil {
		return fmt.Errorf("bm25 delete for %s: %w", path, err)
	}
	if len(ids) > 0 {
		if err := s.Vector.Delete(ctx, ids); err != nil {
			return fmt.Errorf("vector delete for %s: %w", path, err)
		}
	}
	return nil
}

// Close releases all three underlying stores.
func (s *Store) Close() error {
	var firstErr error
	for _, closer := range []func() error{s.BM25.Close, s.Vector.Close, s.Meta.Close} {
		if err := closer(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
