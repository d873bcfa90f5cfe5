package chunkstore

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/forge9/codeindex/internal/store"
)

// VectorIndex is the kNN half of the chunk store. It wraps the HNSW graph
// and adds the path-prefix filtering the retriever's contract requires but
// coder/hnsw has no native support for: over-fetch num_candidates, then
// filter client-side against the metadata store's path lookup.
type VectorIndex struct {
	hnsw *store.HNSWStore
	meta *MetadataStore
	path string
}

// NewVectorIndex wires an HNSW graph of the given dimensionality to the
// metadata store used to resolve a hit's path for prefix filtering. An
// empty path keeps the graph in memory only, for tests and search-only
// debugging; otherwise an existing graph at path is loaded, and a fatal
// dimension mismatch against an on-disk graph is surfaced to the caller
// (spec: exit code 2).
func NewVectorIndex(dimensions int, meta *MetadataStore, path string) (*VectorIndex, error) {
	if path != "" {
		if existing, err := store.ReadHNSWStoreDimensions(path); err == nil && existing != 0 && existing != dimensions {
			return nil, fmt.Errorf("vector index at %s has dimension %d, embedder requires %d", path, existing, dimensions)
		}
	}

	hnswStore, err := store.NewHNSWStore(store.DefaultVectorStoreConfig(dimensions))
	if err != nil {
		return nil, fmt.Errorf("create hnsw vector index: %w", err)
	}
	v := &VectorIndex{hnsw: hnswStore, meta: meta, path: path}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := hnswStore.Load(path); err != nil {
				return nil, fmt.Errorf("load hnsw vector index %s: %w", path, err)
			}
		}
	}
	return v, nil
}

// Save persists the graph to its backing path. A no-op for in-memory
// indexes.
func (v *VectorIndex) Save() error {
	if v.path == "" {
		return nil
	}
	if err := v.hnsw.Save(v.path); err != nil {
		return fmt.Errorf("save hnsw vector index %s: %w", v.path, err)
	}
	return nil
}

// Upsert adds or replaces a chunk's embedding.
func (v *VectorIndex) Upsert(ctx context.Context, chunkID string, embedding []float32) error {
	return v.hnsw.Add(ctx, []string{chunkID}, [][]float32{embedding})
}

// Delete removes chunk embeddings by id.
func (v *VectorIndex) Delete(ctx context.Context, chunkIDs []string) error {
	return v.hnsw.Delete(ctx, chunkIDs)
}

// VectorHit is a single kNN retrieval hit.
type VectorHit struct {
	ChunkID string
	Score   float32
}

// Search embeds nothing itself (the caller passes an already-embedded query
// vector) and returns up to shortlist hits after over-fetching
// numCandidates = 4*shortlist and applying the path-prefix filter.
func (v *VectorIndex) Search(ctx context.Context, query []float32, shortlist int, pathPrefix string) ([]VectorHit, error) {
	numCandidates := 4 * shortlist
	raw, err := v.hnsw.Search(ctx, query, numCandidates)
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}

	hits := make([]VectorHit, 0, shortlist)
	for _, r := range raw {
		if pathPrefix != "" {
			path, ok, err := v.meta.PathOf(ctx, r.ID)
			if err != nil {
				return nil, fmt.Errorf("resolve path for knn hit %s: %w", r.ID, err)
			}
			if !ok || !strings.HasPrefix(path, pathPrefix) {
				continue
			}
		}
		hits = append(hits, VectorHit{ChunkID: r.ID, Score: r.Score})
		if len(hits) == shortlist {
			break
		}
	}
	return hits, nil
}

// Close saves the graph (if backed by a path) and releases it.
func (v *VectorIndex) Close() error {
	if err := v.Save(); err != nil {
		return err
	}
	return v.hnsw.Close()
}
