// Package chunkindexer assembles normalized blocks into chunk documents and
// writes them through the chunk store's bulk protocol.
package chunkindexer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/forge9/codeindex/internal/chunkstore"
	"github.com/forge9/codeindex/internal/embedclient"
	"github.com/forge9/codeindex/internal/model"
)

// BulkSize and BulkTimeout bound every write batch to the chunk store, per
// the bulk protocol's contract: 2000 chunks, 120s to durably commit them.
const (
	BulkSize    = 2000
	BulkTimeout = 120 * time.Second
)

// Indexer turns a file's normalized blocks into chunk documents and writes
// them to the chunk store in bulk-sized batches.
type Indexer struct {
	store    *chunkstore.Store
	embedder embedclient.Embedder
}

// New constructs an Indexer bound to a chunk store and embedder.
func New(store *chunkstore.Store, embedder embedclient.Embedder) *Indexer {
	return &Indexer{store: store, embedder: embedder}
}

// IndexFile replaces path's chunks wholesale: delete any existing chunks for
// path, embed and assemble the new set, write them in BulkSize batches.
// Returns the number of chunks written.
func (idx *Indexer) IndexFile(ctx context.Context, file model.File, blocks []model.Block, fileLines []string, llmVersion string) (int, error) {
	if err := idx.store.DeleteByPath(ctx, file.Path); err != nil {
		return 0, fmt.Errorf("delete superseded chunks for %s: %w", file.Path, err)
	}

	now := time.Now().UTC()
	total := len(blocks)
	chunks := make([]model.Chunk, 0, total)

	for i, b := range blocks {
		text := strings.Join(fileLines[b.StartLine-1:b.EndLine], "\n")
		embedding, err := idx.embedder.Embed(ctx, text)
		if err != nil {
			return 0, fmt.Errorf("embed block %d of %s: %w", i+1, file.Path, err)
		}

		chunks = append(chunks, model.Chunk{
			ChunkID:        model.NewChunkID(file.Path, i+1, total),
			Path:           file.Path,
			Hash:           file.Hash,
			Ordinal:        i + 1,
			Chunks:         total,
			Text:           text,
			Embedding:      embedding,
			Size:           len(text),
			StartLine:      b.StartLine,
			EndLine:        b.EndLine,
			FileSize:       file.Size,
			FileLines:      file.Lines,
			Extension:      file.Extension,
			Filename:       baseName(file.Path),
			MIME:           file.MIME,
			Lang:           file.Language,
			CreatedAt:      now,
			UpdatedAt:      now,
			LLMVersion:     llmVersion,
			Title:          b.Title,
			Kind:           b.Kind,
			Symbols:        b.Symbols,
			GraphQuestions: b.GraphQuestions,
			GraphAnswers:   b.GraphAnswers,
		})
	}

	written := 0
	for start := 0; start < len(chunks); start += BulkSize {
		end := start + BulkSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batchCtx, cancel := context.WithTimeout(ctx, BulkTimeout)
		err := idx.store.WriteChunks(batchCtx, chunks[start:end])
		cancel()
		if err != nil {
			return written, fmt.Errorf("bulk write chunks [%d:%d) for %s: %w", start, end, file.Path, err)
		}
		written += end - start
	}

	return written, nil
}

// DeletePath removes every chunk for a vanished or newly ignored path.
func (idx *Indexer) DeletePath(ctx context.Context, path string) error {
	return idx.store.DeleteByPath(ctx, path)
}

func baseName(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
