// Package graphlinker runs the GraphLinker post-pass: it derives a
// chunk-to-chunk link graph from the question/answer phrases attached to
// each block during splitting.
package graphlinker

import (
	"context"
	"fmt"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/forge9/codeindex/internal/chunkstore"
	"github.com/forge9/codeindex/internal/embedclient"
	"github.com/forge9/codeindex/internal/model"
)

// Defaults mirror the design note's named constants.
const (
	DefaultSimilarityThreshold = 0.7
	DefaultMaxLinksPerChunk    = 5
	phraseCacheSize            = 100_000
)

// Linker computes and persists links between chunks whose answer phrases
// match another chunk's question phrases above a similarity threshold.
type Linker struct {
	store     *chunkstore.Store
	embedder  embedclient.Embedder
	threshold float64
	maxLinks  int
	cache     *lru.Cache[string, []float32]
}

// New constructs a Linker. threshold/maxLinks of zero take the spec
// defaults (0.7 similarity, 5 links per chunk per direction).
func New(store *chunkstore.Store, embedder embedclient.Embedder, threshold float64, maxLinks int) (*Linker, error) {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	if maxLinks <= 0 {
		maxLinks = DefaultMaxLinksPerChunk
	}
	cache, err := lru.New[string, []float32](phraseCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create phrase embedding cache: %w", err)
	}
	return &Linker{store: store, embedder: embedder, threshold: threshold, maxLinks: maxLinks, cache: cache}, nil
}

type phraseVec struct {
	chunkID string
	text    string
	vec     []float32
}

// Run executes one GraphLinker pass over every currently indexed chunk. The
// pipeline must ensure this never overlaps a ChunkIndexer run against the
// same chunk set; Run itself does not take that lock.
func (l *Linker) Run(ctx context.Context) error {
	chunks, err := l.store.Meta.AllChunks(ctx)
	if err != nil {
		return fmt.Errorf("load chunks for graph-link: %w", err)
	}
	if len(chunks) == 0 {
		return nil
	}

	answers, err := l.embedPhrases(ctx, chunks, func(c model.Chunk) []string { return c.GraphAnswers })
	if err != nil {
		return fmt.Errorf("embed answer phrases: %w", err)
	}
	questions, err := l.embedPhrases(ctx, chunks, func(c model.Chunk) []string { return c.GraphQuestions })
	if err != nil {
		return fmt.Errorf("embed question phrases: %w", err)
	}

	outLinks := make(map[string][]model.Link, len(chunks))
	inLinks := make(map[string][]model.Link, len(chunks))

	for _, a := range answers {
		for _, q := range questions {
			if a.chunkID == q.chunkID {
				continue
			}
			sim := dot(a.vec, q.vec)
			if sim < l.threshold {
				continue
			}
			outLinks[a.chunkID] = append(outLinks[a.chunkID], model.Link{
				Target: q.chunkID, Similarity: sim, Answer: a.text, Question: q.text,
			})
			inLinks[q.chunkID] = append(inLinks[q.chunkID], model.Link{
				Target: a.chunkID, Similarity: sim, Answer: a.text, Question: q.text,
			})
		}
	}

	for _, c := range chunks {
		out := topK(outLinks[c.ChunkID], l.maxLinks)
		in := topK(inLinks[c.ChunkID], l.maxLinks)
		if err := l.store.Meta.UpdateLinks(ctx, c.ChunkID, out, in); err != nil {
			return fmt.Errorf("update links for %s: %w", c.ChunkID, err)
		}
	}

	return nil
}

// embedPhrases embeds every distinct phrase exactly once (cached across the
// whole run and across calls) and returns one phraseVec per (chunk, phrase)
// pair, the batching the design note asks for in place of nested scalar
// embedding calls.
func (l *Linker) embedPhrases(ctx context.Context, chunks []model.Chunk, pick func(model.Chunk) []string) ([]phraseVec, error) {
	distinct := make(map[string]struct{})
	for _, c := range chunks {
		for _, phrase := range pick(c) {
			distinct[phrase] = struct{}{}
		}
	}

	toEmbed := make([]string, 0, len(distinct))
	for phrase := range distinct {
		if _, ok := l.cache.Get(phrase); !ok {
			toEmbed = append(toEmbed, phrase)
		}
	}
	if len(toEmbed) > 0 {
		vecs, err := l.embedder.EmbedBatch(ctx, toEmbed)
		if err != nil {
			return nil, err
		}
		for i, phrase := range toEmbed {
			l.cache.Add(phrase, vecs[i])
		}
	}

	out := make([]phraseVec, 0, len(chunks)*2)
	for _, c := range chunks {
		for _, phrase := range pick(c) {
			vec, ok := l.cache.Get(phrase)
			if !ok {
				continue
			}
			out = append(out, phraseVec{chunkID: c.ChunkID, text: phrase, vec: vec})
		}
	}
	return out, nil
}

func dot(a, b []float32) float64 {
	var sum float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func topK(links []model.Link, k int) []model.Link {
	sort.SliceStable(links, func(i, j int) bool { return links[i].Similarity > links[j].Similarity })
	if len(links) > k {
		links = links[:k]
	}
	return links
}
