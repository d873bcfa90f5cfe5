package retriever

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/forge9/codeindex/internal/chunkstore"
	"github.com/forge9/codeindex/internal/embedclient"
	"github.com/forge9/codeindex/internal/model"
)

// Result is the fixed field-whitelist projection every fused hit is
// restricted to before being handed back to the caller.
type Result struct {
	Text      string       `json:"text"`
	Path      string       `json:"path"`
	StartLine int          `json:"start_line"`
	EndLine   int          `json:"end_line"`
	Title     string       `json:"title"`
	Symbols   []string     `json:"symbols"`
	Lang      string       `json:"lang"`
	MIME      string       `json:"mime"`
	FileLines int          `json:"file_lines"`
	Kind      string       `json:"kind"`
	LinksIn   []model.Link `json:"links_in"`
	LinksOut  []model.Link `json:"links_out"`
	ChunkID   string       `json:"chunk_id"`
	Chunks    int          `json:"chunks"`
}

func projection(c model.Chunk) Result {
	return Result{
		Text: c.Text, Path: c.Path, StartLine: c.StartLine, EndLine: c.EndLine,
		Title: c.Title, Symbols: c.Symbols, Lang: c.Lang, MIME: c.MIME,
		FileLines: c.FileLines, Kind: c.Kind, LinksIn: c.LinksIn, LinksOut: c.LinksOut,
		ChunkID: c.ChunkID, Chunks: c.Chunks,
	}
}

// Request is a single HybridRetriever call's input.
type Request struct {
	Question    string
	PathPrefix  string
	TopN        int
	Symbols     []string
	UseReranker bool
}

// Retriever runs the two-retriever RRF fusion described for HybridRetriever.
// It is read-only and side-effect-free: it never writes to the chunk store
// and never invokes the splitting LLM.
type Retriever struct {
	store    *chunkstore.Store
	embedder embedclient.Embedder
	reranker Reranker
}

// New constructs a Retriever. A nil reranker is replaced with NoOpReranker.
func New(store *chunkstore.Store, embedder embedclient.Embedder, reranker Reranker) *Retriever {
	if reranker == nil {
		reranker = &NoOpReranker{}
	}
	return &Retriever{store: store, embedder: embedder, reranker: reranker}
}

// Search performs one retrieval: shortlist sizing, parallel BM25+kNN, RRF
// fusion, projection, and optional reranking.
func (r *Retriever) Search(ctx context.Context, req Request) ([]Result, error) {
	if req.TopN < 1 {
		req.TopN = 1
	}
	if req.TopN > 60 {
		req.TopN = 60
	}
	pathPrefix := strings.TrimSuffix(req.PathPrefix, "*")

	shortlist := req.TopN
	if req.UseReranker {
		shortlist = req.TopN * 6
		if shortlist < 32 {
			shortlist = 32
		}
	}

	var bm25Hits []chunkstore.WeightedHit
	var knnHits []chunkstore.VectorHit

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := r.store.BM25.Search(gctx, req.Question, req.Symbols, pathPrefix, shortlist)
		if err != nil {
			return fmt.Errorf("bm25 retrieval: %w", err)
		}
		bm25Hits = hits
		return nil
	})
	g.Go(func() error {
		queryVec, err := r.embedder.Embed(gctx, req.Question)
		if err != nil {
			return fmt.Errorf("embed question: %w", err)
		}
		hits, err := r.store.Vector.Search(gctx, queryVec, shortlist, pathPrefix)
		if err != nil {
			return fmt.Errorf("knn retrieval: %w", err)
		}
		knnHits = hits
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(bm25Hits) == 0 && len(knnHits) == 0 {
		return []Result{}, nil
	}

	bm25IDs := make([]string, len(bm25Hits))
	for i, h := range bm25Hits {
		bm25IDs[i] = h.ChunkID
	}
	knnIDs := make([]string, len(knnHits))
	for i, h := range knnHits {
		knnIDs[i] = h.ChunkID
	}

	fused := reciprocalRankFusion(bm25IDs, knnIDs)
	if len(fused) > shortlist {
		fused = fused[:shortlist]
	}

	candidates := make([]model.Chunk, 0, len(fused))
	for _, f := range fused {
		c, ok, err := r.store.Meta.Get(ctx, f.chunkID)
		if err != nil {
			return nil, fmt.Errorf("load fused chunk %s: %w", f.chunkID, err)
		}
		if ok {
			candidates = append(candidates, c)
		}
	}

	if !req.UseReranker {
		if len(candidates) > req.TopN {
			candidates = candidates[:req.TopN]
		}
		return toResults(candidates), nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}
	reranked, err := r.reranker.Rerank(ctx, req.Question, texts, req.TopN)
	if err != nil {
		return nil, fmt.Errorf("rerank shortlist: %w", err)
	}

	out := make([]Result, 0, len(reranked))
	for _, rr := range reranked {
		out = append(out, projection(candidates[rr.Index]))
	}
	return out, nil
}

func toResults(chunks []model.Chunk) []Result {
	out := make([]Result, len(chunks))
	for i, c := range chunks {
		out[i] = projection(c)
	}
	return out
}
