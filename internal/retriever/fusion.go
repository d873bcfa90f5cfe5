// Package retriever implements the hybrid retrieval engine: parallel BM25
// and kNN retrieval against the chunk store, Reciprocal Rank Fusion of the
// two ranked lists, fixed-field projection, and optional reranking.
package retriever

import "sort"

// RRFConstant is the standard RRF smoothing parameter, k=60.
const RRFConstant = 60

// fusedResult accumulates RRF contributions and first-appearance order for
// deterministic tie-break.
type fusedResult struct {
	chunkID    string
	score      float64
	firstOrder int
}

// reciprocalRankFusion computes score(d) = Σ 1/(k+rank_i(d)+1) over every
// list d appears in (bm25 then knn, both already rank-ordered, 0-indexed
// here). Ties break by first-appearance order: a document's position in the
// BM25 list if present, otherwise its position (offset past the BM25 list)
// in the kNN list — matching the spec's "BM25 list, then kNN list" rule.
func reciprocalRankFusion(bm25, knn []string) []fusedResult {
	acc := make(map[string]*fusedResult, len(bm25)+len(knn))
	order := 0

	get := func(id string) *fusedResult {
		r, ok := acc[id]
		if !ok {
			r = &fusedResult{chunkID: id, firstOrder: order}
			order++
			acc[id] = r
		}
		return r
	}

	for rank, id := range bm25 {
		get(id).score += 1.0 / float64(RRFConstant+rank+1)
	}
	for rank, id := range knn {
		get(id).score += 1.0 / float64(RRFConstant+rank+1)
	}

	out := make([]fusedResult, 0, len(acc))
	for _, r := range acc {
		out = append(out, *r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].firstOrder < out[j].firstOrder
	})
	return out
}
