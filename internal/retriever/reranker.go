package retriever

import (
	"context"
)

// RerankResult is a single reranked candidate.
type RerankResult struct {
	Index    int
	Score    float64
	Document string
}

// Reranker reorders a shortlist by cross-encoder relevance to the question.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string, topK int) ([]RerankResult, error)
	Available(ctx context.Context) bool
	Close() error
}

// NoOpReranker returns the shortlist in its incoming order, used when
// use_reranker is false or no reranker is configured.
type NoOpReranker struct{}

var _ Reranker = (*NoOpReranker)(nil)

func (n *NoOpReranker) Rerank(_ context.Context, _ string, documents []string, topK int) ([]RerankResult, error) {
	results := make([]RerankResult, len(documents))
	for i, doc := range documents {
		results[i] = RerankResult{Index: i, Score: 1.0 - float64(i)*0.001, Document: doc}
	}
	if topK > 0 && topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

func (n *NoOpReranker) Available(_ context.Context) bool { return true }
func (n *NoOpReranker) Close() error                      { return nil }
