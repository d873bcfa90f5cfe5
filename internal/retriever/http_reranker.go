package retriever

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	cierrors "github.com/forge9/codeindex/internal/errors"
)

// HTTPReranker calls a remote cross-encoder reranking service over HTTP:
// POST (query, texts[], top_n), get back a reordered sublist.
type HTTPReranker struct {
	client  *http.Client
	baseURL string
	model   string
	breaker *cierrors.CircuitBreaker
}

var _ Reranker = (*HTTPReranker)(nil)

// NewHTTPReranker constructs a reranker client. timeout of zero defaults to
// 30s, the same per-request bound the rest of the remote collaborators use.
// Calls trip a circuit breaker after 5 consecutive failures, the same
// defaults as the splitter and embedder collaborators.
func NewHTTPReranker(baseURL, model string, timeout time.Duration) *HTTPReranker {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPReranker{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		model:   model,
		breaker: cierrors.NewCircuitBreaker("reranker"),
	}
}

type rerankRequest struct {
	Model string   `json:"model"`
	Query string   `json:"query"`
	Texts []string `json:"texts"`
	TopN  int      `json:"top_n"`
}

type rerankResponseItem struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

type rerankResponse struct {
	Results []rerankResponseItem `json:"results"`
}

// Rerank reorders documents by relevance to query, returning at most topK
// results (0 means return all, reordered).
func (r *HTTPReranker) Rerank(ctx context.Context, query string, documents []string, topK int) ([]RerankResult, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(rerankRequest{Model: r.model, Query: query, Texts: documents, TopN: topK})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var parsed rerankResponse
	callErr := r.breaker.Execute(func() error {
		resp, err := r.client.Do(req)
		if err != nil {
			return fmt.Errorf("rerank request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("rerank service returned %d: %s", resp.StatusCode, string(respBody))
		}

		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return fmt.Errorf("decode rerank response: %w", err)
		}
		return nil
	})
	if callErr != nil {
		return nil, cierrors.NewKind(cierrors.KindRetrievalEmpty, "rerank request failed", "", "reranking", callErr)
	}

	results := make([]RerankResult, 0, len(parsed.Results))
	for _, item := range parsed.Results {
		if item.Index < 0 || item.Index >= len(documents) {
			continue
		}
		results = append(results, RerankResult{Index: item.Index, Score: item.Score, Document: documents[item.Index]})
	}
	return results, nil
}

// Available probes the reranker service's health endpoint.
func (r *HTTPReranker) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}

// Close is a no-op; the underlying http.Client owns no resources to release.
func (r *HTTPReranker) Close() error { return nil }
