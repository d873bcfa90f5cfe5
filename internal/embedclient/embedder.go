// Package embedclient wraps the remote embedding service: a fixed-contract
// collaborator that turns text into a unit-normalized dense vector. The
// service's dimension is probed once at startup; a mismatch against the
// expected dimension (1024) is fatal.
package embedclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	cierrors "github.com/forge9/codeindex/internal/errors"
)

// ExpectedDimensions is the fixed vector width the rest of the pipeline
// assumes (chunk embeddings, the vector store, and kNN all require it).
const ExpectedDimensions = 1024

// Embedder turns text into a unit-normalized dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelName() string
	Close() error
}

// HTTPEmbedder calls a remote embedding service over HTTP, the shape most
// embedding servers (Ollama, TEI, vLLM-compatible) expose: POST a batch of
// strings, get back a batch of float vectors.
type HTTPEmbedder struct {
	client  *http.Client
	baseURL string
	model   string
	dims    int
	breaker *cierrors.CircuitBreaker
}

var _ Embedder = (*HTTPEmbedder)(nil)

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// New constructs an HTTPEmbedder and probes its dimension with a one-token
// request. Per spec §4.5/§6, a dimension other than ExpectedDimensions makes
// New return an error, so the failure surfaces at startup rather than
// inside the pipeline.
func New(ctx context.Context, baseURL, model string, timeout time.Duration) (*HTTPEmbedder, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	e := &HTTPEmbedder{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		model:   model,
		breaker: cierrors.NewCircuitBreaker("embedder"),
	}

	probe, err := e.EmbedBatch(ctx, []string{"dimension probe"})
	if err != nil {
		return nil, fmt.Errorf("probe embedding dimension: %w", err)
	}
	if len(probe) != 1 {
		return nil, fmt.Errorf("dimension probe returned %d vectors, want 1", len(probe))
	}
	e.dims = len(probe[0])
	if e.dims != ExpectedDimensions {
		return nil, fmt.Errorf("embedding model %q returns %d-dim vectors, require %d (fatal, exit 2)",
			model, e.dims, ExpectedDimensions)
	}
	return e, nil
}

// Embed embeds a single text.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds a batch of texts in a single remote call and
// unit-normalizes every returned vector.
func (e *HTTPEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var parsed embedResponse
	callErr := e.breaker.Execute(func() error {
		resp, err := e.client.Do(req)
		if err != nil {
			return fmt.Errorf("embed request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("embed service returned %d: %s", resp.StatusCode, string(respBody))
		}

		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return fmt.Errorf("decode embed response: %w", err)
		}
		if len(parsed.Embeddings) != len(texts) {
			return fmt.Errorf("embed service returned %d vectors for %d inputs", len(parsed.Embeddings), len(texts))
		}
		return nil
	})
	if callErr != nil {
		return nil, cierrors.NewKind(cierrors.KindEmbedFailure, "embedding request failed", "", "embedding", callErr)
	}

	for _, v := range parsed.Embeddings {
		normalizeInPlace(v)
	}
	return parsed.Embeddings, nil
}

// Dimensions returns the embedder's vector width, known after New succeeds.
func (e *HTTPEmbedder) Dimensions() int { return e.dims }

// ModelName returns the embedding model identifier.
func (e *HTTPEmbedder) ModelName() string { return e.model }

// Close is a no-op; the underlying http.Client owns no resources that need
// explicit release.
func (e *HTTPEmbedder) Close() error { return nil }

func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return
	}
	for i, x := range v {
		v[i] = float32(float64(x) / magnitude)
	}
}
