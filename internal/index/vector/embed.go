package vector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/paperalign/paperalign/pkg/logger"
	"github.com/paperalign/paperalign/pkg/resilience"
)

// OllamaEmbedder computes dense embeddings through a local Ollama server.
// It satisfies the Embedder contract for the sqlitevec backend.
type OllamaEmbedder struct {
	client *api.Client
	model  string
}

// NewOllamaEmbedder builds an embedder against the given Ollama base URL.
func NewOllamaEmbedder(rawURL, model string, timeout time.Duration) (*OllamaEmbedder, error) {
	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url %q: %w", rawURL, err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}
	return &OllamaEmbedder{
		client: api.NewClient(base, httpClient),
		model:  model,
	}, nil
}

// Embed requests one embedding per text, retrying transient failures with
// exponential backoff. All returned vectors share the model's dimension.
func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	log := logger.WithComponent("ollama-embedder")
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		req := &api.EmbeddingRequest{
			Model:  e.model,
			Prompt: text,
		}
		var resp *api.EmbeddingResponse
		err := resilience.Retry(ctx, "ollama-embed", resilience.RetryConfig{}, func() error {
			var callErr error
			resp, callErr = e.client.Embeddings(ctx, req)
			return callErr
		})
		if err != nil {
			return nil, fmt.Errorf("embedding text %d/%d with model %s: %w", i+1, len(texts), e.model, err)
		}
		vec := make([]float32, len(resp.Embedding))
		for j, v := range resp.Embedding {
			vec[j] = float32(v)
		}
		vectors[i] = vec
	}
	log.Debug("embedded batch", "count", len(texts), "model", e.model)
	return vectors, nil
}
