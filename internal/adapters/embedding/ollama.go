// Package embedding provides ports.EmbeddingService adapters: Ollama, OpenAI
// and an offline TF-IDF vectorizer.
package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
)

// OllamaAdapter implements ports.EmbeddingService using the Ollama /api/embed endpoint.
type OllamaAdapter struct {
	client *api.Client
	model  string
	logger *slog.Logger
}

// NewOllamaAdapter creates a new Ollama embedding adapter.
func NewOllamaAdapter(baseURL, model string) (*OllamaAdapter, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing Ollama URL %q: %w", baseURL, err)
	}
	return &OllamaAdapter{
		client: api.NewClient(u, &http.Client{Timeout: 60 * time.Second}),
		model:  model,
		logger: slog.Default().With("component", "ollama-embedder", "model", model),
	}, nil
}

// Embed generates an embedding for a single text.
func (a *OllamaAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := a.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds all texts in one request.
func (a *OllamaAdapter) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := a.client.Embed(ctx, &api.EmbedRequest{
		Model: a.model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("calling Ollama: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("Ollama returned %d embeddings for %d inputs", len(resp.Embeddings), len(texts))
	}

	a.logger.Debug("embedded batch", "texts", len(texts), "dimension", len(resp.Embeddings[0]))
	return resp.Embeddings, nil
}
