package usecases

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/0xcro3dile/ragagent/internal/domain/entities"
)

// mockEmbedder implements ports.EmbeddingService for testing. By default it
// counts vocabulary words, so texts sharing words score higher.
type mockEmbedder struct {
	embedFn func(text string) ([]float32, error)
	vocab   []string

	mu         sync.Mutex
	batchCalls int
}

var testVocab = []string{"algorithm", "envy", "fair", "division", "goods", "weather", "pizza"}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.embedFn != nil {
		return m.embedFn(text)
	}
	vocab := m.vocab
	if vocab == nil {
		vocab = testVocab
	}
	lower := strings.ToLower(text)
	vec := make([]float32, len(vocab))
	for i, w := range vocab {
		vec[i] = float32(strings.Count(lower, w))
	}
	return vec, nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.batchCalls++
	m.mu.Unlock()

	result := make([][]float32, len(texts))
	for i := range texts {
		emb, err := m.Embed(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		result[i] = emb
	}
	return result, nil
}

// preparingEmbedder records the corpus it was prepared with.
type preparingEmbedder struct {
	mockEmbedder
	corpus []string
}

func (p *preparingEmbedder) Prepare(corpus []string) error {
	p.corpus = corpus
	return nil
}

// mockVectorStore is a minimal ports.VectorStore with injectable failures.
type mockVectorStore struct {
	dim     int
	chunks  []entities.Chunk
	initErr error
	storeFn func(chunks []entities.Chunk) error
	results []entities.QueryResult
}

func (m *mockVectorStore) Init(ctx context.Context, dim int) error {
	if m.initErr != nil {
		return m.initErr
	}
	m.dim = dim
	return nil
}

func (m *mockVectorStore) Store(ctx context.Context, chunks []entities.Chunk) error {
	if m.storeFn != nil {
		return m.storeFn(chunks)
	}
	m.chunks = append(m.chunks, chunks...)
	return nil
}

func (m *mockVectorStore) Search(ctx context.Context, emb []float32, topK int) ([]entities.QueryResult, error) {
	if m.results != nil {
		return m.results, nil
	}
	var results []entities.QueryResult
	for i, c := range m.chunks {
		if i >= topK {
			break
		}
		results = append(results, entities.QueryResult{Chunk: c, Score: 0.9})
	}
	return results, nil
}

func (m *mockVectorStore) Count(ctx context.Context) (int, error) { return len(m.chunks), nil }

func (m *mockVectorStore) Clear(ctx context.Context) error {
	m.chunks = nil
	return nil
}

func (m *mockVectorStore) Close() error { return nil }

// mockLoader implements ports.DocumentLoader.
type mockLoader struct {
	doc *entities.Document
	err error
}

func (m *mockLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.doc, nil
}

func (m *mockLoader) SupportedExtensions() []string { return []string{".txt"} }

// scriptedReasoner replays a fixed list of responses and records every
// conversation it was shown. When the script runs out it repeats the last entry.
type scriptedReasoner struct {
	responses []entities.Message
	err       error
	fn        func(msgs []entities.Message) (entities.Message, error)

	calls [][]entities.Message
	tools [][]entities.ToolDefinition
}

func (r *scriptedReasoner) Reason(ctx context.Context, msgs []entities.Message, tools []entities.ToolDefinition) (entities.Message, error) {
	r.calls = append(r.calls, msgs)
	r.tools = append(r.tools, tools)
	if r.err != nil {
		return entities.Message{}, r.err
	}
	if r.fn != nil {
		return r.fn(msgs)
	}
	if len(r.responses) == 0 {
		return entities.Message{}, errors.New("no scripted response")
	}
	i := len(r.calls) - 1
	if i >= len(r.responses) {
		i = len(r.responses) - 1
	}
	return r.responses[i], nil
}

func retrieverCall(id, query string) entities.ToolCall {
	return entities.ToolCall{ID: id, Name: RetrieverToolName, Arguments: map[string]any{"query": query}}
}

func toolRequest(calls ...entities.ToolCall) entities.Message {
	return entities.Message{Role: entities.RoleAssistant, ToolCalls: calls}
}
