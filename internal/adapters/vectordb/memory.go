// Package vectordb provides ports.VectorStore adapters: in-memory, SQLite and Qdrant.
package vectordb

import (
	"context"
	"fmt"
	"sync"

	"github.com/0xcro3dile/ragagent/internal/domain/entities"
)

// InMemoryStore keeps chunks in insertion order and searches by brute force.
type InMemoryStore struct {
	mu     sync.RWMutex
	dim    int
	chunks []entities.Chunk
}

// NewInMemoryStore creates a new in-memory vector store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Init(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("invalid dimension %d", dim)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.chunks) > 0 && s.dim != dim {
		return fmt.Errorf("%w: store holds %d, got %d", entities.ErrDimensionMismatch, s.dim, dim)
	}
	s.dim = dim
	return nil
}

// Store appends chunks. Every embedding must match the initialized dimension.
func (s *InMemoryStore) Store(ctx context.Context, chunks []entities.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range chunks {
		if s.dim == 0 {
			s.dim = len(c.Embedding)
		}
		if len(c.Embedding) != s.dim {
			return fmt.Errorf("%w: chunk %s has %d, want %d", entities.ErrDimensionMismatch, c.ID, len(c.Embedding), s.dim)
		}
	}
	s.chunks = append(s.chunks, chunks...)
	return nil
}

func (s *InMemoryStore) Search(ctx context.Context, embedding []float32, topK int) ([]entities.QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cands := make([]scored, len(s.chunks))
	for i, c := range s.chunks {
		cands[i] = scored{chunk: c, score: cosineSimilarity(embedding, c.Embedding)}
	}
	return rankTopK(cands, topK), nil
}

func (s *InMemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

// Clear removes all data from the store.
func (s *InMemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = nil
	return nil
}

func (s *InMemoryStore) Close() error { return nil }
