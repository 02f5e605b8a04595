package vectordb

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/qdrant/go-client/qdrant"

	"github.com/0xcro3dile/ragagent/internal/domain/entities"
)

// QdrantConfig points the store at a Qdrant server (gRPC port).
type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
}

// QdrantStore keeps one collection in a Qdrant server with cosine distance.
// Points are numbered in insertion order so equal scores can be re-ranked
// deterministically after search.
type QdrantStore struct {
	mu         sync.Mutex
	client     *qdrant.Client
	collection string
	dim        int
	next       uint64
}

// NewQdrantStore connects to Qdrant. Defaults to localhost:6334.
func NewQdrantStore(cfg QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to Qdrant at %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return &QdrantStore{client: client, collection: cfg.Collection}, nil
}

// Init creates the collection, or verifies the dimension of an existing one.
func (s *QdrantStore) Init(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("invalid dimension %d", dim)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("checking collection: %w", err)
	}
	if !exists {
		if err := s.create(ctx, dim); err != nil {
			return err
		}
		s.dim = dim
		return nil
	}

	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("reading collection: %w", err)
	}
	stored := int(info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize())
	if stored != dim {
		return fmt.Errorf("%w: collection %q stores %d-dimensional vectors, got %d",
			entities.ErrDimensionMismatch, s.collection, stored, dim)
	}
	s.dim = dim

	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("counting points: %w", err)
	}
	s.next = count
	return nil
}

func (s *QdrantStore) create(ctx context.Context, dim int) error {
	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %q: %w", s.collection, err)
	}
	return nil
}

func (s *QdrantStore) Store(ctx context.Context, chunks []entities.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dim == 0 {
		return fmt.Errorf("collection %q not initialized", s.collection)
	}
	if len(chunks) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, c := range chunks {
		if len(c.Embedding) != s.dim {
			return fmt.Errorf("%w: chunk %s has %d, want %d",
				entities.ErrDimensionMismatch, c.ID, len(c.Embedding), s.dim)
		}
		seq := s.next + uint64(i)
		payload, err := qdrant.TryValueMap(map[string]any{
			"seq":         int64(seq),
			"chunk_id":    c.ID,
			"document_id": c.DocumentID,
			"source":      c.Source,
			"page":        c.Page,
			"index":       c.Index,
			"offset":      c.Offset,
			"content":     c.Content,
		})
		if err != nil {
			return fmt.Errorf("encoding payload of chunk %s: %w", c.ID, err)
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(seq),
			Vectors: qdrant.NewVectorsDense(c.Embedding),
			Payload: payload,
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}
	s.next += uint64(len(chunks))
	return nil
}

// Search queries Qdrant, then re-sorts by score and insertion order.
func (s *QdrantStore) Search(ctx context.Context, embedding []float32, topK int) ([]entities.QueryResult, error) {
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQueryDense(embedding),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying collection %q: %w", s.collection, err)
	}

	type hit struct {
		seq int64
		scored
	}
	hits := make([]hit, len(points))
	for i, p := range points {
		pl := p.GetPayload()
		hits[i] = hit{
			seq: pl["seq"].GetIntegerValue(),
			scored: scored{
				score: float64(p.GetScore()),
				chunk: entities.Chunk{
					ID:         pl["chunk_id"].GetStringValue(),
					DocumentID: pl["document_id"].GetStringValue(),
					Source:     pl["source"].GetStringValue(),
					Page:       int(pl["page"].GetIntegerValue()),
					Index:      int(pl["index"].GetIntegerValue()),
					Offset:     int(pl["offset"].GetIntegerValue()),
					Content:    pl["content"].GetStringValue(),
				},
			},
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].seq < hits[j].seq })

	cands := make([]scored, len(hits))
	for i, h := range hits {
		cands[i] = h.scored
	}
	return rankTopK(cands, topK), nil
}

func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("counting points: %w", err)
	}
	return int(n), nil
}

// Clear drops and recreates the collection with the same dimension.
func (s *QdrantStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("deleting collection %q: %w", s.collection, err)
	}
	s.next = 0
	if s.dim == 0 {
		return nil
	}
	return s.create(ctx, s.dim)
}

func (s *QdrantStore) Close() error {
	return s.client.Close()
}
