package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/0xcro3dile/ragagent/internal/domain/entities"
	"github.com/0xcro3dile/ragagent/internal/domain/ports"
)

const (
	DefaultTopK        = 5
	DefaultBatchSize   = 64
	DefaultConcurrency = 4
)

// IndexOptions tunes index construction and querying.
type IndexOptions struct {
	BatchSize   int     // texts per EmbedBatch call
	Concurrency int     // parallel EmbedBatch calls
	MinScore    float64 // results scoring below are dropped; 0 disables
	Logger      *slog.Logger
}

func (o *IndexOptions) applyDefaults() {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Index is the built, read-only retrieval index. Safe for concurrent queries.
type Index struct {
	store    ports.VectorStore
	embedder ports.EmbeddingService
	count    int
	dim      int
	minScore float64
}

// BuildIndex embeds every chunk and loads the vectors into store.
// Nothing is written to the store unless every chunk embedded successfully.
// An empty chunk set yields an empty index.
func BuildIndex(
	ctx context.Context,
	chunks []entities.Chunk,
	embedder ports.EmbeddingService,
	store ports.VectorStore,
	opts IndexOptions,
) (*Index, error) {
	opts.applyDefaults()
	idx := &Index{store: store, embedder: embedder, minScore: opts.MinScore}
	if len(chunks) == 0 {
		opts.Logger.Warn("building empty index")
		return idx, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	if p, ok := embedder.(ports.CorpusPreparer); ok {
		if err := p.Prepare(texts); err != nil {
			return nil, fmt.Errorf("%w: preparing embedder: %w", entities.ErrIngestion, err)
		}
	}

	vectors, err := embedAll(ctx, embedder, texts, opts.BatchSize, opts.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", entities.ErrIngestion, err)
	}

	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) == 0 || len(v) != dim {
			return nil, fmt.Errorf("%w: %w: chunk %d has dimension %d, want %d",
				entities.ErrIngestion, entities.ErrEmbedding, i, len(v), dim)
		}
	}

	embedded := make([]entities.Chunk, len(chunks))
	for i := range chunks {
		embedded[i] = chunks[i]
		embedded[i].Embedding = vectors[i]
	}

	if err := store.Init(ctx, dim); err != nil {
		return nil, fmt.Errorf("%w: initializing vector store: %w", entities.ErrIngestion, err)
	}
	if err := store.Clear(ctx); err != nil {
		return nil, fmt.Errorf("%w: clearing vector store: %w", entities.ErrIngestion, err)
	}
	if err := store.Store(ctx, embedded); err != nil {
		return nil, fmt.Errorf("%w: storing chunks: %w", entities.ErrIngestion, err)
	}

	idx.count = len(embedded)
	idx.dim = dim
	opts.Logger.Info("index built", "chunks", idx.count, "dimension", dim)
	return idx, nil
}

// embedAll runs EmbedBatch over fixed-size batches with bounded parallelism.
// The result keeps input order.
func embedAll(ctx context.Context, embedder ports.EmbeddingService, texts []string, batchSize, concurrency int) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		g.Go(func() error {
			batch, err := embedder.EmbedBatch(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("%w: batch %d-%d: %w", entities.ErrEmbedding, start, end, err)
			}
			if len(batch) != end-start {
				return fmt.Errorf("%w: batch %d-%d returned %d vectors", entities.ErrEmbedding, start, end, len(batch))
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// Len returns the number of indexed chunks.
func (idx *Index) Len() int { return idx.count }

// Dimension returns the vector dimension, 0 for an empty index.
func (idx *Index) Dimension() int { return idx.dim }

// Current lets a fixed index stand in wherever an IndexSource is expected.
func (idx *Index) Current() *Index { return idx }

// Query returns up to k chunks ranked by descending cosine similarity, ties in
// insertion order. k <= 0 means DefaultTopK. An empty index yields no results.
// Embedding failures wrap entities.ErrEmbedding.
func (idx *Index) Query(ctx context.Context, text string, k int) ([]entities.QueryResult, error) {
	if idx == nil || idx.count == 0 {
		return nil, nil
	}
	if k <= 0 {
		k = DefaultTopK
	}

	emb, err := idx.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding query: %w", entities.ErrEmbedding, err)
	}
	if len(emb) != idx.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d", entities.ErrEmbedding, len(emb), idx.dim)
	}

	results, err := idx.store.Search(ctx, emb, k)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}
	if idx.minScore == 0 {
		return results, nil
	}

	kept := results[:0]
	for _, r := range results {
		if r.Score >= idx.minScore {
			kept = append(kept, r)
		}
	}
	return kept, nil
}

// IndexSource yields the index a question should run against.
type IndexSource interface {
	Current() *Index
}

// IndexHolder publishes a replaceable index. Readers snapshot it once per question.
type IndexHolder struct {
	p atomic.Pointer[Index]
}

// NewIndexHolder returns a holder publishing idx.
func NewIndexHolder(idx *Index) *IndexHolder {
	h := &IndexHolder{}
	h.p.Store(idx)
	return h
}

// Current returns the published index, possibly nil.
func (h *IndexHolder) Current() *Index {
	return h.p.Load()
}

// Swap publishes idx and returns the previous index.
func (h *IndexHolder) Swap(idx *Index) *Index {
	return h.p.Swap(idx)
}
