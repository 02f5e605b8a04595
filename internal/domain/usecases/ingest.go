package usecases

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/0xcro3dile/ragagent/internal/domain/entities"
	"github.com/0xcro3dile/ragagent/internal/domain/ports"
)

// IngestUseCase turns the source document into a retrieval index:
// load, chunk, embed, store.
type IngestUseCase struct {
	loader   ports.DocumentLoader
	chunker  *Chunker
	embedder ports.EmbeddingService
	store    ports.VectorStore
	opts     IndexOptions
	logger   *slog.Logger
}

// NewIngestUseCase creates an IngestUseCase with injected dependencies.
func NewIngestUseCase(
	loader ports.DocumentLoader,
	chunker *Chunker,
	embedder ports.EmbeddingService,
	store ports.VectorStore,
	opts IndexOptions,
) *IngestUseCase {
	opts.applyDefaults()
	return &IngestUseCase{
		loader:   loader,
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		opts:     opts,
		logger:   opts.Logger,
	}
}

// Ingest builds the index for the document at path. Every failure wraps
// entities.ErrIngestion; a missing source is one of them.
func (uc *IngestUseCase) Ingest(ctx context.Context, path string) (*Index, error) {
	doc, err := uc.loader.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: loading %s: %w", entities.ErrIngestion, path, err)
	}
	uc.logger.Info("document loaded", "path", path, "pages", len(doc.Pages))

	chunks := uc.chunker.Chunk(doc)
	uc.logger.Info("document chunked", "chunks", len(chunks),
		"size", uc.chunker.Size(), "overlap", uc.chunker.Overlap())

	return BuildIndex(ctx, chunks, uc.embedder, uc.store, uc.opts)
}
