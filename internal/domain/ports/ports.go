// Package ports defines the boundaries between the question answering core and
// everything outside it. Usecases depend on these interfaces; adapters implement them.
package ports

import (
	"context"

	"github.com/0xcro3dile/ragagent/internal/domain/entities"
)

// Asker is the contract transports depend on. Ask never fails: every error
// becomes a user-facing answer.
type Asker interface {
	Ask(ctx context.Context, question string) string
}

// EmbeddingService maps text to fixed-dimension vectors.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns exactly one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// CorpusPreparer is implemented by embedders that must see the whole corpus
// before embedding (e.g. TF-IDF vocabularies).
type CorpusPreparer interface {
	Prepare(corpus []string) error
}

// ReasoningService produces the next assistant message given the conversation
// so far and the tools it may call.
type ReasoningService interface {
	Reason(ctx context.Context, messages []entities.Message, tools []entities.ToolDefinition) (entities.Message, error)
}

// VectorStore holds chunk vectors for one collection.
type VectorStore interface {
	// Init prepares the collection for vectors of dim dimensions.
	// Persistent stores return entities.ErrDimensionMismatch when the collection
	// already holds vectors of another dimension.
	Init(ctx context.Context, dim int) error

	// Store saves chunks with their embeddings, preserving insertion order.
	Store(ctx context.Context, chunks []entities.Chunk) error

	// Search returns up to topK chunks ranked by descending cosine similarity.
	Search(ctx context.Context, embedding []float32, topK int) ([]entities.QueryResult, error)

	Count(ctx context.Context) (int, error)

	// Clear removes all data from the collection.
	Clear(ctx context.Context) error

	Close() error
}

// DocumentLoader reads the source document from disk.
type DocumentLoader interface {
	// Load reads a document from the given path. A missing file is an error.
	Load(ctx context.Context, path string) (*entities.Document, error)

	// SupportedExtensions returns file extensions this loader handles.
	SupportedExtensions() []string
}

// DocumentParser extracts page texts from binary document formats.
type DocumentParser interface {
	Parse(ctx context.Context, data []byte, filename string) ([]entities.Page, error)

	// SupportedFormats returns formats this parser handles (e.g. "pdf").
	SupportedFormats() []string
}

// FileWatcher monitors a directory for changes.
type FileWatcher interface {
	// Watch starts monitoring the directory and emits events.
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)
