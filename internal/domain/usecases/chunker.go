// Package usecases contains the application rules of the question answering
// core: chunking, indexing, retrieval and the reasoning/acting loop.
// Usecases depend only on entities and port interfaces.
package usecases

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/0xcro3dile/ragagent/internal/domain/entities"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Chunker splits page text into fixed-size overlapping windows measured in
// runes. Adjacent chunks of a page share exactly overlap runes, and the first
// chunk followed by every later chunk minus its overlap prefix rebuilds the page.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker validates the window parameters.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size must be positive, got %d", entities.ErrInvalidChunking, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap must be in [0, %d), got %d", entities.ErrInvalidChunking, size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Size returns the window length in runes.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the number of runes shared by adjacent windows.
func (c *Chunker) Overlap() int { return c.overlap }

// Chunk splits every page of doc in source order. Empty pages produce nothing.
func (c *Chunker) Chunk(doc *entities.Document) []entities.Chunk {
	var chunks []entities.Chunk
	index := 0
	step := c.size - c.overlap

	for _, page := range doc.Pages {
		runes := []rune(page.Text)
		n := len(runes)
		if n == 0 {
			continue
		}

		for start := 0; ; start += step {
			end := start + c.size
			if end > n {
				end = n
			}
			chunks = append(chunks, entities.Chunk{
				ID:         generateChunkID(doc.ID, page.Number, index),
				DocumentID: doc.ID,
				Source:     doc.Name,
				Page:       page.Number,
				Index:      index,
				Offset:     start,
				Content:    string(runes[start:end]),
			})
			index++
			if end == n {
				break
			}
		}
	}

	return chunks
}

// generateChunkID creates a deterministic ID for a chunk.
func generateChunkID(docID string, page, index int) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%d", docID, page, index)))
	return hex.EncodeToString(hash[:8])
}
