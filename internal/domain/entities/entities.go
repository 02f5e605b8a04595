// Package entities contains the core objects of the question answering domain.
// Pure domain types with no knowledge of storage, transport or model vendors.
package entities

import (
	"strings"
	"time"
)

// Page is one block of text produced by ingestion, usually a PDF page.
type Page struct {
	Number int // 1-based
	Text   string
}

// Document represents the ingested source corpus.
type Document struct {
	ID        string
	Name      string
	Path      string
	Pages     []Page
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Content joins all page texts with a blank line.
func (d *Document) Content() string {
	parts := make([]string, len(d.Pages))
	for i, p := range d.Pages {
		parts[i] = p.Text
	}
	return strings.Join(parts, "\n\n")
}

// Chunk is a contiguous window of a page's text. Immutable once built.
type Chunk struct {
	ID         string
	DocumentID string
	Source     string
	Page       int
	Index      int // global position across the document
	Offset     int // rune offset within the page
	Content    string
	Embedding  []float32
}

// QueryResult is a retrieved chunk with its similarity score.
type QueryResult struct {
	Chunk     Chunk
	Score     float64
	SourceDoc string // for citation
}
