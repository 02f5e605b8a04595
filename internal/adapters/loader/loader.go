// Package loader provides document loading adapters.
package loader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/0xcro3dile/ragagent/internal/domain/entities"
	"github.com/0xcro3dile/ragagent/internal/domain/ports"
)

// Verify interface compliance
var (
	_ ports.DocumentLoader = (*TextLoader)(nil)
	_ ports.DocumentLoader = (*PDFLoader)(nil)
	_ ports.DocumentLoader = (*MultiLoader)(nil)
)

// pageBreak separates pages in plain text exports of paginated documents.
const pageBreak = "\f"

// TextLoader loads plain text documents (.txt, .md). Form feeds split pages;
// a file without them is a single page.
type TextLoader struct{}

// NewTextLoader creates a new text document loader.
func NewTextLoader() *TextLoader {
	return &TextLoader{}
}

// Load reads a text document from the given path.
func (l *TextLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	content, info, err := readSource(path)
	if err != nil {
		return nil, err
	}
	return newDocument(path, info, splitPages(strings.Split(string(content), pageBreak))), nil
}

// SupportedExtensions returns file extensions this loader handles.
func (l *TextLoader) SupportedExtensions() []string {
	return []string{".txt", ".md", ".markdown"}
}

// PDFLoader loads PDF documents through a ports.DocumentParser.
type PDFLoader struct {
	parser ports.DocumentParser
}

// NewPDFLoader creates a PDF loader backed by parser.
func NewPDFLoader(parser ports.DocumentParser) *PDFLoader {
	return &PDFLoader{parser: parser}
}

// Load reads the PDF and asks the parser for its pages. Parse failures are
// returned; an unreadable paper must not be indexed as empty.
func (l *PDFLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	data, info, err := readSource(path)
	if err != nil {
		return nil, err
	}

	pages, err := l.parser.Parse(ctx, data, path)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	for i := range pages {
		pages[i].Text = cleanPDFContent(pages[i].Text)
	}
	return newDocument(path, info, pages), nil
}

// SupportedExtensions returns file extensions.
func (l *PDFLoader) SupportedExtensions() []string {
	return []string{".pdf"}
}

// MultiLoader dispatches to a loader by file extension.
type MultiLoader struct {
	loaders map[string]ports.DocumentLoader
}

// NewMultiLoader creates a loader for text files and, when parser is not
// nil, PDFs.
func NewMultiLoader(parser ports.DocumentParser) *MultiLoader {
	m := &MultiLoader{loaders: make(map[string]ports.DocumentLoader)}
	m.Register(NewTextLoader())
	if parser != nil {
		m.Register(NewPDFLoader(parser))
	}
	return m
}

// Register adds l for each of its extensions, replacing earlier entries.
func (m *MultiLoader) Register(l ports.DocumentLoader) {
	for _, ext := range l.SupportedExtensions() {
		m.loaders[strings.ToLower(ext)] = l
	}
}

// Load dispatches to the appropriate loader based on extension. Unknown
// extensions are read as text.
func (m *MultiLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	loader, ok := m.loaders[ext]
	if !ok {
		if ext == ".pdf" {
			return nil, fmt.Errorf("no PDF parser configured for %s", path)
		}
		loader = NewTextLoader()
	}
	return loader.Load(ctx, path)
}

// SupportedExtensions returns all supported extensions, sorted.
func (m *MultiLoader) SupportedExtensions() []string {
	exts := make([]string, 0, len(m.loaders))
	for ext := range m.loaders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func readSource(path string) ([]byte, os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("source document: %w", err)
	}
	if info.IsDir() {
		return nil, nil, fmt.Errorf("source document %s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading source document: %w", err)
	}
	return data, info, nil
}

func splitPages(texts []string) []entities.Page {
	pages := make([]entities.Page, len(texts))
	for i, t := range texts {
		pages[i] = entities.Page{Number: i + 1, Text: t}
	}
	return pages
}

func newDocument(path string, info os.FileInfo, pages []entities.Page) *entities.Document {
	return &entities.Document{
		ID:        generateDocID(path),
		Name:      filepath.Base(path),
		Path:      path,
		Pages:     pages,
		CreatedAt: info.ModTime(),
		UpdatedAt: time.Now(),
	}
}

// generateDocID creates a deterministic ID for a document.
func generateDocID(path string) string {
	hash := sha256.Sum256([]byte(path))
	return hex.EncodeToString(hash[:8])
}

// cleanPDFContent drops control characters that PDF extraction leaves behind.
func cleanPDFContent(content string) string {
	var cleaned strings.Builder
	for _, r := range content {
		if r >= 32 && r != 127 || r == '\n' || r == '\t' {
			cleaned.WriteRune(r)
		}
	}
	return strings.TrimSpace(cleaned.String())
}
