package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/0xcro3dile/ragagent/internal/domain/entities"
)

type fakeParser struct {
	pages []entities.Page
	err   error
}

func (p *fakeParser) Parse(ctx context.Context, data []byte, filename string) ([]entities.Page, error) {
	return p.pages, p.err
}

func (p *fakeParser) SupportedFormats() []string { return []string{"pdf"} }

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestTextLoader_LoadTxtFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "test.txt", "Hello World")

	loader := NewTextLoader()
	doc, err := loader.Load(context.Background(), path)

	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if doc.Content() != "Hello World" {
		t.Errorf("unexpected content: %s", doc.Content())
	}
	if len(doc.Pages) != 1 || doc.Pages[0].Number != 1 {
		t.Errorf("expected a single page 1, got %+v", doc.Pages)
	}
	if doc.Name != "test.txt" {
		t.Errorf("unexpected name: %s", doc.Name)
	}
}

func TestTextLoader_FormFeedSplitsPages(t *testing.T) {
	path := writeFile(t, t.TempDir(), "paper.txt", "page one\fpage two\f\fpage four")

	doc, err := NewTextLoader().Load(context.Background(), path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(doc.Pages) != 4 {
		t.Fatalf("expected 4 pages, got %d", len(doc.Pages))
	}
	if doc.Pages[3].Number != 4 || doc.Pages[3].Text != "page four" {
		t.Errorf("unexpected last page: %+v", doc.Pages[3])
	}
	if doc.Pages[2].Text != "" {
		t.Errorf("blank page should stay blank: %q", doc.Pages[2].Text)
	}
}

func TestTextLoader_SupportedExtensions(t *testing.T) {
	exts := NewTextLoader().SupportedExtensions()

	found := false
	for _, e := range exts {
		if e == ".txt" {
			found = true
		}
	}
	if !found {
		t.Error(".txt should be supported")
	}
}

func TestPDFLoader_UsesParser(t *testing.T) {
	path := writeFile(t, t.TempDir(), "paper.pdf", "%PDF-1.4")
	parser := &fakeParser{pages: []entities.Page{{Number: 1, Text: "Envy\x00-free \x07"}, {Number: 2, Text: "EF1"}}}

	doc, err := NewPDFLoader(parser).Load(context.Background(), path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if doc.Pages[0].Text != "Envy-free" {
		t.Errorf("control characters not stripped: %q", doc.Pages[0].Text)
	}
	if doc.Pages[1].Text != "EF1" {
		t.Errorf("unexpected page 2: %q", doc.Pages[1].Text)
	}
}

func TestPDFLoader_ParseErrorFails(t *testing.T) {
	path := writeFile(t, t.TempDir(), "paper.pdf", "%PDF-1.4")
	boom := errors.New("service down")

	_, err := NewPDFLoader(&fakeParser{err: boom}).Load(context.Background(), path)
	if !errors.Is(err, boom) {
		t.Errorf("expected parser error, got %v", err)
	}
}

func TestMultiLoader_DispatchByExtension(t *testing.T) {
	dir := t.TempDir()
	txtPath := writeFile(t, dir, "test.txt", "txt content")
	mdPath := writeFile(t, dir, "test.md", "# Markdown")
	pdfPath := writeFile(t, dir, "test.PDF", "%PDF")

	loader := NewMultiLoader(&fakeParser{pages: []entities.Page{{Number: 1, Text: "from pdf"}}})

	txt, _ := loader.Load(context.Background(), txtPath)
	md, _ := loader.Load(context.Background(), mdPath)
	pdf, err := loader.Load(context.Background(), pdfPath)
	if err != nil {
		t.Fatalf("pdf load failed: %v", err)
	}

	if txt.Content() != "txt content" {
		t.Error("txt not loaded correctly")
	}
	if md.Content() != "# Markdown" {
		t.Error("md not loaded correctly")
	}
	if pdf.Content() != "from pdf" {
		t.Error("pdf not dispatched to parser")
	}
}

func TestMultiLoader_PDFWithoutParser(t *testing.T) {
	path := writeFile(t, t.TempDir(), "paper.pdf", "%PDF")
	if _, err := NewMultiLoader(nil).Load(context.Background(), path); err == nil {
		t.Error("should refuse pdf without parser")
	}
}

func TestMultiLoader_AllExtensions(t *testing.T) {
	exts := NewMultiLoader(&fakeParser{}).SupportedExtensions()
	if len(exts) != 4 {
		t.Errorf("expected 4 extensions, got %v", exts)
	}
	if exts[0] != ".markdown" {
		t.Errorf("extensions should be sorted: %v", exts)
	}
}

func TestLoader_NonexistentFile(t *testing.T) {
	_, err := NewTextLoader().Load(context.Background(), "/nonexistent/file.txt")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestLoader_DirectoryIsNotASource(t *testing.T) {
	if _, err := NewTextLoader().Load(context.Background(), t.TempDir()); err == nil {
		t.Error("should error on directory")
	}
}
