// Package parser provides document parsing adapters.
// PDF extraction is delegated to an external Python service.
package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/0xcro3dile/ragagent/internal/domain/entities"
	"github.com/0xcro3dile/ragagent/internal/domain/ports"
)

// Verify interface compliance
var _ ports.DocumentParser = (*PythonPDFParser)(nil)

// PythonPDFParser implements ports.DocumentParser by POSTing the raw PDF to
// {serviceURL}/parse.
type PythonPDFParser struct {
	serviceURL string
	client     *http.Client
	pythonCmd  *exec.Cmd
	logger     *slog.Logger
}

// NewPythonPDFParser creates a new PDF parser that calls the Python service.
func NewPythonPDFParser(serviceURL string) *PythonPDFParser {
	if serviceURL == "" {
		serviceURL = "http://localhost:8081"
	}
	return &PythonPDFParser{
		serviceURL: strings.TrimRight(serviceURL, "/"),
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: slog.Default().With("component", "pdf-parser"),
	}
}

// parseResponse is the Python service response format. Older service
// versions only return Text with pages separated by form feeds.
type parseResponse struct {
	Text      string   `json:"text"`
	PageTexts []string `json:"page_texts,omitempty"`
	Pages     int      `json:"pages"`
	Library   string   `json:"library,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Parse extracts per-page text from PDF bytes. Pages are numbered from 1.
func (p *PythonPDFParser) Parse(ctx context.Context, data []byte, filename string) ([]entities.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serviceURL+"/parse", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Filename", filepath.Base(filename))

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling PDF service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var result parseResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decoding response (status %d): %w", resp.StatusCode, err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("PDF parse error: %s", result.Error)
	}

	texts := result.PageTexts
	if len(texts) == 0 {
		texts = strings.Split(result.Text, "\f")
	}
	pages := make([]entities.Page, len(texts))
	for i, t := range texts {
		pages[i] = entities.Page{Number: i + 1, Text: t}
	}

	p.logger.Debug("parsed pdf", "file", filename, "pages", len(pages), "library", result.Library)
	return pages, nil
}

// SupportedFormats returns formats this parser handles.
func (p *PythonPDFParser) SupportedFormats() []string {
	return []string{"pdf"}
}

// StartService launches pdf_service.py from scriptDir and waits until it
// answers /health. The returned function stops the process.
func (p *PythonPDFParser) StartService(ctx context.Context, scriptDir string) (func(), error) {
	scriptPath := filepath.Join(scriptDir, "pdf_service.py")
	if _, err := os.Stat(scriptPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("pdf_service.py not found at %s", scriptPath)
	}

	p.pythonCmd = exec.Command("python3", scriptPath)
	p.pythonCmd.Stdout = os.Stdout
	p.pythonCmd.Stderr = os.Stderr

	if err := p.pythonCmd.Start(); err != nil {
		return nil, fmt.Errorf("starting Python service: %w", err)
	}

	cleanup := func() {
		if p.pythonCmd != nil && p.pythonCmd.Process != nil {
			p.pythonCmd.Process.Kill()
			p.pythonCmd.Wait()
		}
	}

	deadline := time.Now().Add(10 * time.Second)
	for !p.IsServiceHealthy(ctx) {
		if time.Now().After(deadline) || ctx.Err() != nil {
			cleanup()
			return nil, fmt.Errorf("PDF service at %s did not become healthy", p.serviceURL)
		}
		time.Sleep(200 * time.Millisecond)
	}
	p.logger.Info("PDF service started", "script", scriptPath)
	return cleanup, nil
}

// IsServiceHealthy checks if the Python service is running.
func (p *PythonPDFParser) IsServiceHealthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.serviceURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
