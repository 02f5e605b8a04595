package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/0xcro3dile/ragagent/internal/domain/entities"
)

const (
	RetrieverToolName        = "retriever_tool"
	retrieverToolDescription = "This tool searches and returns information from the research paper PDF."

	// NoResultsMessage is returned by the retrieval tool instead of an error.
	NoResultsMessage = "No relevant information found in the research paper."
)

// Searcher is the read side of the retrieval index.
type Searcher interface {
	Query(ctx context.Context, text string, k int) ([]entities.QueryResult, error)
}

// RetrievalTool exposes the index to the reasoning loop as a text-in,
// text-out tool. It never fails.
type RetrievalTool struct {
	searcher Searcher
	topK     int
	logger   *slog.Logger
}

// NewRetrievalTool wraps searcher. topK <= 0 means DefaultTopK.
func NewRetrievalTool(searcher Searcher, topK int, logger *slog.Logger) *RetrievalTool {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetrievalTool{searcher: searcher, topK: topK, logger: logger}
}

// Definition describes the tool to the reasoning service.
func (t *RetrievalTool) Definition() entities.ToolDefinition {
	return RetrieverToolDefinition()
}

// RetrieverToolDefinition is the schema of the retrieval tool: one required
// string argument named query.
func RetrieverToolDefinition() entities.ToolDefinition {
	return entities.ToolDefinition{
		Name:        RetrieverToolName,
		Description: retrieverToolDescription,
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Search query for the research paper.",
				},
			},
			"required": []string{"query"},
		},
	}
}

// Invoke returns the top matches labelled "Document N:" and separated by a
// blank line, or NoResultsMessage when nothing matches or retrieval fails.
func (t *RetrievalTool) Invoke(ctx context.Context, query string) string {
	if t.searcher == nil {
		return NoResultsMessage
	}

	results, err := t.searcher.Query(ctx, query, t.topK)
	if err != nil {
		t.logger.Warn("retrieval failed", "query", query, "error", err)
		return NoResultsMessage
	}
	if len(results) == 0 {
		return NoResultsMessage
	}

	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = fmt.Sprintf("Document %d:\n%s", i+1, r.Chunk.Content)
	}
	return strings.Join(parts, "\n\n")
}
