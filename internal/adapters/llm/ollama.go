// Package llm provides ports.ReasoningService adapters for Ollama and
// OpenAI-compatible chat APIs with tool calling.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/0xcro3dile/ragagent/internal/domain/entities"
	"github.com/0xcro3dile/ragagent/internal/domain/ports"
)

// Verify interface compliance
var _ ports.ReasoningService = (*OllamaReasoner)(nil)

// OllamaReasoner implements ports.ReasoningService using the Ollama /api/chat
// endpoint. Tool call ids are left empty; the agent assigns them.
type OllamaReasoner struct {
	client *api.Client
	model  string
	logger *slog.Logger
}

// NewOllamaReasoner creates a new Ollama chat adapter.
func NewOllamaReasoner(baseURL, model string) (*OllamaReasoner, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.2"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing Ollama URL %q: %w", baseURL, err)
	}
	return &OllamaReasoner{
		client: api.NewClient(u, &http.Client{Timeout: 300 * time.Second}),
		model:  model,
		logger: slog.Default().With("component", "ollama-llm", "model", model),
	}, nil
}

// Reason sends the conversation and tool schemas and returns the next
// assistant message.
func (a *OllamaReasoner) Reason(ctx context.Context, messages []entities.Message, tools []entities.ToolDefinition) (entities.Message, error) {
	apiTools, err := toOllamaTools(tools)
	if err != nil {
		return entities.Message{}, err
	}

	stream := false
	req := &api.ChatRequest{
		Model:    a.model,
		Messages: toOllamaMessages(messages),
		Stream:   &stream,
		Tools:    apiTools,
		Options:  map[string]any{"temperature": 0},
	}

	var resp api.ChatResponse
	err = a.client.Chat(ctx, req, func(r api.ChatResponse) error {
		resp = r
		return nil
	})
	if err != nil {
		return entities.Message{}, fmt.Errorf("calling Ollama: %w", err)
	}

	out := entities.Message{
		Role:    entities.Role(resp.Message.Role),
		Content: resp.Message.Content,
	}
	for _, tc := range resp.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, entities.ToolCall{
			Name:      tc.Function.Name,
			Arguments: map[string]any(tc.Function.Arguments),
		})
	}

	a.logger.Debug("chat completed", "tool_calls", len(out.ToolCalls), "done_reason", resp.DoneReason)
	return out, nil
}

func toOllamaMessages(messages []entities.Message) []api.Message {
	out := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		msg := api.Message{Role: string(m.Role), Content: m.Content}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, api.ToolCall{
				Function: api.ToolCallFunction{
					Name:      tc.Name,
					Arguments: api.ToolCallFunctionArguments(tc.Arguments),
				},
			})
		}
		out = append(out, msg)
	}
	return out
}

// toOllamaTools goes through JSON so the schema map maps onto api.Tool
// without mirroring its nested property types.
func toOllamaTools(tools []entities.ToolDefinition) (api.Tools, error) {
	if len(tools) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(toFunctionTools(tools))
	if err != nil {
		return nil, fmt.Errorf("marshaling tools: %w", err)
	}
	var out api.Tools
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("converting tools: %w", err)
	}
	return out, nil
}

// functionTool is the OpenAI-style tool envelope both backends accept.
type functionTool struct {
	Type     string         `json:"type"`
	Function functionSchema `json:"function"`
}

type functionSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

func toFunctionTools(tools []entities.ToolDefinition) []functionTool {
	out := make([]functionTool, len(tools))
	for i, t := range tools {
		out[i] = functionTool{
			Type: "function",
			Function: functionSchema{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		}
	}
	return out
}
