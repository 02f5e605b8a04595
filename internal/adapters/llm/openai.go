package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/0xcro3dile/ragagent/internal/domain/entities"
	"github.com/0xcro3dile/ragagent/internal/domain/ports"
)

// Verify interface compliance
var _ ports.ReasoningService = (*OpenAIReasoner)(nil)

// OpenAIConfig configures the chat completions client.
type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
}

// OpenAIReasoner implements ports.ReasoningService against an
// OpenAI-compatible /chat/completions endpoint.
type OpenAIReasoner struct {
	cfg    OpenAIConfig
	client *http.Client
	logger *slog.Logger
}

// NewOpenAIReasoner creates the adapter. The API key is required.
func NewOpenAIReasoner(cfg OpenAIConfig) (*OpenAIReasoner, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("missing OpenAI API key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	return &OpenAIReasoner{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: slog.Default().With("component", "openai-llm", "model", cfg.Model),
	}, nil
}

type chatMessage struct {
	Role       string         `json:"role"`
	Content    *string        `json:"content"`
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Name       string         `json:"name,omitempty"`
}

type chatToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type chatRequest struct {
	Model       string         `json:"model"`
	Messages    []chatMessage  `json:"messages"`
	Tools       []functionTool `json:"tools,omitempty"`
	Temperature float64        `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Reason sends one chat completion request and maps the first choice back.
func (a *OpenAIReasoner) Reason(ctx context.Context, messages []entities.Message, tools []entities.ToolDefinition) (entities.Message, error) {
	wire, err := toChatMessages(messages)
	if err != nil {
		return entities.Message{}, err
	}
	req := chatRequest{
		Model:       a.cfg.Model,
		Messages:    wire,
		Temperature: a.cfg.Temperature,
	}
	if len(tools) > 0 {
		req.Tools = toFunctionTools(tools)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return entities.Message{}, fmt.Errorf("marshaling request: %w", err)
	}
	payload, err := a.post(ctx, body)
	if err != nil {
		return entities.Message{}, err
	}

	var resp chatResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return entities.Message{}, fmt.Errorf("decoding response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return entities.Message{}, fmt.Errorf("%w: no choices returned", entities.ErrMalformedResponse)
	}
	return fromChatMessage(resp.Choices[0].Message)
}

func (a *OpenAIReasoner) post(ctx context.Context, body []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= a.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)

		resp, err := a.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("calling OpenAI: %w", err)
			continue
		}
		payload, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = fmt.Errorf("OpenAI returned %s", resp.Status)
			a.logger.Warn("chat request throttled", "attempt", attempt+1, "status", resp.StatusCode)
			continue
		case resp.StatusCode >= 300:
			return nil, fmt.Errorf("OpenAI chat failed: %s: %s", resp.Status, bytes.TrimSpace(payload))
		case readErr != nil:
			return nil, fmt.Errorf("reading response: %w", readErr)
		}
		return payload, nil
	}
	return nil, fmt.Errorf("OpenAI chat failed after %d attempts: %w", a.cfg.MaxRetries+1, lastErr)
}

func toChatMessages(messages []entities.Message) ([]chatMessage, error) {
	out := make([]chatMessage, 0, len(messages))
	for _, m := range messages {
		content := m.Content
		cm := chatMessage{Role: string(m.Role), Content: &content}
		if m.Role == entities.RoleTool {
			cm.ToolCallID = m.ToolCallID
			cm.Name = m.ToolName
		}
		for _, tc := range m.ToolCalls {
			args, err := json.Marshal(tc.Arguments)
			if err != nil {
				return nil, fmt.Errorf("marshaling arguments of %s: %w", tc.Name, err)
			}
			wc := chatToolCall{ID: tc.ID, Type: "function"}
			wc.Function.Name = tc.Name
			wc.Function.Arguments = string(args)
			cm.ToolCalls = append(cm.ToolCalls, wc)
		}
		if len(cm.ToolCalls) > 0 && content == "" {
			cm.Content = nil
		}
		out = append(out, cm)
	}
	return out, nil
}

func fromChatMessage(cm chatMessage) (entities.Message, error) {
	msg := entities.Message{Role: entities.Role(cm.Role)}
	if cm.Content != nil {
		msg.Content = *cm.Content
	}
	for _, wc := range cm.ToolCalls {
		var args map[string]any
		if wc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(wc.Function.Arguments), &args); err != nil {
				return entities.Message{}, fmt.Errorf("%w: arguments of %s: %v", entities.ErrMalformedResponse, wc.Function.Name, err)
			}
		}
		msg.ToolCalls = append(msg.ToolCalls, entities.ToolCall{
			ID:        wc.ID,
			Name:      wc.Function.Name,
			Arguments: args,
		})
	}
	return msg, nil
}
