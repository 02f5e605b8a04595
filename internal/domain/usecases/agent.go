package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/0xcro3dile/ragagent/internal/domain/entities"
	"github.com/0xcro3dile/ragagent/internal/domain/ports"
)

const (
	DefaultMaxTurns = 8

	DefaultSystemPrompt = "You are an intelligent AI assistant who answers questions about indivisible fair division and related topics.\n" +
		"Use the retriever tool to look up information from the research paper.\n" +
		"Always cite specific parts of the document in your answers."

	// ErrorAnswer is returned by Ask when the loop aborts.
	ErrorAnswer = "I'm sorry, I encountered an error while processing your question. Please try again."

	// BudgetExceededAnswer closes a conversation stopped by the turn cap.
	BudgetExceededAnswer = "I'm sorry, I could not complete an answer to your question within the allowed number of steps."

	// UnknownToolMessage is the tool result for calls naming an unregistered tool.
	UnknownToolMessage = "Incorrect Tool Name, please use the available tool."
)

// State is a phase of the reasoning/acting loop.
type State int

const (
	StateReasoning State = iota
	StateActing
	StateDone
)

func (s State) String() string {
	switch s {
	case StateReasoning:
		return "reasoning"
	case StateActing:
		return "acting"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ToolKind enumerates the tools the loop can dispatch.
type ToolKind int

const (
	ToolUnknown ToolKind = iota
	ToolRetriever
)

// ToolKindFor maps a requested tool name onto the registry.
func ToolKindFor(name string) ToolKind {
	switch name {
	case RetrieverToolName:
		return ToolRetriever
	default:
		return ToolUnknown
	}
}

// AgentConfig holds the agent's collaborators and limits.
type AgentConfig struct {
	Reasoner ports.ReasoningService
	Index    IndexSource

	SystemPrompt string
	MaxTurns     int // reasoning calls per question
	TopK         int

	ReasoningTimeout time.Duration // per reasoning call; 0 disables
	ToolTimeout      time.Duration // per tool invocation; 0 disables

	Logger *slog.Logger

	// NewID generates ids for tool calls that arrive without a usable one.
	NewID func() string
}

// Result is the outcome of one question.
type Result struct {
	Conversation entities.Conversation
	Answer       string
	Turns        int
}

// Agent runs the reasoning/acting loop for one question at a time per call.
// Each call owns its conversation; the index is shared read-only.
type Agent struct {
	cfg AgentConfig
}

// NewAgent validates cfg and fills in defaults.
func NewAgent(cfg AgentConfig) (*Agent, error) {
	if cfg.Reasoner == nil {
		return nil, errors.New("agent requires a reasoning service")
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = DefaultMaxTurns
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.NewID == nil {
		cfg.NewID = func() string { return "call_" + uuid.NewString() }
	}
	return &Agent{cfg: cfg}, nil
}

// Ask answers question. It never fails: loop errors and panics become a
// fixed apology, and a stopped loop yields BudgetExceededAnswer.
func (a *Agent) Ask(ctx context.Context, question string) (answer string) {
	defer func() {
		if r := recover(); r != nil {
			a.cfg.Logger.Error("agent panicked", "panic", r)
			answer = ErrorAnswer
		}
	}()

	res, err := a.Run(ctx, question)
	switch {
	case err == nil:
		return res.Answer
	case errors.Is(err, entities.ErrLoopBudgetExceeded):
		a.cfg.Logger.Warn("question stopped by turn cap", "turns", res.Turns, "error", err)
		return res.Answer
	default:
		a.cfg.Logger.Error("question failed", "error", err)
		return ErrorAnswer
	}
}

// Run drives the loop to completion and returns the final conversation.
// On ErrLoopBudgetExceeded the result is still complete and usable.
func (a *Agent) Run(ctx context.Context, question string) (*Result, error) {
	var idx *Index
	if a.cfg.Index != nil {
		idx = a.cfg.Index.Current()
	}
	tool := NewRetrievalTool(idx, a.cfg.TopK, a.cfg.Logger)
	tools := []entities.ToolDefinition{tool.Definition()}

	conv := entities.NewConversation(
		entities.SystemMessage(a.cfg.SystemPrompt),
		entities.UserMessage(question),
	)
	res := &Result{}
	state := StateReasoning

	for state != StateDone {
		switch state {
		case StateReasoning:
			msg, err := a.reason(ctx, conv, tools)
			res.Turns++
			if err != nil {
				res.Conversation = conv
				return res, err
			}
			conv = conv.Append(a.normalizeToolCalls(msg))
			if msg.HasToolCalls() {
				state = StateActing
			} else {
				state = StateDone
			}
			a.cfg.Logger.Debug("reasoning turn", "turn", res.Turns, "tool_calls", len(msg.ToolCalls), "next", state)

		case StateActing:
			last, _ := conv.Last()
			results := make([]entities.Message, 0, len(last.ToolCalls))
			for _, call := range last.ToolCalls {
				results = append(results, entities.ToolResultMessage(call, a.execute(ctx, tool, call)))
			}
			conv = conv.Append(results...)

			if res.Turns >= a.cfg.MaxTurns {
				conv = conv.Append(entities.AssistantMessage(BudgetExceededAnswer))
				res.Conversation = conv
				res.Answer = BudgetExceededAnswer
				return res, fmt.Errorf("%w: stopped after %d reasoning turns", entities.ErrLoopBudgetExceeded, res.Turns)
			}
			state = StateReasoning
		}
	}

	res.Conversation = conv
	answer, err := ExtractAnswer(conv)
	if err != nil {
		return res, err
	}
	res.Answer = answer
	return res, nil
}

func (a *Agent) reason(ctx context.Context, conv entities.Conversation, tools []entities.ToolDefinition) (entities.Message, error) {
	if a.cfg.ReasoningTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.ReasoningTimeout)
		defer cancel()
	}

	msg, err := a.cfg.Reasoner.Reason(ctx, conv.Messages(), tools)
	if err != nil {
		return entities.Message{}, fmt.Errorf("%w: %w", entities.ErrReasoningService, err)
	}
	if msg.Role != entities.RoleAssistant {
		return entities.Message{}, fmt.Errorf("%w: %w: role %q", entities.ErrReasoningService, entities.ErrMalformedResponse, msg.Role)
	}
	if msg.Content == "" && !msg.HasToolCalls() {
		return entities.Message{}, fmt.Errorf("%w: %w: empty answer", entities.ErrReasoningService, entities.ErrMalformedResponse)
	}
	return msg, nil
}

// normalizeToolCalls replaces empty or repeated tool call ids so every result
// can be matched to exactly one call.
func (a *Agent) normalizeToolCalls(msg entities.Message) entities.Message {
	if !msg.HasToolCalls() {
		return msg
	}
	calls := make([]entities.ToolCall, len(msg.ToolCalls))
	seen := make(map[string]bool, len(msg.ToolCalls))
	for i, call := range msg.ToolCalls {
		if call.ID == "" || seen[call.ID] {
			call.ID = a.cfg.NewID()
		}
		seen[call.ID] = true
		calls[i] = call
	}
	msg.ToolCalls = calls
	return msg
}

func (a *Agent) execute(ctx context.Context, tool *RetrievalTool, call entities.ToolCall) string {
	switch ToolKindFor(call.Name) {
	case ToolRetriever:
		query, _ := call.Arguments["query"].(string)
		if a.cfg.ToolTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, a.cfg.ToolTimeout)
			defer cancel()
		}
		return tool.Invoke(ctx, query)
	default:
		a.cfg.Logger.Warn("tool call rejected", "tool", call.Name, "id", call.ID, "error", entities.ErrUnknownTool)
		return UnknownToolMessage
	}
}
