package entities

import "fmt"

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a request from the reasoning service to run a named tool.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// Message is a single conversation entry.
// ToolCalls is only set on assistant messages; ToolCallID and ToolName only on
// tool results.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
	ToolName   string
}

// HasToolCalls reports whether the message requests tool execution.
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// SystemMessage builds a system prompt entry.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage builds a user question entry.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds a final assistant answer with no tool calls.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ToolResultMessage builds the result entry answering call.
func ToolResultMessage(call ToolCall, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: call.ID, ToolName: call.Name}
}

// Conversation is an append-only, immutable message sequence.
// The zero value is an empty conversation.
type Conversation struct {
	messages []Message
}

// NewConversation returns a conversation holding a copy of msgs.
func NewConversation(msgs ...Message) Conversation {
	return Conversation{}.Append(msgs...)
}

// Append returns a new conversation with msgs added at the end.
// The receiver is never modified and the result never shares its backing array.
func (c Conversation) Append(msgs ...Message) Conversation {
	next := make([]Message, len(c.messages), len(c.messages)+len(msgs))
	copy(next, c.messages)
	for _, m := range msgs {
		next = append(next, cloneMessage(m))
	}
	return Conversation{messages: next}
}

// Messages returns a copy of the sequence.
func (c Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	for i, m := range c.messages {
		out[i] = cloneMessage(m)
	}
	return out
}

// Len returns the number of messages.
func (c Conversation) Len() int {
	return len(c.messages)
}

// Last returns the final message, or false if the conversation is empty.
func (c Conversation) Last() (Message, bool) {
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return cloneMessage(c.messages[len(c.messages)-1]), true
}

// Validate checks tool-call id integrity: every tool result answers a call made
// by the nearest preceding assistant message, each call is answered at most
// once, and tool results never appear without such a message.
func (c Conversation) Validate() error {
	var pending map[string]bool
	for i, m := range c.messages {
		switch m.Role {
		case RoleAssistant:
			pending = make(map[string]bool, len(m.ToolCalls))
			for _, call := range m.ToolCalls {
				if call.ID == "" {
					return fmt.Errorf("%w: message %d has a tool call without id", ErrInconsistentState, i)
				}
				if _, dup := pending[call.ID]; dup {
					return fmt.Errorf("%w: message %d repeats tool call id %q", ErrInconsistentState, i, call.ID)
				}
				pending[call.ID] = false
			}
		case RoleTool:
			answered, ok := pending[m.ToolCallID]
			if !ok {
				return fmt.Errorf("%w: message %d answers unknown tool call %q", ErrInconsistentState, i, m.ToolCallID)
			}
			if answered {
				return fmt.Errorf("%w: message %d answers tool call %q twice", ErrInconsistentState, i, m.ToolCallID)
			}
			pending[m.ToolCallID] = true
		default:
			pending = nil
		}
	}
	return nil
}

func cloneMessage(m Message) Message {
	if m.ToolCalls != nil {
		calls := make([]ToolCall, len(m.ToolCalls))
		for i, tc := range m.ToolCalls {
			calls[i] = tc
			if tc.Arguments != nil {
				args := make(map[string]any, len(tc.Arguments))
				for k, v := range tc.Arguments {
					args[k] = v
				}
				calls[i].Arguments = args
			}
		}
		m.ToolCalls = calls
	}
	return m
}

// ToolDefinition describes a tool offered to the reasoning service.
// Parameters is a JSON schema object.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}
