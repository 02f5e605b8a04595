package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/ragagent/internal/adapters/vectordb"
	"github.com/0xcro3dile/ragagent/internal/domain/entities"
)

func newTestAgent(t *testing.T, r *scriptedReasoner, idx IndexSource, mutate ...func(*AgentConfig)) *Agent {
	t.Helper()
	cfg := AgentConfig{Reasoner: r, Index: idx}
	for _, m := range mutate {
		m(&cfg)
	}
	agent, err := NewAgent(cfg)
	require.NoError(t, err)
	return agent
}

func buildTestIndex(t *testing.T, texts ...string) *Index {
	t.Helper()
	idx, err := BuildIndex(context.Background(), chunksOf(texts...), &mockEmbedder{}, vectordb.NewInMemoryStore(), IndexOptions{})
	require.NoError(t, err)
	return idx
}

func TestNewAgent_RequiresReasoner(t *testing.T) {
	_, err := NewAgent(AgentConfig{})
	assert.Error(t, err)
}

func TestAgent_DirectAnswer(t *testing.T) {
	r := &scriptedReasoner{responses: []entities.Message{entities.AssistantMessage("Hello!")}}
	agent := newTestAgent(t, r, buildTestIndex(t, "fair division"))

	res, err := agent.Run(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello!", res.Answer)
	assert.Equal(t, 1, res.Turns)

	msgs := res.Conversation.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, entities.SystemMessage(DefaultSystemPrompt), msgs[0])
	assert.Equal(t, entities.UserMessage("hi"), msgs[1])

	require.Len(t, r.tools, 1)
	require.Len(t, r.tools[0], 1)
	assert.Equal(t, RetrieverToolName, r.tools[0][0].Name)
}

func TestAgent_RetrievesThenAnswers(t *testing.T) {
	idx := buildTestIndex(t,
		"Pizza toppings vary by region.",
		"Theorem 2: Algorithm X achieves envy-freeness up to one good for fair division.",
	)
	r := &scriptedReasoner{fn: func(msgs []entities.Message) (entities.Message, error) {
		last := msgs[len(msgs)-1]
		if last.Role == entities.RoleUser {
			return toolRequest(retrieverCall("call-1", "algorithm envy-freeness")), nil
		}
		return entities.AssistantMessage("According to Theorem 2: " + last.Content), nil
	}}
	agent := newTestAgent(t, r, idx)

	res, err := agent.Run(context.Background(), "Does Algorithm X achieve envy-freeness?")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Turns)
	require.NoError(t, res.Conversation.Validate())

	msgs := res.Conversation.Messages()
	require.Len(t, msgs, 5)
	toolMsg := msgs[3]
	assert.Equal(t, entities.RoleTool, toolMsg.Role)
	assert.Equal(t, "call-1", toolMsg.ToolCallID)
	assert.True(t, strings.HasPrefix(toolMsg.Content, "Document 1:\nTheorem 2: Algorithm X"))
	assert.Contains(t, res.Answer, "Algorithm X achieves envy-freeness")
}

func TestAgent_EmptyCorpus(t *testing.T) {
	idx := buildTestIndex(t)
	r := &scriptedReasoner{fn: func(msgs []entities.Message) (entities.Message, error) {
		last := msgs[len(msgs)-1]
		if last.Role == entities.RoleUser {
			return toolRequest(retrieverCall("c1", "anything")), nil
		}
		return entities.AssistantMessage("The paper does not cover that. (" + last.Content + ")"), nil
	}}

	answer := newTestAgent(t, r, idx).Ask(context.Background(), "anything?")
	assert.Contains(t, answer, NoResultsMessage)
}

func TestAgent_UnknownToolIsReported(t *testing.T) {
	r := &scriptedReasoner{responses: []entities.Message{
		toolRequest(entities.ToolCall{ID: "x1", Name: "web_search", Arguments: map[string]any{"q": "news"}}),
		entities.AssistantMessage("Sorry, I can only search the paper."),
	}}
	agent := newTestAgent(t, r, buildTestIndex(t, "fair"))

	res, err := agent.Run(context.Background(), "latest news?")
	require.NoError(t, err)
	assert.Equal(t, "Sorry, I can only search the paper.", res.Answer)

	msgs := res.Conversation.Messages()
	assert.Equal(t, UnknownToolMessage, msgs[3].Content)
	assert.Equal(t, "x1", msgs[3].ToolCallID)
	assert.Equal(t, "web_search", msgs[3].ToolName)

	require.Len(t, r.calls, 2)
	assert.Equal(t, UnknownToolMessage, r.calls[1][3].Content)
}

func TestAgent_MultipleCallsAnsweredInOrder(t *testing.T) {
	r := &scriptedReasoner{responses: []entities.Message{
		toolRequest(
			retrieverCall("a", "fair"),
			entities.ToolCall{ID: "b", Name: "calculator"},
			retrieverCall("c", "pizza"),
		),
		entities.AssistantMessage("done"),
	}}
	agent := newTestAgent(t, r, buildTestIndex(t, "fair division", "pizza"))

	res, err := agent.Run(context.Background(), "q")
	require.NoError(t, err)
	require.NoError(t, res.Conversation.Validate())

	msgs := res.Conversation.Messages()
	require.Len(t, msgs, 7)
	for i, id := range []string{"a", "b", "c"} {
		assert.Equal(t, id, msgs[3+i].ToolCallID)
	}
	assert.Equal(t, UnknownToolMessage, msgs[4].Content)
}

func TestAgent_NormalizesToolCallIDs(t *testing.T) {
	r := &scriptedReasoner{responses: []entities.Message{
		toolRequest(retrieverCall("", "fair"), retrieverCall("dup", "envy"), retrieverCall("dup", "goods")),
		entities.AssistantMessage("ok"),
	}}
	n := 0
	agent := newTestAgent(t, r, buildTestIndex(t, "fair"), func(c *AgentConfig) {
		c.NewID = func() string { n++; return fmt.Sprintf("gen-%d", n) }
	})

	res, err := agent.Run(context.Background(), "q")
	require.NoError(t, err)
	require.NoError(t, res.Conversation.Validate())

	msgs := res.Conversation.Messages()
	ids := []string{msgs[2].ToolCalls[0].ID, msgs[2].ToolCalls[1].ID, msgs[2].ToolCalls[2].ID}
	assert.Equal(t, []string{"gen-1", "dup", "gen-2"}, ids)
}

func TestAgent_DefaultIDsAreUUIDs(t *testing.T) {
	r := &scriptedReasoner{responses: []entities.Message{
		toolRequest(retrieverCall("", "fair")),
		entities.AssistantMessage("ok"),
	}}
	res, err := newTestAgent(t, r, buildTestIndex(t, "fair")).Run(context.Background(), "q")
	require.NoError(t, err)

	id := res.Conversation.Messages()[2].ToolCalls[0].ID
	assert.True(t, strings.HasPrefix(id, "call_"))
	assert.Len(t, id, len("call_")+36)
}

func TestAgent_TerminatesUnderTurnCap(t *testing.T) {
	r := &scriptedReasoner{fn: func(msgs []entities.Message) (entities.Message, error) {
		return toolRequest(retrieverCall("", "again")), nil
	}}
	agent := newTestAgent(t, r, buildTestIndex(t, "fair"), func(c *AgentConfig) { c.MaxTurns = 3 })

	res, err := agent.Run(context.Background(), "loop forever")
	assert.ErrorIs(t, err, entities.ErrLoopBudgetExceeded)
	require.NotNil(t, res)
	assert.Equal(t, 3, res.Turns)
	assert.Len(t, r.calls, 3)
	assert.Equal(t, BudgetExceededAnswer, res.Answer)
	require.NoError(t, res.Conversation.Validate())

	answer, err := ExtractAnswer(res.Conversation)
	require.NoError(t, err)
	assert.Equal(t, BudgetExceededAnswer, answer)

	assert.Equal(t, BudgetExceededAnswer, agent.Ask(context.Background(), "loop forever"))
}

func TestAgent_DefaultTurnCap(t *testing.T) {
	r := &scriptedReasoner{fn: func(msgs []entities.Message) (entities.Message, error) {
		return toolRequest(retrieverCall("", "again")), nil
	}}
	res, err := newTestAgent(t, r, buildTestIndex(t, "fair")).Run(context.Background(), "q")
	assert.ErrorIs(t, err, entities.ErrLoopBudgetExceeded)
	assert.Equal(t, DefaultMaxTurns, res.Turns)
}

func TestAgent_ReasoningFailure(t *testing.T) {
	r := &scriptedReasoner{err: errors.New("503 service unavailable")}
	agent := newTestAgent(t, r, buildTestIndex(t, "fair"))

	_, err := agent.Run(context.Background(), "q")
	assert.ErrorIs(t, err, entities.ErrReasoningService)
	assert.Equal(t, ErrorAnswer, agent.Ask(context.Background(), "q"))
}

func TestAgent_MalformedResponses(t *testing.T) {
	for name, msg := range map[string]entities.Message{
		"empty":      {Role: entities.RoleAssistant},
		"wrong role": {Role: entities.RoleUser, Content: "hi"},
	} {
		t.Run(name, func(t *testing.T) {
			r := &scriptedReasoner{responses: []entities.Message{msg}}
			agent := newTestAgent(t, r, buildTestIndex(t, "fair"))

			_, err := agent.Run(context.Background(), "q")
			assert.ErrorIs(t, err, entities.ErrReasoningService)
			assert.ErrorIs(t, err, entities.ErrMalformedResponse)
			assert.Equal(t, ErrorAnswer, agent.Ask(context.Background(), "q"))
		})
	}
}

func TestAgent_ReasoningTimeout(t *testing.T) {
	agent, err := NewAgent(AgentConfig{Reasoner: ctxReasoner{}, ReasoningTimeout: 10 * time.Millisecond})
	require.NoError(t, err)

	_, err = agent.Run(context.Background(), "q")
	assert.ErrorIs(t, err, entities.ErrReasoningService)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, ErrorAnswer, agent.Ask(context.Background(), "q"))
}

// ctxReasoner blocks until its context ends.
type ctxReasoner struct{}

func (ctxReasoner) Reason(ctx context.Context, msgs []entities.Message, tools []entities.ToolDefinition) (entities.Message, error) {
	<-ctx.Done()
	return entities.Message{}, ctx.Err()
}

func TestAgent_PanicBecomesErrorAnswer(t *testing.T) {
	r := &scriptedReasoner{fn: func(msgs []entities.Message) (entities.Message, error) {
		panic("boom")
	}}
	assert.Equal(t, ErrorAnswer, newTestAgent(t, r, nil).Ask(context.Background(), "q"))
}

func TestAgent_MissingQueryArgument(t *testing.T) {
	r := &scriptedReasoner{responses: []entities.Message{
		toolRequest(entities.ToolCall{ID: "a", Name: RetrieverToolName, Arguments: map[string]any{"query": 42}}),
		entities.AssistantMessage("ok"),
	}}
	res, err := newTestAgent(t, r, buildTestIndex(t, "pizza")).Run(context.Background(), "q")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Conversation.Messages()[3].Content)
}

func TestAgent_UsesCurrentIndex(t *testing.T) {
	holder := NewIndexHolder(buildTestIndex(t))
	r := &scriptedReasoner{fn: func(msgs []entities.Message) (entities.Message, error) {
		last := msgs[len(msgs)-1]
		if last.Role == entities.RoleUser {
			return toolRequest(retrieverCall("c", "pizza")), nil
		}
		return entities.AssistantMessage(last.Content), nil
	}}
	agent := newTestAgent(t, r, holder)

	assert.Equal(t, NoResultsMessage, agent.Ask(context.Background(), "q"))
	holder.Swap(buildTestIndex(t, "pizza night"))
	assert.Equal(t, "Document 1:\npizza night", agent.Ask(context.Background(), "q"))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "reasoning", StateReasoning.String())
	assert.Equal(t, "acting", StateActing.String())
	assert.Equal(t, "done", StateDone.String())
	assert.Equal(t, "State(9)", State(9).String())
}

func TestToolKindFor(t *testing.T) {
	assert.Equal(t, ToolRetriever, ToolKindFor("retriever_tool"))
	assert.Equal(t, ToolUnknown, ToolKindFor("Retriever_Tool"))
	assert.Equal(t, ToolUnknown, ToolKindFor(""))
}
