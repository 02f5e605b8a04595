package usecases

import (
	"fmt"

	"github.com/0xcro3dile/ragagent/internal/domain/entities"
)

// ExtractAnswer returns the text of the final assistant message. The last
// message must be from the assistant and carry no tool calls.
func ExtractAnswer(conv entities.Conversation) (string, error) {
	last, ok := conv.Last()
	if !ok {
		return "", fmt.Errorf("%w: empty conversation", entities.ErrInconsistentState)
	}
	if last.Role != entities.RoleAssistant {
		return "", fmt.Errorf("%w: last message is from %s", entities.ErrInconsistentState, last.Role)
	}
	if last.HasToolCalls() {
		return "", fmt.Errorf("%w: last message still requests %d tool calls", entities.ErrInconsistentState, len(last.ToolCalls))
	}
	return last.Content, nil
}
