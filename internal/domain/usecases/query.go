package usecases

import (
	"context"
	"strings"

	"github.com/0xcro3dile/ragagent/internal/domain/entities"
	"github.com/0xcro3dile/ragagent/internal/domain/ports"
)

// QueryUseCase is what transports talk to: agent answers plus raw retrieval
// for inspecting what the index returns for a query.
type QueryUseCase struct {
	asker ports.Asker
	index IndexSource
	topK  int
}

// NewQueryUseCase creates a QueryUseCase with injected dependencies.
func NewQueryUseCase(asker ports.Asker, index IndexSource, topK int) *QueryUseCase {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &QueryUseCase{asker: asker, index: index, topK: topK}
}

// Ask answers question through the agent. Never fails.
func (uc *QueryUseCase) Ask(ctx context.Context, question string) string {
	return uc.asker.Ask(ctx, strings.TrimSpace(question))
}

// Search only retrieves relevant chunks without reasoning.
func (uc *QueryUseCase) Search(ctx context.Context, query string) ([]entities.QueryResult, error) {
	if uc.index == nil {
		return nil, nil
	}
	return uc.index.Current().Query(ctx, query, uc.topK)
}

// Stats reports the size of the current index.
func (uc *QueryUseCase) Stats() (chunks, dimension int) {
	if uc.index == nil {
		return 0, 0
	}
	idx := uc.index.Current()
	if idx == nil {
		return 0, 0
	}
	return idx.Len(), idx.Dimension()
}
