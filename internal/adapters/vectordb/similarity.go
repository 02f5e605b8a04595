package vectordb

import (
	"math"
	"sort"

	"github.com/0xcro3dile/ragagent/internal/domain/entities"
)

type scored struct {
	chunk entities.Chunk
	score float64
}

// rankTopK orders candidates by descending score. Candidates must arrive in
// insertion order; equal scores keep that order.
func rankTopK(cands []scored, topK int) []entities.QueryResult {
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].score > cands[j].score
	})
	if topK > 0 && len(cands) > topK {
		cands = cands[:topK]
	}

	results := make([]entities.QueryResult, len(cands))
	for i, c := range cands {
		results[i] = entities.QueryResult{
			Chunk:     c.chunk,
			Score:     c.score,
			SourceDoc: c.chunk.Source,
		}
	}
	return results
}

// cosineSimilarity calculates cosine similarity between two vectors.
// Zero vectors and length mismatches score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
