package entities

import "errors"

// Sentinel errors shared across layers. Wrap with fmt.Errorf("...: %w") and
// match with errors.Is.
var (
	// ErrIngestion covers any failure while loading, chunking or indexing the corpus.
	// Fatal at startup.
	ErrIngestion = errors.New("ingestion failed")

	// ErrEmbedding is returned when the embedding service fails or returns
	// unusable vectors.
	ErrEmbedding = errors.New("embedding failed")

	// ErrUnknownTool marks a tool call naming a tool outside the registry.
	// Recoverable: the loop reports it back to the reasoning service.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrReasoningService marks a failed or malformed reasoning call.
	ErrReasoningService = errors.New("reasoning service failed")

	// ErrLoopBudgetExceeded is reported when the turn cap stops the loop.
	ErrLoopBudgetExceeded = errors.New("loop budget exceeded")

	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrInvalidChunking   = errors.New("invalid chunking parameters")
	ErrInconsistentState = errors.New("inconsistent conversation state")
	ErrMalformedResponse = errors.New("malformed reasoning response")
)
