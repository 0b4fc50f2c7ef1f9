// Package llm is the model invocation boundary. It wraps the chat-completion,
// embedding and rerank endpoints behind small interfaces, protects every
// outbound call with a circuit breaker, and converts all failures to
// *ModelError so callers can degrade instead of propagate.
package llm

import "context"

// TextGenerator produces a structured (JSON) completion for a prompt.
// Implementations make at most one model call per invocation; retry policy
// belongs to callers, and most callers must not retry at all.
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
	GetModel() string
}

// EmbeddingGenerator produces dense vector embeddings.
type EmbeddingGenerator interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	GetModel() string
}

// RerankCandidate is one document sent to the reranker.
type RerankCandidate struct {
	ID   string
	Text string
}

// RerankResult is one reranked document with its model-assigned score.
type RerankResult struct {
	ID    string
	Score float64
}

// Reranker re-scores a candidate set against a query with a higher-precision
// model and returns the new order, best first.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []RerankCandidate) ([]RerankResult, error)
}
