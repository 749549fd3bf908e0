package classify

import "context"

// SimilarityRanker retrieves the candidate classes most similar to a document.
// Results are ordered descending by score and hold at most topK entries.
// Implementations must be safe for concurrent use and honor ctx cancellation.
type SimilarityRanker interface {
	Rank(ctx context.Context, document string, classes []Class, topK int) ([]Similarity, error)
}

// Reranker rescores similarity candidates with a stronger model. The output
// may cover any subset of the input; an omitted candidate means the reranker
// has no opinion on it, not that its score is zero.
type Reranker interface {
	Rerank(ctx context.Context, document string, candidates []Similarity, model string) ([]RerankScore, error)
}

// ConditionOracle judges a single leaf condition against a document.
// A condition that is simply not met returns a Judgment with Satisfied false;
// the error return is reserved for infrastructure failures (timeouts,
// unreachable backends, malformed responses). Implementations must honor ctx
// cancellation promptly: the rule evaluator abandons pending judgments by
// canceling their context.
type ConditionOracle interface {
	Judge(ctx context.Context, condition Condition, document string) (Judgment, error)
}
