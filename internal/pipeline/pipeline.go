// Package pipeline executes the classification pipeline: similarity
// retrieval, optional LLM reranking, and optional attribute validation, in
// that order. Each run walks the stages with a caller-supplied run identity,
// publishes stage transitions to an observer, and aggregates stage outputs
// into a single result.
//
// Stage failures are not uniform. Retrieval failure is fatal: with no
// candidates there is nothing to degrade to. Rerank failure degrades the run
// to similarity ordering. Attribute validation failures never change the
// prediction; they surface on the evaluation tree instead.
package pipeline

import (
	"log/slog"

	"github.com/JaimeStill/taxon/classify"
	"github.com/JaimeStill/taxon/internal/rules"
)

// Dependencies bundles everything a Pipeline needs. Ranker is required.
// Reranker and Oracle may be nil when the deployment does not wire those
// stages; runs that request a missing stage degrade with a warning instead
// of failing.
type Dependencies struct {
	Ranker   classify.SimilarityRanker
	Reranker classify.Reranker
	Oracle   classify.ConditionOracle
	Logger   *slog.Logger
	Observer Observer

	// Rules configures the attribute evaluator constructed around Oracle.
	Rules rules.Config
}

// Pipeline runs document classifications. It holds no per-run state and is
// safe for concurrent use.
type Pipeline struct {
	ranker    classify.SimilarityRanker
	reranker  classify.Reranker
	evaluator *rules.Evaluator
	observer  Observer
	logger    *slog.Logger
}

// New assembles a Pipeline from its dependencies.
func New(deps Dependencies) *Pipeline {
	observer := deps.Observer
	if observer == nil {
		observer = NoopObserver{}
	}

	var evaluator *rules.Evaluator
	if deps.Oracle != nil {
		evaluator = rules.New(deps.Oracle, deps.Logger, deps.Rules)
	}

	return &Pipeline{
		ranker:    deps.Ranker,
		reranker:  deps.Reranker,
		evaluator: evaluator,
		observer:  observer,
		logger:    deps.Logger.With("system", "pipeline"),
	}
}
