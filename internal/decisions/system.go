package decisions

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/taxon/classify"
	"github.com/JaimeStill/taxon/internal/llm"
	"github.com/JaimeStill/taxon/internal/rules"
	"github.com/JaimeStill/taxon/pkg/pagination"
)

// System defines the public contract for classification run operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Run], error)

	Find(ctx context.Context, id uuid.UUID) (*RunDetail, error)
	Classify(ctx context.Context, cmd ClassifyCommand) (*RunDetail, error)
	Validate(ctx context.Context, cmd ValidateCommand) (*ValidationResult, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Models() []llm.ModelInfo
}

// Dependencies bundles the oracles behind a decision system's pipeline.
// Ranker is required; Reranker and Oracle may be nil when those stages are
// not wired, in which case runs requesting them degrade with a warning.
type Dependencies struct {
	Ranker   classify.SimilarityRanker
	Reranker classify.Reranker
	Oracle   classify.ConditionOracle
	Rules    rules.Config
}
