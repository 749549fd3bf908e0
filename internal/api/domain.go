package api

import (
	"fmt"

	"github.com/JaimeStill/taxon/internal/catalog"
	"github.com/JaimeStill/taxon/internal/conditions"
	"github.com/JaimeStill/taxon/internal/decisions"
	"github.com/JaimeStill/taxon/internal/rerank"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Catalog   catalog.System
	Decisions decisions.System
}

// NewDomain creates all domain systems from the API runtime. The decision
// system's reranker selects its model per request through the provider pool;
// the condition oracle judges with the configured default model.
func NewDomain(runtime *Runtime) (*Domain, error) {
	catalogSystem := catalog.New(
		runtime.Database.Connection(),
		runtime.Similarity,
		runtime.Logger,
		runtime.Pagination,
	)

	judge, err := runtime.Models.ForModel(runtime.Lifecycle.Context(), "")
	if err != nil {
		return nil, fmt.Errorf("condition oracle init failed: %w", err)
	}

	decisionsSystem := decisions.New(
		runtime.Database.Connection(),
		decisions.Dependencies{
			Ranker:   runtime.Similarity,
			Reranker: rerank.New(runtime.Models, runtime.Pipeline.Rerank(), runtime.Logger),
			Oracle:   conditions.New(judge, runtime.Pipeline.Conditions(), runtime.Logger),
			Rules:    runtime.Pipeline.Rules(),
		},
		runtime.Logger,
		runtime.Pagination,
		runtime.Storage,
		catalogSystem,
	)

	return &Domain{
		Catalog:   catalogSystem,
		Decisions: decisionsSystem,
	}, nil
}
