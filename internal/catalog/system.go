package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/taxon/classify"
	"github.com/JaimeStill/taxon/pkg/pagination"
)

// System defines the public contract for class-set domain operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[ClassSet], error)

	Find(ctx context.Context, id uuid.UUID) (*ClassSet, error)
	Import(ctx context.Context, cmd ImportCommand) (*ClassSet, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Reindex(ctx context.Context, id uuid.UUID) error
	ReindexAll(ctx context.Context) error
}

// Indexer maintains the vector index backing similarity retrieval for a class
// set's classes. *similarity.Ranker satisfies it.
type Indexer interface {
	Warm(ctx context.Context, classes []classify.Class) error
	Drop(classes []classify.Class) error
}
