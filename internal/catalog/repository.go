package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/taxon/pkg/pagination"
	"github.com/JaimeStill/taxon/pkg/query"
	"github.com/JaimeStill/taxon/pkg/repository"
)

// reindexConcurrency bounds how many class sets warm their vector
// collections at once during ReindexAll.
const reindexConcurrency = 4

type repo struct {
	db         *sql.DB
	index      Indexer
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a class-set repository implementing the System interface.
func New(
	db *sql.DB,
	index Indexer,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		index:      index,
		logger:     logger.With("system", "catalog"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[ClassSet], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Name", "Description")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count class sets: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	sets, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanClassSet)
	if err != nil {
		return nil, fmt.Errorf("query class sets: %w", err)
	}

	result := pagination.NewPageResult(sets, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*ClassSet, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	set, err := repository.QueryOne(ctx, r.db, q, args, scanClassSet)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &set, nil
}

func (r *repo) findByName(ctx context.Context, name string) (*ClassSet, error) {
	q, args := query.NewBuilder(projection).BuildSingle("Name", name)

	set, err := repository.QueryOne(ctx, r.db, q, args, scanClassSet)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &set, nil
}

func (r *repo) Import(ctx context.Context, cmd ImportCommand) (*ClassSet, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	classesJSON, err := json.Marshal(cmd.Classes)
	if err != nil {
		return nil, fmt.Errorf("marshal classes: %w", err)
	}

	// Imports replace a set wholesale; prune the superseded vector
	// collection while its classes are still known.
	if existing, err := r.findByName(ctx, cmd.Name); err == nil {
		if dropErr := r.index.Drop(existing.Classes); dropErr != nil {
			r.logger.Warn("drop superseded class index failed",
				"set", cmd.Name, "error", dropErr)
		}
	}

	upsertQ := `
		INSERT INTO class_sets(name, description, classes, class_count)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET
			description = EXCLUDED.description,
			classes = EXCLUDED.classes,
			class_count = EXCLUDED.class_count,
			updated_at = NOW()
		RETURNING id, name, description, classes, class_count, created_at, updated_at`

	upsertArgs := []any{cmd.Name, cmd.Description, classesJSON, len(cmd.Classes)}

	set, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (ClassSet, error) {
		return repository.QueryOne(ctx, tx, upsertQ, upsertArgs, scanClassSet)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	if err := r.index.Warm(ctx, set.Classes); err != nil {
		r.logger.Warn("class index warm failed, retrieval will embed on first use",
			"set", set.Name, "error", err)
	}

	r.logger.Info("class set imported",
		"id", set.ID,
		"name", set.Name,
		"classes", set.ClassCount,
	)
	return &set, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	set, err := r.Find(ctx, id)
	if err != nil {
		return err
	}

	_, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM class_sets WHERE id = $1",
			id,
		); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	if dropErr := r.index.Drop(set.Classes); dropErr != nil {
		r.logger.Warn(
			"class index drop failed after DB delete",
			"set", set.Name,
			"error", dropErr,
		)
	}

	r.logger.Info("class set deleted", "id", id, "name", set.Name)
	return nil
}

func (r *repo) Reindex(ctx context.Context, id uuid.UUID) error {
	set, err := r.Find(ctx, id)
	if err != nil {
		return err
	}

	if err := r.index.Drop(set.Classes); err != nil {
		return fmt.Errorf("drop class index: %w", err)
	}
	if err := r.index.Warm(ctx, set.Classes); err != nil {
		return fmt.Errorf("rebuild class index: %w", err)
	}

	r.logger.Info("class set reindexed", "id", id, "name", set.Name)
	return nil
}

func (r *repo) ReindexAll(ctx context.Context) error {
	listSQL, listArgs := query.NewBuilder(projection).Build()
	sets, err := repository.QueryMany(ctx, r.db, listSQL, listArgs, scanClassSet)
	if err != nil {
		return fmt.Errorf("query class sets: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(reindexConcurrency)

	for _, set := range sets {
		g.Go(func() error {
			if err := r.index.Warm(ctx, set.Classes); err != nil {
				return fmt.Errorf("warm class set %q: %w", set.Name, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	r.logger.Info("class sets reindexed", "count", len(sets))
	return nil
}
