package decisions

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/taxon/classify"
	"github.com/JaimeStill/taxon/internal/catalog"
	"github.com/JaimeStill/taxon/internal/llm"
	"github.com/JaimeStill/taxon/internal/pipeline"
	"github.com/JaimeStill/taxon/pkg/pagination"
	"github.com/JaimeStill/taxon/pkg/query"
	"github.com/JaimeStill/taxon/pkg/repository"
	"github.com/JaimeStill/taxon/pkg/storage"
)

const runColumns = `id, class_set_id, class_set_name, stage, predicted, predicted_name,
	effective, similarity, rerank, attribute, reranked, attribute_validated,
	processing_time_ms, error, result_key, created_at, updated_at`

type repo struct {
	db         *sql.DB
	pipe       *pipeline.Pipeline
	sets       catalog.System
	archive    storage.System
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a decision repository implementing the System interface. It
// internally constructs the classification pipeline from the provided
// dependencies, registering itself as the pipeline's stage observer so run
// rows track progress.
func New(
	db *sql.DB,
	deps Dependencies,
	logger *slog.Logger,
	pagination pagination.Config,
	archive storage.System,
	sets catalog.System,
) System {
	r := &repo{
		db:         db,
		sets:       sets,
		archive:    archive,
		logger:     logger.With("system", "decisions"),
		pagination: pagination,
	}

	r.pipe = pipeline.New(pipeline.Dependencies{
		Ranker:   deps.Ranker,
		Reranker: deps.Reranker,
		Oracle:   deps.Oracle,
		Rules:    deps.Rules,
		Logger:   logger,
		Observer: r,
	})

	return r
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

// StageChanged records a pipeline stage transition on the run's row.
// Failures are logged and swallowed; bookkeeping never interrupts a run.
func (r *repo) StageChanged(ctx context.Context, event pipeline.Event) {
	_, err := r.db.ExecContext(ctx,
		"UPDATE runs SET stage = $2, updated_at = NOW() WHERE id = $1",
		event.RunID, event.Stage,
	)
	if err != nil {
		r.logger.WarnContext(ctx, "failed to record stage transition",
			"id", event.RunID,
			"stage", event.Stage,
			"error", err,
		)
	}
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Run], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "ClassSetName", "Predicted", "PredictedName")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count runs: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanRun)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

// Find returns a run's stored metadata together with its archived result
// payload. A run whose payload is missing from the archive still resolves;
// the detail carries metadata alone.
func (r *repo) Find(ctx context.Context, id uuid.UUID) (*RunDetail, error) {
	run, err := r.find(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &RunDetail{Run: *run}
	if run.ResultKey == "" {
		return detail, nil
	}

	download, err := r.archive.Download(ctx, run.ResultKey)
	if err != nil {
		r.logger.WarnContext(ctx, "archived result unavailable",
			"id", id,
			"key", run.ResultKey,
			"error", err,
		)
		return detail, nil
	}
	defer download.Body.Close()

	var result classify.Result
	if err := json.NewDecoder(download.Body).Decode(&result); err != nil {
		r.logger.WarnContext(ctx, "archived result unreadable",
			"id", id,
			"key", run.ResultKey,
			"error", err,
		)
		return detail, nil
	}

	detail.Result = &result
	return detail, nil
}

func (r *repo) find(ctx context.Context, id uuid.UUID) (*Run, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	run, err := repository.QueryOne(ctx, r.db, q, args, scanRun)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &run, nil
}

// Classify resolves the class set, creates a run row, and executes the
// pipeline against it. On success the full result payload is archived and
// the row is finalized with the prediction and its scores; on failure the
// row records the failed stage and the cause.
func (r *repo) Classify(ctx context.Context, cmd ClassifyCommand) (*RunDetail, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	set, err := r.sets.Find(ctx, cmd.ClassSetID)
	if err != nil {
		return nil, fmt.Errorf("find class set %s: %w", cmd.ClassSetID, err)
	}

	run, err := r.create(ctx, set)
	if err != nil {
		return nil, err
	}

	result, err := r.pipe.Classify(ctx, run.ID, cmd.Document, set.Classes, cmd.Options)
	if err != nil {
		r.recordFailure(ctx, run.ID, err)
		return nil, err
	}

	key := r.store(ctx, run.ID, result)

	final, err := r.complete(ctx, run.ID, result, key)
	if err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "run recorded",
		"id", final.ID,
		"class_set", final.ClassSetName,
		"predicted", final.Predicted,
	)

	return &RunDetail{Run: *final, Result: result}, nil
}

func (r *repo) create(ctx context.Context, set *catalog.ClassSet) (*Run, error) {
	insertQ := `
		INSERT INTO runs (id, class_set_id, class_set_name, stage)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + runColumns

	insertArgs := []any{uuid.New(), set.ID, set.Name, pipeline.StageIdle}

	run, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Run, error) {
		return repository.QueryOne(ctx, tx, insertQ, insertArgs, scanRun)
	})
	if err != nil {
		return nil, fmt.Errorf("create run: %w", repository.MapError(err, ErrNotFound, ErrDuplicate))
	}

	return &run, nil
}

// store archives the result payload and returns its key. Archival failure
// degrades the run to metadata only rather than failing it; the prediction
// already exists and losing the payload is the lesser harm.
func (r *repo) store(ctx context.Context, id uuid.UUID, result *classify.Result) string {
	payload, err := json.Marshal(result)
	if err != nil {
		r.logger.WarnContext(ctx, "failed to marshal run result", "id", id, "error", err)
		return ""
	}

	key := resultKey(id)
	if err := r.archive.Upload(ctx, key, bytes.NewReader(payload), "application/json"); err != nil {
		r.logger.WarnContext(ctx, "failed to archive run result", "id", id, "key", key, "error", err)
		return ""
	}

	return key
}

func (r *repo) complete(ctx context.Context, id uuid.UUID, result *classify.Result, key string) (*Run, error) {
	updateQ := `
		UPDATE runs SET
			stage = $2,
			predicted = $3,
			predicted_name = $4,
			effective = $5,
			similarity = $6,
			rerank = $7,
			attribute = $8,
			reranked = $9,
			attribute_validated = $10,
			processing_time_ms = $11,
			result_key = $12,
			error = '',
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + runColumns

	updateArgs := []any{
		id,
		pipeline.StageDone,
		result.Predicted.ID,
		result.Predicted.Name,
		result.Primary.Effective,
		result.Primary.Similarity,
		result.Primary.Rerank,
		result.Primary.Attribute,
		result.Reranked,
		result.AttributeValidated,
		result.ProcessingTimeMs,
		key,
	}

	run, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Run, error) {
		return repository.QueryOne(ctx, tx, updateQ, updateArgs, scanRun)
	})
	if err != nil {
		return nil, fmt.Errorf("finalize run: %w", repository.MapError(err, ErrNotFound, ErrDuplicate))
	}

	return &run, nil
}

// recordFailure stores the cause on the run row. A canceled request still
// gets its failure recorded.
func (r *repo) recordFailure(ctx context.Context, id uuid.UUID, cause error) {
	ctx = context.WithoutCancel(ctx)

	_, err := r.db.ExecContext(ctx,
		"UPDATE runs SET stage = $2, error = $3, updated_at = NOW() WHERE id = $1",
		id, pipeline.StageFailed, cause.Error(),
	)
	if err != nil {
		r.logger.WarnContext(ctx, "failed to record run failure", "id", id, "error", err)
	}
}

// Validate evaluates a single class's attribute rule against a document
// without creating a run.
func (r *repo) Validate(ctx context.Context, cmd ValidateCommand) (*ValidationResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	set, err := r.sets.Find(ctx, cmd.ClassSetID)
	if err != nil {
		return nil, fmt.Errorf("find class set %s: %w", cmd.ClassSetID, err)
	}

	class, ok := set.Class(cmd.ClassID)
	if !ok {
		return nil, fmt.Errorf("%w: class %q not in set %q", ErrNotFound, cmd.ClassID, set.Name)
	}

	evaluation, err := r.pipe.ValidateClass(ctx, cmd.Document, class)
	if err != nil {
		return nil, err
	}

	return &ValidationResult{
		ClassID:    class.ID,
		Satisfied:  evaluation.Holds(),
		Evaluation: evaluation,
	}, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	run, err := r.find(ctx, id)
	if err != nil {
		return err
	}

	_, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		err := repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM runs WHERE id = $1",
			id,
		)
		return struct{}{}, err
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	if run.ResultKey != "" {
		if err := r.archive.Delete(ctx, run.ResultKey); err != nil {
			r.logger.Warn("failed to delete archived result",
				"id", id,
				"key", run.ResultKey,
				"error", err,
			)
		}
	}

	r.logger.Info("run deleted", "id", id)
	return nil
}

// Models lists the friendly reranking model catalog.
func (r *repo) Models() []llm.ModelInfo {
	return llm.Models()
}

func resultKey(id uuid.UUID) string {
	return "runs/" + id.String() + ".json"
}
