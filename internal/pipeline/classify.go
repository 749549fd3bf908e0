package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/taxon/classify"
	"github.com/JaimeStill/taxon/internal/rules"
	"github.com/JaimeStill/taxon/internal/scoring"
)

// Classify runs the full pipeline for a single document against a class set.
// The caller supplies the run identity so that stage events and the result
// can be correlated with whatever record the caller keeps for the run.
//
// The document's similarity ordering always survives: rerank failure logs a
// warning and the run continues on similarity scores alone. Attribute
// validation only ever annotates the primary candidate. Cancellation is
// honored between stages; a stage that is already underway runs to its own
// context deadline.
func (p *Pipeline) Classify(ctx context.Context, runID uuid.UUID, document string, classes []classify.Class, cfg classify.Config) (*classify.Result, error) {
	start := time.Now()

	if err := validateInput(document, classes); err != nil {
		return nil, p.fail(ctx, runID, err)
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, p.fail(ctx, runID, err)
	}

	similarities, err := p.retrieve(ctx, runID, document, classes, cfg.TopKCandidates)
	if err != nil {
		return nil, p.fail(ctx, runID, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, p.fail(ctx, runID, err)
	}

	rerankScores, reranked := p.rerank(ctx, runID, document, similarities, cfg)
	if err := ctx.Err(); err != nil {
		return nil, p.fail(ctx, runID, err)
	}

	ranking, err := scoring.Rank(similarities, rerankScores)
	if err != nil {
		return nil, p.fail(ctx, runID, err)
	}

	evaluation, validated, err := p.validate(ctx, runID, document, &ranking, cfg)
	if err != nil {
		return nil, p.fail(ctx, runID, err)
	}

	result := &classify.Result{
		RunID:              runID,
		Predicted:          ranking.Primary.Class,
		Primary:            ranking.Primary,
		Alternatives:       ranking.Alternatives,
		Evaluation:         evaluation,
		Reranked:           reranked,
		AttributeValidated: validated,
		ProcessingTimeMs:   time.Since(start).Seconds() * 1000,
	}

	p.emit(ctx, runID, StageDone)
	p.logger.InfoContext(ctx, "document classified",
		"run_id", runID,
		"predicted", result.Predicted.ID,
		"candidates", 1+len(result.Alternatives),
		"reranked", reranked,
		"validated", validated,
		"duration", time.Since(start),
	)

	return result, nil
}

func validateInput(document string, classes []classify.Class) error {
	if strings.TrimSpace(document) == "" {
		return classify.ErrEmptyDocument
	}
	if len(classes) == 0 {
		return classify.ErrEmptyClassSet
	}
	return nil
}

func (p *Pipeline) retrieve(ctx context.Context, runID uuid.UUID, document string, classes []classify.Class, topK int) ([]classify.Similarity, error) {
	p.emit(ctx, runID, StageRetrieving)

	similarities, err := p.ranker.Rank(ctx, document, classes, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", classify.ErrRetrieval, err)
	}
	if len(similarities) == 0 {
		return nil, fmt.Errorf("%w: ranker produced no candidates", classify.ErrRetrieval)
	}

	return similarities, nil
}

// rerank runs the optional rerank stage. It returns whatever scores the
// reranker produced and whether they apply; on failure the run degrades to
// similarity ordering rather than aborting.
func (p *Pipeline) rerank(ctx context.Context, runID uuid.UUID, document string, similarities []classify.Similarity, cfg classify.Config) ([]classify.RerankScore, bool) {
	if !cfg.UseReranking {
		return nil, false
	}
	if p.reranker == nil {
		p.logger.WarnContext(ctx, "reranking requested but no reranker is wired", "run_id", runID)
		return nil, false
	}

	p.emit(ctx, runID, StageReranking)

	scores, err := p.reranker.Rerank(ctx, document, similarities, cfg.RerankingModel)
	if err != nil {
		p.logger.WarnContext(ctx, "rerank failed, continuing with similarity scores",
			"run_id", runID,
			"error", fmt.Errorf("%w: %w", classify.ErrRerank, err),
		)
		return nil, false
	}

	return scores, true
}

// validate runs the optional attribute validation stage against the primary
// candidate only. A primary without an attribute rule skips the stage. The
// returned evaluation is checked for structural conformance with the rule;
// a mismatch is an internal defect and fails the run.
func (p *Pipeline) validate(ctx context.Context, runID uuid.UUID, document string, ranking *scoring.Ranking, cfg classify.Config) (*classify.Evaluation, bool, error) {
	if !cfg.UseAttributeValidation || !ranking.Primary.Class.HasAttributes() {
		return nil, false, nil
	}
	if p.evaluator == nil {
		p.logger.WarnContext(ctx, "attribute validation requested but no condition oracle is wired", "run_id", runID)
		return nil, false, nil
	}

	p.emit(ctx, runID, StageValidating)

	rule := ranking.Primary.Class.Attributes
	p.logger.InfoContext(ctx, "validating attributes",
		"run_id", runID,
		"class", ranking.Primary.Class.ID,
		"leaves", rule.Leaves(),
		"depth", rule.Depth(),
	)

	evaluation := p.evaluator.Evaluate(ctx, rule, document)
	if err := rules.Conforms(rule, evaluation); err != nil {
		return nil, false, err
	}

	scoring.AttachValidation(&ranking.Primary, evaluation)
	return evaluation, true, nil
}

func (p *Pipeline) emit(ctx context.Context, runID uuid.UUID, stage Stage) {
	p.observer.StageChanged(ctx, Event{RunID: runID, Stage: stage, At: time.Now()})
}

// fail publishes the failed stage, logs, and returns err unchanged so call
// sites can hand it straight back.
func (p *Pipeline) fail(ctx context.Context, runID uuid.UUID, err error) error {
	p.emit(ctx, runID, StageFailed)
	p.logger.ErrorContext(ctx, "classification failed",
		"run_id", runID,
		"error", err,
	)
	return err
}
