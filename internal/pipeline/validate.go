package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/JaimeStill/taxon/classify"
	"github.com/JaimeStill/taxon/internal/rules"
)

// ValidateClass evaluates a single class's attribute rule against a document,
// outside of any classification run. It answers "does this document satisfy
// this class's requirements" without retrieval or ranking.
func (p *Pipeline) ValidateClass(ctx context.Context, document string, class classify.Class) (*classify.Evaluation, error) {
	if strings.TrimSpace(document) == "" {
		return nil, classify.ErrEmptyDocument
	}
	if !class.HasAttributes() {
		return nil, fmt.Errorf("%w: class %q has no attribute rule", classify.ErrEmptyRule, class.ID)
	}
	if p.evaluator == nil {
		return nil, fmt.Errorf("%w: no condition oracle is wired", classify.ErrJudgment)
	}

	evaluation := p.evaluator.Evaluate(ctx, class.Attributes, document)
	if err := rules.Conforms(class.Attributes, evaluation); err != nil {
		return nil, err
	}

	p.logger.InfoContext(ctx, "class validated",
		"class", class.ID,
		"satisfied", evaluation.Holds(),
	)

	return evaluation, nil
}
