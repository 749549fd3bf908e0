// Package conditions judges attribute rule leaves with a language model. Each
// call presents one condition and one document; the rule evaluator owns
// traversal, ordering, and short-circuiting, so the oracle here stays a pure
// single-predicate judge.
package conditions

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/taxon/classify"
	"github.com/JaimeStill/taxon/internal/llm"
	"github.com/JaimeStill/taxon/pkg/formatting"
)

// Config controls the generation budget for judgment calls.
type Config struct {
	// MaxTokens is the token budget for the model response.
	MaxTokens int

	// Temperature controls output randomness. Zero keeps judgments reproducible.
	Temperature float64
}

// DefaultConfig returns the recommended judgment settings.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   512,
		Temperature: 0,
	}
}

// Oracle judges leaf conditions with a language model.
type Oracle struct {
	provider llm.Provider
	cfg      Config
	logger   *slog.Logger
}

// New creates an Oracle over the given provider.
func New(provider llm.Provider, cfg Config, logger *slog.Logger) *Oracle {
	return &Oracle{
		provider: provider,
		cfg:      cfg,
		logger:   logger.With("system", "conditions"),
	}
}

// judgmentOutput is the raw model response before mapping.
type judgmentOutput struct {
	Satisfied   bool    `json:"satisfied"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
}

// Judge decides whether the document satisfies the condition. A clean
// negative returns a Judgment with Satisfied false and a nil error; the error
// return carries only infrastructure failures.
func (o *Oracle) Judge(ctx context.Context, condition classify.Condition, document string) (classify.Judgment, error) {
	req := llm.Request{
		System: systemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildUserMessage(condition, document)},
		},
		Schema:      JudgmentSchema,
		MaxTokens:   o.cfg.MaxTokens,
		Temperature: o.cfg.Temperature,
	}

	resp, err := o.provider.Generate(ctx, req)
	if err != nil {
		return classify.Judgment{}, fmt.Errorf("condition judgment failed: %w", err)
	}

	out, err := formatting.Parse[judgmentOutput](string(resp.Content))
	if err != nil {
		return classify.Judgment{}, fmt.Errorf("parse judgment response: %w", err)
	}

	o.logger.DebugContext(ctx, "condition judged",
		"condition", condition.Description,
		"satisfied", out.Satisfied,
		"confidence", out.Confidence)

	return classify.Judgment{
		Satisfied:   out.Satisfied,
		Confidence:  out.Confidence,
		Explanation: out.Explanation,
	}, nil
}
