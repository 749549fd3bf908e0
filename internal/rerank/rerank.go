// Package rerank rescores similarity candidates with a language model. The
// model sees the document alongside every candidate class and judges each
// match on content rather than embedding distance, so close similarity calls
// get a second, stronger opinion.
package rerank

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/taxon/classify"
	"github.com/JaimeStill/taxon/internal/llm"
	"github.com/JaimeStill/taxon/pkg/formatting"
)

// Providers resolves a reranking model name to a generation backend.
// *llm.Pool satisfies it.
type Providers interface {
	ForModel(ctx context.Context, model string) (llm.Provider, error)
}

// Config controls the generation budget for rerank calls.
type Config struct {
	// MaxTokens is the token budget for the model response. It has to cover
	// one score and one sentence of reasoning per candidate.
	MaxTokens int

	// Temperature controls output randomness. Zero keeps scores reproducible.
	Temperature float64
}

// DefaultConfig returns the recommended rerank settings.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   2048,
		Temperature: 0,
	}
}

// Reranker scores candidates with a model selected per request.
type Reranker struct {
	providers Providers
	cfg       Config
	logger    *slog.Logger
}

// New creates a Reranker over the given provider source.
func New(providers Providers, cfg Config, logger *slog.Logger) *Reranker {
	return &Reranker{
		providers: providers,
		cfg:       cfg,
		logger:    logger.With("system", "rerank"),
	}
}

// rerankOutput is the raw model response before mapping.
type rerankOutput struct {
	Candidates []rerankedCandidate `json:"candidates"`
}

type rerankedCandidate struct {
	ClassID   string  `json:"class_id"`
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}

// Rerank rescores the candidates against the document. The output covers the
// candidates the model expressed an opinion on; omissions are not zeros.
// Scores for class IDs outside the candidate set are dropped.
func (r *Reranker) Rerank(ctx context.Context, document string, candidates []classify.Similarity, model string) ([]classify.RerankScore, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	provider, err := r.providers.ForModel(ctx, model)
	if err != nil {
		return nil, fmt.Errorf("resolve reranking model %q: %w", model, err)
	}

	req := llm.Request{
		System: systemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildUserMessage(document, candidates)},
		},
		Schema:      ResponseSchema,
		MaxTokens:   r.cfg.MaxTokens,
		Temperature: r.cfg.Temperature,
	}

	resp, err := provider.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("rerank generation failed: %w", err)
	}

	out, err := formatting.Parse[rerankOutput](string(resp.Content))
	if err != nil {
		return nil, fmt.Errorf("parse rerank response: %w", err)
	}

	known := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		known[c.Class.ID] = true
	}

	scores := make([]classify.RerankScore, 0, len(out.Candidates))
	for _, rc := range out.Candidates {
		if !known[rc.ClassID] {
			r.logger.WarnContext(ctx, "reranker scored a class outside the candidate set",
				"class_id", rc.ClassID,
				"model", provider.ModelID())
			continue
		}

		scores = append(scores, classify.RerankScore{
			ClassID:   rc.ClassID,
			Score:     rc.Score,
			Reasoning: rc.Reasoning,
		})
	}

	return scores, nil
}
