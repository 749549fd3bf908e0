package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangchainEmbedder adapts a langchaingo embedding model to Embedder and
// enforces the configured dimension on every vector it returns.
type LangchainEmbedder struct {
	model     embeddings.Embedder
	modelName string
	dimension int
	logger    *slog.Logger
}

// New creates an Embedder for the configured backend. The config must
// already be finalized.
func New(cfg Config, logger *slog.Logger) (*LangchainEmbedder, error) {
	var model embeddings.Embedder

	switch cfg.Provider {
	case "ollama":
		llm, err := ollama.New(
			ollama.WithModel(cfg.Model),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama client: %w", err)
		}
		model, err = embeddings.NewEmbedder(llm)
		if err != nil {
			return nil, fmt.Errorf("create ollama embedder: %w", err)
		}

	case "openai":
		llm, err := openai.New(
			openai.WithToken(cfg.APIKey),
			openai.WithEmbeddingModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai client: %w", err)
		}
		model, err = embeddings.NewEmbedder(llm)
		if err != nil {
			return nil, fmt.Errorf("create openai embedder: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %q", cfg.Provider)
	}

	return newFromModel(model, cfg.Model, cfg.Dimension, logger), nil
}

func newFromModel(model embeddings.Embedder, name string, dimension int, logger *slog.Logger) *LangchainEmbedder {
	return &LangchainEmbedder{
		model:     model,
		modelName: name,
		dimension: dimension,
		logger:    logger.With("system", "embedding"),
	}
}

// Embed generates a vector for a single text.
func (e *LangchainEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates vectors for multiple texts and validates that every
// vector matches the configured dimension.
func (e *LangchainEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	start := time.Now()
	vectors, err := e.model.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.WarnContext(ctx, "embedding failed",
			"model", e.modelName,
			"texts", len(texts),
			"duration", time.Since(start),
			"error", err,
		)
		return nil, fmt.Errorf("embed: %w", err)
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(texts))
	}
	for i, v := range vectors {
		if len(v) != e.dimension {
			return nil, fmt.Errorf("embedding %d dimension mismatch: got %d, want %d", i, len(v), e.dimension)
		}
	}

	e.logger.DebugContext(ctx, "embedding complete",
		"model", e.modelName,
		"texts", len(texts),
		"duration", time.Since(start),
	)

	return vectors, nil
}

// Model returns the embedding model name.
func (e *LangchainEmbedder) Model() string {
	return e.modelName
}

// Dimension returns the configured vector dimension.
func (e *LangchainEmbedder) Dimension() int {
	return e.dimension
}
