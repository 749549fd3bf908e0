// Package embedding generates the vectors that back similarity retrieval.
// Class descriptions are embedded at registration time and documents at
// classification time; both must come from the same model for cosine
// similarity to mean anything.
package embedding

import "context"

// Embedder produces embedding vectors for text.
type Embedder interface {
	// Embed generates a vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates vectors for multiple texts in one call.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Model returns the embedding model name.
	Model() string

	// Dimension returns the vector dimension the model produces. Every
	// vector in an index must share it.
	Dimension() int
}
