// Package similarity retrieves candidate classes by embedding similarity
// using an embedded chromem vector index. Class sets are indexed into
// content-addressed collections: the collection name hashes the class
// contents and the embedding model, so a changed set or model never serves
// stale vectors, and repeat runs against an unchanged set only embed the
// query document.
package similarity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	chromem "github.com/philippgille/chromem-go"

	"github.com/JaimeStill/taxon/classify"
	"github.com/JaimeStill/taxon/internal/embedding"
)

// Ranker implements similarity retrieval over a chromem database.
type Ranker struct {
	db       *chromem.DB
	embedder embedding.Embedder
	logger   *slog.Logger
}

// New creates a Ranker with persistent storage at cfg.Path. The config must
// already be finalized.
func New(cfg Config, embedder embedding.Embedder, logger *slog.Logger) (*Ranker, error) {
	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create index directory %s: %w", cfg.Path, err)
	}

	db, err := chromem.NewPersistentDB(cfg.Path, cfg.Compress)
	if err != nil {
		return nil, fmt.Errorf("open vector index: %w", err)
	}

	return &Ranker{
		db:       db,
		embedder: embedder,
		logger:   logger.With("system", "similarity"),
	}, nil
}

// NewInMemory creates a Ranker without persistence. Vectors for every class
// set are rebuilt on process restart.
func NewInMemory(embedder embedding.Embedder, logger *slog.Logger) *Ranker {
	return &Ranker{
		db:       chromem.NewDB(),
		embedder: embedder,
		logger:   logger.With("system", "similarity"),
	}
}

// Rank embeds the document and returns the topK most similar classes in
// descending similarity order. The class set is indexed on first use.
func (r *Ranker) Rank(ctx context.Context, document string, classes []classify.Class, topK int) ([]classify.Similarity, error) {
	collection, err := r.ensureCollection(ctx, classes)
	if err != nil {
		return nil, err
	}

	k := min(topK, collection.Count())
	if k < 1 {
		return nil, fmt.Errorf("class collection is empty")
	}

	results, err := collection.Query(ctx, document, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query vector index: %w", err)
	}

	byID := make(map[string]classify.Class, len(classes))
	for _, c := range classes {
		byID[c.ID] = c
	}

	similarities := make([]classify.Similarity, 0, len(results))
	for _, res := range results {
		class, ok := byID[res.ID]
		if !ok {
			continue
		}
		similarities = append(similarities, classify.Similarity{
			Class: class,
			Score: float64(res.Similarity),
		})
	}

	r.logger.DebugContext(ctx, "candidates retrieved",
		"classes", len(classes),
		"top_k", topK,
		"returned", len(similarities),
	)

	return similarities, nil
}

// Warm indexes a class set ahead of time so the first classification against
// it does not pay the batch embedding cost.
func (r *Ranker) Warm(ctx context.Context, classes []classify.Class) error {
	_, err := r.ensureCollection(ctx, classes)
	return err
}

// Drop removes the indexed vectors for a class set. Safe to call for sets
// that were never indexed.
func (r *Ranker) Drop(classes []classify.Class) error {
	name := r.collectionName(classes)
	if r.db.GetCollection(name, r.embedQuery) == nil {
		return nil
	}
	return r.db.DeleteCollection(name)
}

// ensureCollection returns the collection for a class set, building and
// embedding it when absent.
func (r *Ranker) ensureCollection(ctx context.Context, classes []classify.Class) (*chromem.Collection, error) {
	name := r.collectionName(classes)

	if existing := r.db.GetCollection(name, r.embedQuery); existing != nil {
		return existing, nil
	}

	texts := make([]string, len(classes))
	for i, c := range classes {
		texts[i] = embedText(c)
	}

	vectors, err := r.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed class set: %w", err)
	}

	collection, err := r.db.GetOrCreateCollection(name, nil, r.embedQuery)
	if err != nil {
		return nil, fmt.Errorf("create collection %s: %w", name, err)
	}

	docs := make([]chromem.Document, len(classes))
	for i, c := range classes {
		docs[i] = chromem.Document{
			ID:        c.ID,
			Content:   texts[i],
			Metadata:  map[string]string{"name": c.Name},
			Embedding: vectors[i],
		}
	}

	if err := collection.AddDocuments(ctx, docs, 1); err != nil {
		return nil, fmt.Errorf("index class set: %w", err)
	}

	r.logger.InfoContext(ctx, "class set indexed",
		"collection", name,
		"classes", len(classes),
		"model", r.embedder.Model(),
	)

	return collection, nil
}

func (r *Ranker) embedQuery(ctx context.Context, text string) ([]float32, error) {
	return r.embedder.Embed(ctx, text)
}

// collectionName derives a stable content address for a class set. Class
// order does not matter; the embedding model does.
func (r *Ranker) collectionName(classes []classify.Class) string {
	keys := make([]string, len(classes))
	for i, c := range classes {
		keys[i] = c.ID + "\x00" + c.Name + "\x00" + c.Description
	}
	slices.Sort(keys)

	h := sha256.New()
	h.Write([]byte(r.embedder.Model()))
	for _, k := range keys {
		h.Write([]byte{0})
		h.Write([]byte(k))
	}

	return "classes-" + hex.EncodeToString(h.Sum(nil))[:16]
}

func embedText(c classify.Class) string {
	if strings.TrimSpace(c.Description) == "" {
		return c.Name
	}
	return c.Name + ": " + c.Description
}
