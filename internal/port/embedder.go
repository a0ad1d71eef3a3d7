package port

import "context"

// EmbeddingProvider is a hosted embedding model.
type EmbeddingProvider interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	ModelName() string
}

// Strategy names the code path that produced an embedding.
type Strategy string

const (
	StrategyProvider Strategy = "provider"
	StrategyLocal    Strategy = "local_fallback"
)

type Embedding struct {
	Vector   []float32
	Strategy Strategy
}

// Embedder converts content into a vector. It never fails: provider errors
// are absorbed by a deterministic local fallback.
type Embedder interface {
	Embed(ctx context.Context, text string) Embedding

	// Probe selects the strategy for subsequent calls.
	Probe(ctx context.Context) Strategy

	// Degrade pins the local fallback until the next Probe.
	Degrade()

	// Space describes the vectors produced under the current strategy.
	Space() Space

	Name() string
}

// Space identifies the vector space of a collection. A collection opened
// with a different space than it was built with starts empty.
type Space struct {
	Signature string
	Dimension int
}

// VectorStore opens named collections.
type VectorStore interface {
	Collection(ctx context.Context, name string, space Space) (Collection, error)

	Close() error
}

// Collection stores documents with their embeddings.
type Collection interface {
	Name() string

	// Existing reports which of ids are already stored.
	Existing(ctx context.Context, ids []string) (map[string]bool, error)

	Add(ctx context.Context, items []VectorItem) error

	// Query returns up to k nearest items ordered by ascending distance.
	// Items whose metadata does not match every key in where are skipped.
	Query(ctx context.Context, embedding []float32, k int, where map[string]string) ([]QueryHit, error)

	Count(ctx context.Context) (int, error)
}

// VectorItem represents a document to be stored.
type VectorItem struct {
	ID        string
	Document  string
	Metadata  map[string]string
	Embedding []float32
}

// QueryHit is a stored item with its distance to the query.
type QueryHit struct {
	ID       string
	Document string
	Metadata map[string]string
	Distance float64
}
