package retriever

import (
	"context"
	"fmt"
	"sort"

	"reporag/internal/adapter/store"
	"reporag/internal/domain"
	"reporag/internal/port"
)

// SemanticRetriever embeds a question in one collection's vector space and
// returns that collection's nearest chunks.
type SemanticRetriever struct {
	index    *store.Index
	embedder port.Embedder
}

func NewSemanticRetriever(index *store.Index, embedder port.Embedder) *SemanticRetriever {
	return &SemanticRetriever{index: index, embedder: embedder}
}

// Search over-fetches 2k candidates and keeps the best k.
func (r *SemanticRetriever) Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	if r.index == nil || r.embedder == nil {
		return nil, fmt.Errorf("semantic search not available: collection not configured")
	}
	if k <= 0 {
		return nil, nil
	}

	embedded := r.embedder.Embed(ctx, query)
	if dim := r.embedder.Space().Dimension; dim > 0 && len(embedded.Vector) != dim {
		// The question fell back to a different space than the collection.
		return nil, nil
	}
	results, err := r.index.Search(ctx, embedded.Vector, k*2)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}
