package retriever

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reporag/internal/adapter/embedding"
	"reporag/internal/adapter/memstore"
	"reporag/internal/adapter/store"
	"reporag/internal/domain"
	"reporag/internal/port"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		question string
		route    domain.Route
		weights  domain.RouteWeights
	}{
		{"What does the `hello` function return?", domain.RouteCode, domain.RouteWeights{Code: 1}},
		{"Where is the README license section?", domain.RouteText, domain.RouteWeights{Text: 1}},
		{"What does the README say about the function hello?", domain.RouteBoth, domain.RouteWeights{Text: 0.5, Code: 0.5}},
		{"What does the repository contain?", domain.RouteBoth, domain.RouteWeights{Text: 0.5, Code: 0.5}},
		{"Show me the Traceback", domain.RouteCode, domain.RouteWeights{Code: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			route, weights := Classify(tt.question)
			assert.Equal(t, tt.route, route)
			assert.Equal(t, tt.weights, weights)
		})
	}
}

func chunk(id string, kind domain.ContentType, score float64) domain.ScoredChunk {
	return domain.ScoredChunk{ID: id, Type: kind, Score: score}
}

func TestMerge_BothNormalizesEachList(t *testing.T) {
	text := []domain.ScoredChunk{chunk("t1", domain.ContentText, 0.2), chunk("t2", domain.ContentText, 0.1)}
	code := []domain.ScoredChunk{chunk("c1", domain.ContentCode, 0.9), chunk("c2", domain.ContentCode, 0.45)}

	merged := Merge(domain.RouteBoth, domain.RouteWeights{Text: 0.5, Code: 0.5}, text, code, 3)
	require.Len(t, merged, 4)

	scores := map[string]float64{}
	for _, m := range merged {
		scores[m.ID] = m.Score
	}
	assert.InDelta(t, 0.5, scores["t1"], 1e-9)
	assert.InDelta(t, 0.25, scores["t2"], 1e-9)
	assert.InDelta(t, 0.5, scores["c1"], 1e-9)
	assert.InDelta(t, 0.25, scores["c2"], 1e-9)

	for i := 1; i < len(merged); i++ {
		assert.GreaterOrEqual(t, merged[i-1].Score, merged[i].Score)
	}
	// inputs are left untouched
	assert.Equal(t, 0.2, text[0].Score)
}

func TestMerge_BothKeepsEachTypeUpToK(t *testing.T) {
	text := []domain.ScoredChunk{chunk("t1", domain.ContentText, 0.01)}
	code := []domain.ScoredChunk{
		chunk("c1", domain.ContentCode, 0.9),
		chunk("c2", domain.ContentCode, 0.8),
		chunk("c3", domain.ContentCode, 0.7),
	}

	merged := Merge(domain.RouteBoth, domain.RouteWeights{Text: 0.5, Code: 0.5}, text, code, 2)
	require.Len(t, merged, 3)
	types := map[domain.ContentType]int{}
	for _, m := range merged {
		types[m.Type]++
	}
	assert.Equal(t, 1, types[domain.ContentText])
	assert.Equal(t, 2, types[domain.ContentCode])
}

func TestMerge_SingleRouteUsesOneList(t *testing.T) {
	text := []domain.ScoredChunk{chunk("t1", domain.ContentText, 0.3), chunk("t2", domain.ContentText, 0.6)}
	code := []domain.ScoredChunk{chunk("c1", domain.ContentCode, 0.9)}

	merged := Merge(domain.RouteText, domain.RouteWeights{Text: 1}, text, code, 5)
	require.Len(t, merged, 2)
	assert.Equal(t, "t2", merged[0].ID)
	assert.Equal(t, 0.6, merged[0].Score)

	merged = Merge(domain.RouteCode, domain.RouteWeights{Code: 1}, text, code, 5)
	require.Len(t, merged, 1)
	assert.Equal(t, "c1", merged[0].ID)
}

func TestMerge_NonPositiveScores(t *testing.T) {
	text := []domain.ScoredChunk{chunk("t1", domain.ContentText, -0.2)}
	merged := Merge(domain.RouteBoth, domain.RouteWeights{Text: 0.5, Code: 0.5}, text, nil, 3)
	require.Len(t, merged, 1)
	assert.InDelta(t, -0.1, merged[0].Score, 1e-9)
}

func TestSemanticRetriever_Search(t *testing.T) {
	ctx := context.Background()
	emb := embedding.NewStrategyEmbedder("text", nil, embedding.TextFallbackDimension)
	coll, err := memstore.NewMemoryStore().Collection(ctx, store.TextCollection, port.Space{Signature: "local", Dimension: embedding.TextFallbackDimension})
	require.NoError(t, err)
	ix := store.NewIndex(coll, domain.ContentText, 0)

	docs := []string{"install the package with pip", "the license is MIT", "run the tests with pytest"}
	chunks := make([]domain.Chunk, len(docs))
	vectors := make([][]float32, len(docs))
	for i, d := range docs {
		chunks[i] = domain.Chunk{FileName: "README.md", Content: d, ChunkIndex: i}
		vectors[i] = emb.Embed(ctx, d).Vector
	}
	_, err = ix.Upsert(ctx, chunks, vectors)
	require.NoError(t, err)

	results, err := NewSemanticRetriever(ix, emb).Search(ctx, "the license is MIT", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "the license is MIT", results[0].Content)
	assert.InDelta(t, 1.0, results[0].Score, 1e-5)
}
