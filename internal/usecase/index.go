package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"reporag/internal/adapter/store"
	"reporag/internal/domain"
	"reporag/internal/port"
	"reporag/internal/workpool"
)

// ProgressFunc receives per-stage progress. total is zero when unknown.
type ProgressFunc func(stage domain.Stage, done, total int)

// IndexUseCase embeds chunk sets and writes them into the text and code
// collections of a vector store.
type IndexUseCase struct {
	store     port.VectorStore
	pool      *workpool.Pool
	batchSize int
	logger    *slog.Logger
}

func NewIndexUseCase(store port.VectorStore, pool *workpool.Pool, batchSize int) *IndexUseCase {
	return &IndexUseCase{
		store:     store,
		pool:      pool,
		batchSize: batchSize,
		logger:    slog.Default().With("component", "indexer"),
	}
}

// IndexResult contains the results of an indexing operation.
type IndexResult struct {
	Embedded  int
	Stored    int
	Skipped   int
	Fallbacks int

	Text *store.Index
	Code *store.Index
}

// Index embeds every chunk and upserts it into its collection. enter is
// called when the embedding and persisting stages begin.
func (u *IndexUseCase) Index(ctx context.Context, chunks domain.ChunkSet, text, code port.Embedder, enter func(domain.Stage), progress ProgressFunc) (*IndexResult, error) {
	if progress == nil {
		progress = func(domain.Stage, int, int) {}
	}

	enter(domain.StageEmbedding)
	if err := u.probe(ctx, text, code); err != nil {
		return nil, err
	}

	total := chunks.Len()
	var done atomic.Int64
	tick := func() {
		progress(domain.StageEmbedding, int(done.Add(1)), total)
	}

	textVecs, textLocal, err := u.embedAll(ctx, chunks.Text, text, tick)
	if err != nil {
		return nil, fmt.Errorf("embed text chunks: %w", err)
	}
	codeVecs, codeLocal, err := u.embedAll(ctx, chunks.Code, code, tick)
	if err != nil {
		return nil, fmt.Errorf("embed code chunks: %w", err)
	}

	result := &IndexResult{
		Embedded:  len(textVecs) + len(codeVecs),
		Fallbacks: textLocal + codeLocal,
	}

	enter(domain.StagePersisting)
	if result.Text, err = u.open(ctx, store.TextCollection, domain.ContentText, text); err != nil {
		return nil, err
	}
	if result.Code, err = u.open(ctx, store.CodeCollection, domain.ContentCode, code); err != nil {
		return nil, err
	}

	for _, w := range []struct {
		index   *store.Index
		chunks  []domain.Chunk
		vectors [][]float32
	}{
		{result.Text, chunks.Text, textVecs},
		{result.Code, chunks.Code, codeVecs},
	} {
		stats, err := workpool.Do(ctx, u.pool, func() (store.UpsertStats, error) {
			return w.index.Upsert(ctx, w.chunks, w.vectors)
		})
		if err != nil {
			return nil, fmt.Errorf("persist %s: %w", w.index.Collection().Name(), err)
		}
		result.Stored += stats.Added
		result.Skipped += stats.Skipped
		progress(domain.StagePersisting, result.Stored+result.Skipped, total)
	}

	u.logger.Info("index complete",
		"embedded", result.Embedded,
		"stored", result.Stored,
		"skipped", result.Skipped,
		"fallbacks", result.Fallbacks)
	return result, nil
}

// Open reopens the collections for the current embedding spaces without
// writing anything.
func (u *IndexUseCase) Open(ctx context.Context, text, code port.Embedder) (*store.Index, *store.Index, error) {
	if err := u.probe(ctx, text, code); err != nil {
		return nil, nil, err
	}
	textIx, err := u.open(ctx, store.TextCollection, domain.ContentText, text)
	if err != nil {
		return nil, nil, err
	}
	codeIx, err := u.open(ctx, store.CodeCollection, domain.ContentCode, code)
	if err != nil {
		return nil, nil, err
	}
	return textIx, codeIx, nil
}

func (u *IndexUseCase) probe(ctx context.Context, embedders ...port.Embedder) error {
	for _, e := range embedders {
		if _, err := workpool.Do(ctx, u.pool, func() (port.Strategy, error) {
			return e.Probe(ctx), nil
		}); err != nil {
			return fmt.Errorf("probe %s embedder: %w", e.Name(), err)
		}
	}
	return nil
}

func (u *IndexUseCase) open(ctx context.Context, name string, kind domain.ContentType, embedder port.Embedder) (*store.Index, error) {
	space := embedder.Space()
	coll, err := u.store.Collection(ctx, name, space)
	if err != nil {
		return nil, fmt.Errorf("open collection %s: %w", name, err)
	}
	return store.NewIndex(coll, kind, u.batchSize), nil
}

// embedAll embeds chunks on the pool. When any provider call fails, the
// embedder is pinned to the local fallback and the set is embedded again,
// so the collection holds a single vector space. It returns the vectors and how
// many came from the local fallback.
func (u *IndexUseCase) embedAll(ctx context.Context, chunks []domain.Chunk, embedder port.Embedder, tick func()) ([][]float32, int, error) {
	embed := func(_ int, c domain.Chunk) (port.Embedding, error) {
		e := embedder.Embed(ctx, c.Content)
		if tick != nil {
			tick()
		}
		return e, nil
	}

	results, err := workpool.Map(ctx, u.pool, chunks, embed)
	if err != nil {
		return nil, 0, err
	}

	if fellBack(results, embedder.Space()) {
		u.logger.Warn("embedding provider failed during run, using local fallback for all chunks",
			"space", embedder.Name(), "chunks", len(chunks))
		embedder.Degrade()
		if !allLocal(results) {
			tick = nil
			if results, err = workpool.Map(ctx, u.pool, chunks, embed); err != nil {
				return nil, 0, err
			}
		}
	}

	vectors := make([][]float32, len(results))
	local := 0
	for i, r := range results {
		vectors[i] = r.Vector
		if r.Strategy == port.StrategyLocal {
			local++
		}
	}
	return vectors, local, nil
}

// fellBack reports whether any result left the provider space.
func fellBack(results []port.Embedding, space port.Space) bool {
	if !strings.HasPrefix(space.Signature, string(port.StrategyProvider)) {
		return false
	}
	for _, r := range results {
		if r.Strategy == port.StrategyLocal {
			return true
		}
	}
	return false
}

func allLocal(results []port.Embedding) bool {
	for _, r := range results {
		if r.Strategy != port.StrategyLocal {
			return false
		}
	}
	return true
}
