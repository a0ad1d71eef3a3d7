package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"reporag/internal/port"
)

const probeText = "health check"

// StrategyEmbedder embeds through a hosted provider when one is healthy
// and through a LocalEmbedder otherwise. Provider errors never reach the
// caller.
type StrategyEmbedder struct {
	name     string
	provider port.EmbeddingProvider
	local    *LocalEmbedder
	logger   *slog.Logger

	mu        sync.RWMutex
	strategy  port.Strategy
	dimension int
	fallbacks atomic.Int64
}

var _ port.Embedder = (*StrategyEmbedder)(nil)

// NewStrategyEmbedder returns an embedder named name. provider may be nil,
// in which case every call uses the local fallback.
func NewStrategyEmbedder(name string, provider port.EmbeddingProvider, fallbackDimension int) *StrategyEmbedder {
	strategy := port.StrategyLocal
	if provider != nil {
		strategy = port.StrategyProvider
	}
	return &StrategyEmbedder{
		name:     name,
		provider: provider,
		local:    NewLocalEmbedder(fallbackDimension),
		logger:   slog.Default().With("component", "embedder", "space", name),
		strategy: strategy,
	}
}

func (e *StrategyEmbedder) Name() string {
	return e.name
}

// Probe checks provider health and fixes the strategy for later calls.
func (e *StrategyEmbedder) Probe(ctx context.Context) port.Strategy {
	strategy := port.StrategyLocal
	dimension := e.local.Dimension()
	if e.provider != nil {
		if vector, err := e.provider.EmbedQuery(ctx, probeText); err != nil {
			e.logger.Warn("embedding provider unavailable, using local fallback",
				"model", e.provider.ModelName(), "err", err)
		} else {
			strategy = port.StrategyProvider
			dimension = len(vector)
		}
	}

	e.mu.Lock()
	e.strategy = strategy
	e.dimension = dimension
	e.mu.Unlock()

	e.logger.Info("embedding strategy selected", "strategy", strategy)
	return strategy
}

func (e *StrategyEmbedder) Strategy() port.Strategy {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.strategy
}

func (e *StrategyEmbedder) Degrade() {
	e.mu.Lock()
	e.strategy = port.StrategyLocal
	e.dimension = e.local.Dimension()
	e.mu.Unlock()
}

// Space reports the signature and dimension of the current strategy. The
// provider dimension is known only after a successful Probe.
func (e *StrategyEmbedder) Space() port.Space {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.strategy == port.StrategyProvider {
		return port.Space{
			Signature: string(port.StrategyProvider) + ":" + e.provider.ModelName(),
			Dimension: e.dimension,
		}
	}
	return port.Space{
		Signature: fmt.Sprintf("%s:%d", port.StrategyLocal, e.local.Dimension()),
		Dimension: e.local.Dimension(),
	}
}

func (e *StrategyEmbedder) Embed(ctx context.Context, text string) port.Embedding {
	if e.Strategy() == port.StrategyProvider {
		vector, err := e.provider.EmbedQuery(ctx, text)
		if err == nil {
			return port.Embedding{Vector: vector, Strategy: port.StrategyProvider}
		}
		e.fallbacks.Add(1)
		e.logger.Warn("embedding provider failed, using local fallback",
			"model", e.provider.ModelName(), "err", err)
	}
	return port.Embedding{Vector: e.local.Embed(text), Strategy: port.StrategyLocal}
}

// Fallbacks counts provider calls that were answered by the local fallback.
func (e *StrategyEmbedder) Fallbacks() int64 {
	return e.fallbacks.Load()
}
