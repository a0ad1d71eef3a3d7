package cli

import (
	"fmt"
	"log/slog"
	"os"

	"reporag/config"
	"reporag/internal/adapter/analyzer"
	"reporag/internal/adapter/chunker"
	"reporag/internal/adapter/embedding"
	"reporag/internal/adapter/fetcher"
	"reporag/internal/adapter/llm"
	"reporag/internal/adapter/memstore"
	"reporag/internal/adapter/store"
	"reporag/internal/port"
	"reporag/internal/usecase"
)

// newRegistry returns a registry whose services are built from cfg. Each
// repository key gets its own vector store directory or namespace.
func newRegistry(cfg *config.Config, root string, progress usecase.ProgressFunc) *usecase.Registry {
	return usecase.NewRegistry(func(key string) (*usecase.RAGService, error) {
		return buildService(cfg, root, key, progress)
	})
}

func buildService(cfg *config.Config, root, key string, progress usecase.ProgressFunc) (*usecase.RAGService, error) {
	logger := slog.Default().With("component", "cli")
	tok := analyzer.New(cfg.Index.Tokenizer, cfg.Index.Encoding)

	opts := usecase.Options{
		Fetcher:       newFetcher(cfg),
		Tokenizer:     tok,
		Text:          newEmbedder("text", cfg.Embedding.Text, logger),
		Code:          newEmbedder("code", cfg.Embedding.Code, logger),
		LLM:           newLLM(cfg.LLM, logger),
		Workers:       cfg.Workers,
		BatchSize:     cfg.Index.BatchSize,
		ContextTokens: cfg.LLM.ContextTokens,
		Lazy:          cfg.Index.Lazy,
		HeadLines:     cfg.Index.HeadLines,
		MaxFiles:      cfg.Index.MaxFiles,
		CacheSize:     cfg.Index.CacheSize,
		Progress:      progress,
	}

	if !cfg.Index.Lazy {
		opts.Chunker = chunker.NewRepositoryChunker(tok, chunker.Options{
			TextOverlapRatio: cfg.Index.TextOverlapRatio,
			WindowOverlap:    cfg.Index.CodeWindowOverlap,
			SyntaxAware:      cfg.Index.ASTChunking,
		})
		vs, err := newVectorStore(cfg, root, key)
		if err != nil {
			return nil, err
		}
		opts.Store = vs
	}

	return usecase.NewRAGService(opts)
}

func newFetcher(cfg *config.Config) *fetcher.Router {
	repo := cfg.Repository
	local := fetcher.NewLocalFetcher(fetcher.LocalOptions{
		Includes:     repo.Includes,
		Excludes:     repo.Excludes,
		FileTypes:    repo.FileTypes,
		MaxFileBytes: repo.MaxFileBytes,
	})
	remote := fetcher.NewGitHubFetcher(fetcher.GitHubOptions{
		BaseURL:      repo.APIBaseURL,
		Token:        os.Getenv(repo.GitHubTokenEnv),
		FileTypes:    repo.FileTypes,
		MaxFileBytes: repo.MaxFileBytes,
	})
	return fetcher.NewRouter(local, remote)
}

// newEmbedder returns a strategy embedder for one space. A provider that
// cannot be configured leaves the space on the local fallback.
func newEmbedder(name string, c config.EmbeddingConfig, logger *slog.Logger) port.Embedder {
	var (
		provider *embedding.ProviderEmbedder
		err      error
	)
	switch c.Provider {
	case "openai":
		provider, err = embedding.NewOpenAIProvider(c.APIKeyEnv, c.Model, c.BaseURL)
	case "ollama":
		provider, err = embedding.NewOllamaProvider(c.Model, c.BaseURL)
	}
	if err != nil {
		logger.Warn("embedding provider not configured, using local fallback", "space", name, "provider", c.Provider, "err", err)
	}
	if provider == nil {
		return embedding.NewStrategyEmbedder(name, nil, c.FallbackDimension)
	}
	return embedding.NewStrategyEmbedder(name, provider, c.FallbackDimension)
}

func newLLM(c config.LLMConfig, logger *slog.Logger) port.LLM {
	if c.Provider != "openai" {
		return nil
	}
	client, err := llm.NewClient(llm.Options{
		Model:       c.Model,
		BaseURL:     c.BaseURL,
		APIKeyEnv:   c.APIKeyEnv,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
	})
	if err != nil {
		logger.Warn("language model not configured, answers will be extractive", "err", err)
		return nil
	}
	return client
}

func newVectorStore(cfg *config.Config, root, key string) (port.VectorStore, error) {
	switch cfg.VectorStore.Type {
	case "qdrant":
		q := cfg.VectorStore.Qdrant
		return store.NewQdrantStore(store.QdrantConfig{
			Host:   q.Host,
			Port:   q.Port,
			APIKey: os.Getenv(q.APIKeyEnv),
			UseTLS: q.UseTLS,
		}, key)
	case "memory":
		return memstore.NewMemoryStore(), nil
	case "bolt", "":
		return store.NewBoltStore(cfg.RepositoryDir(root, key))
	default:
		return nil, fmt.Errorf("unsupported vector store: %s", cfg.VectorStore.Type)
	}
}
