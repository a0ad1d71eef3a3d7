package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"reporag/internal/port"
)

const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOllamaBaseURL = "http://localhost:11434/v1"
)

// ProviderEmbedder calls an OpenAI-compatible embeddings endpoint.
type ProviderEmbedder struct {
	embedder  embeddings.Embedder
	model     string
	dimension int
	logger    *slog.Logger
}

var _ port.EmbeddingProvider = (*ProviderEmbedder)(nil)

func NewOpenAIProvider(apiKeyEnv, model, baseURL string) (*ProviderEmbedder, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", apiKeyEnv)
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	return newProvider(apiKey, model, baseURL)
}

// NewOllamaProvider uses a local Ollama server, which needs no credentials.
func NewOllamaProvider(model, baseURL string) (*ProviderEmbedder, error) {
	return newProvider("ollama", model, ollamaBaseURL(baseURL))
}

// ollamaBaseURL returns the OpenAI-compatible endpoint of an Ollama server,
// which is served under /v1.
func ollamaBaseURL(baseURL string) string {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		return DefaultOllamaBaseURL
	}
	if !strings.HasSuffix(baseURL, "/v1") {
		baseURL += "/v1"
	}
	return baseURL
}

func newProvider(token, model, baseURL string) (*ProviderEmbedder, error) {
	client, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithToken(token),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create embedding client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	return &ProviderEmbedder{
		embedder:  embedder,
		model:     model,
		dimension: modelDimension(model),
		logger:    slog.Default().With("component", "embedding-provider", "model", model),
	}, nil
}

func modelDimension(model string) int {
	switch model {
	case "text-embedding-3-large":
		return 3072
	case "nomic-embed-text":
		return 768
	case "mxbai-embed-large":
		return 1024
	case "all-minilm":
		return 384
	default:
		return 1536
	}
}

func (p *ProviderEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vector, err := p.embedder.EmbedQuery(ctx, text)
	if err != nil {
		p.logger.Debug("embedding request failed", "length", len(text), "err", err)
		return nil, err
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%s returned an empty embedding", p.model)
	}
	return vector, nil
}

func (p *ProviderEmbedder) Dimension() int {
	return p.dimension
}

func (p *ProviderEmbedder) ModelName() string {
	return p.model
}
