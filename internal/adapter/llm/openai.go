package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"reporag/internal/port"
)

const (
	DefaultModel       = "gpt-3.5-turbo"
	DefaultMaxTokens   = 500
	DefaultTemperature = 0.1
)

// Options configures a chat-completion client.
type Options struct {
	Model       string
	BaseURL     string
	APIKeyEnv   string
	MaxTokens   int
	Temperature float64
}

// Client calls an OpenAI-compatible chat-completion endpoint.
type Client struct {
	model       llms.Model
	name        string
	maxTokens   int
	temperature float64
	logger      *slog.Logger
}

var _ port.LLM = (*Client)(nil)

func NewClient(opts Options) (*Client, error) {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	apiKey := os.Getenv(opts.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", opts.APIKeyEnv)
	}

	clientOpts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(opts.Model),
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, openai.WithBaseURL(opts.BaseURL))
	}
	model, err := openai.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create chat client: %w", err)
	}

	return &Client{
		model:       model,
		name:        opts.Model,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		logger:      slog.Default().With("component", "llm", "model", opts.Model),
	}, nil
}

func (c *Client) GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	response, err := c.model.GenerateContent(ctx, content,
		llms.WithTemperature(c.temperature),
		llms.WithMaxTokens(c.maxTokens),
	)
	if err != nil {
		c.logger.Error("failed to generate content", "err", err)
		return "", err
	}
	if len(response.Choices) < 1 {
		return "", fmt.Errorf("%s returned no choices", c.name)
	}

	answer := strings.TrimSpace(response.Choices[0].Content)
	c.logger.Debug("generated answer", "prompt_length", len(userPrompt), "answer_length", len(answer))
	return answer, nil
}

func (c *Client) ModelName() string {
	return c.name
}
