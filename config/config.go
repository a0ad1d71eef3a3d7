package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// PersistDirEnv overrides VectorStoreConfig.PersistDir when set.
const PersistDirEnv = "RAG_PERSIST_DIR"

// Config holds all configuration for reporag.
type Config struct {
	Repository  RepositoryConfig  `yaml:"repository"`
	Index       IndexConfig       `yaml:"index"`
	Embedding   EmbeddingsConfig  `yaml:"embedding"`
	LLM         LLMConfig         `yaml:"llm"`
	Query       QueryConfig       `yaml:"query"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Workers     int               `yaml:"workers"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// RepositoryConfig controls how repositories are fetched.
type RepositoryConfig struct {
	GitHubTokenEnv string   `yaml:"github_token_env"`
	APIBaseURL     string   `yaml:"api_base_url"`
	FileTypes      []string `yaml:"file_types"`
	Includes       []string `yaml:"includes"` // local directories only
	Excludes       []string `yaml:"excludes"`
	MaxFileBytes   int64    `yaml:"max_file_bytes"`
}

// IndexConfig holds chunking and indexing configuration.
type IndexConfig struct {
	Tokenizer         string  `yaml:"tokenizer"` // "tiktoken" or "heuristic"
	Encoding          string  `yaml:"encoding"`
	Lazy              bool    `yaml:"lazy"`
	HeadLines         int     `yaml:"head_lines"`
	MaxFiles          int     `yaml:"max_files"`
	CacheSize         int     `yaml:"cache_size"`
	BatchSize         int     `yaml:"batch_size"`
	TextOverlapRatio  float64 `yaml:"text_overlap_ratio"`
	CodeWindowOverlap int     `yaml:"code_window_overlap"`
	ASTChunking       bool    `yaml:"ast_chunking"`
}

// EmbeddingsConfig configures the text and code embedding spaces.
type EmbeddingsConfig struct {
	Text EmbeddingConfig `yaml:"text"`
	Code EmbeddingConfig `yaml:"code"`
}

// EmbeddingConfig holds one embedding space's configuration.
type EmbeddingConfig struct {
	Provider          string `yaml:"provider"` // "openai", "ollama" or "none"
	Model             string `yaml:"model"`
	BaseURL           string `yaml:"base_url"`
	APIKeyEnv         string `yaml:"api_key_env"`
	FallbackDimension int    `yaml:"fallback_dimension"`
}

// LLMConfig holds chat model configuration.
type LLMConfig struct {
	Provider      string  `yaml:"provider"` // "openai" or "none"
	Model         string  `yaml:"model"`
	BaseURL       string  `yaml:"base_url"`
	APIKeyEnv     string  `yaml:"api_key_env"`
	MaxTokens     int     `yaml:"max_tokens"`
	Temperature   float64 `yaml:"temperature"`
	ContextTokens int     `yaml:"context_tokens"`
}

type QueryConfig struct {
	TopK int `yaml:"top_k"`
}

// VectorStoreConfig selects and configures the vector backend.
type VectorStoreConfig struct {
	Type       string       `yaml:"type"` // "bolt", "qdrant" or "memory"
	PersistDir string       `yaml:"persist_dir"`
	Qdrant     QdrantConfig `yaml:"qdrant"`
}

type QdrantConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	APIKeyEnv string `yaml:"api_key_env"`
	UseTLS    bool   `yaml:"use_tls"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Repository: RepositoryConfig{
			GitHubTokenEnv: "GITHUB_API_KEY",
			APIBaseURL:     "https://api.github.com",
			FileTypes:      []string{".md", ".txt", ".py", ".json", ".js", ".html", ".tsx"},
			Includes:       []string{"**/*"},
			Excludes:       []string{"**/node_modules/**", "**/vendor/**", "**/.git/**", "**/dist/**", "**/build/**", "**/__pycache__/**", "**/*.min.js"},
			MaxFileBytes:   1 << 20,
		},
		Index: IndexConfig{
			Tokenizer:         "tiktoken",
			Encoding:          "cl100k_base",
			Lazy:              false,
			HeadLines:         20,
			MaxFiles:          20,
			CacheSize:         100,
			BatchSize:         1000,
			TextOverlapRatio:  0.1,
			CodeWindowOverlap: 50,
			ASTChunking:       true,
		},
		Embedding: EmbeddingsConfig{
			Text: EmbeddingConfig{
				Provider:          "openai",
				Model:             "text-embedding-ada-002",
				APIKeyEnv:         "OPENAI_API_KEY",
				FallbackDimension: 384,
			},
			Code: EmbeddingConfig{
				Provider:          "none",
				Model:             "nomic-embed-text",
				BaseURL:           "http://localhost:11434/v1",
				FallbackDimension: 256,
			},
		},
		LLM: LLMConfig{
			Provider:      "openai",
			Model:         "gpt-3.5-turbo",
			APIKeyEnv:     "OPENAI_API_KEY",
			MaxTokens:     500,
			Temperature:   0.1,
			ContextTokens: 3000,
		},
		Query: QueryConfig{
			TopK: 5,
		},
		VectorStore: VectorStoreConfig{
			Type:       "bolt",
			PersistDir: filepath.Join(".reporag", "vectors"),
			Qdrant: QdrantConfig{
				Host:      "localhost",
				Port:      6334,
				APIKeyEnv: "QDRANT_API_KEY",
			},
		},
		Workers: 4,
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for reporag.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "reporag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".reporag", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

var (
	embeddingProviders = map[string]bool{"openai": true, "ollama": true, "none": true}
	llmProviders       = map[string]bool{"openai": true, "none": true}
	storeTypes         = map[string]bool{"bolt": true, "qdrant": true, "memory": true}
	tokenizers         = map[string]bool{"tiktoken": true, "heuristic": true}
)

// Validate rejects non-positive sizes and unknown backend names.
func (c *Config) Validate() error {
	var problems []string
	positive := func(name string, v int) {
		if v <= 0 {
			problems = append(problems, fmt.Sprintf("%s must be positive, got %d", name, v))
		}
	}
	oneOf := func(name, v string, allowed map[string]bool) {
		if !allowed[v] {
			problems = append(problems, fmt.Sprintf("unknown %s %q", name, v))
		}
	}

	positive("index.head_lines", c.Index.HeadLines)
	positive("index.max_files", c.Index.MaxFiles)
	positive("index.cache_size", c.Index.CacheSize)
	positive("index.batch_size", c.Index.BatchSize)
	positive("embedding.text.fallback_dimension", c.Embedding.Text.FallbackDimension)
	positive("embedding.code.fallback_dimension", c.Embedding.Code.FallbackDimension)
	positive("llm.max_tokens", c.LLM.MaxTokens)
	positive("llm.context_tokens", c.LLM.ContextTokens)
	positive("query.top_k", c.Query.TopK)
	positive("workers", c.Workers)
	if c.Index.CodeWindowOverlap < 0 {
		problems = append(problems, "index.code_window_overlap must not be negative")
	}
	if c.Index.TextOverlapRatio < 0 || c.Index.TextOverlapRatio >= 1 {
		problems = append(problems, fmt.Sprintf("index.text_overlap_ratio must be in [0, 1), got %g", c.Index.TextOverlapRatio))
	}

	oneOf("index.tokenizer", c.Index.Tokenizer, tokenizers)
	oneOf("embedding.text.provider", c.Embedding.Text.Provider, embeddingProviders)
	oneOf("embedding.code.provider", c.Embedding.Code.Provider, embeddingProviders)
	oneOf("llm.provider", c.LLM.Provider, llmProviders)
	oneOf("vector_store.type", c.VectorStore.Type, storeTypes)
	if c.VectorStore.Type == "qdrant" {
		positive("vector_store.qdrant.port", c.VectorStore.Qdrant.Port)
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// PersistDir returns the vector store root, honouring RAG_PERSIST_DIR.
// Relative paths are resolved against root.
func (c *Config) PersistDir(root string) string {
	dir := c.VectorStore.PersistDir
	if env := strings.TrimSpace(os.Getenv(PersistDirEnv)); env != "" {
		dir = env
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	return dir
}

var unsafeKey = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// RepositoryDir returns the per-repository subdirectory of the vector store
// root, so each repository key owns its own store.
func (c *Config) RepositoryDir(root, key string) string {
	name := strings.Trim(unsafeKey.ReplaceAllString(key, "_"), "_.")
	if name == "" {
		name = "default"
	}
	return filepath.Join(c.PersistDir(root), name)
}
