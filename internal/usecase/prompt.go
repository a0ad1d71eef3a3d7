package usecase

import (
	"fmt"
	"sort"
	"strings"

	"reporag/internal/adapter/store"
	"reporag/internal/domain"
	"reporag/internal/port"
)

const (
	SystemPrompt = "You are a helpful assistant. Answer the question using only the provided context."

	// DefaultContextTokens bounds the chunk text embedded in one prompt.
	DefaultContextTokens = 3000

	sourcePreviewChars = 500
	extractiveLines    = 10
	extractiveChars    = 500

	noContextAnswer = "No relevant context was found in the repository for this question."
)

// sections fixes the order and labels of the per-type prompt sections.
var sections = []struct {
	kind  domain.ContentType
	label string
}{
	{domain.ContentText, "textual"},
	{domain.ContentCode, "code"},
}

// PromptBuilder packs retrieved chunks into a chat prompt.
type PromptBuilder struct {
	tokenizer port.Tokenizer
	budget    int
}

func NewPromptBuilder(tokenizer port.Tokenizer, budget int) *PromptBuilder {
	if budget <= 0 {
		budget = DefaultContextTokens
	}
	return &PromptBuilder{tokenizer: tokenizer, budget: budget}
}

// Pack keeps chunks in score order while their content fits the token
// budget. The best chunk of each content type is always kept.
func (b *PromptBuilder) Pack(chunks []domain.ScoredChunk) []domain.ScoredChunk {
	if len(chunks) == 0 {
		return nil
	}

	ranked := append([]domain.ScoredChunk(nil), chunks...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	selected := make([]domain.ScoredChunk, 0, len(ranked))
	seen := make(map[domain.ContentType]bool, len(sections))
	used := 0
	for _, c := range ranked {
		tokens := b.tokenizer.CountTokens(c.Content)
		if seen[c.Type] && used+tokens > b.budget {
			continue
		}
		seen[c.Type] = true
		selected = append(selected, c)
		used += tokens
	}
	return selected
}

// Build renders the user prompt: the question, then one section per
// content type listing each chunk's score, content and metadata.
func (b *PromptBuilder) Build(question string, chunks []domain.ScoredChunk) string {
	var sb strings.Builder
	sb.WriteString("You are a repository analyser, use the provided chunks to answer any related questions about the repository:\n\n")
	fmt.Fprintf(&sb, "Question: %s\n\nContext:\n", question)

	for _, sec := range sections {
		var found bool
		for _, c := range chunks {
			if c.Type != sec.kind {
				continue
			}
			if !found {
				fmt.Fprintf(&sb, "\n--- %s Chunks ---\n", capitalize(sec.label))
				found = true
			}
			fmt.Fprintf(&sb, "Score: %.4f\n", c.Score)
			fmt.Fprintf(&sb, "Content: %s\n", c.Content)
			fmt.Fprintf(&sb, "Metadata: %s\n\n", formatMetadata(c.Metadata))
		}
		if !found {
			fmt.Fprintf(&sb, "\n--- No %s chunks found ---\n", sec.label)
		}
	}

	sb.WriteString("\nAnswer:")
	return sb.String()
}

// ExtractiveAnswer answers from the retrieved context alone: the first
// non-empty lines that are not prompt scaffolding, capped at 500
// characters. It never returns an empty string.
func ExtractiveAnswer(chunks []domain.ScoredChunk) string {
	lines := make([]string, 0, extractiveLines)
collect:
	for _, c := range chunks {
		for _, line := range strings.Split(c.Content, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || isScaffolding(line) {
				continue
			}
			lines = append(lines, line)
			if len(lines) == extractiveLines {
				break collect
			}
		}
	}
	if len(lines) == 0 {
		return noContextAnswer
	}
	return truncate(strings.Join(lines, "\n"), extractiveChars)
}

// FormatSources converts ranked chunks into response sources.
func FormatSources(chunks []domain.ScoredChunk) []domain.Source {
	sources := make([]domain.Source, 0, len(chunks))
	for _, c := range chunks {
		fileName := c.Metadata[store.MetaFileName]
		if fileName == "" {
			fileName = "unknown"
		}
		contentType := domain.ContentType(c.Metadata[store.MetaContentType])
		if contentType == "" {
			contentType = c.Type
		}
		sources = append(sources, domain.Source{
			FileName:    fileName,
			ContentType: contentType,
			Score:       c.Score,
			Content:     truncate(c.Content, sourcePreviewChars),
			FullContent: c.Content,
		})
	}
	return sources
}

func isScaffolding(line string) bool {
	return strings.HasPrefix(line, "Score:") ||
		strings.HasPrefix(line, "Metadata:") ||
		strings.HasPrefix(line, "---")
}

func formatMetadata(meta map[string]string) string {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + meta[k]
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// truncate cuts s to n runes and marks the cut with "...".
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
