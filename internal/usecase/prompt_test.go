package usecase

import (
	"strings"
	"testing"
	"unicode/utf8"

	"reporag/internal/adapter/analyzer"
	"reporag/internal/domain"
)

func scored(id string, kind domain.ContentType, score float64, content string) domain.ScoredChunk {
	return domain.ScoredChunk{
		ID:      id,
		Content: content,
		Score:   score,
		Type:    kind,
		Metadata: map[string]string{
			"file_name":    id,
			"content_type": string(kind),
		},
	}
}

func TestPackBudget(t *testing.T) {
	b := NewPromptBuilder(analyzer.NewTokenizer(), 10)

	chunks := []domain.ScoredChunk{
		scored("a", domain.ContentText, 0.9, strings.Repeat(" abcd", 6)),
		scored("b", domain.ContentText, 0.8, strings.Repeat(" abcd", 6)),
		scored("c", domain.ContentCode, 0.7, strings.Repeat(" abcd", 3)),
	}

	packed := b.Pack(chunks)
	if len(packed) != 2 {
		t.Fatalf("expected 2 chunks within budget, got %d", len(packed))
	}
	if packed[0].ID != "a" || packed[1].ID != "c" {
		t.Errorf("expected [a c], got [%s %s]", packed[0].ID, packed[1].ID)
	}
}

func TestPackKeepsBestChunkOverBudget(t *testing.T) {
	b := NewPromptBuilder(analyzer.NewTokenizer(), 2)

	packed := b.Pack([]domain.ScoredChunk{
		scored("low", domain.ContentText, 0.1, "tiny"),
		scored("high", domain.ContentText, 0.9, strings.Repeat(" abcd", 20)),
	})
	if len(packed) != 1 || packed[0].ID != "high" {
		t.Fatalf("expected only the best chunk, got %+v", packed)
	}
}

func TestPackKeepsBestChunkOfEachType(t *testing.T) {
	b := NewPromptBuilder(analyzer.NewTokenizer(), 10)

	packed := b.Pack([]domain.ScoredChunk{
		scored("readme", domain.ContentText, 0.5, strings.Repeat(" abcd", 10)),
		scored("guide", domain.ContentText, 0.4, " abcd"),
		scored("main", domain.ContentCode, -0.15, strings.Repeat(" abcd", 5)),
		scored("util", domain.ContentCode, -0.2, " abcd"),
	})
	if len(packed) != 2 {
		t.Fatalf("expected one chunk per content type, got %d", len(packed))
	}
	if packed[0].ID != "readme" || packed[1].ID != "main" {
		t.Errorf("expected [readme main], got [%s %s]", packed[0].ID, packed[1].ID)
	}
}

func TestPackEmptyChunks(t *testing.T) {
	b := NewPromptBuilder(analyzer.NewTokenizer(), 0)
	if packed := b.Pack(nil); len(packed) != 0 {
		t.Errorf("expected no chunks, got %d", len(packed))
	}
}

func TestBuildPrompt(t *testing.T) {
	b := NewPromptBuilder(analyzer.NewTokenizer(), 0)
	prompt := b.Build("What is this?", []domain.ScoredChunk{
		scored("README.md", domain.ContentText, 0.9, "A small example."),
	})

	for _, want := range []string{
		"Question: What is this?\n\nContext:\n",
		"\n--- Textual Chunks ---\n",
		"Score: 0.9000\n",
		"Content: A small example.\n",
		"Metadata: {content_type: text, file_name: README.md}\n\n",
		"\n--- No code chunks found ---\n",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if !strings.HasSuffix(prompt, "\nAnswer:") {
		t.Errorf("prompt should end with the answer marker:\n%s", prompt)
	}
	if strings.Index(prompt, "Textual Chunks") > strings.Index(prompt, "No code chunks") {
		t.Error("textual section should precede the code section")
	}
}

func TestExtractiveAnswer(t *testing.T) {
	content := "Score: 0.5\n---\n\nline one\nMetadata: {}\n" + strings.Repeat("more\n", 20)
	answer := ExtractiveAnswer([]domain.ScoredChunk{scored("x", domain.ContentText, 1, content)})

	lines := strings.Split(answer, "\n")
	if len(lines) != 10 {
		t.Fatalf("expected 10 lines, got %d: %q", len(lines), answer)
	}
	if lines[0] != "line one" {
		t.Errorf("expected scaffolding lines to be skipped, got %q", lines[0])
	}
}

func TestExtractiveAnswerTruncates(t *testing.T) {
	long := strings.Repeat("é", 800)
	answer := ExtractiveAnswer([]domain.ScoredChunk{scored("x", domain.ContentText, 1, long)})

	if got := utf8.RuneCountInString(answer); got != extractiveChars+3 {
		t.Errorf("expected %d runes, got %d", extractiveChars+3, got)
	}
	if !strings.HasSuffix(answer, "...") {
		t.Error("truncated answer should end with ...")
	}
}

func TestExtractiveAnswerNeverEmpty(t *testing.T) {
	if ExtractiveAnswer(nil) == "" {
		t.Error("answer without context must not be empty")
	}
	blank := []domain.ScoredChunk{scored("x", domain.ContentText, 1, "\n  \n")}
	if ExtractiveAnswer(blank) != noContextAnswer {
		t.Error("blank context should yield the no-context answer")
	}
}

func TestFormatSources(t *testing.T) {
	long := strings.Repeat("a", 600)
	chunks := []domain.ScoredChunk{
		scored("src/main.py", domain.ContentCode, 0.7, long),
		{Content: "orphan", Type: domain.ContentText, Score: 0.2},
	}

	sources := FormatSources(chunks)
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}

	first := sources[0]
	if first.FileName != "src/main.py" || first.ContentType != domain.ContentCode {
		t.Errorf("unexpected source %+v", first)
	}
	if len(first.Content) != sourcePreviewChars+3 || first.FullContent != long {
		t.Errorf("expected a 500 character preview and the full content")
	}

	second := sources[1]
	if second.FileName != "unknown" || second.ContentType != domain.ContentText {
		t.Errorf("expected fallback name and chunk type, got %+v", second)
	}
}
