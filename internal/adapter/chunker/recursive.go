package chunker

import (
	"github.com/tmc/langchaingo/textsplitter"

	"reporag/internal/port"
)

var (
	// TextSeparators splits prose by paragraph, then line, word and character.
	TextSeparators = []string{"\n\n", "\n", " ", ""}

	// CodeSeparators prefers declaration boundaries before falling back to
	// the prose separators.
	CodeSeparators = []string{"\nclass ", "\ndef ", "\nfunc ", "\nfunction ", "\n\n", "\n", " ", ""}
)

// RecursiveSplitter splits content by separator priority, measuring chunk
// length in tokens. Separators stay at the start of the piece that follows
// them, so declaration keywords are never dropped.
type RecursiveSplitter struct {
	tokenizer    port.Tokenizer
	separators   []string
	overlapRatio float64
}

func NewRecursiveSplitter(tokenizer port.Tokenizer, separators []string, overlapRatio float64) *RecursiveSplitter {
	if len(separators) == 0 {
		separators = TextSeparators
	}
	if overlapRatio < 0 || overlapRatio >= 1 {
		overlapRatio = 0.1
	}
	return &RecursiveSplitter{
		tokenizer:    tokenizer,
		separators:   separators,
		overlapRatio: overlapRatio,
	}
}

func (s *RecursiveSplitter) Split(content string, chunkTokens int) ([]string, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithSeparators(s.separators),
		textsplitter.WithChunkSize(chunkTokens),
		textsplitter.WithChunkOverlap(int(float64(chunkTokens)*s.overlapRatio)),
		textsplitter.WithLenFunc(s.tokenizer.CountTokens),
		textsplitter.WithKeepSeparator(true),
	)
	return splitter.SplitText(content)
}
