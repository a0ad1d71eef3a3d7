package chunker

import (
	"strings"

	"reporag/internal/adapter/analyzer"
	"reporag/internal/port"
)

// DefaultWindowOverlap is the token overlap between consecutive windows.
const DefaultWindowOverlap = 50

// WindowSplitter slices content into fixed-size token windows.
type WindowSplitter struct {
	tokenizer port.Tokenizer
	overlap   int
}

func NewWindowSplitter(tokenizer port.Tokenizer, overlap int) *WindowSplitter {
	if overlap < 0 {
		overlap = DefaultWindowOverlap
	}
	return &WindowSplitter{tokenizer: tokenizer, overlap: overlap}
}

func (s *WindowSplitter) Split(content string, chunkTokens int) ([]string, error) {
	pieces := analyzer.WholeRunes(s.tokenizer.Split(content))
	if len(pieces) == 0 {
		return nil, nil
	}
	if chunkTokens <= 0 {
		chunkTokens = len(pieces)
	}

	overlap := s.overlap
	if overlap >= chunkTokens {
		overlap = chunkTokens / 10
	}
	step := chunkTokens - overlap

	var windows []string
	for start := 0; start < len(pieces); start += step {
		end := start + chunkTokens
		if end > len(pieces) {
			end = len(pieces)
		}
		windows = append(windows, strings.Join(pieces[start:end], ""))
		if end == len(pieces) {
			break
		}
	}
	return windows, nil
}
