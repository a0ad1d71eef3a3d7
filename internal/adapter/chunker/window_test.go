package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reporag/internal/adapter/analyzer"
)

func TestWindowSplitter_Overlap(t *testing.T) {
	tok := analyzer.NewTokenizer()
	content := strings.Repeat(" ab", 200)
	pieces := tok.Split(content)
	require.Len(t, pieces, 200)

	windows, err := NewWindowSplitter(tok, 50).Split(content, 100)
	require.NoError(t, err)
	require.Len(t, windows, 3)

	assert.Equal(t, strings.Join(pieces[0:100], ""), windows[0])
	assert.Equal(t, strings.Join(pieces[50:150], ""), windows[1])
	assert.Equal(t, strings.Join(pieces[100:200], ""), windows[2])
}

func TestWindowSplitter_OverlapLargerThanWindow(t *testing.T) {
	tok := analyzer.NewTokenizer()
	content := strings.Repeat(" ab", 100)

	windows, err := NewWindowSplitter(tok, 50).Split(content, 40)
	require.NoError(t, err)

	// overlap shrinks to a tenth of the window, so the step is 36
	require.Len(t, windows, 3)
	assert.Equal(t, 40, tok.CountTokens(windows[0]))
	assert.Equal(t, 28, tok.CountTokens(windows[2]))
}

func TestWindowSplitter_Empty(t *testing.T) {
	windows, err := NewWindowSplitter(analyzer.NewTokenizer(), 50).Split("", 100)
	require.NoError(t, err)
	assert.Empty(t, windows)
}

// byteTokenizer treats every byte as a token.
type byteTokenizer struct{}

func (byteTokenizer) CountTokens(text string) int { return len(text) }

func (byteTokenizer) Split(text string) []string {
	pieces := make([]string, len(text))
	for i := 0; i < len(text); i++ {
		pieces[i] = text[i : i+1]
	}
	return pieces
}

func TestWindowSplitter_KeepsCharactersWhole(t *testing.T) {
	content := strings.Repeat("日本語のテキスト ", 20)

	windows, err := NewWindowSplitter(byteTokenizer{}, 3).Split(content, 10)
	require.NoError(t, err)
	require.Greater(t, len(windows), 1)
	for _, w := range windows {
		assert.True(t, utf8.ValidString(w), "window %q", w)
	}
}
