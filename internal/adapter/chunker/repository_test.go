package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reporag/internal/adapter/analyzer"
	"reporag/internal/domain"
)

func newTestChunker(syntax bool) *RepositoryChunker {
	opts := DefaultOptions()
	opts.SyntaxAware = syntax
	return NewRepositoryChunker(analyzer.NewTokenizer(), opts)
}

func longProse(paragraphs int) string {
	var b strings.Builder
	for i := 0; i < paragraphs; i++ {
		fmt.Fprintf(&b, "Paragraph %d explains how the service stores its data on disk.\n\n", i)
	}
	return b.String()
}

func pythonModule(functions int) string {
	var b strings.Builder
	for i := 0; i < functions; i++ {
		fmt.Fprintf(&b, "def handler_%d(request):\n    value = request.get('key_%d')\n    return value\n\n\n", i, i)
	}
	return b.String()
}

func TestChunk_PartitionsByExtension(t *testing.T) {
	files := []domain.RepoFile{
		{Path: "README.md", Content: "# Demo\n\nA small project."},
		{Path: "src/main.py", Content: "def hello():\n    return 'hi'\n"},
		{Path: "logo.png", Content: "binary"},
	}

	set, err := newTestChunker(true).Chunk(files, 1000, 800)
	require.NoError(t, err)
	require.Len(t, set.Text, 1)
	require.Len(t, set.Code, 1)

	assert.Equal(t, "README.md", set.Text[0].FileName)
	assert.Equal(t, "md", set.Text[0].FileExtension)
	assert.Equal(t, domain.ContentText, set.Text[0].Type)
	assert.Equal(t, "py", set.Code[0].FileExtension)
	assert.Equal(t, domain.ContentCode, set.Code[0].Type)
}

func TestChunk_SmallFileSingleStrippedChunk(t *testing.T) {
	files := []domain.RepoFile{{Path: "notes.txt", Content: "\n\n  hello world  \n"}}

	set, err := newTestChunker(true).Chunk(files, 1000, 800)
	require.NoError(t, err)
	require.Len(t, set.Text, 1)
	assert.Equal(t, "hello world", set.Text[0].Content)
	assert.Equal(t, 0, set.Text[0].ChunkIndex)
}

func TestChunk_EmptyFilesSkipped(t *testing.T) {
	files := []domain.RepoFile{
		{Path: "empty.md", Content: ""},
		{Path: "blank.py", Content: "  \n\t\n"},
	}

	set, err := newTestChunker(true).Chunk(files, 1000, 800)
	require.NoError(t, err)
	assert.Equal(t, 0, set.Len())
}

func TestChunk_IndicesMonotonicPerFile(t *testing.T) {
	files := []domain.RepoFile{
		{Path: "docs/guide.md", Content: longProse(40)},
		{Path: "docs/other.md", Content: longProse(20)},
	}

	set, err := newTestChunker(true).Chunk(files, 60, 60)
	require.NoError(t, err)

	next := map[string]int{}
	for _, c := range set.Text {
		assert.Equal(t, next[c.FileName], c.ChunkIndex, "file %s", c.FileName)
		next[c.FileName]++
	}
	assert.Greater(t, next["docs/guide.md"], 1)
	assert.Greater(t, next["docs/other.md"], 1)
}

func TestChunk_Idempotent(t *testing.T) {
	files := []domain.RepoFile{
		{Path: "docs/guide.md", Content: longProse(30)},
		{Path: "app/handlers.py", Content: pythonModule(12)},
	}
	c := newTestChunker(true)

	first, err := c.Chunk(files, 50, 40)
	require.NoError(t, err)
	second, err := c.Chunk(files, 50, 40)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestChunk_CodeSplitsOnDeclarations(t *testing.T) {
	files := []domain.RepoFile{{Path: "app/handlers.py", Content: pythonModule(10)}}

	set, err := newTestChunker(true).Chunk(files, 1000, 60)
	require.NoError(t, err)
	require.Greater(t, len(set.Code), 1)

	joined := ""
	for _, c := range set.Code {
		assert.True(t, strings.HasPrefix(c.Content, "def handler_"), c.Content)
		joined += c.Content
	}
	for i := 0; i < 10; i++ {
		assert.Contains(t, joined, fmt.Sprintf("def handler_%d(", i))
	}
}

func TestChunk_CodeWithoutSyntaxSplitter(t *testing.T) {
	files := []domain.RepoFile{{Path: "lib/util.rb", Content: strings.Repeat("puts 'line of ruby output'\n", 80)}}

	set, err := newTestChunker(false).Chunk(files, 1000, 50)
	require.NoError(t, err)
	require.Greater(t, len(set.Code), 1)
	for i, c := range set.Code {
		assert.Equal(t, i, c.ChunkIndex)
		assert.Equal(t, "rb", c.FileExtension)
	}
}

func rubyModule(methods int) string {
	var b strings.Builder
	for i := 0; i < methods; i++ {
		fmt.Fprintf(&b, "def handler_%d(request)\n  value = request[:key_%d]\n  value\nend\n", i, i)
	}
	return b.String()
}

func TestChunk_RecursiveCodeKeepsDeclarations(t *testing.T) {
	files := []domain.RepoFile{{Path: "lib/handlers.rb", Content: rubyModule(40)}}

	set, err := newTestChunker(true).Chunk(files, 1000, 120)
	require.NoError(t, err)
	require.Greater(t, len(set.Code), 1)

	var joined strings.Builder
	for _, c := range set.Code {
		assert.True(t, strings.HasPrefix(c.Content, "def handler_"), "chunk %d starts with %q", c.ChunkIndex, c.Content)
		joined.WriteString(c.Content)
	}
	for i := 0; i < 40; i++ {
		assert.Contains(t, joined.String(), fmt.Sprintf("def handler_%d(request)", i))
	}
}

func TestChunk_TextChunksOverlap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "Step %d is done.\n\n", i)
	}
	files := []domain.RepoFile{{Path: "docs/steps.md", Content: b.String()}}

	const size = 60
	tok := analyzer.NewTokenizer()
	set, err := newTestChunker(true).Chunk(files, size, 800)
	require.NoError(t, err)
	require.Greater(t, len(set.Text), 2)

	for i := 1; i < len(set.Text); i++ {
		prev, next := set.Text[i-1].Content, set.Text[i].Content
		assert.LessOrEqual(t, tok.CountTokens(prev), size)

		shared := strings.SplitN(next, "\n\n", 2)[0]
		assert.True(t, strings.HasSuffix(prev, shared), "chunk %d does not repeat the end of chunk %d", i, i-1)
		assert.Positive(t, tok.CountTokens(shared))
		assert.LessOrEqual(t, tok.CountTokens(shared), size/10)
	}
}

func TestChunk_RejectsInvalidSizes(t *testing.T) {
	_, err := newTestChunker(true).Chunk(nil, 0, 100)
	assert.Error(t, err)
}

func TestTreeSitterParser_Unsupported(t *testing.T) {
	_, err := NewTreeSitterParser("cobol")
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
	assert.False(t, SupportsSyntax("cobol"))
	assert.True(t, SupportsSyntax("go"))
}

func TestTreeSitterParser_AttachesLeadingComments(t *testing.T) {
	p, err := NewTreeSitterParser("go")
	require.NoError(t, err)

	src := "package demo\n\n// Add sums.\nfunc Add(a, b int) int { return a + b }\n"
	units, err := p.Parse(src)
	require.NoError(t, err)

	var joined string
	for _, u := range units {
		joined += u.Content
	}
	assert.Equal(t, src, joined)

	last := units[len(units)-1]
	assert.Equal(t, "function_declaration", last.Type)
	assert.Contains(t, last.Content, "// Add sums.")
}
