package lazy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reporag/internal/adapter/embedding"
	"reporag/internal/domain"
)

var repoFiles = []domain.RepoFile{
	{Path: "src/auth/login.py", Content: "import utils\nfrom models import User\n\ndef login(user):\n    return utils.check(user)\n"},
	{Path: "src/utils.py", Content: "def check(user):\n    return True\n"},
	{Path: "src/models.py", Content: "class User(Base):\n    pass\n"},
	{Path: "docs/README.md", Content: "# Guide\nHow to install.\n"},
	{Path: "web/app.ts", Content: "import { api } from './api'\nfunction start() {}\n"},
	{Path: "web/api.ts", Content: "export const api = () => {}\n"},
}

func buildIndex(t *testing.T) *MetadataIndex {
	t.Helper()
	ix := NewMetadataIndex(DefaultHeadLines).Build(repoFiles)
	require.Equal(t, len(repoFiles), ix.Len())
	return ix
}

func TestMetadataIndex_Build(t *testing.T) {
	ix := buildIndex(t)

	md, ok := ix.Get("src/auth/login.py")
	require.True(t, ok)
	assert.Equal(t, "python", md.Language)
	assert.Equal(t, []string{"login"}, md.Symbols)
	assert.Equal(t, len(repoFiles[0].Content), md.Size)
	assert.Nil(t, md.ModTime)

	assert.Equal(t, []string{"src/models.py"}, ix.SearchBySymbol("USER"))
	assert.Empty(t, ix.SearchBySymbol("missing"))
}

func TestMetadataIndex_HeadIsBounded(t *testing.T) {
	ix := NewMetadataIndex(2).Build([]domain.RepoFile{{Path: "a.txt", Content: "one\ntwo\nthree\nfour"}})
	md, _ := ix.Get("a.txt")
	assert.Equal(t, "one\ntwo", md.Head)
}

func TestMetadataIndex_RebuildReplaces(t *testing.T) {
	ix := buildIndex(t)
	ix.Build([]domain.RepoFile{{Path: "only.md", Content: "x"}})
	assert.Equal(t, []string{"only.md"}, ix.Paths())
	assert.Empty(t, ix.SearchBySymbol("login"))
}

func TestKeywords(t *testing.T) {
	assert.Equal(t, []string{"auth_token"}, Keywords("What is this repository about auth_token?"))
	assert.Equal(t, []string{"login", "flow"}, Keywords("Login flow, login FLOW"))
}

func TestFileSelector_Score(t *testing.T) {
	s := NewFileSelector(buildIndex(t))
	tokens := Keywords("How does login work?")

	// path +2, head +1, exact symbol +3, auth hint +1
	assert.InDelta(t, 7.0, s.Score("src/auth/login.py", tokens), 1e-9)
	assert.InDelta(t, 1.0, s.Score("docs/README.md", tokens), 1e-9)
	assert.Zero(t, s.Score("src/models.py", tokens))
}

func TestFileSelector_PartialSymbolMatch(t *testing.T) {
	ix := NewMetadataIndex(DefaultHeadLines).Build([]domain.RepoFile{
		{Path: "lib/x.go", Content: "package x\n\nfunc ParseConfigFile() {}\n"},
	})
	s := NewFileSelector(ix)
	// head +1, substring symbol +1.5
	assert.InDelta(t, 2.5, s.Score("lib/x.go", []string{"parseconfig"}), 1e-9)
}

func TestFileSelector_SelectExpandsWithinCap(t *testing.T) {
	s := NewFileSelector(buildIndex(t))

	got := s.SelectFiles("How does login work?", 3)
	assert.Equal(t, []string{"src/auth/login.py", "docs/README.md", "src/utils.py"}, got)

	got = s.SelectFiles("How does login work?", 10)
	assert.Equal(t, []string{"src/auth/login.py", "docs/README.md", "src/utils.py", "src/models.py"}, got)
}

func TestFileSelector_CapNeverEvictsRanked(t *testing.T) {
	s := NewFileSelector(buildIndex(t))
	got := s.SelectFiles("login", 1)
	assert.Equal(t, []string{"src/auth/login.py"}, got)
}

func TestFileSelector_Dependencies(t *testing.T) {
	s := NewFileSelector(buildIndex(t))
	assert.Equal(t, []string{"src/utils.py", "src/models.py"}, s.Dependencies("src/auth/login.py"))
	assert.Equal(t, []string{"web/api.ts"}, s.Dependencies("web/app.ts"))
	assert.Empty(t, s.Dependencies("missing.py"))
}

func TestLazyFileParser_Cache(t *testing.T) {
	ix := buildIndex(t)
	p := NewLazyFileParser(ix, 2)

	first := p.ParseFiles([]string{"src/utils.py", "missing.py"})
	require.Len(t, first, 1)
	assert.Equal(t, "python", first[0].Language)
	assert.Equal(t, []string{"check"}, first[0].Symbols)

	second := p.ParseFiles([]string{"src/utils.py"})
	assert.Same(t, first[0], second[0])

	p.ParseFiles([]string{"src/models.py", "docs/README.md"})
	assert.Equal(t, 2, p.Cached())
	third := p.ParseFiles([]string{"src/utils.py"})
	assert.NotSame(t, first[0], third[0], "evicted entry is rebuilt")
}

func TestRetriever_CachesHeadEmbeddings(t *testing.T) {
	ix := buildIndex(t)
	text := embedding.NewStrategyEmbedder("text", nil, embedding.TextFallbackDimension)
	code := embedding.NewStrategyEmbedder("code", nil, embedding.CodeFallbackDimension)
	r := NewRetriever(ix, NewLazyFileParser(ix, 100), text, code, 5)

	textHits, codeHits := r.Retrieve(context.Background(), "How does login work?", 3)
	require.Len(t, textHits, 1)
	assert.Equal(t, "docs/README.md", textHits[0].Metadata["file_name"])
	assert.Equal(t, domain.ContentText, textHits[0].Type)
	require.Len(t, codeHits, 3)
	for i, h := range codeHits {
		assert.Equal(t, domain.ContentCode, h.Type)
		if i > 0 {
			assert.GreaterOrEqual(t, codeHits[i-1].Score, h.Score)
		}
	}
	assert.Equal(t, 4, r.CachedEmbeddings())

	r.Retrieve(context.Background(), "How does login work?", 3)
	assert.Equal(t, 4, r.CachedEmbeddings())

	r.Reset()
	assert.Zero(t, r.CachedEmbeddings())
}
