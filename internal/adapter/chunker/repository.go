package chunker

import (
	"fmt"
	"log/slog"
	"strings"

	"reporag/internal/adapter/analyzer"
	"reporag/internal/domain"
	"reporag/internal/port"
)

// Options tunes the repository chunker.
type Options struct {
	TextOverlapRatio float64
	WindowOverlap    int
	SyntaxAware      bool
}

func DefaultOptions() Options {
	return Options{
		TextOverlapRatio: 0.1,
		WindowOverlap:    DefaultWindowOverlap,
		SyntaxAware:      true,
	}
}

// RepositoryChunker partitions repository files into textual and code
// chunks. Prose goes through the recursive splitter; code tries the syntax
// splitter first, then the code-flavoured recursive splitter, then fixed
// token windows.
type RepositoryChunker struct {
	tokenizer port.Tokenizer
	text      port.Splitter
	code      port.Splitter
	window    port.Splitter
	syntax    *SyntaxSplitter
	logger    *slog.Logger
}

var _ port.Chunker = (*RepositoryChunker)(nil)

func NewRepositoryChunker(tokenizer port.Tokenizer, opts Options) *RepositoryChunker {
	c := &RepositoryChunker{
		tokenizer: tokenizer,
		text:      NewRecursiveSplitter(tokenizer, TextSeparators, opts.TextOverlapRatio),
		code:      NewRecursiveSplitter(tokenizer, CodeSeparators, opts.TextOverlapRatio),
		window:    NewWindowSplitter(tokenizer, opts.WindowOverlap),
		logger:    slog.Default().With("component", "chunker"),
	}
	if opts.SyntaxAware {
		c.syntax = NewSyntaxSplitter(tokenizer, c.code)
	}
	return c
}

func (c *RepositoryChunker) Chunk(files []domain.RepoFile, textTokens, codeTokens int) (domain.ChunkSet, error) {
	if textTokens <= 0 || codeTokens <= 0 {
		return domain.ChunkSet{}, fmt.Errorf("invalid chunk sizes: text=%d code=%d", textTokens, codeTokens)
	}

	var set domain.ChunkSet
	for _, file := range files {
		switch {
		case analyzer.IsText(file.Path):
			set.Text = append(set.Text, c.chunkFile(file, domain.ContentText, textTokens)...)
		case analyzer.IsCode(file.Path):
			set.Code = append(set.Code, c.chunkFile(file, domain.ContentCode, codeTokens)...)
		}
	}

	c.logger.Info("chunked repository",
		"files", len(files),
		"text_chunks", len(set.Text),
		"code_chunks", len(set.Code))
	return set, nil
}

func (c *RepositoryChunker) chunkFile(file domain.RepoFile, kind domain.ContentType, size int) []domain.Chunk {
	content := strings.TrimSpace(file.Content)
	if content == "" {
		return nil
	}

	var pieces []string
	if c.tokenizer.CountTokens(content) <= size {
		pieces = []string{content}
	} else if kind == domain.ContentText {
		pieces = c.splitText(file.Path, content, size)
	} else {
		pieces = c.splitCode(file.Path, content, size)
	}

	ext := strings.TrimPrefix(analyzer.Extension(file.Path), ".")
	chunks := make([]domain.Chunk, 0, len(pieces))
	for _, piece := range pieces {
		if strings.TrimSpace(piece) == "" {
			continue
		}
		chunks = append(chunks, domain.Chunk{
			FileName:      file.Path,
			Content:       piece,
			ChunkIndex:    len(chunks),
			FileExtension: ext,
			Type:          kind,
		})
	}
	return chunks
}

func (c *RepositoryChunker) splitText(path, content string, size int) []string {
	pieces, err := c.text.Split(content, size)
	if err == nil && len(pieces) > 0 {
		return pieces
	}
	c.logger.Warn("recursive split failed, using token windows", "file", path, "error", err)
	return c.windows(content, size)
}

func (c *RepositoryChunker) splitCode(path, content string, size int) []string {
	language := analyzer.DetectLanguage(path)
	if c.syntax != nil && SupportsSyntax(language) {
		pieces, err := c.syntax.SplitLanguage(language, content, size)
		if err == nil && len(pieces) > 0 {
			return pieces
		}
		c.logger.Debug("syntax split unavailable", "file", path, "language", language, "error", err)
	}

	pieces, err := c.code.Split(content, size)
	if err == nil && len(pieces) > 0 {
		return pieces
	}
	c.logger.Warn("recursive split failed, using token windows", "file", path, "error", err)
	return c.windows(content, size)
}

func (c *RepositoryChunker) windows(content string, size int) []string {
	pieces, _ := c.window.Split(content, size)
	if len(pieces) == 0 {
		return []string{content}
	}
	return pieces
}
