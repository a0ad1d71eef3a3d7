package port

import "reporag/internal/domain"

// Splitter breaks one file's content into token-bounded segments.
type Splitter interface {
	Split(content string, chunkTokens int) ([]string, error)
}

type Chunker interface {
	Chunk(files []domain.RepoFile, textTokens, codeTokens int) (domain.ChunkSet, error)
}
