package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"

	"reporag/internal/domain"
	"reporag/internal/port"
)

const (
	DefaultBatchSize = 1000

	TextCollection = "textual_collection"
	CodeCollection = "code_collection"

	TextPrefix = "text"
	CodePrefix = "code"
)

// Metadata keys stored with every chunk.
const (
	MetaFileName      = "file_name"
	MetaChunkIndex    = "chunk_index"
	MetaFileExtension = "file_extension"
	MetaContentType   = "content_type"
)

// ChunkID derives the stable id of a chunk, so re-indexing the same file
// maps onto the same entries.
func ChunkID(prefix, fileName string, chunkIndex int) string {
	sum := sha256.Sum256([]byte(prefix + ":" + fileName + ":" + strconv.Itoa(chunkIndex)))
	return hex.EncodeToString(sum[:16])
}

// UpsertStats reports the outcome of an Upsert.
type UpsertStats struct {
	Added   int
	Skipped int
}

// Index writes chunks into a collection without duplicating ids and reads
// them back as scored chunks.
type Index struct {
	collection port.Collection
	prefix     string
	kind       domain.ContentType
	batchSize  int
	logger     *slog.Logger
}

func NewIndex(collection port.Collection, kind domain.ContentType, batchSize int) *Index {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	prefix := TextPrefix
	if kind == domain.ContentCode {
		prefix = CodePrefix
	}
	return &Index{
		collection: collection,
		prefix:     prefix,
		kind:       kind,
		batchSize:  batchSize,
		logger:     slog.Default().With("component", "index", "collection", collection.Name()),
	}
}

func (ix *Index) Collection() port.Collection {
	return ix.collection
}

func (ix *Index) Upsert(ctx context.Context, chunks []domain.Chunk, embeddings [][]float32) (UpsertStats, error) {
	var stats UpsertStats
	if len(chunks) != len(embeddings) {
		return stats, fmt.Errorf("%w: %d chunks, %d embeddings", domain.ErrEmbeddingMismatch, len(chunks), len(embeddings))
	}
	if len(chunks) == 0 {
		return stats, nil
	}

	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = ChunkID(ix.prefix, c.FileName, c.ChunkIndex)
	}

	existing, err := ix.collection.Existing(ctx, ids)
	if err != nil {
		return stats, fmt.Errorf("check existing ids: %w", err)
	}

	pending := make([]port.VectorItem, 0, len(chunks))
	seen := make(map[string]bool, len(chunks))
	for i, c := range chunks {
		id := ids[i]
		if existing[id] || seen[id] {
			stats.Skipped++
			continue
		}
		seen[id] = true
		pending = append(pending, port.VectorItem{
			ID:        id,
			Document:  c.Content,
			Metadata:  chunkMetadata(c, ix.kind),
			Embedding: embeddings[i],
		})
	}

	for start := 0; start < len(pending); start += ix.batchSize {
		end := start + ix.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		if err := ix.collection.Add(ctx, pending[start:end]); err != nil {
			return stats, fmt.Errorf("add batch %d-%d: %w", start, end, err)
		}
		stats.Added += end - start
	}

	ix.logger.Info("upserted chunks", "added", stats.Added, "skipped", stats.Skipped)
	return stats, nil
}

// Search returns the k nearest chunks with score 1 - distance. Scores are
// only meaningful for ranking.
func (ix *Index) Search(ctx context.Context, embedding []float32, k int) ([]domain.ScoredChunk, error) {
	hits, err := ix.collection.Query(ctx, embedding, k, nil)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", ix.collection.Name(), err)
	}

	results := make([]domain.ScoredChunk, 0, len(hits))
	for _, h := range hits {
		results = append(results, domain.ScoredChunk{
			ID:       h.ID,
			Content:  h.Document,
			Metadata: h.Metadata,
			Score:    1 - h.Distance,
			Type:     ix.kind,
		})
	}
	return results, nil
}

func chunkMetadata(c domain.Chunk, kind domain.ContentType) map[string]string {
	meta := map[string]string{
		MetaFileName:    c.FileName,
		MetaChunkIndex:  strconv.Itoa(c.ChunkIndex),
		MetaContentType: string(kind),
	}
	if c.FileExtension != "" {
		meta[MetaFileExtension] = c.FileExtension
	}
	return meta
}
