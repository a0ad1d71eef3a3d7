package lazy

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"reporag/internal/adapter/analyzer"
	"reporag/internal/adapter/store"
	"reporag/internal/domain"
	"reporag/internal/port"
)

// Retriever answers queries from selected file heads instead of a vector
// store. Head embeddings are computed once per file and reused until the
// next Reset.
type Retriever struct {
	selector *FileSelector
	parser   *LazyFileParser
	text     port.Embedder
	code     port.Embedder
	maxFiles int

	mu    sync.Mutex
	heads map[string][]float32
}

func NewRetriever(index *MetadataIndex, parser *LazyFileParser, text, code port.Embedder, maxFiles int) *Retriever {
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	return &Retriever{
		selector: NewFileSelector(index),
		parser:   parser,
		text:     text,
		code:     code,
		maxFiles: maxFiles,
		heads:    make(map[string][]float32),
	}
}

// Reset drops cached parses and head embeddings.
func (r *Retriever) Reset() {
	r.mu.Lock()
	r.heads = make(map[string][]float32)
	r.mu.Unlock()
	r.parser.Reset()
}

// Retrieve returns the top k text and code files for question, scored by
// embedding similarity between the question and each file head.
func (r *Retriever) Retrieve(ctx context.Context, question string, k int) (text, code []domain.ScoredChunk) {
	files := r.parser.ParseFiles(r.selector.SelectFiles(question, r.maxFiles))
	if len(files) == 0 {
		return nil, nil
	}

	var textQuery, codeQuery []float32
	for _, f := range files {
		kind := domain.ContentCode
		embedder := r.code
		if analyzer.IsText(f.Path) {
			kind = domain.ContentText
			embedder = r.text
		}

		var query []float32
		if kind == domain.ContentText {
			if textQuery == nil {
				textQuery = r.text.Embed(ctx, question).Vector
			}
			query = textQuery
		} else {
			if codeQuery == nil {
				codeQuery = r.code.Embed(ctx, question).Vector
			}
			query = codeQuery
		}

		chunk := domain.ScoredChunk{
			ID:      f.Path,
			Content: f.Content,
			Metadata: map[string]string{
				store.MetaFileName:    f.Path,
				store.MetaContentType: string(kind),
				"language":            f.Language,
				"size":                strconv.Itoa(f.Size),
			},
			Score: store.CosineSimilarity(query, r.headEmbedding(ctx, embedder, f)),
			Type:  kind,
		}
		if kind == domain.ContentText {
			text = append(text, chunk)
		} else {
			code = append(code, chunk)
		}
	}
	return topK(text, k), topK(code, k)
}

func (r *Retriever) headEmbedding(ctx context.Context, embedder port.Embedder, f *domain.ParsedFile) []float32 {
	r.mu.Lock()
	v, ok := r.heads[f.Path]
	r.mu.Unlock()
	if ok {
		return v
	}

	v = embedder.Embed(ctx, f.Content).Vector
	r.mu.Lock()
	r.heads[f.Path] = v
	r.mu.Unlock()
	return v
}

// CachedEmbeddings reports how many head embeddings are cached.
func (r *Retriever) CachedEmbeddings() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.heads)
}

func topK(chunks []domain.ScoredChunk, k int) []domain.ScoredChunk {
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Score > chunks[j].Score
	})
	if k > 0 && len(chunks) > k {
		chunks = chunks[:k]
	}
	return chunks
}
