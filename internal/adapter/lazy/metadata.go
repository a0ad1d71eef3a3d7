package lazy

import (
	"log/slog"
	"strings"

	"reporag/internal/adapter/analyzer"
	"reporag/internal/domain"
)

const DefaultHeadLines = 20

// MetadataIndex keeps the head lines, language and coarse symbols of every
// file, plus a case-insensitive symbol to paths index.
type MetadataIndex struct {
	headLines int
	logger    *slog.Logger

	paths         []string
	byPath        map[string]domain.FileMetadata
	symbolToPaths map[string][]string
}

func NewMetadataIndex(headLines int) *MetadataIndex {
	if headLines <= 0 {
		headLines = DefaultHeadLines
	}
	return &MetadataIndex{
		headLines:     headLines,
		logger:        slog.Default().With("component", "metadata-index"),
		byPath:        make(map[string]domain.FileMetadata),
		symbolToPaths: make(map[string][]string),
	}
}

// Build replaces the index contents with summaries of files.
func (ix *MetadataIndex) Build(files []domain.RepoFile) *MetadataIndex {
	ix.paths = make([]string, 0, len(files))
	ix.byPath = make(map[string]domain.FileMetadata, len(files))
	ix.symbolToPaths = make(map[string][]string)

	for _, f := range files {
		head := firstLines(f.Content, ix.headLines)
		language := analyzer.DetectLanguage(f.Path)
		md := domain.FileMetadata{
			Path:     f.Path,
			Size:     len(f.Content),
			Language: language,
			Head:     head,
			Symbols:  analyzer.ExtractSymbols(language, head),
		}

		if _, dup := ix.byPath[f.Path]; !dup {
			ix.paths = append(ix.paths, f.Path)
		}
		ix.byPath[f.Path] = md
		for _, s := range md.Symbols {
			key := strings.ToLower(s)
			ix.symbolToPaths[key] = append(ix.symbolToPaths[key], f.Path)
		}
	}

	ix.logger.Info("metadata index built", "files", len(ix.paths), "symbols", len(ix.symbolToPaths))
	return ix
}

func (ix *MetadataIndex) Get(path string) (domain.FileMetadata, bool) {
	md, ok := ix.byPath[path]
	return md, ok
}

// Paths lists indexed paths in fetch order.
func (ix *MetadataIndex) Paths() []string {
	return append([]string(nil), ix.paths...)
}

func (ix *MetadataIndex) SearchBySymbol(token string) []string {
	return ix.symbolToPaths[strings.ToLower(token)]
}

func (ix *MetadataIndex) Len() int {
	return len(ix.paths)
}

func firstLines(content string, n int) string {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}
