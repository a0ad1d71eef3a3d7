package domain

import "time"

// ContentType separates the two chunk classes. It is fixed at chunking time
// from the file extension and never changes afterwards.
type ContentType string

const (
	ContentText ContentType = "text"
	ContentCode ContentType = "code"
)

// RepoFile is a single fetched file.
type RepoFile struct {
	Path    string
	Content string
}

type Chunk struct {
	FileName      string
	Content       string
	ChunkIndex    int
	FileExtension string
	Type          ContentType
}

// ChunkSet is the chunker output, partitioned by content type.
type ChunkSet struct {
	Text []Chunk
	Code []Chunk
}

func (s ChunkSet) Len() int {
	return len(s.Text) + len(s.Code)
}

type VolumeCategory string

const (
	VolumeSmall  VolumeCategory = "small"
	VolumeMedium VolumeCategory = "medium"
	VolumeLarge  VolumeCategory = "large"
)

type VolumeInfo struct {
	TotalFiles      int            `json:"total_files" yaml:"total_files"`
	TextualFiles    int            `json:"textual_files" yaml:"textual_files"`
	CodeFiles       int            `json:"code_files" yaml:"code_files"`
	EstimatedTokens int            `json:"estimated_tokens" yaml:"estimated_tokens"`
	Category        VolumeCategory `json:"volume_category" yaml:"volume_category"`
	TextChunkSize   int            `json:"text_chunk_size" yaml:"text_chunk_size"`
	CodeChunkSize   int            `json:"code_chunk_size" yaml:"code_chunk_size"`
}

// FileMetadata is the cheap per-file summary kept by the lazy path.
type FileMetadata struct {
	Path     string     `json:"path"`
	Size     int        `json:"size"`
	ModTime  *time.Time `json:"mtime,omitempty"`
	Language string     `json:"language"`
	Head     string     `json:"head"`
	Symbols  []string   `json:"symbols"`
}

// ParsedFile is a shallow, head-only parse produced on demand.
type ParsedFile struct {
	Path     string
	Language string
	Content  string
	Size     int
	Symbols  []string
}

// ScoredChunk is a retrieved document with its ranking score. Score is only
// meaningful for ordering within one result set.
type ScoredChunk struct {
	ID       string
	Content  string
	Metadata map[string]string
	Score    float64
	Type     ContentType
}

type Source struct {
	FileName    string      `json:"file_name"`
	ContentType ContentType `json:"content_type"`
	Score       float64     `json:"score"`
	Content     string      `json:"content"`
	FullContent string      `json:"file_contents,omitempty"`
}

type QueryResult struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

type AnalyzeResult struct {
	Status     string      `json:"status"`
	Message    string      `json:"message"`
	Repository string      `json:"repository"`
	Volume     *VolumeInfo `json:"volume_info,omitempty"`
}

type Route string

const (
	RouteText Route = "text"
	RouteCode Route = "code"
	RouteBoth Route = "both"
)

// RouteWeights holds the per-collection merge weights for a route.
type RouteWeights struct {
	Text float64
	Code float64
}
