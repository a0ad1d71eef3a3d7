package domain

import "time"

type Stage string

const (
	StageIdle       Stage = "idle"
	StageFetching   Stage = "fetching"
	StageChunking   Stage = "chunking"
	StageEmbedding  Stage = "embedding"
	StagePersisting Stage = "persisting"
	StageMetadata   Stage = "metadata"
	StageReady      Stage = "ready"
	StageFailed     Stage = "failed"
)

// Counters tracks the progress of one analysis run.
type Counters struct {
	Files              int `json:"files"`
	TextChunks         int `json:"text_chunks"`
	CodeChunks         int `json:"code_chunks"`
	Embedded           int `json:"embedded"`
	Stored             int `json:"stored"`
	SkippedDuplicates  int `json:"skipped_duplicates"`
	FallbackEmbeddings int `json:"fallback_embeddings"`
	IndexedFiles       int `json:"indexed_files"`
}

type Status struct {
	Repository string                  `json:"repository"`
	Ready      bool                    `json:"ready"`
	Message    string                  `json:"message"`
	Stage      Stage                   `json:"stage"`
	Lazy       bool                    `json:"lazy"`
	Counters   Counters                `json:"counters"`
	StartedAt  time.Time               `json:"started_at,omitempty"`
	Timestamps map[Stage]time.Time     `json:"timestamps,omitempty"`
	Durations  map[Stage]time.Duration `json:"durations,omitempty"`
	Volume     *VolumeInfo             `json:"volume_info,omitempty"`
	Error      string                  `json:"error,omitempty"`
}
