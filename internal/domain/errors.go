package domain

import "errors"

var (
	ErrInvalidRepository = errors.New("invalid repository identifier")
	ErrEmptyQuestion     = errors.New("question cannot be empty")
	ErrNotReady          = errors.New("repository analysis not completed: service is not ready")
	ErrEmbeddingMismatch = errors.New("chunk and embedding counts differ")
	ErrNoFiles           = errors.New("no files found in repository")
	ErrClosed            = errors.New("service is closed")
)
