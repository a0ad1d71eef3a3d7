package usecase

import (
	"context"
	"log/slog"

	"reporag/internal/adapter/lazy"
	"reporag/internal/adapter/retriever"
	"reporag/internal/domain"
)

// Candidates returns per-collection hits for a question. route tells the
// source which content types are wanted.
type Candidates interface {
	Candidates(ctx context.Context, route domain.Route, question string, k int) (text, code []domain.ScoredChunk, err error)
}

// RetrieveUseCase handles search and retrieval operations.
type RetrieveUseCase struct {
	source Candidates
	logger *slog.Logger
}

func NewRetrieveUseCase(source Candidates) *RetrieveUseCase {
	return &RetrieveUseCase{
		source: source,
		logger: slog.Default().With("component", "retrieve"),
	}
}

// Retrieve routes the question, gathers candidates and merges them into a
// single ranked list.
func (u *RetrieveUseCase) Retrieve(ctx context.Context, question string, topK int) (domain.Route, []domain.ScoredChunk, error) {
	route, weights := retriever.Classify(question)

	text, code, err := u.source.Candidates(ctx, route, question, topK)
	if err != nil {
		return route, nil, err
	}

	merged := retriever.Merge(route, weights, text, code, topK)
	u.logger.Debug("retrieved chunks",
		"route", route,
		"text_candidates", len(text),
		"code_candidates", len(code),
		"merged", len(merged))
	return route, merged, nil
}

// VectorCandidates searches the collections the route asks for.
type VectorCandidates struct {
	Text *retriever.SemanticRetriever
	Code *retriever.SemanticRetriever
}

func (v VectorCandidates) Candidates(ctx context.Context, route domain.Route, question string, k int) (text, code []domain.ScoredChunk, err error) {
	if route != domain.RouteCode {
		if text, err = v.Text.Search(ctx, question, k); err != nil {
			return nil, nil, err
		}
	}
	if route != domain.RouteText {
		if code, err = v.Code.Search(ctx, question, k); err != nil {
			return nil, nil, err
		}
	}
	return text, code, nil
}

// LazyCandidates scores selected file heads instead of stored chunks.
type LazyCandidates struct {
	Retriever *lazy.Retriever
}

func (l LazyCandidates) Candidates(ctx context.Context, _ domain.Route, question string, k int) (text, code []domain.ScoredChunk, err error) {
	text, code = l.Retriever.Retrieve(ctx, question, k)
	return text, code, nil
}
