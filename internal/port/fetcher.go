package port

import (
	"context"

	"reporag/internal/domain"
)

// Fetcher retrieves the files of a repository.
type Fetcher interface {
	// Fetch returns the ordered file set for repo. Implementations degrade to
	// a placeholder set on access failures and only return errors for
	// invalid identifiers.
	Fetch(ctx context.Context, repo string) ([]domain.RepoFile, error)
}
