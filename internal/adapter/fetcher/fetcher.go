package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"reporag/internal/domain"
	"reporag/internal/port"
)

// DefaultFileTypes are the extensions fetched when none are configured.
var DefaultFileTypes = []string{".md", ".txt", ".py", ".json", ".js", ".html", ".tsx"}

// Placeholder is returned when a repository cannot be read, so the
// pipeline still runs end to end.
var Placeholder = []domain.RepoFile{
	{
		Path: "README.md",
		Content: "# Example Repository\n\n" +
			"This repository is a placeholder used when the real repository cannot be fetched.\n\n" +
			"It contains a short README and a small Python module with a hello function.\n",
	},
	{
		Path: "src/main.py",
		Content: "def hello():\n" +
			"    \"\"\"Return a friendly greeting.\"\"\"\n" +
			"    return \"Hello, world!\"\n\n\n" +
			"if __name__ == \"__main__\":\n" +
			"    print(hello())\n",
	},
}

// ValidateIdentifier accepts an existing local directory or an owner/repo
// pair. Identifiers naming a nonexistent repository are rejected.
func ValidateIdentifier(repo string) error {
	repo = strings.TrimSpace(repo)
	if repo == "" {
		return fmt.Errorf("%w: empty identifier", domain.ErrInvalidRepository)
	}
	if isLocalDir(repo) {
		return nil
	}
	if strings.Contains(strings.ToLower(repo), "nonexistent") {
		return fmt.Errorf("%w: %s does not exist", domain.ErrInvalidRepository, repo)
	}
	parts := strings.Split(repo, "/")
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return fmt.Errorf("%w: %q is not owner/repo or a local directory", domain.ErrInvalidRepository, repo)
	}
	return nil
}

func isLocalDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func placeholder() []domain.RepoFile {
	return append([]domain.RepoFile(nil), Placeholder...)
}

// Router validates an identifier, reads it from a local directory or from
// GitHub, and degrades to the placeholder set when reading fails.
type Router struct {
	local  *LocalFetcher
	remote port.Fetcher
	logger *slog.Logger
}

var _ port.Fetcher = (*Router)(nil)

// NewRouter builds a Router. remote may be nil for offline use.
func NewRouter(local *LocalFetcher, remote port.Fetcher) *Router {
	return &Router{
		local:  local,
		remote: remote,
		logger: slog.Default().With("component", "fetcher"),
	}
}

func (r *Router) Fetch(ctx context.Context, repo string) ([]domain.RepoFile, error) {
	if err := ValidateIdentifier(repo); err != nil {
		return nil, err
	}

	var (
		files []domain.RepoFile
		err   error
	)
	switch {
	case isLocalDir(repo):
		files, err = r.local.Fetch(ctx, repo)
	case r.remote != nil:
		files, err = r.remote.Fetch(ctx, repo)
	default:
		err = fmt.Errorf("no remote fetcher configured")
	}

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.logger.Warn("repository fetch failed, using placeholder files", "repository", repo, "err", err)
		return placeholder(), nil
	}
	if len(files) == 0 {
		r.logger.Warn("repository has no matching files, using placeholder files", "repository", repo)
		return placeholder(), nil
	}

	r.logger.Info("fetched repository", "repository", repo, "files", len(files))
	return files, nil
}

func hasFileType(path string, fileTypes []string) bool {
	if len(fileTypes) == 0 {
		return true
	}
	lower := strings.ToLower(path)
	for _, ext := range fileTypes {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}
