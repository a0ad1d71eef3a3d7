package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"reporag/internal/domain"
	"reporag/internal/port"
)

const DefaultGitHubAPI = "https://api.github.com"

// GitHubOptions configures the GitHub REST fetcher.
type GitHubOptions struct {
	BaseURL      string
	Token        string
	FileTypes    []string
	MaxFileBytes int64
	Timeout      time.Duration
}

// GitHubFetcher lists a repository's tree and downloads matching blobs.
// An empty token uses unauthenticated access.
type GitHubFetcher struct {
	baseURL      string
	token        string
	fileTypes    []string
	maxFileBytes int64
	client       *http.Client
	logger       *slog.Logger
}

var _ port.Fetcher = (*GitHubFetcher)(nil)

type repoResponse struct {
	DefaultBranch string `json:"default_branch"`
}

type treeResponse struct {
	Tree []struct {
		Path string `json:"path"`
		Type string `json:"type"`
		Size int64  `json:"size"`
	} `json:"tree"`
	Truncated bool `json:"truncated"`
}

func NewGitHubFetcher(opts GitHubOptions) *GitHubFetcher {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultGitHubAPI
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	fileTypes := opts.FileTypes
	if len(fileTypes) == 0 {
		fileTypes = DefaultFileTypes
	}
	return &GitHubFetcher{
		baseURL:      baseURL,
		token:        opts.Token,
		fileTypes:    fileTypes,
		maxFileBytes: opts.MaxFileBytes,
		client:       &http.Client{Timeout: timeout},
		logger:       slog.Default().With("component", "github-fetcher"),
	}
}

func (f *GitHubFetcher) Fetch(ctx context.Context, repo string) ([]domain.RepoFile, error) {
	var info repoResponse
	if err := f.getJSON(ctx, "/repos/"+repo, &info); err != nil {
		return nil, fmt.Errorf("get repository: %w", err)
	}
	if info.DefaultBranch == "" {
		info.DefaultBranch = "main"
	}

	var tree treeResponse
	treePath := fmt.Sprintf("/repos/%s/git/trees/%s?recursive=1", repo, url.PathEscape(info.DefaultBranch))
	if err := f.getJSON(ctx, treePath, &tree); err != nil {
		return nil, fmt.Errorf("list tree: %w", err)
	}
	if tree.Truncated {
		f.logger.Warn("tree listing truncated by GitHub", "repository", repo)
	}

	var files []domain.RepoFile
	for _, entry := range tree.Tree {
		if entry.Type != "blob" || !hasFileType(entry.Path, f.fileTypes) {
			continue
		}
		if f.maxFileBytes > 0 && entry.Size > f.maxFileBytes {
			continue
		}

		content, err := f.download(ctx, repo, info.DefaultBranch, entry.Path)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			f.logger.Warn("skipping file", "path", entry.Path, "err", err)
			continue
		}
		files = append(files, domain.RepoFile{Path: entry.Path, Content: content})
	}
	return files, nil
}

func (f *GitHubFetcher) download(ctx context.Context, repo, ref, path string) (string, error) {
	endpoint := fmt.Sprintf("/repos/%s/contents/%s?ref=%s", repo, escapePath(path), url.QueryEscape(ref))
	resp, err := f.do(ctx, endpoint, "application/vnd.github.raw")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return strings.ToValidUTF8(string(body), ""), nil
}

func (f *GitHubFetcher) getJSON(ctx context.Context, endpoint string, out any) error {
	resp, err := f.do(ctx, endpoint, "application/vnd.github+json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(out)
}

func (f *GitHubFetcher) do(ctx context.Context, endpoint, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", accept)
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		resp.Body.Close()
		return nil, fmt.Errorf("GitHub returned status %d: %s", resp.StatusCode, string(body))
	}
	return resp, nil
}

func escapePath(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
