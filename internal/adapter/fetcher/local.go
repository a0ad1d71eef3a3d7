package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"

	"reporag/internal/domain"
)

var skipDirs = map[string]struct{}{
	"__pycache__":  {},
	"node_modules": {},
	".git":         {},
	".hg":          {},
	".svn":         {},
	"venv":         {},
	".venv":        {},
	"build":        {},
	"dist":         {},
	".reporag":     {},
}

// LocalOptions filters a local directory walk.
type LocalOptions struct {
	Includes     []string
	Excludes     []string
	FileTypes    []string
	MaxFileBytes int64
}

// LocalFetcher reads a repository checked out on disk.
type LocalFetcher struct {
	includes     []string
	excludes     []string
	fileTypes    []string
	maxFileBytes int64
}

func NewLocalFetcher(opts LocalOptions) *LocalFetcher {
	includes := opts.Includes
	if len(includes) == 0 {
		includes = []string{"**/*"}
	}
	return &LocalFetcher{
		includes:     includes,
		excludes:     opts.Excludes,
		fileTypes:    opts.FileTypes,
		maxFileBytes: opts.MaxFileBytes,
	}
}

func (f *LocalFetcher) Fetch(ctx context.Context, root string) ([]domain.RepoFile, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	gi := loadGitignore(root)

	var files []domain.RepoFile
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := skipDirs[d.Name()]; skip || f.shouldExclude(rel+"/") {
				return filepath.SkipDir
			}
			if gi != nil && gi.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		if !hasFileType(rel, f.fileTypes) || !f.shouldInclude(rel) || f.shouldExclude(rel) {
			return nil
		}

		if f.maxFileBytes > 0 {
			if info, err := d.Info(); err == nil && info.Size() > f.maxFileBytes {
				return nil
			}
		}

		content, err := ReadFile(path)
		if err != nil {
			return nil
		}
		files = append(files, domain.RepoFile{Path: rel, Content: content})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
	return files, nil
}

func (f *LocalFetcher) shouldInclude(path string) bool {
	for _, pattern := range f.includes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

func (f *LocalFetcher) shouldExclude(path string) bool {
	for _, pattern := range f.excludes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}

// ReadFile returns a file's content with invalid UTF-8 dropped.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(data), ""), nil
}
