package lazy

import (
	"path"
	"regexp"
	"sort"
	"strings"
)

const DefaultMaxFiles = 20

var (
	keywordRe = regexp.MustCompile(`[a-z0-9_]{3,}`)

	pyImportRe = regexp.MustCompile(`(?m)^\s*import\s+([a-zA-Z0-9_.]+)|^\s*from\s+([a-zA-Z0-9_.]+)\s+import`)
	jsImportRe = regexp.MustCompile(`import\s+.*?from\s+['"]([^'"]+)['"]`)
)

var stopwords = map[string]struct{}{
	"what": {}, "this": {}, "about": {}, "that": {},
	"with": {}, "from": {}, "repo": {}, "repository": {},
}

// pathHints boosts files whose path contains the key when the query
// mentions one of the listed words.
var pathHints = []struct {
	key   string
	words []string
}{
	{"auth", []string{"auth", "security", "login", "oauth"}},
	{"test", []string{"test", "tests", "spec"}},
	{"api", []string{"api", "endpoint", "router"}},
	{"db", []string{"db", "database", "model", "schema"}},
	{"docs", []string{"readme", "docs", "guide", "tutorial"}},
}

var jsExtensions = []string{".ts", ".tsx", ".js", ".jsx"}

// FileSelector picks candidate files for a query from a MetadataIndex.
type FileSelector struct {
	index *MetadataIndex
}

func NewFileSelector(index *MetadataIndex) *FileSelector {
	return &FileSelector{index: index}
}

// Keywords returns the distinct lowercase query tokens used for scoring.
func Keywords(query string) []string {
	var tokens []string
	seen := make(map[string]bool)
	for _, w := range keywordRe.FindAllString(strings.ToLower(query), -1) {
		if _, stop := stopwords[w]; stop || seen[w] {
			continue
		}
		seen[w] = true
		tokens = append(tokens, w)
	}
	return tokens
}

// Score rates one indexed file against the query tokens.
func (s *FileSelector) Score(filePath string, tokens []string) float64 {
	md, ok := s.index.Get(filePath)
	if !ok {
		return 0
	}
	pathL := strings.ToLower(filePath)
	headL := strings.ToLower(md.Head)

	var score float64
	for _, t := range tokens {
		if strings.Contains(pathL, t) {
			score += 2
		}
		if strings.Contains(headL, t) {
			score += 1
		}
	}
	for _, sym := range md.Symbols {
		sl := strings.ToLower(sym)
		if contains(tokens, sl) {
			score += 3
			continue
		}
		for _, t := range tokens {
			if strings.Contains(sl, t) {
				score += 1.5
			}
		}
	}
	return score + hintScore(tokens, pathL)
}

// SelectFiles ranks indexed files for query and returns at most maxFiles,
// best first, followed by files the selection imports.
func (s *FileSelector) SelectFiles(query string, maxFiles int) []string {
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	tokens := Keywords(query)

	type scored struct {
		path  string
		score float64
	}
	var ranked []scored
	for _, p := range s.index.Paths() {
		if score := s.Score(p, tokens); score > 0 {
			ranked = append(ranked, scored{p, score})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	if len(ranked) > maxFiles {
		ranked = ranked[:maxFiles]
	}

	selected := make([]string, 0, maxFiles)
	seen := make(map[string]bool)
	for _, r := range ranked {
		selected = append(selected, r.path)
		seen[r.path] = true
	}

	candidates := append([]string(nil), selected...)
	for _, p := range candidates {
		for _, dep := range s.Dependencies(p) {
			if len(selected) >= maxFiles {
				return selected
			}
			if !seen[dep] {
				seen[dep] = true
				selected = append(selected, dep)
			}
		}
	}
	return selected
}

// Dependencies resolves Python and JavaScript/TypeScript imports found in a
// file's head to indexed paths. Resolution is best effort.
func (s *FileSelector) Dependencies(filePath string) []string {
	md, ok := s.index.Get(filePath)
	if !ok {
		return nil
	}
	paths := s.index.Paths()

	var deps []string
	add := func(p string) {
		if p != filePath && !contains(deps, p) {
			deps = append(deps, p)
		}
	}

	for _, m := range pyImportRe.FindAllStringSubmatch(md.Head, -1) {
		module := m[1]
		if module == "" {
			module = m[2]
		}
		guess := strings.Split(module, ".")[0] + ".py"
		for _, p := range paths {
			if p == guess || strings.HasSuffix(p, "/"+guess) {
				add(p)
			}
		}
	}

	dir := path.Dir(filePath)
	for _, m := range jsImportRe.FindAllStringSubmatch(md.Head, -1) {
		rel := m[1]
		if !strings.HasPrefix(rel, ".") {
			continue
		}
		base := path.Join(dir, rel)
		for _, p := range paths {
			if p == base {
				add(p)
				continue
			}
			for _, ext := range jsExtensions {
				if p == base+ext || p == path.Join(base, "index"+ext) {
					add(p)
				}
			}
		}
	}
	return deps
}

func hintScore(tokens []string, pathL string) float64 {
	var score float64
	for _, h := range pathHints {
		if !strings.Contains(pathL, h.key) {
			continue
		}
		for _, w := range h.words {
			if contains(tokens, w) {
				score++
				break
			}
		}
	}
	return score
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
