package retriever

import (
	"regexp"
	"sort"
	"strings"

	"reporag/internal/domain"
)

var wordRe = regexp.MustCompile(`[a-z0-9_]+`)

var codeCues = map[string]struct{}{
	"function": {}, "functions": {}, "class": {}, "classes": {}, "method": {}, "methods": {},
	"variable": {}, "traceback": {}, "exception": {}, "stacktrace": {}, "error": {},
	"endpoint": {}, "api": {}, "implementation": {}, "implement": {}, "code": {},
	"return": {}, "returns": {}, "import": {}, "module": {}, "bug": {}, "def": {},
	"func": {}, "struct": {}, "interface": {}, "signature": {}, "call": {}, "calls": {},
}

var textCues = map[string]struct{}{
	"readme": {}, "license": {}, "licence": {}, "install": {}, "installation": {},
	"documentation": {}, "docs": {}, "guide": {}, "tutorial": {}, "overview": {},
	"setup": {}, "usage": {}, "contributing": {}, "changelog": {}, "section": {},
	"description": {}, "introduction": {}, "requirements": {},
}

// Classify routes a question to the text collection, the code collection,
// or both, by the cue words it contains.
func Classify(question string) (domain.Route, domain.RouteWeights) {
	var hasCode, hasText bool
	for _, w := range wordRe.FindAllString(strings.ToLower(question), -1) {
		if _, ok := codeCues[w]; ok {
			hasCode = true
		}
		if _, ok := textCues[w]; ok {
			hasText = true
		}
	}

	switch {
	case hasCode && !hasText:
		return domain.RouteCode, domain.RouteWeights{Code: 1.0}
	case hasText && !hasCode:
		return domain.RouteText, domain.RouteWeights{Text: 1.0}
	default:
		return domain.RouteBoth, domain.RouteWeights{Text: 0.5, Code: 0.5}
	}
}

// Merge combines per-collection results for a route. For RouteBoth each
// list is max-normalized on its own before weighting, and each keeps at
// most k entries, so both content types survive the merge. Other routes
// return the routed list unchanged.
func Merge(route domain.Route, weights domain.RouteWeights, text, code []domain.ScoredChunk, k int) []domain.ScoredChunk {
	switch route {
	case domain.RouteText:
		return limit(sortByScore(clone(text)), k)
	case domain.RouteCode:
		return limit(sortByScore(clone(code)), k)
	}

	merged := make([]domain.ScoredChunk, 0, len(text)+len(code))
	merged = append(merged, limit(reweight(text, weights.Text), k)...)
	merged = append(merged, limit(reweight(code, weights.Code), k)...)
	return sortByScore(merged)
}

// reweight scales scores so the best hit scores weight. Scores that are
// all non-positive are only multiplied by weight.
func reweight(chunks []domain.ScoredChunk, weight float64) []domain.ScoredChunk {
	out := sortByScore(clone(chunks))
	if len(out) == 0 {
		return out
	}
	top := out[0].Score
	for i := range out {
		if top > 0 {
			out[i].Score = out[i].Score / top * weight
		} else {
			out[i].Score *= weight
		}
	}
	return out
}

func clone(chunks []domain.ScoredChunk) []domain.ScoredChunk {
	return append([]domain.ScoredChunk(nil), chunks...)
}

func sortByScore(chunks []domain.ScoredChunk) []domain.ScoredChunk {
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Score > chunks[j].Score
	})
	return chunks
}

func limit(chunks []domain.ScoredChunk, k int) []domain.ScoredChunk {
	if k > 0 && len(chunks) > k {
		return chunks[:k]
	}
	return chunks
}
