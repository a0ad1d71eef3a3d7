package analyzer

import (
	"regexp"
	"strings"
	"sync"
)

// SymbolRule captures one declared name per match in its first group.
type SymbolRule struct {
	Kind    string
	Pattern *regexp.Regexp
}

func rule(kind, expr string) SymbolRule {
	return SymbolRule{Kind: kind, Pattern: regexp.MustCompile(expr)}
}

var (
	symbolMu    sync.RWMutex
	symbolRules = map[string][]SymbolRule{
		"python": {
			rule("function", `(?m)^\s*(?:async\s+)?def\s+([a-zA-Z_]\w*)\s*\(`),
			rule("class", `(?m)^\s*class\s+([a-zA-Z_]\w*)\s*[\(:]`),
		},
		"javascript": jsRules,
		"typescript": append(jsRules, rule("interface", `interface\s+([A-Za-z_]\w*)\b`)),
		"tsx":        append(jsRules, rule("interface", `interface\s+([A-Za-z_]\w*)\b`)),
		"java":       jvmRules,
		"kotlin":     jvmRules,
		"scala":      jvmRules,
		"swift":      jvmRules,
		"go": {
			rule("function", `(?m)^\s*func\s+(?:\(.*?\)\s*)?([A-Za-z_]\w*)\s*[\(\[]`),
			rule("type", `(?m)^\s*type\s+([A-Za-z_]\w*)\s+(?:struct|interface)\b`),
		},
		"rust": {
			rule("function", `(?m)^\s*(?:pub(?:\([^)]*\))?\s+)?(?:async\s+)?fn\s+([A-Za-z_]\w*)`),
			rule("type", `(?m)^\s*(?:pub(?:\([^)]*\))?\s+)?(?:struct|enum|trait)\s+([A-Za-z_]\w*)`),
		},
		"ruby": {
			rule("function", `(?m)^\s*def\s+(?:self\.)?([a-zA-Z_]\w*[?!]?)`),
			rule("class", `(?m)^\s*(?:class|module)\s+([A-Z]\w*)`),
		},
	}
	genericRules = []SymbolRule{
		rule("class", `class\s+([A-Za-z_]\w*)\b`),
		rule("function", `([A-Za-z_][A-Za-z0-9_]*)\s*\([^)\n]*\)\s*\{`),
	}
)

// controlWords are never reported as symbols; the generic rule would
// otherwise pick up "if (x) {".
var controlWords = map[string]struct{}{
	"if": {}, "for": {}, "while": {}, "switch": {}, "catch": {}, "return": {}, "function": {},
}

var jsRules = []SymbolRule{
	rule("function", `function\s*\*?\s*([a-zA-Z_$][\w$]*)\s*\(`),
	rule("class", `class\s+([A-Za-z_$][\w$]*)\b`),
	rule("function", `(?:const|let|var)\s+([a-zA-Z_$][\w$]*)\s*=\s*(?:async\s*)?\(`),
}

var jvmRules = []SymbolRule{
	rule("class", `class\s+([A-Za-z_]\w*)\b`),
	rule("interface", `interface\s+([A-Za-z_]\w*)\b`),
}

// RegisterSymbolRules replaces the rules used for a language.
func RegisterSymbolRules(language string, rules ...SymbolRule) {
	symbolMu.Lock()
	defer symbolMu.Unlock()
	symbolRules[strings.ToLower(language)] = rules
}

func rulesFor(language string) []SymbolRule {
	symbolMu.RLock()
	defer symbolMu.RUnlock()
	if rules, ok := symbolRules[strings.ToLower(language)]; ok {
		return rules
	}
	return genericRules
}

// ExtractSymbols returns the declared names found in text, applying the
// language's rules in order. Names are deduplicated case-insensitively and
// keep their first-seen spelling.
func ExtractSymbols(language, text string) []string {
	var symbols []string
	seen := make(map[string]struct{})

	for _, r := range rulesFor(language) {
		for _, m := range r.Pattern.FindAllStringSubmatch(text, -1) {
			if len(m) < 2 || m[1] == "" {
				continue
			}
			key := strings.ToLower(m[1])
			if _, ctl := controlWords[key]; ctl {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			symbols = append(symbols, m[1])
		}
	}

	return symbols
}
