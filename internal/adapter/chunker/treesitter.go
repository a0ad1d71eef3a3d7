package chunker

import (
	"context"
	"fmt"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"reporag/internal/port"
)

var grammars = map[string]func() *sitter.Language{
	"go":         golang.GetLanguage,
	"python":     python.GetLanguage,
	"javascript": javascript.GetLanguage,
	"typescript": typescript.GetLanguage,
	"tsx":        tsx.GetLanguage,
	"java":       java.GetLanguage,
	"rust":       rust.GetLanguage,
}

// SupportsSyntax reports whether a tree-sitter grammar is registered for
// the language.
func SupportsSyntax(language string) bool {
	_, ok := grammars[language]
	return ok
}

// TreeSitterParser splits a source file into its top-level declarations.
type TreeSitterParser struct {
	language string
	grammar  *sitter.Language
}

func NewTreeSitterParser(language string) (*TreeSitterParser, error) {
	get, ok := grammars[language]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, language)
	}
	return &TreeSitterParser{language: language, grammar: get()}, nil
}

func (p *TreeSitterParser) Language() string {
	return p.language
}

func (p *TreeSitterParser) Parse(content string) ([]CodeUnit, error) {
	source := []byte(content)

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(p.grammar)

	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", p.language, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	count := int(root.NamedChildCount())
	units := make([]CodeUnit, 0, count)

	// Comments and blank lines belong to the declaration that follows
	// them. Trailing text goes to the last declaration.
	var cursor uint32
	for i := 0; i < count; i++ {
		node := root.NamedChild(i)
		if strings.Contains(node.Type(), "comment") {
			continue
		}
		end := node.EndByte()
		if end <= cursor {
			continue
		}
		units = append(units, CodeUnit{
			Type:    node.Type(),
			Content: string(source[cursor:end]),
		})
		cursor = end
	}
	if int(cursor) < len(source) {
		tail := string(source[cursor:])
		if len(units) == 0 {
			units = append(units, CodeUnit{Type: "source", Content: tail})
		} else {
			units[len(units)-1].Content += tail
		}
	}
	return units, nil
}

// SyntaxSplitter packs top-level declarations into chunks up to the token
// budget. Declarations larger than the budget are split by the fallback.
type SyntaxSplitter struct {
	tokenizer port.Tokenizer
	fallback  port.Splitter

	mu      sync.Mutex
	parsers map[string]LanguageParser
}

func NewSyntaxSplitter(tokenizer port.Tokenizer, fallback port.Splitter) *SyntaxSplitter {
	return &SyntaxSplitter{
		tokenizer: tokenizer,
		fallback:  fallback,
		parsers:   make(map[string]LanguageParser),
	}
}

func (s *SyntaxSplitter) parser(language string) (LanguageParser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.parsers[language]; ok {
		return p, nil
	}
	p, err := NewTreeSitterParser(language)
	if err != nil {
		return nil, err
	}
	s.parsers[language] = p
	return p, nil
}

// SplitLanguage splits content written in language.
func (s *SyntaxSplitter) SplitLanguage(language, content string, chunkTokens int) ([]string, error) {
	p, err := s.parser(language)
	if err != nil {
		return nil, err
	}
	units, err := p.Parse(content)
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("%s: no top-level declarations", language)
	}
	return s.pack(units, chunkTokens)
}

func (s *SyntaxSplitter) pack(units []CodeUnit, chunkTokens int) ([]string, error) {
	var (
		chunks  []string
		current strings.Builder
		tokens  int
	)
	flush := func() {
		if text := strings.TrimSpace(current.String()); text != "" {
			chunks = append(chunks, text)
		}
		current.Reset()
		tokens = 0
	}

	for _, unit := range units {
		n := s.tokenizer.CountTokens(unit.Content)
		if n > chunkTokens {
			flush()
			parts, err := s.fallback.Split(unit.Content, chunkTokens)
			if err != nil {
				return nil, fmt.Errorf("split %s: %w", unit.Type, err)
			}
			for _, part := range parts {
				if part = strings.TrimSpace(part); part != "" {
					chunks = append(chunks, part)
				}
			}
			continue
		}
		if tokens+n > chunkTokens {
			flush()
		}
		current.WriteString(unit.Content)
		tokens += n
	}
	flush()
	return chunks, nil
}
