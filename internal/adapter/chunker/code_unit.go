package chunker

import "errors"

// ErrUnsupportedLanguage is returned when no syntax-aware parser exists
// for a language.
var ErrUnsupportedLanguage = errors.New("no syntax-aware parser for language")

// CodeUnit is one top-level syntactic element of a source file, together
// with the comments and blank lines that precede it.
type CodeUnit struct {
	Type    string
	Content string
}

type LanguageParser interface {
	Parse(content string) ([]CodeUnit, error)

	Language() string
}
