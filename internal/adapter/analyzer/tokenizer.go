package analyzer

import (
	"log/slog"
	"regexp"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"reporag/internal/port"
)

const DefaultEncoding = "cl100k_base"

// pieceRe approximates subword tokenization: short runs of word characters
// or single punctuation marks, each carrying the whitespace before it.
var pieceRe = regexp.MustCompile(`\s*[\p{L}\p{N}_]{1,4}|\s*[^\p{L}\p{N}_\s]|\s+`)

// Tokenizer is an offline approximation of a BPE tokenizer.
// Averages roughly four characters per token on English text and code.
type Tokenizer struct{}

// NewTokenizer creates a new heuristic Tokenizer.
func NewTokenizer() *Tokenizer {
	return &Tokenizer{}
}

// CountTokens returns the number of approximate subword tokens in text.
func (t *Tokenizer) CountTokens(text string) int {
	return len(t.Split(text))
}

// Split returns the token pieces of text.
func (t *Tokenizer) Split(text string) []string {
	if text == "" {
		return nil
	}
	return pieceRe.FindAllString(text, -1)
}

// TiktokenTokenizer counts tokens with an OpenAI BPE encoding.
type TiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

func NewTiktokenTokenizer(encoding string) (*TiktokenTokenizer, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, err
	}
	return &TiktokenTokenizer{enc: enc}, nil
}

func (t *TiktokenTokenizer) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(t.enc.Encode(text, nil, nil))
}

// Split decodes every token id separately. Tokens that end inside a
// multi-byte character are merged with the following ones, so every piece
// is valid UTF-8.
func (t *TiktokenTokenizer) Split(text string) []string {
	if text == "" {
		return nil
	}
	ids := t.enc.Encode(text, nil, nil)
	pieces := make([]string, len(ids))
	for i, id := range ids {
		pieces[i] = t.enc.Decode([]int{id})
	}
	return WholeRunes(pieces)
}

// WholeRunes merges consecutive pieces until each one is valid UTF-8. The
// concatenation of the result equals the concatenation of pieces.
func WholeRunes(pieces []string) []string {
	out := pieces[:0:0]
	pending := ""
	for _, p := range pieces {
		pending += p
		if utf8.ValidString(pending) {
			out = append(out, pending)
			pending = ""
		}
	}
	if pending != "" {
		out = append(out, pending)
	}
	return out
}

// Tokenizer kinds accepted by New.
const (
	KindTiktoken  = "tiktoken"
	KindHeuristic = "heuristic"
)

// New returns the tokenizer of the given kind. The BPE ranks are fetched on
// first use, so tiktoken falls back to the heuristic tokenizer when they
// cannot be loaded.
func New(kind, encoding string) port.Tokenizer {
	if kind == KindHeuristic {
		return NewTokenizer()
	}
	tk, err := NewTiktokenTokenizer(encoding)
	if err != nil {
		slog.Default().With("component", "tokenizer").Warn("tiktoken unavailable, using heuristic tokenizer", "encoding", encoding, "err", err)
		return NewTokenizer()
	}
	return tk
}
