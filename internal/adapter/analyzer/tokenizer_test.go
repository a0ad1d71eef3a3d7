package analyzer

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTokenizer_SplitReconstructsText(t *testing.T) {
	tok := NewTokenizer()

	texts := []string{
		"running dogs are playing",
		"def hello():\n    return \"world\"\n",
		"  leading and trailing  \n\n",
		"naïve façade — ünïcode",
	}
	for _, text := range texts {
		pieces := tok.Split(text)
		if got := strings.Join(pieces, ""); got != text {
			t.Errorf("pieces of %q joined to %q", text, got)
		}
	}
}

func TestTokenizer_CountTokens(t *testing.T) {
	tok := NewTokenizer()

	if n := tok.CountTokens(""); n != 0 {
		t.Errorf("expected 0 tokens for empty text, got %d", n)
	}

	// "the" "quick" is split into "quic"+"k"
	if n := tok.CountTokens("the quick"); n != 3 {
		t.Errorf("expected 3 tokens, got %d", n)
	}

	// punctuation is counted separately
	if n := tok.CountTokens("f(x);"); n != 5 {
		t.Errorf("expected 5 tokens, got %d", n)
	}
}

func TestTokenizer_CountMatchesSplit(t *testing.T) {
	tok := NewTokenizer()
	text := strings.Repeat("lorem ipsum dolor sit amet, ", 20)

	if tok.CountTokens(text) != len(tok.Split(text)) {
		t.Error("CountTokens must equal the number of split pieces")
	}
}

func TestNew_Heuristic(t *testing.T) {
	tok := New(KindHeuristic, "")
	if _, ok := tok.(*Tokenizer); !ok {
		t.Errorf("expected heuristic tokenizer, got %T", tok)
	}
}

func TestWholeRunes_MergesPartialCharacters(t *testing.T) {
	word := "héllo 日本"
	var bytes []string
	for i := 0; i < len(word); i++ {
		bytes = append(bytes, word[i:i+1])
	}

	pieces := WholeRunes(bytes)
	if got := strings.Join(pieces, ""); got != word {
		t.Fatalf("pieces joined to %q, want %q", got, word)
	}
	if len(pieces) != utf8.RuneCountInString(word) {
		t.Errorf("expected one piece per rune, got %d pieces", len(pieces))
	}
	for _, p := range pieces {
		if !utf8.ValidString(p) {
			t.Errorf("piece %q is not valid UTF-8", p)
		}
	}
}
