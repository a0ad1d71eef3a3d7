package port

type Tokenizer interface {
	CountTokens(text string) int

	// Split breaks text into token pieces of valid UTF-8. Concatenating the
	// pieces yields the original text.
	Split(text string) []string
}
