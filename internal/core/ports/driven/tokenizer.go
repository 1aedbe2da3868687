package driven

// Tokenizer converts text to and from token ids.
// Implementations must be deterministic and must not fail.
type Tokenizer interface {
	// Name identifies the vocabulary, e.g. "cl100k_base" or "bytes".
	Name() string

	// Encode returns the token ids of text.
	Encode(text string) []int

	// Decode returns the text of tokens. Invalid UTF-8 at window edges is dropped.
	Decode(tokens []int) string

	// Count returns len(Encode(text)).
	Count(text string) int
}
