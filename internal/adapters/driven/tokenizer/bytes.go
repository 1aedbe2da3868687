package tokenizer

import (
	"strings"

	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
)

// Ensure Bytes implements the interface.
var _ driven.Tokenizer = Bytes{}

// Bytes counts one token per UTF-8 byte.
type Bytes struct{}

// Name returns "bytes".
func (Bytes) Name() string {
	return "bytes"
}

// Encode returns the bytes of text as token ids.
func (Bytes) Encode(text string) []int {
	out := make([]int, len(text))
	for i := 0; i < len(text); i++ {
		out[i] = int(text[i])
	}
	return out
}

// Decode reassembles bytes, dropping invalid UTF-8.
func (Bytes) Decode(tokens []int) string {
	buf := make([]byte, len(tokens))
	for i, t := range tokens {
		buf[i] = byte(t)
	}
	return strings.ToValidUTF8(string(buf), "")
}

// Count returns len(text).
func (Bytes) Count(text string) int {
	return len(text)
}
