package tokenizer

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktokenloader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
	"github.com/custodia-labs/mnemo/internal/logger"
)

// DefaultEncoding is the vocabulary used by current OpenAI chat models.
const DefaultEncoding = "cl100k_base"

// Ensure Tiktoken implements the interface.
var _ driven.Tokenizer = (*Tiktoken)(nil)

var loaderOnce sync.Once

// Tiktoken wraps a BPE vocabulary.
type Tiktoken struct {
	name string
	enc  *tiktoken.Tiktoken
}

// NewTiktoken loads the named encoding from the embedded BPE files.
func NewTiktoken(encoding string) (*Tiktoken, error) {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktokenloader.NewOfflineLoader())
	})
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, err
	}
	return &Tiktoken{name: encoding, enc: enc}, nil
}

// New returns the default encoding, or the byte tokenizer if it cannot be loaded.
func New() driven.Tokenizer {
	tok, err := NewTiktoken(DefaultEncoding)
	if err != nil {
		logger.Warn("tokenizer: %s unavailable, counting bytes: %v", DefaultEncoding, err)
		return Bytes{}
	}
	return tok
}

// Name returns the encoding name.
func (t *Tiktoken) Name() string {
	return t.name
}

// Encode returns the token ids of text. Special-token markers are encoded as text.
func (t *Tiktoken) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

// Decode returns the text of tokens, dropping partial runes at the edges.
func (t *Tiktoken) Decode(tokens []int) string {
	return strings.ToValidUTF8(t.enc.Decode(tokens), "")
}

// Count returns the number of tokens in text.
func (t *Tiktoken) Count(text string) int {
	return len(t.Encode(text))
}
