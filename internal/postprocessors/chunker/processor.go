// Package chunker provides a token-window text chunking processor.
package chunker

import (
	"context"
	"strings"

	"github.com/custodia-labs/mnemo/internal/adapters/driven/tokenizer"
	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
)

// DefaultWindow is the default number of tokens per chunk.
const DefaultWindow = domain.DefaultChunkWindow

// DefaultOverlap is the default number of tokens shared by consecutive chunks.
const DefaultOverlap = domain.DefaultChunkOverlap

// Processor splits document text into overlapping token windows.
// It implements the PostProcessor interface.
type Processor struct {
	window    int
	overlap   int
	tokenizer driven.Tokenizer
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithWindow sets the window size in tokens.
func WithWindow(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.window = size
		}
	}
}

// WithOverlap sets the overlap between windows in tokens.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithTokenizer sets the tokenizer. Defaults to tokenizer.New().
func WithTokenizer(tok driven.Tokenizer) Option {
	return func(p *Processor) {
		if tok != nil {
			p.tokenizer = tok
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		window:  DefaultWindow,
		overlap: DefaultOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.tokenizer == nil {
		p.tokenizer = tokenizer.New()
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Window returns the configured window size.
func (p *Processor) Window() int {
	return p.window
}

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Process splits the document text into chunks.
// Input chunks are ignored; this processor creates new chunks from document text.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	chunks := Chunk(doc.Text, p.window, p.overlap, p.tokenizer)
	for i := range chunks {
		chunks[i].DocumentID = doc.ID
	}
	return chunks, nil
}

// Chunk splits text into windows of window tokens that advance by
// max(1, window-overlap) tokens. Leading and trailing whitespace is ignored;
// blank text yields no chunks. The result depends only on the arguments.
func Chunk(text string, window, overlap int, tok driven.Tokenizer) []domain.Chunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if overlap < 0 {
		overlap = 0
	}
	step := window - overlap
	if step < 1 {
		step = 1
	}

	ids := tok.Encode(text)
	chunks := make([]domain.Chunk, 0, len(ids)/step+1)
	for start := 0; start < len(ids); start += step {
		end := start + window
		if end > len(ids) {
			end = len(ids)
		}
		part := ids[start:end]
		chunks = append(chunks, domain.Chunk{
			Index:  len(chunks),
			Text:   tok.Decode(part),
			Tokens: len(part),
		})
	}
	return chunks
}
