// Package plaintext canonicalises stored text before it enters a prompt.
package plaintext

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
	"github.com/custodia-labs/mnemo/internal/logger"
)

// Ensure Normaliser implements the interface.
var _ driven.TextNormaliser = (*Normaliser)(nil)

// Normaliser applies NFC composition and strips control characters,
// keeping newlines and tabs.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Normalise returns the canonical form of text. Invalid UTF-8 is replaced
// with U+FFFD first. If normalisation panics, text is returned unchanged.
func (n *Normaliser) Normalise(text string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("normalise: passing text through after panic: %v", r)
			out = text
		}
	}()

	if !isValid(text) {
		text = strings.ToValidUTF8(text, string(unicode.ReplacementChar))
	}
	composed := norm.NFC.String(text)
	return strings.Map(keep, composed)
}

func keep(r rune) rune {
	if r == '\n' || r == '\t' {
		return r
	}
	if unicode.IsControl(r) || unicode.Is(unicode.Cf, r) || unicode.Is(unicode.Co, r) || unicode.Is(unicode.Cs, r) {
		return -1
	}
	return r
}

func isValid(s string) bool {
	return strings.ToValidUTF8(s, "") == s
}
