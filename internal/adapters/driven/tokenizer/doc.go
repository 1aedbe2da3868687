// Package tokenizer provides driven.Tokenizer implementations.
//
// New returns the cl100k_base sub-word vocabulary when it can be loaded and
// falls back to one token per byte otherwise, so token counting never fails.
package tokenizer
