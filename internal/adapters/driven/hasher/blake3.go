// Package hasher provides content fingerprints for re-import detection.
package hasher

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/zeebo/blake3"

	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
)

// Ensure Blake3 implements the interface.
var _ driven.ContentHasher = Blake3{}

// Blake3 hashes content with BLAKE3-256.
type Blake3 struct{}

// Hash returns the hex digest over parts. Each part is length-prefixed,
// so ("ab", "c") and ("a", "bc") differ.
func (Blake3) Hash(parts ...string) string {
	h := blake3.New()
	var size [8]byte
	for _, p := range parts {
		binary.BigEndian.PutUint64(size[:], uint64(len(p)))
		_, _ = h.Write(size[:])
		_, _ = h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
