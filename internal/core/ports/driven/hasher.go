package driven

// ContentHasher fingerprints document content for re-import detection.
// Equal inputs must always produce equal hashes.
type ContentHasher interface {
	// Hash returns a hex digest over parts, keeping part boundaries significant.
	Hash(parts ...string) string
}
