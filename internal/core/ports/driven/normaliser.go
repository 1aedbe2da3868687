package driven

// TextNormaliser canonicalises stored chunk text before prompt assembly.
// Normalise must never fail; malformed input degrades to best-effort output.
type TextNormaliser interface {
	Normalise(text string) string
}

// ImportConverter turns an imported file into a title and plain text.
type ImportConverter interface {
	// Extensions lists the lower-case file extensions handled, dot included.
	Extensions() []string

	// Convert returns the document title and text. The title falls back to
	// the file name when the content carries none. Unreadable input returns
	// an error wrapping domain.ErrInvalidInput.
	Convert(name string, data []byte) (title, text string, err error)
}
