package domain

import (
	"sort"
	"strings"
	"time"
)

// DocumentKind describes how a document entered the store.
type DocumentKind string

// Known document kinds.
const (
	// KindNote is free text typed by the operator.
	KindNote DocumentKind = "note"

	// KindImport is text extracted from an imported file.
	KindImport DocumentKind = "import"

	// KindAnswer is a saved model answer.
	KindAnswer DocumentKind = "answer"
)

// IsValid returns true if the kind is recognised.
func (k DocumentKind) IsValid() bool {
	switch k {
	case KindNote, KindImport, KindAnswer:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (k DocumentKind) String() string {
	return string(k)
}

// Collection is a named grouping of documents.
type Collection struct {
	// ID is the store-assigned identifier.
	ID int64

	// Name is unique across collections.
	Name string

	// CreatedAt is when the collection was created.
	CreatedAt time.Time
}

// Document is a stored unit of knowledge owned by a collection.
type Document struct {
	// ID is the store-assigned identifier.
	ID int64

	// CollectionID links to the owning Collection.
	CollectionID int64

	// Kind records how the document was created.
	Kind DocumentKind

	// Title is the human-readable title. May be empty.
	Title string

	// Text is the full text before chunking.
	Text string

	// BlobRef is an optional reference into external blob storage.
	BlobRef string

	// Pinned documents survive bulk cleanup.
	Pinned bool

	// ParentID links a derived document (e.g. a summary) to its source.
	ParentID *int64

	// ContentHash identifies identical re-imports within a collection.
	ContentHash string

	// Tags is the normalised tag set, sorted.
	Tags []string

	// CreatedAt is when the document was stored.
	CreatedAt time.Time
}

// DisplayTitle returns the title, or the numeric id when the title is empty.
func (d *Document) DisplayTitle() string {
	if strings.TrimSpace(d.Title) != "" {
		return d.Title
	}
	return formatID(d.ID)
}

// Chunk is a token-bounded slice of a document's text.
// Chunks are immutable once stored.
type Chunk struct {
	// ID is the store-assigned identifier.
	ID int64

	// DocumentID links to the owning Document.
	DocumentID int64

	// Index is the sequence position within the document, starting at 0.
	Index int

	// Text is the window text.
	Text string

	// Tokens is the token count of the window.
	Tokens int
}

// NormaliseTags lowercases, trims, strips a leading '#', and de-duplicates
// tags. The result is sorted.
func NormaliseTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t), "#")))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// DefaultTagPresets returns the tags offered when tagging a document.
func DefaultTagPresets() []string {
	return []string{
		"api", "db", "infra", "matching", "ui", "auth",
		"spec", "plan", "answer", "summary", "pinned", "release-notes",
	}
}
