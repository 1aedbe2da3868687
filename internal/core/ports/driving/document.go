package driving

import (
	"context"

	"github.com/custodia-labs/mnemo/internal/core/domain"
)

// NewDocument describes a document to ingest.
type NewDocument struct {
	Kind     domain.DocumentKind
	Title    string
	Text     string
	BlobRef  string
	Tags     []string
	ParentID *int64
}

// CreateResult is the outcome of DocumentService.Create.
type CreateResult struct {
	Document *domain.Document
	Chunks   int

	// Existing is set when identical content was already stored.
	Existing bool
}

// DocumentService manages stored documents.
type DocumentService interface {
	// Create chunks and stores a document in the operator's active collection.
	Create(ctx context.Context, operatorID int64, doc NewDocument) (*CreateResult, error)

	// Get retrieves a document by ID.
	Get(ctx context.Context, id int64) (*domain.Document, error)

	// Chunks returns a document's chunks in order.
	Chunks(ctx context.Context, id int64) ([]domain.Chunk, error)

	// SetTags replaces a document's tags.
	SetTags(ctx context.Context, id int64, tags []string) error

	// TogglePin flips the pinned flag and returns the new value.
	TogglePin(ctx context.Context, id int64) (bool, error)

	// Delete removes a document and its chunks.
	Delete(ctx context.Context, id int64) error

	// Cleanup removes a collection's documents. Pinned documents survive when keepPinned is set.
	Cleanup(ctx context.Context, collectionID int64, keepPinned bool) (int, error)

	// ListCollections returns every collection.
	ListCollections(ctx context.Context) ([]domain.Collection, error)

	// CountDocuments returns the number of documents in a collection.
	CountDocuments(ctx context.Context, collectionID int64) (int, error)
}
