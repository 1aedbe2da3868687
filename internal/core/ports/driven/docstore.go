package driven

import (
	"context"

	"github.com/custodia-labs/mnemo/internal/core/domain"
)

// DocumentQuery selects a page of documents within a set of collections.
type DocumentQuery struct {
	// CollectionIDs restricts results to these collections. Empty means no results.
	CollectionIDs []int64

	// Query is the parsed catalog query.
	Query domain.Query

	// Offset and Limit page the newest-first result list.
	Offset int
	Limit  int
}

// DocumentStore persists collections, documents, chunks and tags.
// Backed by SQLite for durable storage.
type DocumentStore interface {
	// EnsureCollection returns the collection with name, creating it if needed.
	EnsureCollection(ctx context.Context, name string) (*domain.Collection, error)

	// GetCollection retrieves a collection by ID.
	GetCollection(ctx context.Context, id int64) (*domain.Collection, error)

	// ListCollections returns every collection ordered by name.
	ListCollections(ctx context.Context) ([]domain.Collection, error)

	// SaveDocument stores a new document with its chunks in one transaction.
	// It assigns doc.ID and the chunk IDs.
	SaveDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id int64) (*domain.Document, error)

	// GetDocuments returns the documents among ids that belong to one of
	// collectionIDs, in the order of ids. Unknown or invisible ids are skipped.
	GetDocuments(ctx context.Context, ids []int64, collectionIDs []int64) ([]domain.Document, error)

	// GetChunks returns a document's chunks ordered by index.
	GetChunks(ctx context.Context, documentID int64) ([]domain.Chunk, error)

	// SearchDocuments returns one page of matches and the total match count.
	SearchDocuments(ctx context.Context, q DocumentQuery) ([]domain.Document, int, error)

	// FindByContentHash returns the document in collectionID with the given hash.
	// Returns domain.ErrNotFound when there is none.
	FindByContentHash(ctx context.Context, collectionID int64, hash string) (*domain.Document, error)

	// SetTags replaces a document's tag set.
	SetTags(ctx context.Context, documentID int64, tags []string) error

	// SetPinned updates a document's pinned flag.
	SetPinned(ctx context.Context, documentID int64, pinned bool) error

	// DeleteDocument removes a document and its chunks.
	DeleteDocument(ctx context.Context, id int64) error

	// DeleteCollectionDocuments removes the documents of a collection,
	// sparing pinned ones when keepPinned is set. Returns the number removed.
	DeleteCollectionDocuments(ctx context.Context, collectionID int64, keepPinned bool) (int, error)

	// CountDocuments returns the number of documents in a collection.
	CountDocuments(ctx context.Context, collectionID int64) (int, error)
}
