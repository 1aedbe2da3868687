package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
	"github.com/custodia-labs/mnemo/internal/core/ports/driving"
	"github.com/custodia-labs/mnemo/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService ingests and manages stored documents.
type DocumentService struct {
	docStore      driven.DocumentStore
	operatorStore driven.OperatorStore
	pipeline      driven.PostProcessorPipeline
	hasher        driven.ContentHasher
	normaliser    driven.TextNormaliser

	// chunkKey identifies the chunking parameters so that content chunked
	// differently is not mistaken for a re-import.
	chunkKey string

	now func() time.Time
}

// NewDocumentService creates a new document service.
// hasher and normaliser may be nil; re-import detection is then disabled.
func NewDocumentService(
	docStore driven.DocumentStore,
	operatorStore driven.OperatorStore,
	pipeline driven.PostProcessorPipeline,
	hasher driven.ContentHasher,
	normaliser driven.TextNormaliser,
	chunkKey string,
) *DocumentService {
	return &DocumentService{
		docStore:      docStore,
		operatorStore: operatorStore,
		pipeline:      pipeline,
		hasher:        hasher,
		normaliser:    normaliser,
		chunkKey:      chunkKey,
		now:           time.Now,
	}
}

// Create chunks and stores a document in the operator's active collection.
// Identical content already stored in that collection is returned instead.
func (s *DocumentService) Create(ctx context.Context, operatorID int64, in driving.NewDocument) (*driving.CreateResult, error) {
	if s.docStore == nil || s.operatorStore == nil || s.pipeline == nil {
		return nil, domain.ErrNotImplemented
	}

	kind := in.Kind
	if kind == "" {
		kind = domain.KindNote
	}
	if !kind.IsValid() {
		return nil, fmt.Errorf("document kind %q: %w", kind, domain.ErrInvalidInput)
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, fmt.Errorf("document text is empty: %w", domain.ErrInvalidInput)
	}

	st, err := s.operatorStore.Get(ctx, operatorID)
	if err != nil {
		return nil, err
	}
	if st.ActiveCollectionID == nil {
		return nil, domain.ErrNoActiveCollection
	}
	collectionID := *st.ActiveCollectionID

	if in.ParentID != nil {
		if _, err := s.docStore.GetDocument(ctx, *in.ParentID); err != nil {
			return nil, fmt.Errorf("parent document %d: %w", *in.ParentID, err)
		}
	}

	hash := s.contentHash(text)
	if hash != "" {
		existing, err := s.docStore.FindByContentHash(ctx, collectionID, hash)
		switch {
		case err == nil:
			logger.Debug("documents: content already stored as %d", existing.ID)
			return &driving.CreateResult{Document: existing, Existing: true}, nil
		case !errors.Is(err, domain.ErrNotFound):
			return nil, err
		}
	}

	doc := &domain.Document{
		CollectionID: collectionID,
		Kind:         kind,
		Title:        strings.TrimSpace(in.Title),
		Text:         text,
		BlobRef:      in.BlobRef,
		ParentID:     in.ParentID,
		ContentHash:  hash,
		Tags:         domain.NormaliseTags(in.Tags),
		CreatedAt:    s.now().UTC(),
	}

	chunks, err := s.pipeline.Process(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("chunking document: %w", err)
	}
	if err := s.docStore.SaveDocument(ctx, doc, chunks); err != nil {
		return nil, err
	}

	logger.Info("documents: stored %s %d with %d chunk(s)", doc.Kind, doc.ID, len(chunks))
	return &driving.CreateResult{Document: doc, Chunks: len(chunks)}, nil
}

func (s *DocumentService) contentHash(text string) string {
	if s.hasher == nil {
		return ""
	}
	if s.normaliser != nil {
		text = s.normaliser.Normalise(text)
	}
	return s.hasher.Hash(s.chunkKey, text)
}

// Get retrieves a document by ID.
func (s *DocumentService) Get(ctx context.Context, id int64) (*domain.Document, error) {
	if s.docStore == nil {
		return nil, domain.ErrNotImplemented
	}
	return s.docStore.GetDocument(ctx, id)
}

// Chunks returns a document's chunks in order.
func (s *DocumentService) Chunks(ctx context.Context, id int64) ([]domain.Chunk, error) {
	if s.docStore == nil {
		return nil, domain.ErrNotImplemented
	}
	if _, err := s.docStore.GetDocument(ctx, id); err != nil {
		return nil, err
	}
	return s.docStore.GetChunks(ctx, id)
}

// SetTags replaces a document's tags.
func (s *DocumentService) SetTags(ctx context.Context, id int64, tags []string) error {
	if s.docStore == nil {
		return domain.ErrNotImplemented
	}
	return s.docStore.SetTags(ctx, id, domain.NormaliseTags(tags))
}

// TogglePin flips the pinned flag.
func (s *DocumentService) TogglePin(ctx context.Context, id int64) (bool, error) {
	if s.docStore == nil {
		return false, domain.ErrNotImplemented
	}
	doc, err := s.docStore.GetDocument(ctx, id)
	if err != nil {
		return false, err
	}
	pinned := !doc.Pinned
	if err := s.docStore.SetPinned(ctx, id, pinned); err != nil {
		return false, err
	}
	return pinned, nil
}

// Delete removes a document and its chunks.
func (s *DocumentService) Delete(ctx context.Context, id int64) error {
	if s.docStore == nil {
		return domain.ErrNotImplemented
	}
	return s.docStore.DeleteDocument(ctx, id)
}

// Cleanup removes a collection's documents.
func (s *DocumentService) Cleanup(ctx context.Context, collectionID int64, keepPinned bool) (int, error) {
	if s.docStore == nil {
		return 0, domain.ErrNotImplemented
	}
	if _, err := s.docStore.GetCollection(ctx, collectionID); err != nil {
		return 0, err
	}
	n, err := s.docStore.DeleteCollectionDocuments(ctx, collectionID, keepPinned)
	if err != nil {
		return 0, err
	}
	logger.Info("documents: removed %d document(s) from collection %d", n, collectionID)
	return n, nil
}

// ListCollections returns every collection.
func (s *DocumentService) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	if s.docStore == nil {
		return nil, domain.ErrNotImplemented
	}
	return s.docStore.ListCollections(ctx)
}

// CountDocuments returns the number of documents in a collection.
func (s *DocumentService) CountDocuments(ctx context.Context, collectionID int64) (int, error) {
	if s.docStore == nil {
		return 0, domain.ErrNotImplemented
	}
	return s.docStore.CountDocuments(ctx, collectionID)
}
