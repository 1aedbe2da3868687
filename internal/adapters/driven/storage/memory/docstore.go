package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
type DocumentStore struct {
	mu          sync.RWMutex
	collections map[int64]domain.Collection
	documents   map[int64]domain.Document
	chunks      map[int64][]domain.Chunk
	nextCol     int64
	nextDoc     int64
	nextChunk   int64
	now         func() time.Time
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		collections: make(map[int64]domain.Collection),
		documents:   make(map[int64]domain.Document),
		chunks:      make(map[int64][]domain.Chunk),
		now:         time.Now,
	}
}

// EnsureCollection returns the collection with name, creating it if needed.
func (s *DocumentStore) EnsureCollection(_ context.Context, name string) (*domain.Collection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.collections {
		if c.Name == name {
			return &c, nil
		}
	}
	s.nextCol++
	c := domain.Collection{ID: s.nextCol, Name: name, CreatedAt: s.now().UTC()}
	s.collections[c.ID] = c
	return &c, nil
}

// GetCollection retrieves a collection by ID.
func (s *DocumentStore) GetCollection(_ context.Context, id int64) (*domain.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

// ListCollections returns every collection ordered by name.
func (s *DocumentStore) ListCollections(_ context.Context) ([]domain.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Collection, 0, len(s.collections))
	for _, c := range s.collections {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// SaveDocument stores a new document with its chunks.
func (s *DocumentStore) SaveDocument(_ context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[doc.CollectionID]; !ok {
		return domain.ErrNotFound
	}
	s.nextDoc++
	doc.ID = s.nextDoc
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = s.now().UTC()
	}
	doc.Tags = domain.NormaliseTags(doc.Tags)
	s.documents[doc.ID] = cloneDocument(*doc)

	stored := make([]domain.Chunk, len(chunks))
	for i := range chunks {
		s.nextChunk++
		chunks[i].ID = s.nextChunk
		chunks[i].DocumentID = doc.ID
		stored[i] = chunks[i]
	}
	s.chunks[doc.ID] = stored
	return nil
}

// GetDocument retrieves a document by ID.
func (s *DocumentStore) GetDocument(_ context.Context, id int64) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	doc = cloneDocument(doc)
	return &doc, nil
}

// GetDocuments returns the visible documents among ids, in the order of ids.
func (s *DocumentStore) GetDocuments(_ context.Context, ids []int64, collectionIDs []int64) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	visible := idSet(collectionIDs)
	out := make([]domain.Document, 0, len(ids))
	for _, id := range ids {
		doc, ok := s.documents[id]
		if !ok {
			continue
		}
		if _, ok := visible[doc.CollectionID]; !ok {
			continue
		}
		out = append(out, cloneDocument(doc))
	}
	return out, nil
}

// GetChunks returns a document's chunks ordered by index.
func (s *DocumentStore) GetChunks(_ context.Context, documentID int64) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks := append([]domain.Chunk(nil), s.chunks[documentID]...)
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })
	return chunks, nil
}

// SearchDocuments returns one page of matches and the total match count.
func (s *DocumentStore) SearchDocuments(_ context.Context, q driven.DocumentQuery) ([]domain.Document, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	visible := idSet(q.CollectionIDs)
	if len(visible) == 0 {
		return []domain.Document{}, 0, nil
	}

	var matches []domain.Document
	for _, doc := range s.documents {
		if _, ok := visible[doc.CollectionID]; !ok {
			continue
		}
		if matchesQuery(doc, q.Query) {
			matches = append(matches, doc)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		}
		return matches[i].ID > matches[j].ID
	})

	total := len(matches)
	start := min(max(q.Offset, 0), total)
	end := total
	if q.Limit > 0 {
		end = min(start+q.Limit, total)
	}
	page := make([]domain.Document, 0, end-start)
	for _, doc := range matches[start:end] {
		page = append(page, cloneDocument(doc))
	}
	return page, total, nil
}

func matchesQuery(doc domain.Document, q domain.Query) bool {
	switch q.Kind {
	case domain.QueryByID:
		return doc.ID == q.ID
	case domain.QueryByTag:
		needle := strings.ToLower(q.Needle)
		for _, t := range doc.Tags {
			if strings.Contains(t, needle) {
				return true
			}
		}
		return false
	case domain.QueryByName:
		return strings.Contains(strings.ToLower(doc.Title), strings.ToLower(q.Needle))
	default:
		return true
	}
}

// FindByContentHash returns the document in collectionID with the given hash.
func (s *DocumentStore) FindByContentHash(_ context.Context, collectionID int64, hash string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, doc := range s.documents {
		if doc.CollectionID == collectionID && doc.ContentHash == hash {
			doc = cloneDocument(doc)
			return &doc, nil
		}
	}
	return nil, domain.ErrNotFound
}

// SetTags replaces a document's tag set.
func (s *DocumentStore) SetTags(_ context.Context, documentID int64, tags []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[documentID]
	if !ok {
		return domain.ErrNotFound
	}
	doc.Tags = domain.NormaliseTags(tags)
	s.documents[documentID] = doc
	return nil
}

// SetPinned updates a document's pinned flag.
func (s *DocumentStore) SetPinned(_ context.Context, documentID int64, pinned bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[documentID]
	if !ok {
		return domain.ErrNotFound
	}
	doc.Pinned = pinned
	s.documents[documentID] = doc
	return nil
}

// DeleteDocument removes a document and its chunks.
func (s *DocumentStore) DeleteDocument(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.documents, id)
	delete(s.chunks, id)
	return nil
}

// DeleteCollectionDocuments removes the documents of a collection.
func (s *DocumentStore) DeleteCollectionDocuments(_ context.Context, collectionID int64, keepPinned bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, doc := range s.documents {
		if doc.CollectionID != collectionID || (keepPinned && doc.Pinned) {
			continue
		}
		delete(s.documents, id)
		delete(s.chunks, id)
		n++
	}
	return n, nil
}

// CountDocuments returns the number of documents in a collection.
func (s *DocumentStore) CountDocuments(_ context.Context, collectionID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, doc := range s.documents {
		if doc.CollectionID == collectionID {
			n++
		}
	}
	return n, nil
}

func cloneDocument(doc domain.Document) domain.Document {
	doc.Tags = append([]string(nil), doc.Tags...)
	if doc.ParentID != nil {
		p := *doc.ParentID
		doc.ParentID = &p
	}
	return doc
}

func idSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
