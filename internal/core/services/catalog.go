package services

import (
	"context"

	"github.com/custodia-labs/mnemo/internal/core/domain"
	"github.com/custodia-labs/mnemo/internal/core/ports/driven"
	"github.com/custodia-labs/mnemo/internal/core/ports/driving"
	"github.com/custodia-labs/mnemo/internal/logger"
)

// Ensure CatalogService implements the interface.
var _ driving.CatalogService = (*CatalogService)(nil)

// CatalogService lists and searches documents within visible collections.
type CatalogService struct {
	docStore      driven.DocumentStore
	operatorStore driven.OperatorStore
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(docStore driven.DocumentStore, operatorStore driven.OperatorStore) *CatalogService {
	return &CatalogService{
		docStore:      docStore,
		operatorStore: operatorStore,
	}
}

// Search resolves the operator's visible collections and returns one page of matches.
func (s *CatalogService) Search(
	ctx context.Context,
	operatorID int64,
	query string,
	page, pageSize int,
) (*domain.SearchPage, error) {
	if s.docStore == nil || s.operatorStore == nil {
		return nil, domain.ErrNotImplemented
	}

	st, err := s.operatorStore.Get(ctx, operatorID)
	if err != nil {
		return nil, err
	}

	ids, ok, err := visibleCollections(ctx, s.docStore, st)
	if err != nil {
		return nil, err
	}
	if !ok {
		page, pageSize = domain.NormalisePaging(page, pageSize)
		return &domain.SearchPage{
			Documents:          []domain.Document{},
			Page:               page,
			PageSize:           pageSize,
			NoActiveCollection: true,
		}, nil
	}

	return s.SearchIn(ctx, ids, query, page, pageSize)
}

// SearchIn returns one page of matches within the given collections.
func (s *CatalogService) SearchIn(
	ctx context.Context,
	collectionIDs []int64,
	query string,
	page, pageSize int,
) (*domain.SearchPage, error) {
	if s.docStore == nil {
		return nil, domain.ErrNotImplemented
	}

	page, pageSize = domain.NormalisePaging(page, pageSize)
	result := &domain.SearchPage{
		Documents: []domain.Document{},
		Page:      page,
		PageSize:  pageSize,
	}
	if len(collectionIDs) == 0 {
		return result, nil
	}

	q := domain.ParseQuery(query)
	logger.Debug("catalog: %s query %q over %d collection(s), page %d", q.Kind, query, len(collectionIDs), page)

	docs, total, err := s.docStore.SearchDocuments(ctx, driven.DocumentQuery{
		CollectionIDs: collectionIDs,
		Query:         q,
		Offset:        (page - 1) * pageSize,
		Limit:         pageSize,
	})
	if err != nil {
		return nil, err
	}

	result.Documents = dedupeDocuments(docs)
	result.Total = total
	return result, nil
}

// dedupeDocuments keeps the first occurrence of each id.
func dedupeDocuments(docs []domain.Document) []domain.Document {
	seen := make(map[int64]struct{}, len(docs))
	out := make([]domain.Document, 0, len(docs))
	for i := range docs {
		if _, ok := seen[docs[i].ID]; ok {
			continue
		}
		seen[docs[i].ID] = struct{}{}
		out = append(out, docs[i])
	}
	return out
}
