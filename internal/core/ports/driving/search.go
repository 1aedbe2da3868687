package driving

import (
	"context"

	"github.com/custodia-labs/mnemo/internal/core/domain"
)

// CatalogService lists and searches documents within visible collections.
type CatalogService interface {
	// Search resolves the operator's visible collections and returns one page of matches.
	// An operator without an active collection gets an empty page with
	// NoActiveCollection set, not an error.
	Search(ctx context.Context, operatorID int64, query string, page, pageSize int) (*domain.SearchPage, error)

	// SearchIn returns one page of matches within the given collections.
	SearchIn(ctx context.Context, collectionIDs []int64, query string, page, pageSize int) (*domain.SearchPage, error)
}
